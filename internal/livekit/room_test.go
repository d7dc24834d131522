package livekit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatarstream/internal/domain"
)

// countingObserver grabs mu on every disconnect callback, standing in for a
// controller that serializes callbacks behind its own mutex.
type countingObserver struct {
	mu          *sync.Mutex
	disconnects int
}

func (o *countingObserver) OnTrackSubscribed(domain.RemoteTrack) {}

func (o *countingObserver) OnDisconnected() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disconnects++
}

func (o *countingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.disconnects
}

// newTestRoom wires a Room to one end of a live websocket pair and returns
// the server end alongside it.
func newTestRoom(t *testing.T, obs domain.RoomObserver) (*Room, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		c, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		serverConns <- c
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	pc, err := newPeerConnection()
	require.NoError(t, err)

	r := &Room{
		pc:     pc,
		conn:   conn,
		obs:    obs,
		log:    zerolog.Nop(),
		closed: make(chan struct{}),
	}
	return r, <-serverConns
}

// A dropped socket sends the read loop into remote teardown, where the
// observer callback waits on the controller's mutex. A Disconnect issued
// while that mutex is held must still return instead of queueing behind
// the same teardown.
func TestDisconnectReturnsWhileRemoteTeardownWaitsOnObserver(t *testing.T) {
	var ctl sync.Mutex
	obs := &countingObserver{mu: &ctl}
	r, server := newTestRoom(t, obs)

	go r.readLoop()

	ctl.Lock()
	require.NoError(t, server.Close())

	select {
	case <-r.closed:
	case <-time.After(2 * time.Second):
		ctl.Unlock()
		t.Fatal("read loop never reacted to the dropped socket")
	}

	done := make(chan error, 1)
	go func() { done <- r.Disconnect() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		ctl.Unlock()
		t.Fatal("Disconnect blocked behind the remote teardown")
	}

	ctl.Unlock()
	require.Eventually(t, func() bool {
		return obs.count() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestLocalDisconnectDoesNotNotifyObserver(t *testing.T) {
	var ctl sync.Mutex
	obs := &countingObserver{mu: &ctl}
	r, server := newTestRoom(t, obs)
	defer server.Close()

	go r.readLoop()

	require.NoError(t, r.Disconnect())

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, obs.count())
}

func TestAwaitJoinReplaysEarlyOffer(t *testing.T) {
	var ctl sync.Mutex
	obs := &countingObserver{mu: &ctl}
	r, server := newTestRoom(t, obs)
	defer r.Disconnect()
	defer server.Close()

	require.NoError(t, server.WriteJSON(signalMessage{Type: "offer", SDP: subscriberOfferSDP(t)}))
	require.NoError(t, server.WriteJSON(signalMessage{Type: "join"}))

	require.NoError(t, r.awaitJoin())

	var answer signalMessage
	require.NoError(t, server.ReadJSON(&answer))
	assert.Equal(t, "answer", answer.Type)
	assert.NotEmpty(t, answer.SDP)
}

// subscriberOfferSDP builds a real offer the way the room server would, via
// a second peer connection publishing audio and video.
func subscriberOfferSDP(t *testing.T) string {
	t.Helper()

	pc, err := newPeerConnection()
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	for _, kind := range []pion.RTPCodecType{pion.RTPCodecTypeAudio, pion.RTPCodecTypeVideo} {
		_, err := pc.AddTransceiverFromKind(kind)
		require.NoError(t, err)
	}

	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	return offer.SDP
}
