package livekit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"avatarstream/internal/domain"
)

// signalMessage is the JSON envelope on the signaling socket.
type signalMessage struct {
	Type          string `json:"type"`
	SDP           string `json:"sdp,omitempty"`
	Candidate     string `json:"candidate,omitempty"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex int    `json:"sdpMLineIndex,omitempty"`
	Participant   string `json:"participant,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Room is a live LiveKit connection: one signaling socket and one peer
// connection, torn down together exactly once.
type Room struct {
	pc   *pion.PeerConnection
	conn *websocket.Conn
	obs  domain.RoomObserver
	log  zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}

	// frames that arrived ahead of the join ack, replayed once joined
	pending []signalMessage
}

// Disconnect terminates the connection. The observer is not notified; the
// caller initiated this teardown and handles its own state.
func (r *Room) Disconnect() error {
	return r.close(false)
}

func (r *Room) close(remote bool) error {
	var errs []error
	first := false
	r.closeOnce.Do(func() {
		first = true
		close(r.closed)
		if err := r.pc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close peer connection: %w", err))
		}
		if err := r.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close websocket: %w", err))
		}
	})
	// The observer takes its own lock, and a Disconnect caller may already
	// hold that lock while waiting on the Once above. Notifying outside the
	// Once body keeps the two teardown paths from waiting on each other.
	if first && remote {
		r.obs.OnDisconnected()
	}
	return errors.Join(errs...)
}

// awaitJoin blocks until the server acknowledges the join. Frames that
// arrive ahead of the ack are held and replayed once joined, so a server
// that offers immediately still gets its answer. There is no local timeout:
// a join that never arrives keeps the caller in Connecting, which is the
// documented behavior.
func (r *Room) awaitJoin() error {
	for {
		var msg signalMessage
		if err := r.readMessage(&msg); err != nil {
			return fmt.Errorf("awaiting join: %w", err)
		}
		switch msg.Type {
		case "join":
			r.log.Debug().Msg("join acknowledged")
			for _, held := range r.pending {
				r.dispatch(held)
			}
			r.pending = nil
			return nil
		case "error", "leave":
			reason := msg.Error
			if reason == "" {
				reason = msg.Reason
			}
			return fmt.Errorf("room refused join: %s", reason)
		default:
			r.log.Debug().Str("type", msg.Type).Msg("frame held until join")
			r.pending = append(r.pending, msg)
		}
	}
}

// readLoop dispatches signaling messages until the socket dies. A read
// failure after a local Disconnect is expected and silent; anything else is
// an involuntary disconnect and notifies the observer.
func (r *Room) readLoop() {
	for {
		var msg signalMessage
		if err := r.readMessage(&msg); err != nil {
			select {
			case <-r.closed:
				return
			default:
			}
			r.log.Warn().Err(err).Msg("signaling socket closed")
			_ = r.close(true)
			return
		}
		r.dispatch(msg)
	}
}

func (r *Room) dispatch(msg signalMessage) {
	switch msg.Type {
	case "offer":
		r.handleOffer(msg.SDP)
	case "trickle", "candidate":
		r.handleRemoteCandidate(msg)
	case "leave":
		r.log.Info().Str("reason", msg.Reason).Msg("server requested leave")
		_ = r.close(true)
	case "pong", "ping":
		// keepalive traffic
	default:
		r.log.Debug().Str("type", msg.Type).Msg("unhandled signaling message")
	}
}

// handleOffer answers the server's subscriber offer so the avatar's tracks
// start flowing.
func (r *Room) handleOffer(sdp string) {
	offer := pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}
	if err := r.pc.SetRemoteDescription(offer); err != nil {
		r.log.Error().Err(err).Msg("set remote description")
		return
	}

	answer, err := r.pc.CreateAnswer(nil)
	if err != nil {
		r.log.Error().Err(err).Msg("create answer")
		return
	}
	if err := r.pc.SetLocalDescription(answer); err != nil {
		r.log.Error().Err(err).Msg("set local description")
		return
	}

	r.send(signalMessage{Type: "answer", SDP: answer.SDP})
}

func (r *Room) handleRemoteCandidate(msg signalMessage) {
	sdpMLineIndex := uint16(msg.SDPMLineIndex)
	init := pion.ICECandidateInit{
		Candidate:     msg.Candidate,
		SDPMid:        &msg.SDPMid,
		SDPMLineIndex: &sdpMLineIndex,
	}
	if err := r.pc.AddICECandidate(init); err != nil {
		r.log.Error().Err(err).Msg("add remote ice candidate")
	}
}

func (r *Room) sendLocalCandidate(c *pion.ICECandidate) {
	if c == nil {
		r.log.Debug().Msg("ice gathering complete")
		return
	}
	j := c.ToJSON()
	msg := signalMessage{Type: "trickle", Candidate: j.Candidate}
	if j.SDPMid != nil {
		msg.SDPMid = *j.SDPMid
	}
	if j.SDPMLineIndex != nil {
		msg.SDPMLineIndex = int(*j.SDPMLineIndex)
	}
	r.send(msg)
}

// handleTrack maps an inbound Pion track to a domain track and hands it to
// the observer. The payload is drained, never decoded; draining keeps the
// RTCP machinery alive so the room keeps sending.
func (r *Room) handleTrack(track *pion.TrackRemote, receiver *pion.RTPReceiver) {
	kind := domain.KindOf(track.Kind().String())
	r.log.Info().
		Str("kind", kind.String()).
		Str("id", track.ID()).
		Str("stream", track.StreamID()).
		Msg("inbound track")

	stop := make(chan struct{})
	var stopOnce sync.Once

	go r.drainTrack(track, stop)

	r.obs.OnTrackSubscribed(domain.RemoteTrack{
		Kind:        kind,
		ID:          track.ID(),
		Participant: track.StreamID(),
		Stop:        func() { stopOnce.Do(func() { close(stop) }) },
	})
}

func (r *Room) drainTrack(track *pion.TrackRemote, stop chan struct{}) {
	buf := make([]byte, 1500)
	for {
		select {
		case <-stop:
			return
		case <-r.closed:
			return
		default:
		}
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

// readMessage returns the next parseable signaling message. Unparseable
// frames are logged and skipped; only socket errors come back.
func (r *Room) readMessage(msg *signalMessage) error {
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, msg); err != nil {
			r.log.Warn().Err(err).Msg("unparseable signaling message")
			continue
		}
		return nil
	}
}

func (r *Room) send(msg signalMessage) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error().Err(err).Msg("marshal signaling message")
		return
	}
	if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		r.log.Error().Err(err).Msg("signaling write")
	}
}
