package livekit

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/nack"
	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"avatarstream/internal/domain"
)

// Transport opens LiveKit room connections: a signaling WebSocket on the
// room's /rtc endpoint plus a receive-only Pion peer connection.
type Transport struct {
	dialer *websocket.Dialer
	log    zerolog.Logger
}

// NewTransport creates a LiveKit transport.
func NewTransport(log zerolog.Logger) *Transport {
	return &Transport{
		dialer: websocket.DefaultDialer,
		log:    log.With().Str("component", "livekit").Logger(),
	}
}

// Connect joins the room at mediaURL with the given access token. The
// observer is wired into every callback before any network traffic starts,
// so no inbound event can race ahead of registration. Connect returns once
// the server acknowledges the join.
func (t *Transport) Connect(ctx context.Context, mediaURL, accessToken string, obs domain.RoomObserver) (domain.Room, error) {
	wsURL, err := signalURL(mediaURL, accessToken)
	if err != nil {
		return nil, err
	}

	pc, err := newPeerConnection()
	if err != nil {
		return nil, err
	}

	r := &Room{
		pc:     pc,
		obs:    obs,
		log:    t.log,
		closed: make(chan struct{}),
	}

	// Observer-driven callbacks go on before the dial.
	pc.OnTrack(r.handleTrack)
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		t.log.Debug().Str("state", state.String()).Msg("peer connection state")
	})

	if err := addRecvTransceivers(pc); err != nil {
		pc.Close()
		return nil, err
	}

	t.log.Info().Str("url", redactToken(wsURL)).Msg("dialing signaling socket")
	conn, _, err := t.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	r.conn = conn

	pc.OnICECandidate(r.sendLocalCandidate)

	if err := r.awaitJoin(); err != nil {
		_ = r.Disconnect()
		return nil, err
	}

	go r.readLoop()

	return r, nil
}

// signalURL derives the wss signaling URL from the room's media URL and
// appends the access token, the way the room server expects it.
func signalURL(mediaURL, accessToken string) (string, error) {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return "", fmt.Errorf("parse media url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported media url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/rtc"
	q := u.Query()
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func redactToken(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil {
		return wsURL
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "…")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// newPeerConnection builds a peer connection with the default codecs and a
// NACK responder so loss recovery works without us decoding anything.
func newPeerConnection() (*pion.PeerConnection, error) {
	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	i := &interceptor.Registry{}
	responderFactory, err := nack.NewResponderInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create nack responder: %w", err)
	}
	i.Add(responderFactory)

	api := pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(i),
	)

	pc, err := api.NewPeerConnection(pion.Configuration{
		ICEServers: []pion.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
		BundlePolicy: pion.BundlePolicyMaxBundle,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return pc, nil
}

// addRecvTransceivers declares receive-only audio and video. The avatar
// publishes; this client never does.
func addRecvTransceivers(pc *pion.PeerConnection) error {
	for _, kind := range []pion.RTPCodecType{pion.RTPCodecTypeAudio, pion.RTPCodecTypeVideo} {
		_, err := pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
			Direction: pion.RTPTransceiverDirectionRecvonly,
		})
		if err != nil {
			return fmt.Errorf("add %s transceiver: %w", kind, err)
		}
	}
	return nil
}
