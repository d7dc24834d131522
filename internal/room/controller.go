package room

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"avatarstream/internal/domain"
)

// Controller owns the lifecycle of a single media room connection:
// connect, inbound track handling, disconnect and status reporting.
//
// Transport callbacks arrive on transport goroutines; the mutex serializes
// them with user-triggered calls so handler bodies never interleave.
type Controller struct {
	transport domain.RoomTransport
	log       zerolog.Logger

	mu     sync.Mutex
	state  domain.ConnectionState
	room   domain.Room
	sink   MediaSink
	status string
}

// NewController creates an idle controller on the given transport.
func NewController(transport domain.RoomTransport, log zerolog.Logger) *Controller {
	return &Controller{
		transport: transport,
		log:       log.With().Str("component", "room").Logger(),
		state:     domain.StateIdle,
		status:    "idle",
	}
}

// Connect opens the media room. It refuses locally, without touching the
// transport, when either credential is missing or a connection already
// exists or is being attempted. At most one room is ever held.
func (c *Controller) Connect(ctx context.Context, mediaURL, accessToken string) error {
	c.mu.Lock()
	if mediaURL == "" || accessToken == "" {
		c.status = "missing media url or access token"
		c.mu.Unlock()
		return &domain.PreconditionError{Reason: "missing media url or access token"}
	}
	switch c.state {
	case domain.StateConnected:
		c.status = "already connected"
		c.mu.Unlock()
		return &domain.PreconditionError{Reason: "already connected"}
	case domain.StateConnecting:
		c.status = "connection already in progress"
		c.mu.Unlock()
		return &domain.PreconditionError{Reason: "connection already in progress"}
	}
	c.state = domain.StateConnecting
	c.status = "connecting"
	c.mu.Unlock()

	c.log.Info().Str("url", mediaURL).Msg("connecting to media room")

	// The controller itself is the observer, handed over before the network
	// attempt starts inside the transport.
	r, err := c.transport.Connect(ctx, mediaURL, accessToken, c)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = domain.StateIdle
		c.room = nil
		c.status = err.Error()
		c.log.Error().Err(err).Msg("media room connect failed")
		return &domain.TransportError{Op: "connect", Err: err}
	}

	// A disconnect event may have landed while the connect was resolving;
	// in that case the handle is stale and must not be retained.
	if c.state != domain.StateConnecting {
		_ = r.Disconnect()
		return &domain.TransportError{Op: "connect", Err: fmt.Errorf("room closed during connect")}
	}

	c.room = r
	c.state = domain.StateConnected
	c.status = "connected, awaiting avatar media"
	c.log.Info().Msg("media room connected")
	return nil
}

// OnTrackSubscribed adds inbound audio and video tracks to the media sink.
// Other kinds are ignored.
func (c *Controller) OnTrackSubscribed(t domain.RemoteTrack) {
	if t.Kind != domain.TrackAudio && t.Kind != domain.TrackVideo {
		c.log.Debug().Str("kind", t.Kind.String()).Str("id", t.ID).Msg("ignoring track")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink.Add(t)
	c.status = fmt.Sprintf("receiving %s from %s", t.Kind, t.ParticipantLabel())
	c.log.Info().Str("kind", t.Kind.String()).Str("participant", t.ParticipantLabel()).Msg("track subscribed")
}

// OnDisconnected handles an involuntary disconnect from the transport side
// (network loss, remote close). Idempotent with Disconnect.
func (c *Controller) OnDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.StateIdle {
		return
	}
	c.sink.Drain()
	c.room = nil
	c.state = domain.StateIdle
	c.status = "disconnected"
	c.log.Info().Msg("media room disconnected by remote")
}

// Disconnect tears the connection down: stops and removes every sink track,
// terminates the room and returns to idle.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.StateIdle || c.room == nil {
		c.status = "not connected"
		return nil
	}

	c.sink.Drain()
	err := c.room.Disconnect()
	c.room = nil
	c.state = domain.StateIdle
	c.status = "disconnected"
	if err != nil {
		c.log.Error().Err(err).Msg("room disconnect")
		return &domain.TransportError{Op: "disconnect", Err: err}
	}
	c.log.Info().Msg("media room disconnected")
	return nil
}

// Close releases the controller. Meant for deferred cleanup at shutdown so
// a held room never outlives its consumer.
func (c *Controller) Close() error {
	c.mu.Lock()
	held := c.room != nil
	c.mu.Unlock()
	if !held {
		return nil
	}
	return c.Disconnect()
}

// State returns the current connection state.
func (c *Controller) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the human-readable status line.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Tracks returns the tracks currently held by the media sink.
func (c *Controller) Tracks() []domain.RemoteTrack {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink.Tracks()
}
