package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"avatarstream/internal/domain"
)

// State is the UI-facing snapshot: everything a rendering layer needs to
// reflect correct state and nothing else.
type State struct {
	Session *domain.SessionDescriptor
	Status  string
	Err     string

	Creating bool
	Sending  bool
	Stopping bool
}

// Coordinator sequences user actions into valid transitions: create session,
// send text, stop. The media room has its own controller; the two lifecycles
// are tracked separately and only the presentation layer joins them.
type Coordinator struct {
	api domain.SessionAPI
	log zerolog.Logger

	mu sync.Mutex
	st State
}

// New creates a coordinator over the given session API.
func New(api domain.SessionAPI, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		api: api,
		log: log.With().Str("component", "coordinator").Logger(),
	}
}

// HandleCreateSession requests a new session and stores its descriptor.
// A failed create leaves any prior descriptor untouched.
func (c *Coordinator) HandleCreateSession(ctx context.Context, opts domain.CreateOptions) error {
	c.mu.Lock()
	if c.st.Creating {
		c.mu.Unlock()
		return &domain.PreconditionError{Reason: "session create already in progress"}
	}
	c.st.Creating = true
	c.mu.Unlock()
	defer c.clearFlag(&c.st.Creating)

	desc, err := c.api.CreateSession(ctx, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.st.Err = err.Error()
		c.log.Error().Err(err).Msg("create session failed")
		return err
	}
	c.st.Session = desc
	c.st.Status = fmt.Sprintf("session %s created", desc.SessionID)
	c.st.Err = ""
	c.log.Info().Str("session", desc.SessionID).Msg("session created")
	return nil
}

// HandleSendText forwards text to the avatar. It needs an active session but
// deliberately not a connected media room: speech is queued server-side
// regardless of local playback.
func (c *Coordinator) HandleSendText(ctx context.Context, text string) error {
	c.mu.Lock()
	if !c.st.Session.Active() {
		c.mu.Unlock()
		return &domain.PreconditionError{Reason: "no active session"}
	}
	if c.st.Sending {
		c.mu.Unlock()
		return &domain.PreconditionError{Reason: "send already in progress"}
	}
	sessionID := c.st.Session.SessionID
	c.st.Sending = true
	c.mu.Unlock()
	defer c.clearFlag(&c.st.Sending)

	err := c.api.SendText(ctx, sessionID, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.st.Err = err.Error()
		c.log.Error().Err(err).Msg("send text failed")
		return err
	}
	c.st.Status = "text sent to avatar"
	c.st.Err = ""
	return nil
}

// HandleStop ends the remote session and clears the descriptor. It does not
// touch the media room: stopping the session and leaving the room are
// independent actions, joined only at process shutdown by the caller.
func (c *Coordinator) HandleStop(ctx context.Context) error {
	c.mu.Lock()
	if !c.st.Session.Active() {
		c.mu.Unlock()
		return &domain.PreconditionError{Reason: "no active session"}
	}
	if c.st.Stopping {
		c.mu.Unlock()
		return &domain.PreconditionError{Reason: "stop already in progress"}
	}
	sessionID := c.st.Session.SessionID
	c.st.Stopping = true
	c.mu.Unlock()
	defer c.clearFlag(&c.st.Stopping)

	err := c.api.StopSession(ctx, sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.st.Err = err.Error()
		c.log.Error().Err(err).Msg("stop session failed")
		return err
	}
	c.st.Session = nil
	c.st.Status = "session stopped"
	c.st.Err = ""
	c.log.Info().Str("session", sessionID).Msg("session stopped")
	return nil
}

// Session returns the current descriptor, or nil.
func (c *Coordinator) Session() *domain.SessionDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Session
}

// Snapshot returns a copy of the UI-facing state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.st
	if c.st.Session != nil {
		desc := *c.st.Session
		st.Session = &desc
	}
	return st
}

// clearFlag resets an in-flight marker; deferred so a failure never leaves
// an action stuck as in progress.
func (c *Coordinator) clearFlag(flag *bool) {
	c.mu.Lock()
	*flag = false
	c.mu.Unlock()
}
