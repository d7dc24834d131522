package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, TrackAudio, KindOf("audio"))
	assert.Equal(t, TrackVideo, KindOf("video"))
	assert.Equal(t, TrackOther, KindOf("data"))
	assert.Equal(t, TrackOther, KindOf(""))
}

func TestParticipantLabelFallback(t *testing.T) {
	assert.Equal(t, "avatar", RemoteTrack{}.ParticipantLabel())
	assert.Equal(t, "wayne", RemoteTrack{Participant: "wayne"}.ParticipantLabel())
}

func TestSessionDescriptorActive(t *testing.T) {
	var d *SessionDescriptor
	assert.False(t, d.Active())
	assert.False(t, (&SessionDescriptor{}).Active())
	assert.True(t, (&SessionDescriptor{SessionID: "s1"}).Active())
}

func TestErrorKindsAreDistinguishable(t *testing.T) {
	wrapped := fmt.Errorf("connect: %w", &TransportError{Op: "dial", Err: errors.New("refused")})

	var te *TransportError
	assert.True(t, errors.As(wrapped, &te))
	assert.Equal(t, "dial", te.Op)

	var re *RemoteError
	assert.False(t, errors.As(wrapped, &re))

	var pe *PreconditionError
	assert.True(t, errors.As(&PreconditionError{Reason: "no active session"}, &pe))
	assert.Equal(t, "no active session", pe.Error())
}
