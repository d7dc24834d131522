package domain

// SessionDescriptor holds the credentials returned by the avatar backend
// for one streaming session. The backend speaks snake_case; the mapping
// happens in the api client.
type SessionDescriptor struct {
	SessionID   string
	MediaURL    string
	AccessToken string
}

// Active reports whether the descriptor refers to a live session.
func (d *SessionDescriptor) Active() bool {
	return d != nil && d.SessionID != ""
}

// CreateOptions are the optional overrides for session creation. Empty
// fields are omitted from the request body rather than sent as "".
type CreateOptions struct {
	AvatarID string
	VoiceID  string
}
