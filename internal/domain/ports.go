package domain

import "context"

// SessionAPI talks to the avatar backend.
type SessionAPI interface {
	CreateSession(ctx context.Context, opts CreateOptions) (*SessionDescriptor, error)
	SendText(ctx context.Context, sessionID, text string) error
	StopSession(ctx context.Context, sessionID string) error
}

// RoomObserver receives media room events. The transport must have the
// observer in hand before it issues the network connect, so no event can
// race ahead of registration.
type RoomObserver interface {
	OnTrackSubscribed(track RemoteTrack)
	OnDisconnected()
}

// Room is a live connection to a media room.
type Room interface {
	Disconnect() error
}

// RoomTransport opens media room connections.
type RoomTransport interface {
	Connect(ctx context.Context, mediaURL, accessToken string, obs RoomObserver) (Room, error)
}
