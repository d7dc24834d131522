package domain

// TrackKind is a tagged variant over the media kinds the sink cares about.
// Anything that is neither audio nor video is TrackOther and gets ignored.
type TrackKind int

const (
	TrackOther TrackKind = iota
	TrackAudio
	TrackVideo
)

func (k TrackKind) String() string {
	switch k {
	case TrackAudio:
		return "audio"
	case TrackVideo:
		return "video"
	default:
		return "other"
	}
}

// KindOf maps a transport-level kind label ("audio", "video", ...) to a
// TrackKind tag.
func KindOf(label string) TrackKind {
	switch label {
	case "audio":
		return TrackAudio
	case "video":
		return TrackVideo
	default:
		return TrackOther
	}
}

// RemoteTrack is a transport-neutral descriptor of an inbound track.
// Stop releases the transport-side reader; it may be nil for tracks that
// need no explicit release.
type RemoteTrack struct {
	Kind        TrackKind
	ID          string
	Participant string
	Stop        func()
}

// ParticipantLabel returns the publishing participant's identity, or the
// fallback label when the transport did not supply one.
func (t RemoteTrack) ParticipantLabel() string {
	if t.Participant == "" {
		return "avatar"
	}
	return t.Participant
}
