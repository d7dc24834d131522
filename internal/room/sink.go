package room

import "avatarstream/internal/domain"

// MediaSink accumulates inbound tracks for the rendering layer. It is owned
// by the Controller; nothing else mutates it.
type MediaSink struct {
	tracks []domain.RemoteTrack
}

// Add appends a track to the sink.
func (s *MediaSink) Add(t domain.RemoteTrack) {
	s.tracks = append(s.tracks, t)
}

// Tracks returns a copy of the accumulated tracks.
func (s *MediaSink) Tracks() []domain.RemoteTrack {
	out := make([]domain.RemoteTrack, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// Len reports the number of accumulated tracks.
func (s *MediaSink) Len() int { return len(s.tracks) }

// Drain stops every track and empties the sink.
func (s *MediaSink) Drain() {
	for _, t := range s.tracks {
		if t.Stop != nil {
			t.Stop()
		}
	}
	s.tracks = nil
}
