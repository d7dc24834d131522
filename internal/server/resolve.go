package server

import (
	"context"
	"fmt"

	"avatarstream/internal/config"
)

// resolveAvatarAndVoice picks the avatar and voice for a new session.
// Priority: request override, then the default language's mapping, then the
// global defaults, then the first streaming avatar the account has.
func (s *Server) resolveAvatarAndVoice(ctx context.Context, reqAvatar, reqVoice string) (string, string, error) {
	lang := config.Language{}
	if s.cfg.Languages != nil {
		lang = s.cfg.Languages[s.cfg.DefaultLang]
	}

	avatarID := reqAvatar
	if avatarID == "" {
		avatarID = lang.AvatarID
	}
	if avatarID == "" {
		avatarID = s.cfg.AvatarID
	}

	voiceID := reqVoice
	if voiceID == "" {
		voiceID = lang.VoiceID
	}
	if voiceID == "" {
		voiceID = s.cfg.VoiceID
	}

	if avatarID == "" {
		avatars, err := s.heygen.ListStreamingAvatars(ctx)
		if err != nil {
			return "", "", err
		}
		if len(avatars) == 0 {
			return "", "", fmt.Errorf("no streaming avatars available")
		}
		avatarID = avatars[0].AvatarID
	}

	return avatarID, voiceID, nil
}
