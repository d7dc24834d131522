package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Client holds the avatarstream client configuration.
type Client struct {
	BaseURL  string
	AvatarID string
	VoiceID  string
}

// LoadClient reads client configuration from a .env file (if present) and
// environment variables. Environment variables take precedence over .env
// values.
func LoadClient() (*Client, error) {
	// godotenv.Load does not overwrite existing env vars
	_ = godotenv.Load()

	base := os.Getenv("AVATAR_BASE_URL")
	if base == "" {
		return nil, fmt.Errorf("AVATAR_BASE_URL environment variable is required")
	}

	return &Client{
		BaseURL:  base,
		AvatarID: os.Getenv("AVATAR_ID"),
		VoiceID:  os.Getenv("VOICE_ID"),
	}, nil
}
