package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Language maps a language code to its default avatar and voice.
type Language struct {
	AvatarID string `mapstructure:"avatar_id"`
	VoiceID  string `mapstructure:"voice_id"`
}

// Server holds the avatard proxy configuration.
type Server struct {
	Mode          string              `mapstructure:"mode"`
	Port          int                 `mapstructure:"port"`
	HeyGenBaseURL string              `mapstructure:"heygen_base_url"`
	HeyGenAPIKey  string              `mapstructure:"heygen_api_key"`
	DefaultLang   string              `mapstructure:"default_lang"`
	AvatarID      string              `mapstructure:"avatar_id"`
	VoiceID       string              `mapstructure:"voice_id"`
	Languages     map[string]Language `mapstructure:"languages"`
}

// LoadServer reads the proxy configuration from an optional yaml file plus
// the environment. HEYGEN_API_KEY must come from the environment.
func LoadServer() (*Server, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	v.SetConfigFile(fmt.Sprintf("config/avatard.%s.yaml", env))

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8084)
	v.SetDefault("heygen_base_url", "https://api.heygen.com")
	v.SetDefault("default_lang", "en")

	v.AutomaticEnv()
	_ = v.BindEnv("heygen_api_key", "HEYGEN_API_KEY")
	_ = v.BindEnv("avatar_id", "AVATAR_ID")
	_ = v.BindEnv("voice_id", "VOICE_ID")
	_ = v.BindEnv("default_lang", "DEFAULT_LANG")

	// Config file is optional; defaults plus env are enough to run.
	_ = v.ReadInConfig()

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.HeyGenAPIKey == "" {
		return nil, fmt.Errorf("HEYGEN_API_KEY environment variable is required")
	}
	return &cfg, nil
}
