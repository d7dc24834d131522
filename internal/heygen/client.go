// Package heygen is a minimal client for the HeyGen streaming-avatar API.
// Session setup uses the account API key; everything inside a session uses
// the short-lived session token.
package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"avatarstream/internal/domain"
)

const DefaultBaseURL = "https://api.heygen.com"

// statusOK is the in-body success code the streaming endpoints use.
const statusOK = 100

// Session is what streaming.new returns: the ids and credentials needed to
// drive and watch one avatar session.
type Session struct {
	SessionID   string `json:"session_id"`
	URL         string `json:"url"`
	AccessToken string `json:"access_token"`
}

// Avatar is one entry from streaming/avatar.list.
type Avatar struct {
	AvatarID     string `json:"avatar_id"`
	DefaultVoice string `json:"default_voice"`
	IsPublic     bool   `json:"is_public"`
	PoseName     string `json:"pose_name"`
	Status       string `json:"status"`
}

// Voice is one entry from v2/voices.
type Voice struct {
	VoiceID                  string `json:"voice_id"`
	Name                     string `json:"name"`
	Language                 string `json:"language"`
	Gender                   string `json:"gender"`
	PreviewAudio             string `json:"preview_audio"`
	SupportInteractiveAvatar bool   `json:"support_interactive_avatar"`
}

type envelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type tokenData struct {
	Token string `json:"token"`
}

type newSessionRequest struct {
	Quality             string `json:"quality"`
	Version             string `json:"version"`
	ActivityIdleTimeout int    `json:"activity_idle_timeout"`
	AvatarID            string `json:"avatar_id"`
	Voice               *struct {
		VoiceID string `json:"voice_id"`
	} `json:"voice,omitempty"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type taskRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	TaskType  string `json:"task_type"`
	TaskMode  string `json:"task_mode"`
}

// Client talks to the HeyGen API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a HeyGen client. baseURL falls back to the public API.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("heygen api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}, nil
}

// CreateSessionToken mints a short-lived token scoped to one session.
func (c *Client) CreateSessionToken(ctx context.Context) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/v1/streaming.create_token", "", nil)
	if err != nil {
		return "", err
	}
	if len(env.Error) > 0 && string(env.Error) != "null" {
		return "", &domain.RemoteError{Op: "create_token", Message: string(env.Error)}
	}
	var td tokenData
	if err := json.Unmarshal(env.Data, &td); err != nil || td.Token == "" {
		return "", &domain.RemoteError{Op: "create_token", Message: "response carried no token"}
	}
	return td.Token, nil
}

// NewSession creates a streaming session for the given avatar. The voice
// override is omitted when empty so the avatar keeps its default voice.
func (c *Client) NewSession(ctx context.Context, sessionToken, avatarID, voiceID string) (*Session, error) {
	req := newSessionRequest{
		Quality:             "high",
		Version:             "v2",
		ActivityIdleTimeout: 120,
		AvatarID:            avatarID,
	}
	if voiceID != "" {
		req.Voice = &struct {
			VoiceID string `json:"voice_id"`
		}{VoiceID: voiceID}
	}

	env, err := c.do(ctx, http.MethodPost, "/v1/streaming.new", sessionToken, req)
	if err != nil {
		return nil, err
	}
	if env.Code == nil || *env.Code != statusOK {
		return nil, &domain.RemoteError{Op: "streaming.new", Message: fmt.Sprintf("unexpected code %v: %s", env.Code, env.Message)}
	}

	var s Session
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return nil, &domain.RemoteError{Op: "streaming.new", Message: fmt.Sprintf("malformed session data: %v", err)}
	}
	if s.SessionID == "" {
		return nil, &domain.RemoteError{Op: "streaming.new", Message: "session data missing session_id"}
	}
	return &s, nil
}

// StartSession starts an already created session.
func (c *Client) StartSession(ctx context.Context, sessionToken, sessionID string) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/streaming.start", sessionToken, sessionRequest{SessionID: sessionID})
	return err
}

// SendTask makes the avatar read text verbatim. task_type "repeat" keeps the
// avatar off its own LLM; "async" returns immediately while the speech
// streams into the room.
func (c *Client) SendTask(ctx context.Context, sessionToken, sessionID, text string) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/streaming.task", sessionToken, taskRequest{
		SessionID: sessionID,
		Text:      text,
		TaskType:  "repeat",
		TaskMode:  "async",
	})
	return err
}

// StopSession ends a streaming session.
func (c *Client) StopSession(ctx context.Context, sessionToken, sessionID string) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/streaming.stop", sessionToken, sessionRequest{SessionID: sessionID})
	return err
}

// ListStreamingAvatars returns the streaming-capable avatars on the account.
func (c *Client) ListStreamingAvatars(ctx context.Context) ([]Avatar, error) {
	env, err := c.do(ctx, http.MethodGet, "/v1/streaming/avatar.list", "", nil)
	if err != nil {
		return nil, err
	}
	var avatars []Avatar
	if err := json.Unmarshal(env.Data, &avatars); err != nil {
		return nil, &domain.RemoteError{Op: "avatar.list", Message: fmt.Sprintf("malformed avatar list: %v", err)}
	}
	return avatars, nil
}

// ListVoices returns the account's voices.
func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	env, err := c.do(ctx, http.MethodGet, "/v2/voices", "", nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &domain.RemoteError{Op: "voices", Message: fmt.Sprintf("malformed voice list: %v", err)}
	}
	return data.Voices, nil
}

// do sends one request. With a session token it authenticates as Bearer,
// otherwise with the account API key.
func (c *Client) do(ctx context.Context, method, path, sessionToken string, payload any) (*envelope, error) {
	op := path[strings.LastIndex(path, "/")+1:]

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken)
	} else {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, Message: fmt.Sprintf("read response: %v", err)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &domain.RemoteError{Op: op, Message: fmt.Sprintf("non-json response: http %d %s", resp.StatusCode, excerpt(respBody))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.RemoteError{Op: op, Message: fmt.Sprintf("http %d: %s", resp.StatusCode, excerpt(respBody))}
	}

	return &env, nil
}

// excerpt keeps error messages readable when the body is large.
func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
