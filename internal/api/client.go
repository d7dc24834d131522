package api

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

type createSessionRequest struct {
	AvatarID string `json:"avatar_id,omitempty"`
	VoiceID  string `json:"voice_id,omitempty"`
}

type createSessionResponse struct {
	SessionID   string `json:"session_id"`
	LivekitURL  string `json:"livekit_url"`
	AccessToken string `json:"access_token"`
}

type talkRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type stopRequest struct {
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Client is a thin typed mapper over the avatar backend's session endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a session client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
}

// CreateSession asks the backend for a new streaming-avatar session and maps
// the response into a SessionDescriptor. Optional overrides are trimmed and
// omitted entirely when empty.
func (c *Client) CreateSession(ctx context.Context, opts domain.CreateOptions) (*domain.SessionDescriptor, error) {
	req := createSessionRequest{
		AvatarID: strings.TrimSpace(opts.AvatarID),
		VoiceID:  strings.TrimSpace(opts.VoiceID),
	}

	body, err := c.post(ctx, "/api/avatar/session", req)
	if err != nil {
		return nil, err
	}

	var resp createSessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.RemoteError{Op: "create session", Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if resp.SessionID == "" {
		return nil, &domain.RemoteError{Op: "create session", Message: "response missing session_id"}
	}

	return &domain.SessionDescriptor{
		SessionID:   resp.SessionID,
		MediaURL:    resp.LivekitURL,
		AccessToken: resp.AccessToken,
	}, nil
}

// SendText forwards raw text to the avatar's talk endpoint. No retry; the
// caller decides whether to repeat.
func (c *Client) SendText(ctx context.Context, sessionID, text string) error {
	_, err := c.post(ctx, "/api/avatar/talk", talkRequest{
		SessionID: sessionID,
		Text:      strings.TrimSpace(text),
	})
	return err
}

// StopSession tells the backend to end the session. Stopping an already
// stopped session is indistinguishable from success at this layer.
func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	_, err := c.post(ctx, "/api/avatar/stop", stopRequest{SessionID: sessionID})
	return err
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	op := strings.TrimPrefix(path, "/api/avatar/")

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RemoteError{Op: op, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.RemoteError{Op: op, Message: remoteMessage(resp.StatusCode, respBody)}
	}

	return respBody, nil
}

// remoteMessage pulls the server's own error text out of the body when it
// has one, so the user sees the backend's message and not just a code.
func remoteMessage(status int, body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Error != "" {
			return fmt.Sprintf("http %d: %s", status, er.Error)
		}
		if er.Detail != "" {
			return fmt.Sprintf("http %d: %s", status, er.Detail)
		}
	}
	return fmt.Sprintf("http %d: %s", status, strings.TrimSpace(string(body)))
}
