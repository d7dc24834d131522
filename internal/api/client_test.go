package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatarstream/internal/domain"
)

func TestCreateSessionMapsDescriptor(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/avatar/session", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"session_id":"s1","livekit_url":"u","access_token":"t"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	desc, err := c.CreateSession(context.Background(), domain.CreateOptions{AvatarID: "a", VoiceID: "v"})
	require.NoError(t, err)

	assert.Equal(t, "s1", desc.SessionID)
	assert.Equal(t, "u", desc.MediaURL)
	assert.Equal(t, "t", desc.AccessToken)
	assert.Equal(t, "a", gotBody["avatar_id"])
	assert.Equal(t, "v", gotBody["voice_id"])
}

func TestCreateSessionOmitsEmptyOverrides(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		io.WriteString(w, `{"session_id":"s1","livekit_url":"u","access_token":"t"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateSession(context.Background(), domain.CreateOptions{AvatarID: "  "})
	require.NoError(t, err)

	_, hasAvatar := gotBody["avatar_id"]
	_, hasVoice := gotBody["voice_id"]
	assert.False(t, hasAvatar, "whitespace-only avatar_id must be omitted")
	assert.False(t, hasVoice, "empty voice_id must be omitted")
}

func TestCreateSessionSurfacesBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"no streaming avatars available"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateSession(context.Background(), domain.CreateOptions{})
	require.Error(t, err)

	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Message, "no streaming avatars available")
}

func TestCreateSessionRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>not json</html>`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateSession(context.Background(), domain.CreateOptions{})
	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Message, "malformed response")
}

func TestSendTextPostsSessionAndTrimmedText(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/avatar/talk", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).SendText(context.Background(), "s1", "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "s1", gotBody["session_id"])
	assert.Equal(t, "hello there", gotBody["text"])
}

func TestSendTextPropagatesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"unknown session_id"}`)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).SendText(context.Background(), "gone", "hi")
	var re *domain.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Message, "unknown session_id")
}

func TestStopSessionPostsSessionID(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/avatar/stop", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		io.WriteString(w, `{"status":"already_closed"}`)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL).StopSession(context.Background(), "s1"))
	assert.Equal(t, "s1", gotBody["session_id"])
}
