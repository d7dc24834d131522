// Package server is the avatard proxy: it hides the HeyGen credentials from
// browsers and native clients and exposes three session endpoints instead.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"avatarstream/internal/config"
	"avatarstream/internal/heygen"
)

// AvatarAPI is the slice of the HeyGen client the proxy needs.
type AvatarAPI interface {
	CreateSessionToken(ctx context.Context) (string, error)
	NewSession(ctx context.Context, sessionToken, avatarID, voiceID string) (*heygen.Session, error)
	StartSession(ctx context.Context, sessionToken, sessionID string) error
	SendTask(ctx context.Context, sessionToken, sessionID, text string) error
	StopSession(ctx context.Context, sessionToken, sessionID string) error
	ListStreamingAvatars(ctx context.Context) ([]heygen.Avatar, error)
	ListVoices(ctx context.Context) ([]heygen.Voice, error)
}

type createSessionRequest struct {
	AvatarID string `json:"avatar_id"`
	VoiceID  string `json:"voice_id"`
}

type createSessionResponse struct {
	SessionID   string `json:"session_id"`
	LivekitURL  string `json:"livekit_url"`
	AccessToken string `json:"access_token"`
}

type talkRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

type stopRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// Server wires the HeyGen client to the HTTP surface.
type Server struct {
	cfg      *config.Server
	heygen   AvatarAPI
	sessions *sessionRegistry
	log      zerolog.Logger
}

// New creates a proxy server.
func New(cfg *config.Server, api AvatarAPI, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		heygen:   api,
		sessions: newSessionRegistry(),
		log:      log.With().Str("component", "server").Logger(),
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog(), corsAllowAll())

	r.POST("/api/avatar/session", s.handleCreateSession)
	r.POST("/api/avatar/talk", s.handleTalk)
	r.POST("/api/avatar/stop", s.handleStop)
	r.GET("/api/avatar/avatars", s.handleListAvatars)
	r.GET("/api/avatar/voices", s.handleListVoices)

	return r
}

// handleCreateSession mints a session token, creates and starts a streaming
// session and hands the room credentials back to the client.
func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	// Both fields are optional; an empty body is a valid request.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	avatarID, voiceID, err := s.resolveAvatarAndVoice(ctx, req.AvatarID, req.VoiceID)
	if err != nil {
		s.fail(c, err)
		return
	}

	token, err := s.heygen.CreateSessionToken(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	sess, err := s.heygen.NewSession(ctx, token, avatarID, voiceID)
	if err != nil {
		s.fail(c, err)
		return
	}

	if err := s.heygen.StartSession(ctx, token, sess.SessionID); err != nil {
		s.fail(c, err)
		return
	}

	s.sessions.put(sess.SessionID, token)
	s.log.Info().Str("session", sess.SessionID).Str("avatar", avatarID).Msg("session created")

	c.JSON(http.StatusOK, createSessionResponse{
		SessionID:   sess.SessionID,
		LivekitURL:  sess.URL,
		AccessToken: sess.AccessToken,
	})
}

func (s *Server) handleTalk(c *gin.Context) {
	var req talkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, ok := s.sessions.get(req.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session_id"})
		return
	}

	if err := s.heygen.SendTask(c.Request.Context(), token, req.SessionID, req.Text); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStop is idempotent toward the caller: stopping an unknown session
// reports already_closed, and the registry entry goes away either way.
func (s *Server) handleStop(c *gin.Context) {
	var req stopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, ok := s.sessions.get(req.SessionID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "already_closed"})
		return
	}
	defer s.sessions.delete(req.SessionID)

	if err := s.heygen.StopSession(c.Request.Context(), token, req.SessionID); err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info().Str("session", req.SessionID).Msg("session stopped")
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// handleListAvatars exposes the streaming avatar catalog so a client can
// pick an avatar_id for session creation.
func (s *Server) handleListAvatars(c *gin.Context) {
	avatars, err := s.heygen.ListStreamingAvatars(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatars": avatars})
}

func (s *Server) handleListVoices(c *gin.Context) {
	voices, err := s.heygen.ListVoices(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voices": voices})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// requestLog tags every request with an id and logs its outcome.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.NewString()
		c.Header("X-Request-Id", reqID)
		c.Next()
		s.log.Info().
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("request")
	}
}

// corsAllowAll mirrors the original proxy's wide-open CORS policy; the
// service carries no credentials of its own.
func corsAllowAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
