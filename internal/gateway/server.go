package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/domain/repositories"
	"github.com/kwenamoloto/agentk/internal/auth"
)

// Server is the development gateway: it simulates the remote assistant
// backend so the session core can be exercised locally end to end.
type Server struct {
	assistant repositories.Assistant
	issuer    *auth.TokenIssuer
	logger    *zap.Logger
}

// NewServer creates a gateway backed by the given assistant.
func NewServer(assistant repositories.Assistant, issuer *auth.TokenIssuer, logger *zap.Logger) *Server {
	return &Server{
		assistant: assistant,
		issuer:    issuer,
		logger:    logger,
	}
}

// exchangeRequest is the webhook exchange body the core sends.
type exchangeRequest struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
}

// exchangeResponse is the webhook reply body.
type exchangeResponse struct {
	Response string `json:"response"`
}

// authResponse carries a minted voice session token.
type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
}

// errorResponse represents an error response
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// InitRoutes registers all gateway routes.
func (s *Server) InitRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "agentk-gateway",
		})
	})

	e.POST("/webhook", s.handleWebhook)
	e.POST("/webhook/voice-note", s.handleVoiceNote)
	e.GET("/stream", s.handleStream)
	e.POST("/auth", s.handleAuth)
	e.GET("/ws", s.handleVoiceCall)
}

// handleWebhook serves the request/response exchange.
func (s *Server) handleWebhook(c echo.Context) error {
	var req exchangeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Error("Failed to bind exchange request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "message is required",
		})
	}

	reply, err := s.assistant.Reply(c.Request().Context(), req.Message)
	if err != nil {
		s.logger.Error("Assistant failed to reply", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error: "assistant_error",
		})
	}

	return c.JSON(http.StatusOK, exchangeResponse{Response: reply})
}

// handleVoiceNote accepts the multipart voice-note upload.
func (s *Server) handleVoiceNote(c echo.Context) error {
	file, err := c.FormFile("voice_note")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "voice_note field is required",
		})
	}

	s.logger.Info("Voice note received",
		zap.String("filename", file.Filename),
		zap.Int64("bytes", file.Size),
		zap.String("timestamp", c.FormValue("timestamp")),
		zap.String("type", c.FormValue("type")))

	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// handleStream serves the server-push exchange: one event per query, then
// the channel closes.
func (s *Server) handleStream(c echo.Context) error {
	message := c.QueryParam("message")
	if message == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "message query parameter is required",
		})
	}

	reply, err := s.assistant.Reply(c.Request().Context(), message)
	if err != nil {
		s.logger.Error("Assistant failed to reply", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error: "assistant_error",
		})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)

	payload, err := json.Marshal(map[string]interface{}{"message": reply})
	if err != nil {
		return err
	}
	if _, err := resp.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}
	resp.Flush()
	return nil
}

// handleAuth mints a voice session token used as the opaque credential.
func (s *Server) handleAuth(c echo.Context) error {
	sessionID := uuid.NewString()
	token, err := s.issuer.IssueSessionToken(sessionID)
	if err != nil {
		s.logger.Error("Failed to issue session token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error: "token_error",
		})
	}

	return c.JSON(http.StatusOK, authResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		SessionID: sessionID,
	})
}
