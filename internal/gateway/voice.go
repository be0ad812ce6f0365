package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer.
	readWait = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The gateway only serves local development.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// callEvent is the wire shape of events exchanged over the voice socket.
type callEvent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Final    bool   `json:"final,omitempty"`
	Language string `json:"language,omitempty"`
	Stream   bool   `json:"streaming_transcripts,omitempty"`
}

// voiceCall simulates one live voice session on the gateway side.
type voiceCall struct {
	server    *Server
	conn      *websocket.Conn
	sessionID string
	logger    *zap.Logger

	writeMu sync.Mutex
}

// handleVoiceCall upgrades the connection and runs a simulated call. The
// token minted by /auth is required.
func (s *Server) handleVoiceCall(c echo.Context) error {
	token := c.QueryParam("token")
	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		s.logger.Warn("Rejected voice call with invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, errorResponse{
			Error: "invalid_token",
		})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	call := &voiceCall{
		server:    s,
		conn:      conn,
		sessionID: claims.SessionID,
		logger:    s.logger.With(zap.String("sessionID", claims.SessionID)),
	}
	go call.run()
	return nil
}

// run drives the simulated call until the peer hangs up.
func (c *voiceCall) run() {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(readWait))

	for {
		var event callEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("Voice call connection error", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(readWait))

		switch event.Type {
		case "start_call":
			c.logger.Info("Voice call started",
				zap.Bool("streamingTranscripts", event.Stream))
			c.write(callEvent{Type: "call_started"})
			go c.simulateTurn(event.Stream)
		case "end_call":
			c.logger.Info("Voice call ended by peer")
			c.write(callEvent{Type: "call_ended"})
			return
		default:
			c.logger.Warn("Unknown call event type", zap.String("type", event.Type))
		}
	}
}

// simulateTurn plays one scripted utterance through the transcript pipeline
// and answers it, exercising the core's in-place transcript reconciliation.
func (c *voiceCall) simulateTurn(streaming bool) {
	const utterance = "Hello, can you hear me?"

	if streaming {
		words := strings.Fields(utterance)
		for i := range words {
			partial := strings.Join(words[:i+1], " ")
			c.write(callEvent{Type: "transcript", Text: partial})
			time.Sleep(150 * time.Millisecond)
		}
	}
	c.write(callEvent{Type: "transcript", Text: utterance, Final: true})
	c.write(callEvent{Type: "turn_ended"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	reply, err := c.server.assistant.Reply(ctx, utterance)
	if err != nil {
		c.logger.Error("Assistant failed to reply on voice turn", zap.Error(err))
		return
	}
	c.write(callEvent{Type: "assistant", Text: reply})
}

func (c *voiceCall) write(event callEvent) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(event); err != nil {
		c.logger.Error("Failed to write call event", zap.Error(err))
	}
}
