package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"airdrop-backend/internal/middleware"
	"airdrop-backend/internal/models"
	"airdrop-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
)

// WebSocketHandler pushes step state changes to connected clients
type WebSocketHandler struct {
	registry *services.StepRegistry
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. Browser upgrades must
// come from an origin the CORS policy accepts; requests without Origin are non-browser clients.
func NewWebSocketHandler(registry *services.StepRegistry, origins middleware.OriginPolicy) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || origins.Allowed(origin) {
					return true
				}
				logrus.WithFields(logrus.Fields{
					"origin": origin,
					"path":   r.URL.Path,
				}).Warn("🚫 WebSocket upgrade blocked - Origin not in whitelist")
				return false
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// StepStateMessage message written on every step state change
type StepStateMessage struct {
	Type      string              `json:"type"`
	Step      models.StepSnapshot `json:"step"`
	Timestamp time.Time           `json:"timestamp"`
}

// HandleStepWebSocket streams snapshots of one step until it is submitted,
// closed, or the client goes away.
// GET /api/airdrop/steps/:id/ws
func (h *WebSocketHandler) HandleStepWebSocket(c *gin.Context) {
	step, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondWithDomainError(c, "StepWebSocket", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("❌ WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	clientID := uuid.New().String()
	logger := logrus.WithFields(logrus.Fields{
		"client_id": clientID,
		"step_id":   step.ID(),
	})
	logger.Info("📡 WebSocket client connected")

	updates, unsubscribe := step.Subscribe()
	defer unsubscribe()

	// Pong replies go through the write loop so there is a single writer
	pongChan := make(chan struct{}, 4)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.WithError(err).Debug("WebSocket read error")
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(wsPongWait))
			if messageType != websocket.TextMessage {
				continue
			}
			var msg struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" {
				select {
				case pongChan <- struct{}{}:
				default:
				}
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "step finished"))
				logger.Info("📭 Step finished, closing WebSocket")
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(StepStateMessage{Type: "step_state", Step: snap, Timestamp: time.Now().UTC()}); err != nil {
				logger.WithError(err).Warn("❌ WebSocket write error")
				return
			}
		case <-pongChan:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(gin.H{"type": "pong", "timestamp": time.Now().UTC()}); err != nil {
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			logger.Info("🔌 WebSocket client disconnected")
			return
		}
	}
}
