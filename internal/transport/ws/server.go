// Package ws serves the real-time chat channel over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/config"
	"github.com/reddishJade/sports-exem/internal/domain"
	"github.com/reddishJade/sports-exem/internal/hub"
	"github.com/reddishJade/sports-exem/internal/service"
	httptransport "github.com/reddishJade/sports-exem/internal/transport/http"
	v1 "github.com/reddishJade/sports-exem/internal/transport/http/v1"
)

// pendingTurns bounds the turns queued on one connection.
const pendingTurns = 8

// Server handles WebSocket connections.
type Server struct {
	cfg      config.WebSocketConfig
	hub      *hub.Hub
	service  *service.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg config.WebSocketConfig, h *hub.Hub, svc *service.Service, logger *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// NewEcho creates the echo server exposing the real-time channel.
func NewEcho(s *Server, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(httptransport.RequestLogger(logger))
	e.Use(middleware.Recover())
	s.RegisterRoutes(e)
	return e
}

// RegisterRoutes registers the WebSocket routes.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/conversations/:id", s.HandleWebSocket)
	e.GET("/health", s.handleHealth)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"connections":   s.hub.GetConnectionCount(),
		"conversations": s.hub.GetGroupCount(),
	})
}

// HandleWebSocket authorizes the caller, upgrades the connection and joins
// the conversation group.
func (s *Server) HandleWebSocket(c echo.Context) error {
	user, ok := v1.UserFromHandshake(c.Request())
	if !ok {
		return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Error: "authentication required"})
	}
	conversationID := c.Param("id")
	if _, err := s.service.AuthorizeChat(c.Request().Context(), user, conversationID); err != nil {
		return c.JSON(v1.StatusFor(err), domain.ErrorResponse{Error: service.AsError(err).PublicMessage()})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return nil
	}

	conn := s.hub.NewConnection(ws, conversationID, user.UserID)
	if err := s.hub.Register(conn); err != nil {
		ws.Close()
		return nil
	}
	s.logger.Info("websocket connected",
		zap.String("connection_id", conn.ID),
		zap.String("conversation_id", conversationID),
		zap.String("user_id", user.UserID),
		zap.Int("subscribers", s.hub.SubscriberCount(conversationID)))
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	ctx, cancel := context.WithCancel(context.Background())
	turns := make(chan domain.TurnRequest, pendingTurns)

	go s.writePump(conn)
	if err := s.hub.SendJSONToConnection(conn, service.ConnectionEstablished(conversationID)); err != nil {
		s.logger.Warn("failed to greet connection", zap.String("connection_id", conn.ID), zap.Error(err))
	}
	go s.turnWorker(ctx, conn, user, turns)
	go s.readPump(conn, cancel, turns)
	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *hub.Connection, cancel context.CancelFunc, turns chan<- domain.TurnRequest) {
	defer func() {
		cancel()
		close(turns)
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket closed unexpectedly", zap.String("connection_id", conn.ID), zap.Error(err))
			}
			return
		}

		var req domain.TurnRequest
		if err := json.Unmarshal(message, &req); err != nil {
			s.sendError(conn, "invalid JSON message")
			continue
		}
		select {
		case turns <- req:
		default:
			s.sendError(conn, "too many pending messages")
		}
	}
}

// turnWorker runs the connection's turns one at a time so the read loop
// keeps answering pings while a backend call is in flight.
func (s *Server) turnWorker(ctx context.Context, conn *hub.Connection, user domain.UserContext, turns <-chan domain.TurnRequest) {
	sink := &connectionSink{hub: s.hub, conn: conn}
	for req := range turns {
		s.service.HandleRealtimeMessage(ctx, user, conn.ConversationID, req, sink)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", zap.String("connection_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendError(conn *hub.Connection, message string) {
	event := domain.RealtimeEvent{Type: domain.EventTypeError, Message: message}
	if err := s.hub.SendJSONToConnection(conn, event); err != nil {
		s.logger.Warn("failed to send error", zap.String("connection_id", conn.ID), zap.Error(err))
	}
}

// connectionSink routes turn events through the hub.
type connectionSink struct {
	hub  *hub.Hub
	conn *hub.Connection
}

func (s *connectionSink) Reply(event domain.RealtimeEvent) error {
	return s.hub.SendJSONToConnection(s.conn, event)
}

func (s *connectionSink) Broadcast(event domain.RealtimeEvent) {
	s.hub.BroadcastJSON(s.conn.ConversationID, event)
}
