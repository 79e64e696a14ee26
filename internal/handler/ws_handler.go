package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quizquest/quizquest-go/internal/middleware"
	"github.com/quizquest/quizquest-go/internal/service"
	ws "github.com/quizquest/quizquest-go/internal/websocket"
)

const wsWriteTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live leaderboard snapshots.
type WSHandler struct {
	hub         *ws.Hub
	gameService *service.GameService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *ws.Hub, gameService *service.GameService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:         hub,
		gameService: gameService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// LeaderboardStream godoc
// WS /api/v1/game/levels/:level_id/leaderboard/ws
// Sends the current snapshot on connect, then pushes updates as scores
// change. The client sends nothing; reads only detect disconnects.
func (h *WSHandler) LeaderboardStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	levelID := c.Param("level_id")
	snapshot, err := h.gameService.Leaderboard(c.Request.Context(), levelID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown level"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", claims.UserID).
		Str("level_id", levelID).
		Logger()
	wsLog.Info().Msg("Leaderboard stream connected")

	updates, cancel := h.hub.Subscribe(levelID)
	defer cancel()

	// Reader goroutine: the client never sends data, so any read result
	// means the connection is going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.writeSnapshot(conn, snapshot); err != nil {
		wsLog.Debug().Err(err).Msg("Initial snapshot write failed")
		return
	}

	for {
		select {
		case <-done:
			wsLog.Info().Msg("Leaderboard stream closed")
			return

		case payload, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				wsLog.Debug().Err(err).Msg("Push failed, dropping connection")
				return
			}
		}
	}
}

func (h *WSHandler) writeSnapshot(conn *websocket.Conn, snapshot interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(snapshot)
}
