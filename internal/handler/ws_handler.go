package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/middleware"
	"github.com/examportal/portal-backend/internal/repository"
	"github.com/examportal/portal-backend/internal/response"
	ws "github.com/examportal/portal-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const keepAliveInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams exam lifecycle events to connected admins.
type WSHandler struct {
	events   *repository.EventBus
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(events *repository.EventBus, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		events:   events,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ExamEventStream godoc
// WS /ws/v1/admin/exams/stream?token=
// Forwards every exam start and completion published on the events channel.
func (h *WSHandler) ExamEventStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int64("admin_id", claims.UserID).Logger()
	ctx := c.Request.Context()

	pubsub := h.events.SubscribeExamEvents(ctx)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Subscribe to exam events failed")
		ws.WriteError(conn, "event feed unavailable")
		return
	}
	events := pubsub.Channel()

	if err := ws.WriteTyped(conn, ws.ReadyResponse{Event: ws.EventReady, Channel: config.CacheKey.ExamEventsChannel()}); err != nil {
		return
	}
	wsLog.Info().Msg("Admin attached to exam feed")

	// gorilla allows one concurrent writer, so the reader only signals pings
	// and all writes stay in the loop below.
	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		var err error
		select {
		case <-closed:
			wsLog.Info().Msg("Admin detached from exam feed")
			return
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			err = ws.WriteTyped(conn, ws.ExamEventResponse{Event: ws.EventExam, Data: json.RawMessage(msg.Payload)})
		case <-pings:
			err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case <-keepAlive.C:
			err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventKeepAlive})
		}
		if err != nil {
			wsLog.Debug().Err(err).Msg("Write failed, closing feed")
			return
		}
	}
}
