package game

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

// TicketManager issues and verifies per-seat reconnect tickets.
type TicketManager interface {
	Generate(playerId, sessionId string, now time.Time) (string, error)
	Verify(token string) (playerId, sessionId string, err error)
}

type Handler struct {
	engine  *Engine
	tickets TicketManager
	log     zerolog.Logger
}

func NewHandler(engine *Engine, tickets TicketManager, log zerolog.Logger) *Handler {
	return &Handler{engine: engine, tickets: tickets, log: log}
}

type createSessionRequest struct {
	Name     string `json:"name" binding:"required"`
	Variant  string `json:"variant" binding:"required"`
	Private  bool   `json:"private"`
	Passcode string `json:"passcode"`
}

type joinSessionRequest struct {
	Name     string `json:"name" binding:"required"`
	Passcode string `json:"passcode"`
}

type sessionResponse struct {
	Session  domain.Session `json:"session"`
	PlayerId string         `json:"playerId"`
	Ticket   string         `json:"ticket"`
}

func (h *Handler) CreateSessionHandler(ctx *gin.Context) {
	var req createSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}

	s, playerId, err := h.engine.CreateSession(ctx.Request.Context(), req.Variant, req.Name, req.Private, req.Passcode)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ticket, err := h.tickets.Generate(playerId, s.Id, time.Now())
	if err != nil {
		h.log.Error().Err(err).Str("session", s.Id).Msg("ticket generation failed")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
		return
	}
	ctx.JSON(http.StatusCreated, sessionResponse{Session: s, PlayerId: playerId, Ticket: ticket})
}

func (h *Handler) JoinSessionHandler(ctx *gin.Context) {
	var req joinSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}

	s, playerId, err := h.engine.JoinSession(ctx.Request.Context(), ctx.Param("code"), req.Name, req.Passcode)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ticket, err := h.tickets.Generate(playerId, s.Id, time.Now())
	if err != nil {
		h.log.Error().Err(err).Str("session", s.Id).Msg("ticket generation failed")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
		return
	}
	ctx.JSON(http.StatusOK, sessionResponse{Session: s, PlayerId: playerId, Ticket: ticket})
}

func (h *Handler) ListSessionsHandler(ctx *gin.Context) {
	sessions, err := h.engine.OpenSessions(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

type clientMessage struct {
	Type    string        `json:"type"` // action | start | leave
	Action  Action        `json:"action,omitempty"`
	Payload ActionPayload `json:"payload"`
}

type serverMessage struct {
	Type    string          `json:"type"` // session | error
	Session *domain.Session `json:"session,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // origin gated by middleware
}

// SessionSocketHandler attaches a ticketed player to the live session
// feed. Reconnecting with a valid ticket resumes the same seat without a
// roster mutation.
func (h *Handler) SessionSocketHandler(ctx *gin.Context) {
	sessionId := ctx.Param("id")
	playerId, ticketSession, err := h.tickets.Verify(ctx.Query("ticket"))
	if err != nil || ticketSession != sessionId {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid-ticket"})
		return
	}
	if _, err := h.engine.Session(ctx.Request.Context(), sessionId); err != nil {
		abortWithError(ctx, err)
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	client := newWSClient(newWebsocketConnection(conn))
	go client.writePump()

	unsubscribe := h.engine.Watch(sessionId, func(s domain.Session) {
		if !client.sendMessage(serverMessage{Type: "session", Session: &s}) {
			client.close("slow-client")
		}
	})
	defer unsubscribe()
	defer client.close("")

	// initial snapshot so the client never has to poll
	if s, err := h.engine.Session(ctx.Request.Context(), sessionId); err == nil {
		client.sendMessage(serverMessage{Type: "session", Session: &s})
	}

	h.readLoop(ctx, client, sessionId, playerId)
}

func (h *Handler) readLoop(ctx *gin.Context, client *wsClient, sessionId, playerId string) {
	limiter := rate.NewLimiter(5, 10)
	for {
		data, err := client.conn.Read()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			client.sendMessage(serverMessage{Type: "error", Reason: "rate-limited"})
			continue
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.sendMessage(serverMessage{Type: "error", Reason: "invalid-message-format"})
			continue
		}

		switch msg.Type {
		case "action":
			if _, err := h.engine.SubmitAction(ctx.Request.Context(), sessionId, playerId, msg.Action, msg.Payload); err != nil {
				client.sendMessage(serverMessage{Type: "error", Reason: err.Error()})
			}
		case "start":
			if err := h.engine.StartGame(ctx.Request.Context(), sessionId, playerId); err != nil {
				client.sendMessage(serverMessage{Type: "error", Reason: err.Error()})
			}
		case "leave":
			if err := h.engine.LeaveSession(ctx.Request.Context(), sessionId, playerId); err != nil {
				client.sendMessage(serverMessage{Type: "error", Reason: err.Error()})
				continue
			}
			return
		default:
			client.sendMessage(serverMessage{Type: "error", Reason: "unknown-message-type"})
		}
	}
}

func (c *wsClient) sendMessage(msg serverMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return true
	}
	return c.send(data)
}

func abortWithError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPasscode):
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionFull),
		errors.Is(err, domain.ErrAlreadyStarted),
		errors.Is(err, domain.ErrNotEnoughPlayers),
		errors.Is(err, domain.ErrTooManyPlayers),
		errors.Is(err, domain.ErrNotHost):
		ctx.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnknownVariant),
		errors.Is(err, domain.ErrUnknownPlayer):
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTransactionConflict):
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
	}
}
