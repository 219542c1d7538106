package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/middleware"
	"github.com/telcprep/exam-session/internal/response"
	"github.com/telcprep/exam-session/internal/service"
	ws "github.com/telcprep/exam-session/internal/websocket"
)

// submitTimeout bounds a submit started over the socket, which has no
// request context of its own.
const submitTimeout = 60 * time.Second

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

// SubmitLimiter charges a submit attempt to a bucket.
type SubmitLimiter interface {
	Allow(key string) bool
}

// WSHandler streams session events to the UI and accepts the same
// commands as the HTTP API.
type WSHandler struct {
	sessions    *service.SessionService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
	submitLimit SubmitLimiter
}

// NewWSHandler creates a new WSHandler. submitLimit is shared with the
// HTTP submit route so both surfaces draw from one bucket per session; nil
// disables the limit.
func NewWSHandler(sessions *service.SessionService, submitLimit SubmitLimiter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions:    sessions,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
		submitLimit: submitLimit,
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:id/stream
// Sends the current state, then every session event until the session
// closes or the client goes away.
func (h *WSHandler) SessionStream(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		failFromError(c, err)
		return
	}
	select {
	case <-sess.Done():
		response.Fail(c, http.StatusGone, response.ErrSessionClosed)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", id).Logger()
	wsLog.Info().Msg("Client connected")

	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	// This goroutine is the only writer; the reader hands its replies over.
	replies := make(chan interface{}, 8)
	quit := make(chan struct{})
	defer close(quit)
	readerDone := make(chan struct{})
	go h.readLoop(conn, sess, wsLog, replies, quit, readerDone)

	if st, err := sess.State(); err == nil {
		if err := ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, State: st}); err != nil {
			return
		}
	}

	for {
		select {
		case e, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(time.Second))
				return
			}
			if err := ws.WriteTyped(conn, e); err != nil {
				wsLog.Debug().Err(err).Msg("Event write failed")
				return
			}
		case msg := <-replies:
			if err := ws.WriteTyped(conn, msg); err != nil {
				wsLog.Debug().Err(err).Msg("Reply write failed")
				return
			}
		case <-readerDone:
			return
		}
	}
}

func (h *WSHandler) readLoop(conn *websocket.Conn, sess *service.ExamSession, wsLog zerolog.Logger, replies chan<- interface{}, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		raw, err := ws.ReadMessage(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		reply := h.handleAction(sess, wsLog, raw)
		select {
		case replies <- reply:
		case <-quit:
			return
		}
	}
}

// handleAction runs one client action and returns the reply to send.
func (h *WSHandler) handleAction(sess *service.ExamSession, wsLog zerolog.Logger, raw []byte) interface{} {
	var env ws.RequestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ws.ErrorResponse{Event: ws.EventError, Error: response.GetMessage(response.ErrInvalidPayload)}
	}

	var err error
	switch env.Action {
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}
	case ws.ActionState:
		st, stateErr := sess.State()
		if stateErr != nil {
			return actionError(env.Action, stateErr)
		}
		return ws.StateResponse{Event: ws.EventState, State: st}
	case ws.ActionAutosave:
		var req ws.AutosaveRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return invalidPayload(env.Action)
		}
		err = sess.UpdateAnswer(req.Update())
	case ws.ActionNavigate:
		var req ws.NavigateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return invalidPayload(env.Action)
		}
		err = sess.Navigate(req.Section)
	case ws.ActionName:
		var req ws.StudentNameRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return invalidPayload(env.Action)
		}
		err = sess.SetStudentName(req.StudentName)
	case ws.ActionSubmit:
		if h.submitLimit != nil && !h.submitLimit.Allow(middleware.SessionKey(sess.ID())) {
			return ws.ErrorResponse{
				Event:     ws.EventError,
				Action:    env.Action,
				Error:     response.GetMessage(response.ErrRateLimitExceeded),
				Retryable: true,
			}
		}
		// The outcome also reaches every subscriber as a submitted or
		// submit_failed event.
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		_, err = sess.Submit(ctx)
		cancel()
	default:
		wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
		return ws.ErrorResponse{Event: ws.EventError, Action: env.Action, Error: "unknown action: " + string(env.Action)}
	}

	if err != nil {
		return actionError(env.Action, err)
	}
	return ws.AckResponse{Event: ws.EventAck, Action: env.Action}
}

func actionError(action ws.Action, err error) ws.ErrorResponse {
	e := classifyError(err)
	return ws.ErrorResponse{
		Event:     ws.EventError,
		Action:    action,
		Error:     e.body.Message,
		Retryable: e.body.Retryable,
	}
}

func invalidPayload(action ws.Action) ws.ErrorResponse {
	return ws.ErrorResponse{Event: ws.EventError, Action: action, Error: response.GetMessage(response.ErrInvalidPayload)}
}
