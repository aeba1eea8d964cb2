package handler

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/examhall/examportal/internal/middleware"
	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/response"
	"github.com/examhall/examportal/internal/session"
	ws "github.com/examhall/examportal/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

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

// wsConn serializes writes: the time-sync pusher and the action reader both
// write to the same connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteTyped(w.conn, v)
}

func (w *wsConn) writeError(code response.ErrCode) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteError(w.conn, string(code), response.GetMessage(code))
}

// WSHandler handles the real-time exam session stream.
type WSHandler struct {
	registry *session.Registry
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(registry *session.Registry, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		registry: registry,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exams/:exam_id/stream?token=...
// Upgrades to WebSocket, enters (or resumes) the session, pushes the
// server-authoritative countdown every second, and accepts answer, navigate,
// and submit actions. Finalization, whether by action or by expiry, is
// announced with a submitted event before the stream closes.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wc := &wsConn{conn: conn}
	studentID := claims.UserID

	ctrl, err := h.registry.Enter(c.Request.Context(), studentID, examID)
	if err != nil {
		wc.writeError(wsCode(err))
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	wc.write(ws.TimeSyncResponse{Event: ws.EventTimeSync, Remaining: ctrl.RemainingSeconds()})

	stopCh := make(chan struct{})
	defer close(stopCh)
	go h.pushLoop(wc, ctrl, stopCh)

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(c, wc, ctrl, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(c, wc, ctrl, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(c, wc, ctrl, studentID, examID, &msg)
		case ws.ActionPing:
			wc.write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			wc.writeError(response.ErrInvalidPayload)
		}
	}
}

// pushLoop sends a time_sync every second until the session finalizes, then
// announces the result and closes the connection to unblock the reader.
func (h *WSHandler) pushLoop(wc *wsConn, ctrl *session.Controller, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctrl.Done():
			if sub := ctrl.Final(); sub != nil {
				wc.write(ws.SubmittedResponse{
					Event:      ws.EventSubmitted,
					Mode:       string(sub.Mode),
					Score:      sub.Score,
					TotalMarks: sub.TotalMarks,
					Percentage: sub.Percentage,
				})
			}
			wc.conn.Close()
			return
		case <-ticker.C:
			if err := wc.write(ws.TimeSyncResponse{Event: ws.EventTimeSync, Remaining: ctrl.RemainingSeconds()}); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleAnswer(c *gin.Context, wc *wsConn, ctrl *session.Controller, msg *ws.RequestPayload) {
	if msg.QID == "" || msg.Option == nil {
		wc.writeError(response.ErrInvalidPayload)
		return
	}
	qid, err := uuid.Parse(msg.QID)
	if err != nil {
		wc.writeError(response.ErrInvalidPayload)
		return
	}

	if err := ctrl.SelectAnswer(c.Request.Context(), qid, *msg.Option); err != nil {
		wc.writeError(wsCode(err))
		return
	}
	wc.write(ws.AckResponse{Event: ws.EventAck, Action: ws.ActionAnswer})
}

func (h *WSHandler) handleNavigate(c *gin.Context, wc *wsConn, ctrl *session.Controller, msg *ws.RequestPayload) {
	if msg.Index == nil {
		wc.writeError(response.ErrInvalidPayload)
		return
	}

	if err := ctrl.Navigate(c.Request.Context(), *msg.Index); err != nil {
		wc.writeError(wsCode(err))
		return
	}
	wc.write(ws.AckResponse{Event: ws.EventAck, Action: ws.ActionNavigate})
}

func (h *WSHandler) handleSubmit(c *gin.Context, wc *wsConn, ctrl *session.Controller, studentID int, examID uuid.UUID, msg *ws.RequestPayload) {
	// The submitted event itself arrives through the push loop once the
	// session reaches the submitted state.
	if _, err := ctrl.Submit(c.Request.Context(), model.SubmitModeManual, msg.Confirm); err != nil {
		wc.writeError(wsCode(err))
		return
	}
	h.registry.Release(studentID, examID)
}

// wsCode maps session errors to the same typed codes the HTTP surface uses.
func wsCode(err error) response.ErrCode {
	var notAvail *session.NotAvailableError
	var confirm *session.ConfirmationRequiredError

	switch {
	case errors.Is(err, session.ErrExamNotFound):
		return response.ErrExamNotFound
	case errors.As(err, &notAvail):
		return response.ErrExamNotAvailable
	case errors.As(err, &confirm):
		return response.ErrConfirmRequired
	case errors.Is(err, session.ErrAlreadySubmitted):
		return response.ErrAlreadySubmitted
	case errors.Is(err, session.ErrInvalidAnswer):
		return response.ErrInvalidAnswer
	case errors.Is(err, session.ErrInvalidPosition):
		return response.ErrInvalidPosition
	case errors.Is(err, session.ErrSessionClosed):
		return response.ErrNoActiveSession
	case errors.Is(err, session.ErrSubmissionFailed):
		return response.ErrSubmissionFailed
	default:
		return response.ErrInternal
	}
}
