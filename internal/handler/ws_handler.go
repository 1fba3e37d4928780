package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prepaconcours/prepa-backend/internal/middleware"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/response"
	"github.com/prepaconcours/prepa-backend/internal/service"
	"github.com/prepaconcours/prepa-backend/internal/session"
	"github.com/prepaconcours/prepa-backend/internal/validator"
	ws "github.com/prepaconcours/prepa-backend/internal/websocket"
	"github.com/rs/zerolog"
)

const loadTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
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

// WSHandler runs one exam session per WebSocket connection.
type WSHandler struct {
	sessions *service.ExamSessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// streamListener forwards session events to the socket.
type streamListener struct {
	conn *ws.Conn
	log  zerolog.Logger
}

func (l *streamListener) write(v any) {
	if err := l.conn.WriteTyped(v); err != nil {
		l.log.Debug().Err(err).Msg("Event write failed")
	}
}

func (l *streamListener) OnTick(remaining int) {
	l.write(ws.TickResponse{Event: ws.EventTick, Remaining: remaining})
}

func (l *streamListener) OnProgress(v model.SessionView) {
	l.write(ws.ProgressResponse{Event: ws.EventProgress, SessionView: v})
}

func (l *streamListener) OnIntegrityWarning(count, threshold int) {
	l.write(ws.IntegrityWarningResponse{Event: ws.EventIntegrityWarning, Count: count, Threshold: threshold})
}

func (l *streamListener) OnCompleted(a *model.Attempt, persisted bool) {
	l.write(ws.CompletedResponse{
		Event:        ws.EventCompleted,
		AttemptID:    a.ID,
		FinishReason: a.FinishReason,
		Report:       a.Report,
		Persisted:    persisted,
	})
}

// examStream is the per-connection state of ExamStream.
type examStream struct {
	conn   *ws.Conn
	m      *session.Machine
	userID string
	key    model.ExamKeyParams
	log    zerolog.Logger
}

// ExamStream godoc
// WS /ws/v1/exams/:exam_type/:exam_number/stream
// Upgrades to WebSocket and drives one timed exam session.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var params model.ExamKeyParams
	if fields := validator.BindURI(c, &params); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer raw.Close()

	wsLog := h.log.With().
		Str("user_id", claims.UserID()).
		Str("exam_type", params.ExamType).
		Int("exam_number", params.ExamNumber).
		Logger()

	conn := ws.NewConn(raw)
	m := h.sessions.NewSession(claims.UserID(), params.ExamType, params.ExamNumber, &streamListener{conn: conn, log: wsLog})
	defer m.Abandon()

	s := &examStream{
		conn:   conn,
		m:      m,
		userID: claims.UserID(),
		key:    params,
		log:    wsLog.With().Str("attempt_id", m.ID().String()).Logger(),
	}
	s.log.Info().Msg("Candidate connected")

	for {
		var req ws.Request
		if err := conn.ReadRequest(&req); err != nil {
			if isPayloadError(err) {
				conn.WriteError(response.ErrInvalidPayload, nil)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}

		if fields := validator.Struct(req); fields != nil {
			conn.WriteError(response.ErrInvalidAction, fields)
			continue
		}

		h.dispatch(c.Request.Context(), s, req)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, s *examStream, req ws.Request) {
	var err error

	switch req.Action {
	case ws.ActionLoad:
		err = h.load(ctx, s)
	case ws.ActionAnswer:
		err = s.answer(req.Value)
	case ws.ActionNext:
		err = s.m.Next()
	case ws.ActionPrevious:
		err = s.m.Previous()
	case ws.ActionJump:
		if req.Index == nil {
			s.conn.WriteError(response.ErrValidation, map[string]string{"index": "index est obligatoire"})
			return
		}
		err = s.m.Jump(*req.Index)
	case ws.ActionFlag:
		_, err = s.m.ToggleFlag()
	case ws.ActionFinish:
		err = s.m.Finish()
	case ws.ActionFocusLost:
		_, err = h.sessions.FocusLost(ctx, s.m, s.userID, s.key.ExamType, s.key.ExamNumber)
	case ws.ActionDismissWarning:
		err = s.m.DismissWarning()
	case ws.ActionPing:
		err = s.conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
	}

	if err != nil {
		s.fail(req.Action, err)
	}
}

func (h *WSHandler) load(ctx context.Context, s *examStream) error {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	if err := h.sessions.Load(ctx, s.m, s.key.ExamType, s.key.ExamNumber); err != nil {
		return err
	}

	questions := s.m.Questions()
	public := make([]model.PublicQuestion, len(questions))
	for i, q := range questions {
		public[i] = q.Public()
	}

	cfg := h.sessions.Config()
	return s.conn.WriteTyped(ws.LoadedResponse{
		Event:              ws.EventLoaded,
		AttemptID:          s.m.ID(),
		Questions:          public,
		DurationSeconds:    int(cfg.Duration / time.Second),
		IntegrityThreshold: cfg.IntegrityThreshold,
	})
}

func (s *examStream) answer(raw json.RawMessage) error {
	value, ok := ws.DecodeValue(raw)
	if !ok {
		s.conn.WriteError(response.ErrInvalidAnswer, nil)
		return nil
	}

	outcome, err := s.m.SelectAnswer(value)
	if err != nil {
		return err
	}
	return s.conn.WriteTyped(ws.FeedbackResponse{
		Event:      ws.EventFeedback,
		QuestionID: outcome.QuestionID,
		Selected:   outcome.Selected,
		Answered:   outcome.Answered,
		Correct:    outcome.Correct,
	})
}

// fail reports an action error to the client. The session keeps running.
func (s *examStream) fail(action ws.Action, err error) {
	status, code := response.Classify(err)
	ev := s.log.Debug()
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Str("action", string(action)).Str("code", string(code)).Msg("Action failed")

	if werr := s.conn.WriteError(code, nil); werr != nil {
		s.log.Debug().Err(werr).Msg("Error write failed")
	}
}

// isPayloadError reports whether a read failed on malformed JSON rather than
// on the connection itself.
func isPayloadError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
