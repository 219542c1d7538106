package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/telcprep/exam-session/internal/client"
	"github.com/telcprep/exam-session/internal/model"
	"github.com/telcprep/exam-session/internal/response"
	"github.com/telcprep/exam-session/internal/service"
	"github.com/telcprep/exam-session/internal/validator"
)

// SessionHandler exposes exam sessions to the local UI.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// OpenSession godoc
// POST /api/v1/sessions
// Loads the exam paper and opens a session, or returns the open one.
func (h *SessionHandler) OpenSession(c *gin.Context) {
	var req model.OpenSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessions.Open(c.Request.Context(), req.ExamID, req.SessionID)
	if err != nil {
		failFromError(c, err)
		return
	}
	respondState(c, http.StatusCreated, sess)
}

// GetSession godoc
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	respondState(c, http.StatusOK, sess)
}

// Start godoc
// POST /api/v1/sessions/:id/start
// Starts Teil 1-3.
func (h *SessionHandler) Start(c *gin.Context) {
	h.act(c, (*service.ExamSession).Start)
}

// StartListening godoc
// POST /api/v1/sessions/:id/listening/start
func (h *SessionHandler) StartListening(c *gin.Context) {
	h.act(c, (*service.ExamSession).StartListening)
}

// StartWriting godoc
// POST /api/v1/sessions/:id/writing/start
func (h *SessionHandler) StartWriting(c *gin.Context) {
	h.act(c, (*service.ExamSession).StartWriting)
}

// Navigate godoc
// POST /api/v1/sessions/:id/navigate
// Switches the visible section. A refusal carries the German reason.
func (h *SessionHandler) Navigate(c *gin.Context) {
	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.act(c, func(s *service.ExamSession) error { return s.Navigate(req.Section) })
}

// UpdateAnswer godoc
// PUT /api/v1/sessions/:id/answers
func (h *SessionHandler) UpdateAnswer(c *gin.Context) {
	var req model.AnswerUpdate
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.act(c, func(s *service.ExamSession) error { return s.UpdateAnswer(req) })
}

// SetStudentName godoc
// PUT /api/v1/sessions/:id/student
func (h *SessionHandler) SetStudentName(c *gin.Context) {
	var req model.StudentNameRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.act(c, func(s *service.ExamSession) error { return s.SetStudentName(req.StudentName) })
}

// Submit godoc
// POST /api/v1/sessions/:id/submit
// Sends the answer sheet. Failures leave the session resubmittable.
func (h *SessionHandler) Submit(c *gin.Context) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}

	result, err := sess.Submit(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// CloseSession godoc
// DELETE /api/v1/sessions/:id
// Stops the clocks and clears the in-progress flag.
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(id); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Prüfungssitzung beendet."})
}

// act runs a state-changing command and answers with the new state.
func (h *SessionHandler) act(c *gin.Context, fn func(*service.ExamSession) error) {
	sess, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		failFromError(c, err)
		return
	}
	respondState(c, http.StatusOK, sess)
}

func (h *SessionHandler) lookup(c *gin.Context) (*service.ExamSession, bool) {
	id, ok := sessionID(c)
	if !ok {
		return nil, false
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		failFromError(c, err)
		return nil, false
	}
	return sess, true
}

func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return id, true
}

func respondState(c *gin.Context, status int, sess *service.ExamSession) {
	st, err := sess.State()
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, status, st)
}

// apiError is the transport-neutral form of a service error, shared by the
// HTTP and WebSocket surfaces.
type apiError struct {
	status int
	body   response.ErrorBody
}

func classifyError(err error) apiError {
	fail := func(status int, code response.ErrCode) apiError {
		return apiError{status: status, body: response.ErrorBody{Code: code, Message: response.GetMessage(code)}}
	}

	var (
		navErr    *service.NavigationError
		subErr    *service.SubmissionError
		statusErr *client.StatusError
	)
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return fail(http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrSessionClosed):
		return fail(http.StatusGone, response.ErrSessionClosed)
	case errors.Is(err, service.ErrUnknownSection):
		return fail(http.StatusBadRequest, response.ErrUnknownSection)
	case errors.Is(err, service.ErrSlotOutOfRange), errors.Is(err, service.ErrInvalidAnswerValue):
		return fail(http.StatusUnprocessableEntity, response.ErrInvalidAnswer)
	case errors.Is(err, service.ErrStudentNameRequired):
		return fail(http.StatusUnprocessableEntity, response.ErrStudentNameRequired)
	case errors.Is(err, service.ErrAlreadySubmitted):
		return fail(http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrSubmissionInFlight):
		return fail(http.StatusConflict, response.ErrSubmissionInFlight)
	case errors.As(err, &navErr):
		e := fail(http.StatusConflict, response.ErrNavigationRefused)
		e.body.Message = navErr.Reason
		return e
	case errors.As(err, &subErr):
		code := response.ErrSubmissionServer
		if subErr.Kind == service.SubmissionNetwork {
			code = response.ErrSubmissionNetwork
		}
		e := fail(http.StatusBadGateway, code)
		if subErr.Kind == service.SubmissionServer && subErr.Message != "" {
			e.body.Message = subErr.Message
		}
		e.body.Retryable = subErr.Retryable()
		return e
	case errors.Is(err, service.ErrInvalidExamContent):
		return fail(http.StatusBadGateway, response.ErrInvalidExamContent)
	case errors.As(err, &statusErr):
		if statusErr.Status == http.StatusNotFound {
			return fail(http.StatusNotFound, response.ErrExamNotAvailable)
		}
		return fail(http.StatusBadGateway, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrExamUnavailable):
		return fail(http.StatusBadGateway, response.ErrExamNotAvailable)
	default:
		return fail(http.StatusInternalServerError, response.ErrInternal)
	}
}

func failFromError(c *gin.Context, err error) {
	e := classifyError(err)
	if e.status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.FailWithBody(c, e.status, e.body)
}
