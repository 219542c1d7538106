package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/client"
	"github.com/telcprep/exam-session/internal/model"
	"github.com/telcprep/exam-session/internal/validator"
)

// genericSubmitFailure is shown when the backend gives no reason.
const genericSubmitFailure = "Fehler beim Einreichen der Prüfung"

// ExamSubmitter sends a finished answer sheet to the backend.
type ExamSubmitter interface {
	SubmitExam(ctx context.Context, examID int, req model.SubmitRequest) (*model.SubmissionResult, error)
}

// SubmissionCoordinator builds the phase-aware payload, performs the
// submit round trip and owns the terminal submitted flag. It is safe for
// concurrent use so the round trip can run off the session loop.
type SubmissionCoordinator struct {
	examID int
	api    ExamSubmitter
	log    zerolog.Logger

	mu        sync.Mutex
	inFlight  bool
	submitted bool
	result    *model.SubmissionResult
}

// NewSubmissionCoordinator creates a coordinator for one exam session.
func NewSubmissionCoordinator(examID int, api ExamSubmitter, log zerolog.Logger) *SubmissionCoordinator {
	return &SubmissionCoordinator{
		examID: examID,
		api:    api,
		log:    log.With().Str("component", "submission").Int("exam_id", examID).Logger(),
	}
}

// InFlight reports whether a round trip is pending.
func (c *SubmissionCoordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Submitted reports whether a submission has succeeded.
func (c *SubmissionCoordinator) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Result returns the score payload of the successful submission, if any.
func (c *SubmissionCoordinator) Result() *model.SubmissionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Submit sends the answer sheet tagged with phase. Once a submission has
// succeeded further calls return the same result without a network call.
// Failures leave the session resubmittable.
func (c *SubmissionCoordinator) Submit(ctx context.Context, trigger model.SubmitTrigger, phase model.Phase, studentName string, answers model.NormalizedAnswers) (*model.SubmissionResult, error) {
	c.mu.Lock()
	if c.submitted {
		result := c.result
		c.mu.Unlock()
		c.log.Debug().Str("trigger", string(trigger)).Msg("Already submitted, ignoring")
		return result, nil
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}

	req, err := BuildSubmitRequest(phase, studentName, answers)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.inFlight = true
	c.mu.Unlock()

	log := c.log.With().
		Str("trigger", string(trigger)).
		Str("timer_phase", string(req.TimerPhase)).
		Logger()
	log.Info().Msg("Submitting exam")

	result, err := c.api.SubmitExam(ctx, c.examID, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		subErr := classifySubmitError(err)
		log.Error().Err(err).Str("kind", string(subErr.Kind)).Msg("Submission failed")
		return nil, subErr
	}

	c.submitted = true
	c.result = result
	log.Info().Msg("Exam submitted")
	return result, nil
}

// BuildSubmitRequest assembles the backend payload. The written response
// is dropped entirely when the exam is submitted during Teil 1-3.
func BuildSubmitRequest(phase model.Phase, studentName string, answers model.NormalizedAnswers) (model.SubmitRequest, error) {
	name := strings.TrimSpace(studentName)
	if name == "" {
		return model.SubmitRequest{}, ErrStudentNameRequired
	}

	req := model.SubmitRequest{
		StudentName: name,
		Answers:     answers,
		TimerPhase:  wirePhase(phase),
	}
	if req.TimerPhase == model.PhaseTeil13 {
		req.Answers.SchriftlicherAusdruck = nil
	}

	if fields := validator.Struct(req); fields != nil {
		return model.SubmitRequest{}, fmt.Errorf("%w: %v", ErrInvalidAnswerValue, fields)
	}
	return req, nil
}

// wirePhase maps the timer phase onto the two tags the backend accepts.
// A sheet submitted before the exam started has no writing section to
// send; one submitted after completion was finished in the writing phase.
func wirePhase(p model.Phase) model.Phase {
	switch p {
	case model.PhaseSchriftlich, model.PhaseCompleted:
		return model.PhaseSchriftlich
	default:
		return model.PhaseTeil13
	}
}

func classifySubmitError(err error) *SubmissionError {
	var se *client.StatusError
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = genericSubmitFailure
		}
		return &SubmissionError{Kind: SubmissionServer, Status: se.Status, Message: msg, Err: err}
	}
	return &SubmissionError{Kind: SubmissionNetwork, Message: genericSubmitFailure, Err: err}
}
