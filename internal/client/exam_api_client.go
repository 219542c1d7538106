package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/model"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4096

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Status int
	// Message is the server-provided explanation, empty when the body
	// carried none.
	Message string
	Body    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API returned status code: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API returned status code: %d", e.Status)
}

// ExamAPIClient talks to the exam backend over JSON/HTTP.
type ExamAPIClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
	log     zerolog.Logger
}

// NewExamAPIClient creates a client for the backend rooted at baseURL.
func NewExamAPIClient(baseURL string, timeout time.Duration, log zerolog.Logger) *ExamAPIClient {
	return &ExamAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept": "application/json",
		},
		log: log.With().Str("component", "exam_api_client").Logger(),
	}
}

// GetExam fetches the paper for examID.
func (c *ExamAPIClient) GetExam(ctx context.Context, examID int) (*model.ExamContent, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/exams/%d", examID), nil)
	if err != nil {
		return nil, fmt.Errorf("get exam %d: %w", examID, err)
	}

	var exam model.ExamContent
	if err := json.Unmarshal(body, &exam); err != nil {
		return nil, fmt.Errorf("decode exam %d: %w", examID, err)
	}
	return &exam, nil
}

// SubmitExam posts the answer sheet and returns the score payload verbatim.
func (c *ExamAPIClient) SubmitExam(ctx context.Context, examID int, req model.SubmitRequest) (*model.SubmissionResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/exams/%d/submit", examID), payload)
	if err != nil {
		return nil, fmt.Errorf("submit exam %d: %w", examID, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("submit exam %d: response is not JSON", examID)
	}
	return &model.SubmissionResult{Raw: json.RawMessage(body)}, nil
}

func (c *ExamAPIClient) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.New().String()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Status:  resp.StatusCode,
			Message: serverMessage(raw),
			Body:    string(raw),
		}
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return responseBody, nil
}

// serverMessage extracts "error" or "message" from a JSON error body.
func serverMessage(raw []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	var s string
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &s) == nil && s != "" {
		return s
	}
	var nested struct {
		Message string `json:"message"`
	}
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
		return nested.Message
	}
	return body.Message
}
