package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/telcprep/exam-session/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *ExamAPIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewExamAPIClient(srv.URL+"/", 5*time.Second, zerolog.Nop())
}

func TestGetExam(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/exams/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 7,
			"title": "TELC B2 Complete Sample Exam",
			"hoerverstehen": {"teil1": {"audio_url": "https://example.com/hv1.mp3", "statements": ["a", "b"]}},
			"schriftlicher_ausdruck": {"task_a": "Beschwerde", "task_b": "Anfrage"}
		}`))
	})

	exam, err := c.GetExam(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if exam.ID != 7 || exam.Title != "TELC B2 Complete Sample Exam" {
		t.Errorf("exam = %d %q", exam.ID, exam.Title)
	}
	if got := exam.Hoerverstehen.Teil1.AudioURL; got != "https://example.com/hv1.mp3" {
		t.Errorf("audio url = %q", got)
	}
	if exam.SchriftlicherAusdruck.TaskB != "Anfrage" {
		t.Errorf("task_b = %q", exam.SchriftlicherAusdruck.TaskB)
	}
}

func TestSubmitExam_SendsPayload(t *testing.T) {
	var got map[string]json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/exams/3/submit" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"result_id": 11, "total_score": 42, "max_score": 60}`))
	})

	req := model.SubmitRequest{StudentName: "Jonas", TimerPhase: model.PhaseTeil13}
	res, err := c.SubmitExam(context.Background(), 3, req)
	if err != nil {
		t.Fatalf("SubmitExam: %v", err)
	}
	if string(got["timer_phase"]) != `"teil1-3"` || string(got["student_name"]) != `"Jonas"` {
		t.Errorf("payload = %v", got)
	}
	if !strings.Contains(string(res.Raw), `"total_score": 42`) {
		t.Errorf("result not forwarded verbatim: %s", res.Raw)
	}
}

func TestSubmitExam_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"flat error", http.StatusTooManyRequests, `{"error": "Rate limit exceeded"}`, "Rate limit exceeded"},
		{"message field", http.StatusBadRequest, `{"message": "invalid answers"}`, "invalid answers"},
		{"nested error", http.StatusConflict, `{"error": {"code": "X", "message": "already graded"}}`, "already graded"},
		{"html body", http.StatusInternalServerError, `<h1>Internal Server Error</h1>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.SubmitExam(context.Background(), 1, model.SubmitRequest{StudentName: "A"})
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *StatusError", err)
			}
			if se.Status != tt.status || se.Message != tt.message {
				t.Errorf("StatusError = %d %q, want %d %q", se.Status, se.Message, tt.status, tt.message)
			}
		})
	}
}

func TestSubmitExam_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewExamAPIClient(url, time.Second, zerolog.Nop())
	_, err := c.SubmitExam(context.Background(), 1, model.SubmitRequest{StudentName: "A"})
	if err == nil {
		t.Fatal("expected an error from a closed server")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Errorf("transport failure reported as status error: %v", err)
	}
}
