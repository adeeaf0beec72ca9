// Package apitest provides an in-process fake of the summarization service
// for tests.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// Task is a task as the fake reports it. Status is sent verbatim; an empty
// status is omitted from the payload.
type Task struct {
	ID     int
	Status string
}

// Upload records one received document.
type Upload struct {
	Filename string
	Content  string
	Token    string
}

// Server is a fake summarization API backed by httptest.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	token      string
	tasks      []Task
	summaries  map[string]string
	failures   map[string]int // path -> status to answer with
	calls      map[string]int // path -> count
	uploads    []Upload
	lastBodies map[string]map[string]any
	lastQuery  map[string]map[string]string
	nextTaskID int
}

// NewServer starts a fake that accepts token as the valid credential. It is
// closed when the test ends.
func NewServer(t *testing.T, token string) *Server {
	t.Helper()

	s := &Server{
		token:      token,
		summaries:  map[string]string{},
		failures:   map[string]int{},
		calls:      map[string]int{},
		lastBodies: map[string]map[string]any{},
		lastQuery:  map[string]map[string]string{},
		nextTaskID: 100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/login/password", s.handleToken)
	mux.HandleFunc("POST /user/auth/reset_password", s.handleToken)
	mux.HandleFunc("POST /user/register/password", s.handleAck)
	mux.HandleFunc("POST /user/auth/forgot_password", s.handleAck)
	mux.HandleFunc("POST /generate_summary", s.handleGenerate)
	mux.HandleFunc("GET /user/tasks", s.handleTasks)
	mux.HandleFunc("GET /user/get_summary", s.handleSummary)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// SetTasks replaces the reported task list.
func (s *Server) SetTasks(tasks ...Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]Task(nil), tasks...)
}

// SetSummary sets the result returned for task id.
func (s *Server) SetSummary(id, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[id] = summary
}

// Fail makes every request to path answer with status until cleared with 0.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Uploads returns the received documents.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// LastBody returns the last JSON body received on path.
func (s *Server) LastBody(path string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBodies[path]
}

// LastQuery returns the last query parameters received on path.
func (s *Server) LastQuery(path string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery[path]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		s.lastQuery[r.URL.Path] = q
		status := s.failures[r.URL.Path]
		s.mu.Unlock()

		if status != 0 {
			http.Error(w, `{"detail": "forced failure"}`, status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("token") != s.token {
		http.Error(w, `{"detail": "invalid token"}`, http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) readJSON(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		s.mu.Lock()
		s.lastBodies[r.URL.Path] = m
		s.mu.Unlock()
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.readJSON(r)
	writeJSON(w, map[string]string{"jwt_token": s.token})
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	s.readJSON(r)
	writeJSON(w, map[string]string{"message": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"detail": "missing file"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()
	content, _ := io.ReadAll(file)

	s.mu.Lock()
	s.nextTaskID++
	id := s.nextTaskID
	s.uploads = append(s.uploads, Upload{
		Filename: header.Filename,
		Content:  string(content),
		Token:    r.URL.Query().Get("token"),
	})
	s.mu.Unlock()

	// Creation-time status is reported but clients must not trust it.
	writeJSON(w, map[string]any{"task_id": id, "status": "SUCCESS"})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	s.mu.Lock()
	tasks := make([]map[string]any, 0, len(s.tasks))
	for _, t := range s.tasks {
		entry := map[string]any{"user_task_id": t.ID}
		if t.Status != "" {
			entry["user_task_status"] = t.Status
		}
		tasks = append(tasks, entry)
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"tasks": tasks})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	id := r.URL.Query().Get("task_id")
	if _, err := strconv.Atoi(id); err != nil {
		http.Error(w, `{"detail": "bad task id"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	summary, ok := s.summaries[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, `{"detail": "not ready"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"result": summary})
}
