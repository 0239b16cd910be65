// Package apitest runs a scripted stand-in for the compiler API over
// httptest. It counts hits per route, records the multipart forms and
// headers it receives, and replays a fixed sequence of task phases.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Route keys reported by [Server.Hits].
const (
	RouteSubmit    = "submit"
	RouteTask      = "task"
	RouteArtifact  = "artifact"
	RouteLogs      = "logs"
	RouteVersion   = "version"
	RouteCalibrate = "calibrate"
	RouteQuantize  = "quantize"
	RouteOptimize  = "optimize"
)

// TaskID is the id assigned to every submitted task.
const TaskID = "7c1e52a4-task"

// Failure is an error response served in place of the normal one.
type Failure struct {
	Status int
	// Body is written verbatim when set, otherwise an API error body is built from Code and Message.
	Body    string
	Code    string
	Message string
	TraceID string
}

// Script drives the responses of a [Server].
type Script struct {
	// SubmitPhase is the phase of the task returned by the submit call. Defaults to Pending.
	SubmitPhase string
	// Phases are returned by successive status GETs. The last one repeats.
	Phases []string
	// Artifact is the body of the artifact GET.
	Artifact []byte
	// Logs is the body of the logs GET.
	Logs []byte
	// Failures replaces the response of a route, keyed by route constant.
	Failures map[string]Failure
	// Bodies replaces the 200 body of a route verbatim, keyed by route constant.
	Bodies map[string]string
	// Version is returned by the version route.
	Version map[string]string
}

// Form is a multipart form as the server received it.
type Form struct {
	Values    map[string]string
	Files     map[string][]byte
	Filenames map[string]string
	FileTypes map[string]string
}

// Server is a scripted API server.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	script  Script
	polls   int
	hits    map[string]int
	forms   map[string]Form
	headers map[string][]http.Header
}

// handler mirrors an http.Handler that returns an error.
type handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// NewServer starts a Server that is closed when the test ends.
func NewServer(tb testing.TB, script Script) *Server {
	tb.Helper()

	if script.SubmitPhase == "" {
		script.SubmitPhase = "Pending"
	}

	s := &Server{
		script:  script,
		hits:    make(map[string]int),
		forms:   make(map[string]Form),
		headers: make(map[string][]http.Header),
	}

	const compiler = "/api/compiler/v1alpha1"
	const dss = "/api/dss/v1alpha1"

	mux := http.NewServeMux()
	s.handle(mux, "POST "+compiler+"/tasks", RouteSubmit, s.submit)
	s.handle(mux, "GET "+compiler+"/tasks/{id}", RouteTask, s.task)
	s.handle(mux, "GET "+compiler+"/tasks/{id}/artifacts/output.enf", RouteArtifact, s.artifact)
	s.handle(mux, "GET "+compiler+"/tasks/{id}/logs", RouteLogs, s.logs)
	s.handle(mux, "GET "+compiler+"/version", RouteVersion, s.version)
	s.handle(mux, "POST "+dss+"/build-calibration-model", RouteCalibrate, s.echo(RouteCalibrate))
	s.handle(mux, "POST "+dss+"/quantize", RouteQuantize, s.echo(RouteQuantize))
	s.handle(mux, "POST "+dss+"/optimize", RouteOptimize, s.echo(RouteOptimize))

	s.Server = httptest.NewServer(mux)
	tb.Cleanup(s.Close)

	return s
}

// handle counts the hit, records headers and multipart bodies, then
// serves either the scripted failure or h.
func (s *Server) handle(mux *http.ServeMux, pattern, route string, h handler) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[route]++
		s.headers[route] = append(s.headers[route], r.Header.Clone())
		failure, failing := s.script.Failures[route]
		body, replaced := s.script.Bodies[route]
		s.mu.Unlock()

		if r.Method == http.MethodPost {
			form, err := readForm(r)
			if err != nil {
				respondError(w, Failure{Status: http.StatusBadRequest, Code: "BAD_FORM", Message: err.Error()})
				return
			}
			s.mu.Lock()
			s.forms[route] = form
			s.mu.Unlock()
		}

		if failing {
			respondError(w, failure)
			return
		}
		if replaced {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
			return
		}

		if err := h(r.Context(), w, r); err != nil {
			respondError(w, Failure{Status: http.StatusInternalServerError, Code: "INTERNAL", Message: err.Error()})
		}
	})
}

// Hits returns how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hits[route]
}

// Form returns the last multipart form posted to route.
func (s *Server) Form(route string) Form {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.forms[route]
}

// Headers returns the headers of every request to route, oldest first.
func (s *Server) Headers(route string) []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]http.Header(nil), s.headers[route]...)
}

// /////////////////////////////////////////////////////////////////

func (s *Server) submit(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
	return respondJSON(w, http.StatusOK, taskBody(s.script.SubmitPhase))
}

func (s *Server) task(_ context.Context, w http.ResponseWriter, r *http.Request) error {
	if id := r.PathValue("id"); id != TaskID {
		respondError(w, Failure{Status: http.StatusNotFound, Code: "TASK_NOT_FOUND", Message: "no task " + id})
		return nil
	}

	s.mu.Lock()
	phase := s.script.SubmitPhase
	if n := len(s.script.Phases); n > 0 {
		phase = s.script.Phases[min(s.polls, n-1)]
	}
	s.polls++
	s.mu.Unlock()

	return respondJSON(w, http.StatusOK, taskBody(phase))
}

func (s *Server) artifact(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
	return respondBytes(w, s.script.Artifact)
}

func (s *Server) logs(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "text/plain")
	_, err := w.Write(s.script.Logs)
	return err
}

func (s *Server) version(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
	v := s.script.Version
	if v == nil {
		v = map[string]string{"version": "0.0.0-test", "git_hash": "deadbeef", "build_time": "2026-01-01T00:00:00Z"}
	}
	return respondJSON(w, http.StatusOK, v)
}

// Echo is the body returned by the DSS routes. It reflects what the server decoded.
type Echo struct {
	Filename      string                `json:"filename"`
	SourceSize    int                   `json:"source_size"`
	InputTensors  []string              `json:"input_tensors,omitempty"`
	DynamicRanges map[string][2]float64 `json:"dynamic_ranges,omitempty"`
}

func (s *Server) echo(route string) handler {
	return func(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
		return writeEcho(w, s.Form(route))
	}
}

func writeEcho(w http.ResponseWriter, form Form) error {
	out := Echo{
		Filename:   form.Filenames["source"],
		SourceSize: len(form.Files["source"]),
	}
	if raw, ok := form.Values["input_tensors"]; ok {
		if err := json.Unmarshal([]byte(raw), &out.InputTensors); err != nil {
			return fmt.Errorf("decoding input_tensors: %w", err)
		}
	}
	if raw, ok := form.Values["dynamic_ranges"]; ok {
		if err := json.Unmarshal([]byte(raw), &out.DynamicRanges); err != nil {
			return fmt.Errorf("decoding dynamic_ranges: %w", err)
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return respondBytes(w, b)
}

// /////////////////////////////////////////////////////////////////

func taskBody(phase string) map[string]any {
	body := map[string]any{
		"version":     1,
		"task_id":     TaskID,
		"phase":       phase,
		"submit_time": 1700000000,
		"progress":    0.0,
	}
	switch phase {
	case "Running":
		body["start_time"] = 1700000001
		body["progress"] = 0.5
	case "Succeeded", "Failed":
		body["start_time"] = 1700000001
		body["finish_time"] = 1700000002
		body["progress"] = 1.0
	}
	if phase == "Failed" {
		body["error_message"] = "compilation failed"
	}
	return body
}

func readForm(r *http.Request) (Form, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return Form{}, err
	}

	form := Form{
		Values:    make(map[string]string),
		Files:     make(map[string][]byte),
		Filenames: make(map[string]string),
		FileTypes: make(map[string]string),
	}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			form.Values[k] = v[0]
		}
	}
	for k, fhs := range r.MultipartForm.File {
		if len(fhs) == 0 {
			continue
		}
		fh := fhs[0]
		f, err := fh.Open()
		if err != nil {
			return Form{}, err
		}
		b, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return Form{}, err
		}
		form.Files[k] = b
		form.Filenames[k] = fh.Filename
		form.FileTypes[k] = fh.Header.Get("Content-Type")
	}

	return form, nil
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_, err = w.Write(jsonData)
	return err
}

func respondBytes(w http.ResponseWriter, b []byte) error {
	w.Header().Set("Content-Type", "application/octet-stream")
	_, err := w.Write(b)
	return err
}

func respondError(w http.ResponseWriter, f Failure) {
	if f.Status == 0 {
		f.Status = http.StatusInternalServerError
	}
	if f.Body != "" {
		w.WriteHeader(f.Status)
		_, _ = io.WriteString(w, f.Body)
		return
	}

	body := map[string]string{"error_code": f.Code, "message": f.Message}
	if f.TraceID != "" {
		body["trace_id"] = f.TraceID
	}
	_ = respondJSON(w, f.Status, body)
}
