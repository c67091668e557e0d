package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bsie/internal/api"
	"bsie/internal/config"
	"bsie/internal/ingest"
	"bsie/internal/logging"
	"bsie/internal/pipeline"
	"bsie/internal/statecontrol"
)

// maxUploadBytes caps statement uploads; bank statements are small.
const maxUploadBytes = 64 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	svc    *api.StatementService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		svc:    api.NewStatementService(d.store, d.controller),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/statements", srv.handleStatements)
	mux.HandleFunc("/api/statements/", srv.handleStatement)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	health := make([]api.StageHealth, 0, len(status.StageHealth))
	for _, h := range status.StageHealth {
		health = append(health, api.StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		StorageDir:   status.StorageDir,
		StateCounts:  status.StateCounts,
		StageHealth:  health,
		LastError:    status.LastError,
	})
}

func (s *apiServer) handleStatements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleList(w, r)
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	var states []pipeline.State
	for _, value := range r.URL.Query()["state"] {
		parsed, ok := pipeline.ParseState(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown state %q", value))
			return
		}
		states = append(states, parsed)
	}
	statements, err := s.svc.List(r.Context(), states...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatementListResponse{Statements: statements})
}

// handleUpload accepts a multipart document upload, stages it in the temp
// area, and runs ingestion.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	tempPath := filepath.Join(s.daemon.paths.TempDir(), uuid.NewString()+".upload")
	out, err := os.Create(tempPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		_ = os.Remove(tempPath)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tempPath)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.Remove(tempPath)

	record, err := s.daemon.Ingest().Ingest(r.Context(), tempPath, header.Filename)
	if err != nil {
		if errors.Is(err, ingest.ErrDuplicate) {
			s.writeJSON(w, http.StatusConflict, api.ErrorResponse{Error: err.Error()})
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromRecord(record))
}

// handleStatement routes /api/statements/{id}[/state|/history|/transition].
func (s *apiServer) handleStatement(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/statements/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		s.writeError(w, http.StatusNotFound, "statement not found")
		return
	}

	switch action {
	case "":
		s.handleDescribe(w, r, id)
	case "state":
		s.handleState(w, r, id)
	case "history":
		s.handleHistory(w, r, id)
	case "transition":
		s.handleTransition(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "statement not found")
	}
}

func (s *apiServer) handleDescribe(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	dto, err := s.svc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if dto == nil {
		s.writeError(w, http.StatusNotFound, "statement not found")
		return
	}
	s.writeJSON(w, http.StatusOK, dto)
}

func (s *apiServer) handleState(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	view, err := s.svc.State(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view == nil {
		s.writeError(w, http.StatusNotFound, "statement not found")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	history, err := s.svc.History(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		s.writeError(w, http.StatusNotFound, "statement not found")
		return
	}
	s.writeJSON(w, http.StatusOK, history)
}

func (s *apiServer) handleTransition(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body api.TransitionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid transition payload")
		return
	}
	outcome, err := s.svc.Transition(r.Context(), id, body)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if !outcome.Success {
		status = api.HTTPStatusFor(statecontrol.ErrorKind(outcome.ErrorKind))
	}
	s.writeJSON(w, status, outcome)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
