package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"scribe/internal/config"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/workitem"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/stats", srv.handleStats)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJob)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
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
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

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
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// apiJob is the wire representation of a ledger record.
type apiJob struct {
	WorkItemID    string                    `json:"work_item_id"`
	Kind          string                    `json:"kind"`
	Title         string                    `json:"title"`
	Locator       workitem.Locator          `json:"locator"`
	Priority      int                       `json:"priority"`
	Status        string                    `json:"status"`
	Attempts      int                       `json:"attempts"`
	Accepted      *ledger.AcceptedCandidate `json:"accepted,omitempty"`
	TextRef       string                    `json:"text_ref,omitempty"`
	LastError     string                    `json:"last_error,omitempty"`
	LastHeartbeat *time.Time                `json:"last_heartbeat,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

func toAPIJob(record *ledger.JobRecord) apiJob {
	return apiJob{
		WorkItemID:    record.WorkItemID,
		Kind:          string(record.Kind),
		Title:         record.WorkItem().Title(),
		Locator:       record.Locator,
		Priority:      record.Priority,
		Status:        string(record.Status),
		Attempts:      record.Attempts,
		Accepted:      record.Accepted,
		TextRef:       record.TextRef,
		LastError:     record.LastError,
		LastHeartbeat: record.LastHeartbeat,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.daemon.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"pending":      stats.Pending,
		"in_progress":  stats.InProgress,
		"completed":    stats.Completed,
		"failed":       stats.Failed,
		"total":        stats.Total(),
		"success_rate": stats.SuccessRate,
	})
}

type submitRequest struct {
	Kind         string `json:"kind"`
	URL          string `json:"url"`
	PodcastName  string `json:"podcast_name"`
	EpisodeTitle string `json:"episode_title"`
	EpisodeURL   string `json:"episode_url"`
	Priority     int    `json:"priority"`
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listJobs(w, r)
	case http.MethodPost:
		s.submitJob(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listJobs(w http.ResponseWriter, r *http.Request) {
	var status ledger.Status
	if value := strings.TrimSpace(r.URL.Query().Get("status")); value != "" {
		parsed, ok := ledger.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status "+value)
			return
		}
		status = parsed
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.daemon.Jobs(r.Context(), status, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jobs := make([]apiJob, 0, len(records))
	for _, record := range records {
		jobs = append(jobs, toAPIJob(record))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *apiServer) submitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		item workitem.WorkItem
		err  error
	)
	switch workitem.Kind(strings.TrimSpace(req.Kind)) {
	case workitem.KindArticle:
		item, err = workitem.NewArticle(req.URL, req.Priority)
	case workitem.KindPodcastEpisode:
		item, err = workitem.NewPodcastEpisode(req.PodcastName, req.EpisodeTitle, req.EpisodeURL, req.Priority)
	default:
		s.writeError(w, http.StatusBadRequest, "unknown kind "+req.Kind)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := s.daemon.Submit(r.Context(), item)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIJob(record))
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if rest == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	if workItemID, ok := strings.CutSuffix(rest, "/retry"); ok {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.retryJob(w, r, workItemID)
		return
	}

	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if strings.Contains(rest, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	record, err := s.daemon.Job(r.Context(), rest)
	if errors.Is(err, ledger.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIJob(record))
}

func (s *apiServer) retryJob(w http.ResponseWriter, r *http.Request, workItemID string) {
	record, err := s.daemon.RetryJob(r.Context(), workItemID)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, ledger.ErrRetryCooldown):
		s.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ledger.ErrConflict):
		s.writeError(w, http.StatusConflict, "only failed jobs can be retried")
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, toAPIJob(record))
	}
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
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
