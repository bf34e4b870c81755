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
	"strconv"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/review"
	"clipforge/internal/services"
)

const shutdownTimeout = 5 * time.Second

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

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
	mux.HandleFunc("/api/queue", srv.handleQueue)
	mux.HandleFunc("/api/queue/", srv.handleQueueJob)
	mux.HandleFunc("/api/review", srv.handleReviewList)
	mux.HandleFunc("/api/review/", srv.handleReviewJob)

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
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queue_db_path"`
	LockFilePath string         `json:"lock_file_path"`
	LastError    string         `json:"last_error,omitempty"`
	Stages       []StageStatus  `json:"stages,omitempty"`
	QueueStats   map[string]int `json:"queue_stats,omitempty"`
}

// StageStatus reports readiness for one pipeline stage.
type StageStatus struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// JobView is the wire representation of a queue job.
type JobView struct {
	ID              int64   `json:"id"`
	SourceID        string  `json:"source_id"`
	SourceURL       string  `json:"source_url"`
	Title           string  `json:"title"`
	Language        string  `json:"language,omitempty"`
	Status          string  `json:"status"`
	QualityScore    int     `json:"quality_score"`
	ReviewPriority  int     `json:"review_priority"`
	ReviewNote      string  `json:"review_note,omitempty"`
	ContentID       string  `json:"content_id,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	RetryCount      int     `json:"retry_count"`
	ProgressStage   string  `json:"progress_stage,omitempty"`
	ProgressMessage string  `json:"progress_message,omitempty"`
	ProgressPercent float64 `json:"progress_percent"`
	MetadataJSON    string  `json:"metadata_json,omitempty"`
	ScoreJSON       string  `json:"score_json,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// PendingView is the wire representation of a review-queue row.
type PendingView struct {
	JobID          int64    `json:"job_id"`
	Title          string   `json:"title"`
	Category       string   `json:"category,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	ClipKey        string   `json:"clip_key,omitempty"`
	ThumbnailKey   string   `json:"thumbnail_key,omitempty"`
	QualityScore   int      `json:"quality_score"`
	ReviewPriority int      `json:"review_priority"`
	Status         string   `json:"status"`
	CreatedAt      string   `json:"created_at"`
}

type jobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

type pendingListResponse struct {
	Pending []PendingView `json:"pending"`
}

type jobResponse struct {
	Job JobView `json:"job"`
}

type reviewRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Reason      string   `json:"reason"`
	Note        string   `json:"note"`
}

func jobView(job *queue.Job) JobView {
	return JobView{
		ID:              job.ID,
		SourceID:        job.SourceID,
		SourceURL:       job.SourceURL,
		Title:           job.Title,
		Language:        job.Language,
		Status:          string(job.Status),
		QualityScore:    job.QualityScore,
		ReviewPriority:  job.ReviewPriority,
		ReviewNote:      job.ReviewNote,
		ContentID:       job.ContentID,
		ErrorMessage:    job.ErrorMessage,
		RetryCount:      job.RetryCount,
		ProgressStage:   job.ProgressStage,
		ProgressMessage: job.ProgressMessage,
		ProgressPercent: job.ProgressPercent,
		MetadataJSON:    job.MetadataJSON,
		ScoreJSON:       job.ScoreJSON,
		CreatedAt:       job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       job.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func jobViews(jobs []*queue.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, jobView(job))
	}
	return views
}

func pendingViews(pending []*queue.PendingContent) []PendingView {
	views := make([]PendingView, 0, len(pending))
	for _, pc := range pending {
		views = append(views, PendingView{
			JobID:          pc.JobID,
			Title:          pc.Title,
			Category:       pc.Category,
			Tags:           pc.Tags,
			ClipKey:        pc.ClipKey,
			ThumbnailKey:   pc.ThumbnailKey,
			QualityScore:   pc.QualityScore,
			ReviewPriority: pc.ReviewPriority,
			Status:         string(pc.Status),
			CreatedAt:      pc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return views
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := StatusResponse{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		LastError:    status.Workflow.LastError,
	}
	for _, health := range status.Workflow.Stages {
		payload.Stages = append(payload.Stages, StageStatus{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	if len(status.Workflow.QueueStats) > 0 {
		payload.QueueStats = make(map[string]int, len(status.Workflow.QueueStats))
		for st, count := range status.Workflow.QueueStats {
			payload.QueueStats[string(st)] = count
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		parsed, ok := queue.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, parsed)
	}

	jobs, err := s.daemon.ListQueue(r.Context(), statuses)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, jobListResponse{Jobs: jobViews(jobs)})
}

func (s *apiServer) handleQueueJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := parseJobID(strings.TrimPrefix(r.URL.Path, "/api/queue/"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, jobResponse{Job: jobView(job)})
}

func (s *apiServer) handleReviewList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	pending, err := s.daemon.review.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, pendingListResponse{Pending: pendingViews(pending)})
}

// handleReviewJob serves GET /api/review/{id} and the POST decision
// endpoints /api/review/{id}/approve, /reject, and /request-edit.
func (s *apiServer) handleReviewJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/review/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, ok := parseJobID(idPart)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if action == "" {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		job, err := s.daemon.review.Get(r.Context(), id)
		if err != nil {
			s.writeReviewError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, jobResponse{Job: jobView(job)})
		return
	}

	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req reviewRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var (
		job *queue.Job
		err error
	)
	switch action {
	case "approve":
		job, err = s.daemon.review.Approve(r.Context(), id, review.Edits{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Tags:        req.Tags,
		})
	case "reject":
		job, err = s.daemon.review.Reject(r.Context(), id, req.Reason)
	case "request-edit":
		job, err = s.daemon.review.RequestEdit(r.Context(), id, req.Note)
	default:
		s.writeError(w, http.StatusNotFound, "unknown review action")
		return
	}
	if err != nil {
		s.writeReviewError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobResponse{Job: jobView(job)})
}

func (s *apiServer) writeReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseJobID(raw string) (int64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
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
