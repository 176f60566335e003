package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"skillglide/services/jobboard/internal/config"
	"skillglide/services/jobboard/internal/dashboard"
	"skillglide/services/jobboard/internal/errors"
	"skillglide/services/jobboard/internal/events"
	"skillglide/services/jobboard/internal/filter"
	"skillglide/services/jobboard/internal/listing"
	"skillglide/services/jobboard/internal/metrics"
	"skillglide/services/jobboard/internal/models"
)

const maxRequestBytes = 1 << 20

// Listing is the view-model the HTTP surface renders.
type Listing interface {
	View() listing.View
	Refetch(ctx context.Context) error
}

// Gateway is the subset of the jobs client used for employer actions.
type Gateway interface {
	GetJob(ctx context.Context, id string) (*models.JobPosting, error)
	DeleteJob(ctx context.Context, id string) error
	ListJobApplications(ctx context.Context, jobID string) ([]models.Application, error)
	UpdateApplicationStatus(ctx context.Context, applicationID string, status models.ApplicationStatus) error
}

type Dashboards interface {
	Employer(ctx context.Context, employerID string) (*dashboard.EmployerDashboard, error)
	Seeker(ctx context.Context, prefs *dashboard.Preferences) (*dashboard.SeekerDashboard, error)
}

type Deps struct {
	Listing    Listing
	Store      *filter.Store
	Gateway    Gateway
	Dashboards Dashboards
	Publisher  events.Publisher
	Metrics    *metrics.Metrics
}

type Server struct {
	deps            Deps
	defaultEmployer string
	logger          *zap.Logger
	validate        *validator.Validate
	router          chi.Router
	server          *http.Server
}

func New(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	if deps.Publisher == nil {
		deps.Publisher = events.NewNoopPublisher()
	}
	s := &Server{
		deps:            deps,
		defaultEmployer: cfg.EmployerID,
		logger:          logger,
		validate:        validator.New(),
	}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.APITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() {
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("http server graceful shutdown failed: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.deps.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/jobs", s.listJobs)
		r.Post("/jobs/refresh", s.refreshJobs)
		r.Get("/jobs/{jobID}", s.getJob)
		r.Get("/jobs/{jobID}/applications", s.listJobApplications)

		r.Route("/filters", func(r chi.Router) {
			r.Get("/", s.getFilters)
			r.Patch("/", s.updateFilters)
			r.Delete("/", s.clearFilters)
			r.Post("/toggle", s.toggleFilter)
			r.Post("/search", s.search)
		})

		r.Get("/dashboard/employer", s.employerDashboard)
		r.Get("/dashboard/employer/{employerID}", s.employerDashboard)
		r.Get("/dashboard/seeker", s.seekerDashboard)

		r.Delete("/employer/jobs/{jobID}", s.deleteJob)
		r.Put("/applications/{applicationID}/status", s.updateApplicationStatus)
	})

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http_access",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("dur", time.Since(start)),
		)
	})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Listing.View())
}

// refreshJobs always answers with the resulting view so the caller can
// render the failed state with its retry control.
func (s *Server) refreshJobs(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if err := s.deps.Listing.Refetch(r.Context()); err != nil {
		status = errors.HTTPStatus(err)
	}
	writeJSON(w, status, s.deps.Listing.View())
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Gateway.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) listJobApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.deps.Gateway.ListJobApplications(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": apps})
}

func (s *Server) getFilters(w http.ResponseWriter, r *http.Request) {
	s.writeFilters(w, s.deps.Store.Current())
}

func (s *Server) updateFilters(w http.ResponseWriter, r *http.Request) {
	var patch models.FilterPatch
	if !s.decode(w, r, &patch) {
		return
	}
	s.writeFilters(w, s.deps.Store.UpdateFilters(patch))
}

func (s *Server) clearFilters(w http.ResponseWriter, r *http.Request) {
	s.writeFilters(w, s.deps.Store.ClearFilters())
}

type toggleRequest struct {
	Field models.Field `json:"field" validate:"required"`
	Value string       `json:"value" validate:"required"`
}

func (s *Server) toggleFilter(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := s.deps.Store.ToggleMembership(req.Field, req.Value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeFilters(w, f)
}

type searchRequest struct {
	Text string `json:"text"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeFilters(w, s.deps.Store.Search(req.Text))
}

func (s *Server) writeFilters(w http.ResponseWriter, f models.FilterSpecification) {
	writeJSON(w, http.StatusOK, map[string]any{
		"filters":        f,
		"active_filters": f.ActiveCount(),
	})
}

func (s *Server) employerDashboard(w http.ResponseWriter, r *http.Request) {
	employerID := chi.URLParam(r, "employerID")
	if employerID == "" {
		employerID = s.defaultEmployer
	}
	dash, err := s.deps.Dashboards.Employer(r.Context(), employerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) seekerDashboard(w http.ResponseWriter, r *http.Request) {
	var prefs *dashboard.Preferences
	q := r.URL.Query()
	if q.Has("job_type") || q.Has("work_mode") {
		prefs = &dashboard.Preferences{
			JobType:  models.JobType(q.Get("job_type")),
			WorkMode: models.WorkMode(q.Get("work_mode")),
		}
	}
	dash, err := s.deps.Dashboards.Seeker(r.Context(), prefs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// deleteJob removes a posting, tells other instances, and refetches. Only
// the delete itself decides the response.
func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	if err := s.deps.Gateway.DeleteJob(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.deps.Publisher.PublishJobDeleted(r.Context(), id); err != nil {
		s.logger.Warn("failed to announce job deletion", zap.String("job_id", id), zap.Error(err))
	}
	if err := s.deps.Listing.Refetch(r.Context()); err != nil {
		s.logger.Warn("refetch after delete failed", zap.String("job_id", id), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status models.ApplicationStatus `json:"status" validate:"required"`
}

func (s *Server) updateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.deps.Gateway.UpdateApplicationStatus(r.Context(), chi.URLParam(r, "applicationID"), req.Status); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, errors.InvalidInput("malformed request body", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, errors.InvalidInput("invalid request", err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"type":  string(errors.TypeOf(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
