package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"skillglide/services/jobboard/internal/errors"
	"skillglide/services/jobboard/internal/models"
)

// Source is the subset of the jobs gateway dashboards read from.
type Source interface {
	FetchJobs(ctx context.Context, filters *models.FilterSpecification) ([]models.JobPosting, error)
	ListEmployerJobs(ctx context.Context, employerID string) ([]models.JobPosting, error)
	ListMyApplications(ctx context.Context) ([]models.Application, error)
}

type EmployerDashboard struct {
	Stats EmployerStats       `json:"stats"`
	Jobs  []models.JobPosting `json:"jobs"`
}

type SeekerDashboard struct {
	Stats        SeekerStats          `json:"stats"`
	Applications []models.Application `json:"applications"`
	Recommended  []models.JobPosting  `json:"recommended"`
}

type Service struct {
	source   Source
	recorder SnapshotRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(source Source, recorder SnapshotRecorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = NewNoopRecorder()
	}
	return &Service{source: source, recorder: recorder, logger: logger, now: time.Now}
}

func (s *Service) Employer(ctx context.Context, employerID string) (*EmployerDashboard, error) {
	ctx, span := tracer.Start(ctx, "Service.Employer")
	defer span.End()

	if employerID == "" {
		return nil, errors.InvalidInput("employer id is required", nil)
	}

	jobs, err := s.source.ListEmployerJobs(ctx, employerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	stats := ComputeEmployerStats(employerID, jobs, s.now())
	if err := s.recorder.Record(ctx, stats); err != nil {
		s.logger.Warn("failed to record dashboard snapshot",
			zap.String("employer_id", employerID),
			zap.Error(err))
	}

	return &EmployerDashboard{Stats: stats, Jobs: jobs}, nil
}

func (s *Service) Seeker(ctx context.Context, prefs *Preferences) (*SeekerDashboard, error) {
	ctx, span := tracer.Start(ctx, "Service.Seeker")
	defer span.End()

	apps, err := s.source.ListMyApplications(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Recommendations are best effort; the gateway already yields an empty
	// list on failure.
	jobs, err := s.source.FetchJobs(ctx, nil)
	if err != nil {
		s.logger.Warn("recommendations unavailable", zap.Error(err))
	}

	return &SeekerDashboard{
		Stats:        ComputeSeekerStats(apps, s.now()),
		Applications: apps,
		Recommended:  RecommendedJobs(jobs, prefs, defaultRecommendations),
	}, nil
}
