package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"skillglide/common/database/schema"
	"skillglide/common/telemetry"
)

var tracer = telemetry.GetTracer("skillglide/jobboard/dashboard")

// SnapshotRecorder keeps a history of employer stats for trend charts.
type SnapshotRecorder interface {
	Record(ctx context.Context, stats EmployerStats) error
}

type clickHouseRecorder struct {
	db     schema.Execer
	logger *zap.Logger
}

// NewClickHouseRecorder writes to the dashboard_snapshots table. db is
// usually a clickhouse.Conn.
func NewClickHouseRecorder(db schema.Execer, logger *zap.Logger) SnapshotRecorder {
	return &clickHouseRecorder{db: db, logger: logger}
}

func (r *clickHouseRecorder) Record(ctx context.Context, stats EmployerStats) error {
	ctx, span := tracer.Start(ctx, "Record")
	defer span.End()
	span.SetAttributes(telemetry.String("employer.id", stats.EmployerID))

	query := `
		INSERT INTO dashboard_snapshots (
			employer_id, total_jobs, active_jobs, featured_jobs,
			total_applications, captured_at
		) VALUES (
			?, ?, ?, ?, ?, ?
		)
	`

	if err := r.db.Exec(ctx, query,
		stats.EmployerID,
		uint32(stats.TotalJobs),
		uint32(stats.ActiveJobs),
		uint32(stats.FeaturedJobs),
		uint64(stats.TotalApplications),
		stats.ComputedAt,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert dashboard snapshot: %w", err)
	}

	r.logger.Debug("recorded dashboard snapshot",
		zap.String("employer_id", stats.EmployerID),
		zap.Int("total_jobs", stats.TotalJobs))
	return nil
}

type noopRecorder struct{}

func NewNoopRecorder() SnapshotRecorder { return noopRecorder{} }

func (noopRecorder) Record(context.Context, EmployerStats) error { return nil }
