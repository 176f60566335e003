package migrations

import "skillglide/common/database/schema"

var CreateDashboardSnapshotsTable = schema.Migration{
	Version:     1,
	Description: "Create dashboard snapshots table",
	Up: `
		CREATE TABLE IF NOT EXISTS dashboard_snapshots (
			employer_id String,
			total_jobs UInt32,
			active_jobs UInt32,
			featured_jobs UInt32,
			total_applications UInt64,
			captured_at DateTime
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(captured_at)
		ORDER BY (employer_id, captured_at)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS dashboard_snapshots`,
}

// All lists every migration in version order.
var All = []schema.Migration{
	CreateDashboardSnapshotsTable,
}
