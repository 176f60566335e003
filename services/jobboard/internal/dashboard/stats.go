package dashboard

import (
	"strings"
	"time"

	"skillglide/services/jobboard/internal/models"
)

const (
	defaultRecommendations   = 8
	anonymousRecommendations = 5
)

type EmployerStats struct {
	EmployerID        string    `json:"employer_id"`
	TotalJobs         int       `json:"total_jobs"`
	ActiveJobs        int       `json:"active_jobs"`
	FeaturedJobs      int       `json:"featured_jobs"`
	TotalApplications int       `json:"total_applications"`
	ComputedAt        time.Time `json:"computed_at"`
}

type SeekerStats struct {
	TotalApplications       int       `json:"total_applications"`
	PendingApplications     int       `json:"pending_applications"`
	ShortlistedApplications int       `json:"shortlisted_applications"`
	RejectedApplications    int       `json:"rejected_applications"`
	AcceptedApplications    int       `json:"accepted_applications"`
	ComputedAt              time.Time `json:"computed_at"`
}

// ComputeEmployerStats reduces an employer's own postings to dashboard
// counters. It is recomputed from scratch on every fetch.
func ComputeEmployerStats(employerID string, jobs []models.JobPosting, now time.Time) EmployerStats {
	stats := EmployerStats{EmployerID: employerID, TotalJobs: len(jobs), ComputedAt: now}
	for _, job := range jobs {
		if job.IsActive {
			stats.ActiveJobs++
		}
		if job.IsFeatured {
			stats.FeaturedJobs++
		}
		if job.ApplicationsCount > 0 {
			stats.TotalApplications += job.ApplicationsCount
		}
	}
	return stats
}

func ComputeSeekerStats(apps []models.Application, now time.Time) SeekerStats {
	stats := SeekerStats{TotalApplications: len(apps), ComputedAt: now}
	for _, app := range apps {
		switch models.ApplicationStatus(strings.ToLower(string(app.Status))) {
		case models.StatusPending:
			stats.PendingApplications++
		case models.StatusShortlisted:
			stats.ShortlistedApplications++
		case models.StatusRejected:
			stats.RejectedApplications++
		case models.StatusAccepted:
			stats.AcceptedApplications++
		}
	}
	return stats
}

// Preferences narrows recommendations. Empty fields match anything.
type Preferences struct {
	JobType  models.JobType  `json:"job_type,omitempty"`
	WorkMode models.WorkMode `json:"work_mode,omitempty"`
}

// RecommendedJobs lists jobs matching prefs first, then the remaining jobs,
// without duplicates. With no preferences the first few jobs are returned.
func RecommendedJobs(jobs []models.JobPosting, prefs *Preferences, limit int) []models.JobPosting {
	if limit <= 0 {
		limit = defaultRecommendations
	}
	if prefs == nil {
		limit = min(limit, anonymousRecommendations)
	}

	out := make([]models.JobPosting, 0, min(limit, len(jobs)))
	seen := make(map[string]struct{}, len(jobs))
	add := func(job models.JobPosting) {
		if len(out) >= limit {
			return
		}
		if _, dup := seen[job.ID]; dup {
			return
		}
		seen[job.ID] = struct{}{}
		out = append(out, job)
	}

	if prefs != nil {
		for _, job := range jobs {
			if prefs.JobType != "" && job.JobType != prefs.JobType {
				continue
			}
			if prefs.WorkMode != "" && job.WorkMode != prefs.WorkMode {
				continue
			}
			add(job)
		}
	}
	for _, job := range jobs {
		add(job)
	}
	return out
}
