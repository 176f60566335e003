package filter

import (
	"slices"
	"strings"
	"time"

	"skillglide/services/jobboard/internal/models"
)

const day = 24 * time.Hour

// Evaluate returns the jobs matching every active dimension of f, in input
// order. It never returns nil and never modifies jobs.
func Evaluate(jobs []models.JobPosting, f models.FilterSpecification) []models.JobPosting {
	return EvaluateAt(jobs, f, time.Now())
}

// EvaluateAt is Evaluate with an explicit clock for the posted-within window.
func EvaluateAt(jobs []models.JobPosting, f models.FilterSpecification, now time.Time) []models.JobPosting {
	out := make([]models.JobPosting, 0, len(jobs))
	m := newMatcher(f, now)
	for _, job := range jobs {
		if m.match(&job) {
			out = append(out, job)
		}
	}
	return out
}

// matcher holds the lowered needles so each job costs no extra allocation
// for the filter side.
type matcher struct {
	search   string
	location string
	jobTypes []models.JobType
	modes    []models.WorkMode
	levels   []models.ExperienceLevel
	salary   *models.SalaryRange
	cutoff   time.Time
	skills   []string
}

func newMatcher(f models.FilterSpecification, now time.Time) matcher {
	m := matcher{
		search:   strings.ToLower(f.Search),
		location: strings.ToLower(f.Location),
		jobTypes: f.JobType,
		modes:    f.WorkMode,
		levels:   f.Experience,
	}
	if f.SalaryRange != nil {
		r := models.SalaryRange{Min: bound(f.SalaryRange.Min), Max: bound(f.SalaryRange.Max)}
		if r.Min != nil || r.Max != nil {
			m.salary = &r
		}
	}
	if f.PostedWithin != nil && *f.PostedWithin > 0 {
		m.cutoff = now.Add(-time.Duration(*f.PostedWithin) * day)
	}
	for _, s := range f.Skills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			m.skills = append(m.skills, s)
		}
	}
	return m
}

func (m matcher) match(job *models.JobPosting) bool {
	if m.search != "" && !matchesSearch(job, m.search) {
		return false
	}
	if m.location != "" && !contains(job.Location, m.location) {
		return false
	}
	if len(m.jobTypes) > 0 && !slices.Contains(m.jobTypes, job.JobType) {
		return false
	}
	if len(m.modes) > 0 && !slices.Contains(m.modes, job.WorkMode) {
		return false
	}
	if len(m.levels) > 0 && !slices.Contains(m.levels, job.ExperienceLevel) {
		return false
	}
	if m.salary != nil && !salaryOverlaps(job.Salary, m.salary) {
		return false
	}
	if !m.cutoff.IsZero() && job.CreatedAt != nil && job.CreatedAt.Before(m.cutoff) {
		return false
	}
	if len(m.skills) > 0 && !matchesAnySkill(job.Skills, m.skills) {
		return false
	}
	return true
}

func matchesSearch(job *models.JobPosting, needle string) bool {
	if contains(job.Title, needle) || contains(job.Description, needle) || contains(job.Location, needle) {
		return true
	}
	for _, skill := range job.Skills {
		if contains(skill, needle) {
			return true
		}
	}
	return false
}

// bound drops non-positive filter bounds; a zero bound means "open".
func bound(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// salaryOverlaps is inclusive at both ends. A job with no bounds always
// passes; a missing filter bound is open.
func salaryOverlaps(s models.Salary, r *models.SalaryRange) bool {
	switch {
	case s.Min == nil && s.Max == nil:
		return true
	case s.Min != nil && s.Max != nil:
		return (r.Min == nil || *s.Max >= *r.Min) && (r.Max == nil || *s.Min <= *r.Max)
	case s.Max != nil:
		return r.Min == nil || *s.Max >= *r.Min
	default:
		return r.Max == nil || *s.Min <= *r.Max
	}
}

func matchesAnySkill(jobSkills, wanted []string) bool {
	for _, w := range wanted {
		for _, s := range jobSkills {
			if contains(s, w) {
				return true
			}
		}
	}
	return false
}

// contains reports whether lowered needle occurs in haystack, ignoring case.
func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
