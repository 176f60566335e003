package parser

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"skillglide/services/jobboard/internal/models"
)

func TestParseJobsNormalizesRecordShapes(t *testing.T) {
	p := New(zaptest.NewLogger(t))

	body := []byte(`[
		{
			"id": 42,
			"title": "Senior <b>Frontend</b> Engineer",
			"description": "Build &amp; ship",
			"location": "Bangalore",
			"job_type": "full-time",
			"work_mode": "Remote",
			"experience_level": "3-5",
			"skills": ["React", "TypeScript"],
			"salary_min": 50000,
			"salary_max": "80,000",
			"salary_currency": "INR",
			"salary_period": "month",
			"created_at": "2024-03-01T10:00:00.123456",
			"employer_id": 7,
			"applications_count": 3,
			"is_active": true,
			"is_featured": true
		},
		{
			"_id": {"$oid": "65f0c0ffee"},
			"title": "Mechanic",
			"required_skills": ["Mechanical Engineering"],
			"salary_min": 0,
			"created_at": "last tuesday",
			"company": {"name": "Acme"},
			"status": "closed"
		}
	]`)

	jobs, err := p.ParseJobs(body)
	if err != nil {
		t.Fatalf("ParseJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}

	first := jobs[0]
	if first.ID != "42" {
		t.Errorf("ID = %q, want 42", first.ID)
	}
	if first.Title != "Senior Frontend Engineer" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Description != "Build & ship" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.WorkMode != models.WorkModeRemote {
		t.Errorf("WorkMode = %q", first.WorkMode)
	}
	if first.Salary.Min == nil || *first.Salary.Min != 50000 || first.Salary.Max == nil || *first.Salary.Max != 80000 {
		t.Errorf("Salary = %+v", first.Salary)
	}
	want := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)
	if first.CreatedAt == nil || !first.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, want)
	}
	if first.EmployerID != "7" || first.ApplicationsCount != 3 || !first.IsFeatured {
		t.Errorf("metadata = %+v", first)
	}

	second := jobs[1]
	if second.ID != "65f0c0ffee" {
		t.Errorf("ID = %q, want oid", second.ID)
	}
	if len(second.Skills) != 1 || second.Skills[0] != "Mechanical Engineering" {
		t.Errorf("Skills = %v", second.Skills)
	}
	if !second.Salary.IsUnspecified() {
		t.Errorf("zero salary should be absent: %+v", second.Salary)
	}
	if second.CreatedAt != nil || second.CreatedAtRaw != "last tuesday" {
		t.Errorf("unparseable date: CreatedAt=%v raw=%q", second.CreatedAt, second.CreatedAtRaw)
	}
	if second.CompanyName != "Acme" {
		t.Errorf("CompanyName = %q", second.CompanyName)
	}
	if second.IsActive {
		t.Error("status closed should map to inactive")
	}
}

func TestParseJobsDropsInvalidRecords(t *testing.T) {
	p := New(zaptest.NewLogger(t))

	body := []byte(`{"jobs": [
		{"id": 1, "title": "Valid"},
		{"title": "No id"},
		{"id": 3},
		{"id": 4, "title": "Inverted pay", "salary_min": 9000, "salary_max": 100},
		"not an object"
	]}`)

	jobs, err := p.ParseJobs(body)
	if err != nil {
		t.Fatalf("ParseJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "1" {
		t.Fatalf("got %+v, want only job 1", jobs)
	}
	if !jobs[0].IsActive {
		t.Error("missing activity flag should default to active")
	}
}

func TestParseJobsRejectsMalformedBodies(t *testing.T) {
	p := New(zaptest.NewLogger(t))

	for name, body := range map[string]string{
		"truncated":  `[{"id": 1`,
		"scalar":     `"jobs"`,
		"no list":    `{"detail": "ok"}`,
		"empty body": ``,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := p.ParseJobs([]byte(body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseApplications(t *testing.T) {
	p := New(zaptest.NewLogger(t))

	apps, err := p.ParseApplications([]byte(`[
		{"id": 9, "job_id": 42, "user_id": 5, "status": "Shortlisted", "applied_at": "2024-03-02T08:00:00Z"},
		{"job_id": 43, "status": "pending"}
	]`))
	if err != nil {
		t.Fatalf("ParseApplications: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("got %d applications, want 1", len(apps))
	}
	if apps[0].Status != models.StatusShortlisted || apps[0].JobID != "42" || apps[0].AppliedAt == nil {
		t.Errorf("application = %+v", apps[0])
	}
}
