package filter

import (
	"reflect"
	"testing"
	"time"

	"skillglide/services/jobboard/internal/models"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func daysAgo(n int) *time.Time {
	t := now.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func sampleJobs() []models.JobPosting {
	return []models.JobPosting{
		{
			ID: "1", Title: "Senior Frontend Engineer", Location: "Bangalore, India",
			JobType: models.JobTypeFullTime, WorkMode: models.WorkModeHybrid, ExperienceLevel: models.ExperienceSenior,
			Skills:    []string{"React", "TypeScript"},
			Salary:    models.Salary{Min: ptr(50000.0), Max: ptr(80000.0)},
			CreatedAt: daysAgo(2),
		},
		{
			ID: "2", Title: "Plant Technician", Description: "Maintain turbines", Location: "Pune",
			JobType: models.JobTypeContract, WorkMode: models.WorkModeOnsite, ExperienceLevel: models.ExperienceJunior,
			Skills:       []string{"Mechanical Engineering", "AutoCAD"},
			CreatedAtRaw: "yesterday-ish",
		},
		{
			ID: "3", Title: "Data Analyst", Location: "Remote",
			JobType: models.JobTypePartTime, WorkMode: models.WorkModeRemote, ExperienceLevel: models.ExperienceFresher,
			Skills:    []string{"SQL", "Python"},
			Salary:    models.Salary{Min: ptr(20000.0)},
			CreatedAt: daysAgo(40),
		},
		{
			ID: "4", Title: "Go Developer", Description: "Backend services", Location: "Hyderabad",
			JobType: models.JobTypeFullTime, WorkMode: models.WorkModeRemote, ExperienceLevel: models.ExperienceMid,
			Skills:    []string{"Go", "PostgreSQL"},
			Salary:    models.Salary{Max: ptr(120000.0)},
			CreatedAt: daysAgo(10),
		},
	}
}

func ids(jobs []models.JobPosting) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID)
	}
	return out
}

func sampleFilters() map[string]models.FilterSpecification {
	return map[string]models.FilterSpecification{
		"empty":         {},
		"search":        {Search: "engineer"},
		"location":      {Location: "PUNE"},
		"job type":      {JobType: []models.JobType{models.JobTypeFullTime, models.JobTypeContract}},
		"work mode":     {WorkMode: []models.WorkMode{models.WorkModeRemote}},
		"experience":    {Experience: []models.ExperienceLevel{models.ExperienceFresher, models.ExperienceMid}},
		"salary":        {SalaryRange: &models.SalaryRange{Min: ptr(130000.0), Max: ptr(200000.0)}},
		"posted within": {PostedWithin: ptr(7)},
		"skills":        {Skills: []string{"sql", "post"}},
		"combined": {
			JobType:  []models.JobType{models.JobTypeFullTime},
			WorkMode: []models.WorkMode{models.WorkModeRemote},
			Search:   "go",
		},
	}
}

func TestEvaluateIdentity(t *testing.T) {
	jobs := sampleJobs()
	if got := EvaluateAt(jobs, models.FilterSpecification{}, now); !reflect.DeepEqual(got, jobs) {
		t.Fatalf("empty filter changed collection: %v", ids(got))
	}

	got := EvaluateAt([]models.JobPosting{}, models.FilterSpecification{}, now)
	if got == nil || len(got) != 0 {
		t.Fatalf("empty input = %#v", got)
	}
}

func TestEvaluateNilInput(t *testing.T) {
	got := EvaluateAt(nil, models.FilterSpecification{Search: "x"}, now)
	if got == nil || len(got) != 0 {
		t.Fatalf("nil input = %#v, want empty non-nil", got)
	}
}

func TestEvaluateIdempotentAndNarrowing(t *testing.T) {
	jobs := sampleJobs()
	input := map[string]bool{}
	for _, j := range jobs {
		input[j.ID] = true
	}

	for name, f := range sampleFilters() {
		t.Run(name, func(t *testing.T) {
			once := EvaluateAt(jobs, f, now)
			twice := EvaluateAt(once, f, now)
			if !reflect.DeepEqual(once, twice) {
				t.Errorf("not idempotent: %v then %v", ids(once), ids(twice))
			}
			for _, j := range once {
				if !input[j.ID] {
					t.Errorf("result contains unknown job %s", j.ID)
				}
			}
			if len(once) > len(jobs) {
				t.Errorf("result larger than input")
			}
		})
	}
}

func TestEvaluateDimensions(t *testing.T) {
	jobs := sampleJobs()
	want := map[string][]string{
		"search":        {"1", "2"},
		"location":      {"2"},
		"job type":      {"1", "2", "4"},
		"work mode":     {"3", "4"},
		"experience":    {"3", "4"},
		"salary":        {"2", "3"},
		"posted within": {"1", "2"},
		"skills":        {"3", "4"},
		"combined":      {"4"},
	}

	filters := sampleFilters()
	for name, expected := range want {
		t.Run(name, func(t *testing.T) {
			got := ids(EvaluateAt(jobs, filters[name], now))
			if !reflect.DeepEqual(got, expected) {
				t.Errorf("got %v, want %v", got, expected)
			}
		})
	}
}

func TestEvaluateSetDimensionSemantics(t *testing.T) {
	job := models.JobPosting{ID: "j", Title: "x", JobType: models.JobTypeFullTime, WorkMode: models.WorkModeOnsite}
	jobs := []models.JobPosting{job}

	if got := EvaluateAt(jobs, models.FilterSpecification{JobType: []models.JobType{"full-time", "contract"}}, now); len(got) != 1 {
		t.Error("OR within job type should include the job")
	}
	if got := EvaluateAt(jobs, models.FilterSpecification{JobType: []models.JobType{"contract"}}, now); len(got) != 0 {
		t.Error("non-member job type should exclude the job")
	}
	f := models.FilterSpecification{JobType: []models.JobType{"full-time"}, WorkMode: []models.WorkMode{"remote"}}
	if got := EvaluateAt(jobs, f, now); len(got) != 0 {
		t.Error("AND across dimensions should exclude on work mode mismatch")
	}
}

func TestEvaluateSalaryOverlapBoundary(t *testing.T) {
	jobs := []models.JobPosting{{ID: "s", Title: "x", Salary: models.Salary{Min: ptr(50000.0), Max: ptr(80000.0)}}}

	inclusive := models.FilterSpecification{SalaryRange: &models.SalaryRange{Min: ptr(80000.0), Max: ptr(100000.0)}}
	if got := EvaluateAt(jobs, inclusive, now); len(got) != 1 {
		t.Error("touching ranges should overlap")
	}
	disjoint := models.FilterSpecification{SalaryRange: &models.SalaryRange{Min: ptr(90000.0), Max: ptr(100000.0)}}
	if got := EvaluateAt(jobs, disjoint, now); len(got) != 0 {
		t.Error("disjoint ranges should not overlap")
	}
}

func TestEvaluateSingleBoundSalary(t *testing.T) {
	onlyMin := models.JobPosting{ID: "min", Title: "x", Salary: models.Salary{Min: ptr(70000.0)}}
	onlyMax := models.JobPosting{ID: "max", Title: "x", Salary: models.Salary{Max: ptr(40000.0)}}
	jobs := []models.JobPosting{onlyMin, onlyMax}

	tests := []struct {
		name string
		r    models.SalaryRange
		want []string
	}{
		{"min only filter", models.SalaryRange{Min: ptr(50000.0)}, []string{"min"}},
		{"max only filter", models.SalaryRange{Max: ptr(60000.0)}, []string{"max"}},
		{"both bounds", models.SalaryRange{Min: ptr(30000.0), Max: ptr(75000.0)}, []string{"min", "max"}},
		{"zero max is open", models.SalaryRange{Max: ptr(0.0)}, []string{"min", "max"}},
		{"zero min with max", models.SalaryRange{Min: ptr(0.0), Max: ptr(60000.0)}, []string{"max"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.r
			got := ids(EvaluateAt(jobs, models.FilterSpecification{SalaryRange: &r}, now))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluatePostedWithinFailsOpen(t *testing.T) {
	jobs := []models.JobPosting{{ID: "bad-date", Title: "x", CreatedAtRaw: "not a date"}}
	got := EvaluateAt(jobs, models.FilterSpecification{PostedWithin: ptr(1)}, now)
	if len(got) != 1 {
		t.Fatal("job with unparseable date must be retained")
	}
}

func TestEvaluateSearchIsCaseInsensitiveSubstring(t *testing.T) {
	got := ids(EvaluateAt(sampleJobs(), models.FilterSpecification{Search: "engineer"}, now))
	if !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("got %v: want title match 1 and skill match 2", got)
	}
}

func TestEvaluateIgnoresLanguages(t *testing.T) {
	jobs := sampleJobs()
	got := EvaluateAt(jobs, models.FilterSpecification{Languages: []string{"Kannada"}}, now)
	if len(got) != len(jobs) {
		t.Fatalf("languages should not narrow results, got %v", ids(got))
	}
}

func TestEvaluateSearchKeepsWhitespace(t *testing.T) {
	jobs := []models.JobPosting{
		{ID: "1", Title: "Engineer"},
		{ID: "2", Title: "Engineer Lead"},
	}
	if got := ids(EvaluateAt(jobs, models.FilterSpecification{Search: "engineer "}, now)); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("search with trailing space: got %v", got)
	}
	if got := ids(EvaluateAt(jobs, models.FilterSpecification{Location: " "}, now)); len(got) != 0 {
		t.Fatalf("blank location matched %v", got)
	}
}
