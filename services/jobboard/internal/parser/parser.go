package parser

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"skillglide/services/jobboard/internal/errors"
	"skillglide/services/jobboard/internal/models"
)

var (
	blankLinePattern  = regexp.MustCompile(`\n\s*\n`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
	dashPattern       = regexp.MustCompile(`[\x{2013}\x{2014}\x{2015}]`)
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parser turns backend JSON into normalized models. It accepts the shapes the
// backend is known to send: bare arrays or enveloped lists, "id" or "_id",
// "skills" or "required_skills", numeric or string salaries.
type Parser struct {
	logger    *zap.Logger
	policy    *bluemonday.Policy
	validator *validator.Validate
}

func New(logger *zap.Logger) *Parser {
	v := validator.New()
	v.RegisterStructValidation(validateSalary, models.JobPosting{})

	return &Parser{
		logger:    logger,
		policy:    bluemonday.StrictPolicy(),
		validator: v,
	}
}

func validateSalary(sl validator.StructLevel) {
	job := sl.Current().Interface().(models.JobPosting)
	if job.Salary.Min != nil && job.Salary.Max != nil && *job.Salary.Min > *job.Salary.Max {
		sl.ReportError(job.Salary, "Salary", "salary", "salary_order", "")
	}
}

// ParseJobs extracts every valid job record from body. Records that fail
// validation are dropped and logged; a body that is not a job list at all
// is an error.
func (p *Parser) ParseJobs(body []byte) ([]models.JobPosting, error) {
	list, err := listOf(body, "jobs")
	if err != nil {
		return nil, err
	}

	jobs := make([]models.JobPosting, 0, len(list))
	for i, item := range list {
		if !item.IsObject() {
			p.logger.Warn("skipping non-object job record", zap.Int("index", i))
			continue
		}
		job, err := p.job(item)
		if err != nil {
			p.logger.Warn("dropping invalid job record",
				zap.Int("index", i),
				zap.String("id", job.ID),
				zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (p *Parser) ParseJob(body []byte) (*models.JobPosting, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.Internal("malformed job payload", nil)
	}
	item := gjson.ParseBytes(body)
	if item.Get("job").IsObject() {
		item = item.Get("job")
	}
	if !item.IsObject() {
		return nil, errors.Internal("malformed job payload", nil)
	}
	job, err := p.job(item)
	if err != nil {
		return nil, errors.Internal("invalid job record", err)
	}
	return &job, nil
}

func (p *Parser) ParseApplications(body []byte) ([]models.Application, error) {
	list, err := listOf(body, "applications")
	if err != nil {
		return nil, err
	}

	apps := make([]models.Application, 0, len(list))
	for i, item := range list {
		if !item.IsObject() {
			continue
		}
		app := models.Application{
			ID:          identifier(item),
			JobID:       scalarString(item.Get("job_id")),
			UserID:      scalarString(item.Get("user_id")),
			Status:      models.ApplicationStatus(strings.ToLower(item.Get("status").String())),
			CoverLetter: p.text(item.Get("cover_letter").String()),
			AppliedAt:   parseTime(item.Get("applied_at")),
			ReviewedAt:  parseTime(item.Get("reviewed_at")),
		}
		if err := p.validator.Struct(app); err != nil {
			p.logger.Warn("dropping invalid application record", zap.Int("index", i), zap.Error(err))
			continue
		}
		apps = append(apps, app)
	}

	return apps, nil
}

func listOf(body []byte, envelope string) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.Internal("malformed response body", nil)
	}
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root.Array(), nil
	}
	if root.IsObject() {
		for _, key := range []string{envelope, "data", "items", "results"} {
			if v := root.Get(key); v.IsArray() {
				return v.Array(), nil
			}
		}
	}
	return nil, errors.Internal(fmt.Sprintf("expected a %s list in response", envelope), nil)
}

func (p *Parser) job(item gjson.Result) (models.JobPosting, error) {
	job := models.JobPosting{
		ID:               identifier(item),
		Title:            p.text(item.Get("title").String()),
		Description:      p.text(item.Get("description").String()),
		Location:         p.text(item.Get("location").String()),
		JobType:          models.JobType(strings.ToLower(item.Get("job_type").String())),
		WorkMode:         models.WorkMode(strings.ToLower(item.Get("work_mode").String())),
		ExperienceLevel:  models.ExperienceLevel(strings.ToLower(item.Get("experience_level").String())),
		Salary:           salary(item),
		Requirements:     p.textList(item.Get("requirements")),
		Responsibilities: p.textList(item.Get("responsibilities")),
		Benefits:         p.textList(item.Get("benefits")),
		Skills:           p.textList(first(item, "skills", "required_skills")),
		Languages:        p.textList(first(item, "languages", "required_languages")),
		CreatedAtRaw:     item.Get("created_at").String(),
		CreatedAt:        parseTime(item.Get("created_at")),

		ApplicationDeadline: parseTime(item.Get("application_deadline")),
		EmployerID:          scalarString(first(item, "employer_id", "employer.id")),
		EmployerName:        p.text(first(item, "employer_name", "employer.name").String()),
		CompanyName:         p.text(first(item, "company_name", "company.name", "company").String()),
		ApplicationsCount:   int(item.Get("applications_count").Int()),
		IsActive:            isActive(item),
		IsFeatured:          item.Get("is_featured").Bool(),
	}

	if err := p.validator.Struct(job); err != nil {
		return job, err
	}
	return job, nil
}

// identifier resolves "id", then "_id" (plain or Mongo {"$oid": ...}).
func identifier(item gjson.Result) string {
	for _, path := range []string{"id", "_id.$oid", "_id"} {
		if id := scalarString(item.Get(path)); id != "" {
			return id
		}
	}
	return ""
}

func scalarString(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		return v.Raw
	}
	return ""
}

func first(item gjson.Result, paths ...string) gjson.Result {
	for _, path := range paths {
		if v := item.Get(path); v.Exists() && v.Type != gjson.Null {
			if path == "company" && v.IsObject() {
				continue
			}
			return v
		}
	}
	return gjson.Result{}
}

func salary(item gjson.Result) models.Salary {
	return models.Salary{
		Min:      amount(first(item, "salary_min", "salary.min")),
		Max:      amount(first(item, "salary_max", "salary.max")),
		Currency: first(item, "salary_currency", "salary.currency").String(),
		Period:   first(item, "salary_period", "salary.period").String(),
	}
}

// amount treats missing, null, zero and unparseable values as absent.
func amount(v gjson.Result) *float64 {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v.Str), ",", ""), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f <= 0 {
		return nil
	}
	return &f
}

func isActive(item gjson.Result) bool {
	if v := item.Get("is_active"); v.Exists() && v.Type != gjson.Null {
		return v.Bool()
	}
	if v := item.Get("status"); v.Exists() {
		return strings.EqualFold(v.String(), "active")
	}
	return true
}

func parseTime(v gjson.Result) *time.Time {
	switch v.Type {
	case gjson.Number:
		t := time.Unix(v.Int(), 0).UTC()
		return &t
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

func (p *Parser) textList(v gjson.Result) []string {
	if !v.IsArray() {
		if s := p.text(v.String()); s != "" && v.Type == gjson.String {
			return []string{s}
		}
		return []string{}
	}
	out := make([]string, 0, len(v.Array()))
	for _, entry := range v.Array() {
		if s := p.text(entry.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// text strips markup from free text the employer typed into the posting form.
func (p *Parser) text(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(p.policy.Sanitize(s))
	s = blankLinePattern.ReplaceAllString(s, "\n")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = dashPattern.ReplaceAllString(s, "-")
	return strings.TrimSpace(s)
}
