package models

import "slices"

// Field names a dimension of a FilterSpecification.
type Field string

const (
	FieldSearch       Field = "search"
	FieldLocation     Field = "location"
	FieldJobType      Field = "jobType"
	FieldWorkMode     Field = "workMode"
	FieldExperience   Field = "experience"
	FieldSalaryRange  Field = "salaryRange"
	FieldPostedWithin Field = "postedWithin"
	FieldLanguages    Field = "languages"
	FieldSkills       Field = "skills"
)

// IsSet reports whether the field holds a set of values that can be toggled.
func (f Field) IsSet() bool {
	switch f {
	case FieldJobType, FieldWorkMode, FieldExperience, FieldLanguages, FieldSkills:
		return true
	}
	return false
}

type SalaryRange struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Period   string   `json:"period,omitempty"`
}

// FilterSpecification is the zero-value-means-everything search criteria.
// An empty slice places no constraint on its dimension.
type FilterSpecification struct {
	Search       string            `json:"search,omitempty"`
	Location     string            `json:"location,omitempty"`
	JobType      []JobType         `json:"jobType,omitempty"`
	WorkMode     []WorkMode        `json:"workMode,omitempty"`
	Experience   []ExperienceLevel `json:"experience,omitempty"`
	SalaryRange  *SalaryRange      `json:"salaryRange,omitempty"`
	PostedWithin *int              `json:"postedWithin,omitempty"`
	Languages    []string          `json:"languages,omitempty"`
	Skills       []string          `json:"skills,omitempty"`
}

func (f *FilterSpecification) IsEmpty() bool {
	return f == nil || f.ActiveCount() == 0
}

// ActiveCount is the number of active criteria. Scalar dimensions count
// once; every selected member of a set dimension counts on its own.
func (f *FilterSpecification) ActiveCount() int {
	if f == nil {
		return 0
	}
	n := len(f.JobType) + len(f.WorkMode) + len(f.Experience) + len(f.Languages) + len(f.Skills)
	if f.Search != "" {
		n++
	}
	if f.Location != "" {
		n++
	}
	if f.SalaryRange != nil && (f.SalaryRange.Min != nil || f.SalaryRange.Max != nil) {
		n++
	}
	if f.PostedWithin != nil && *f.PostedWithin > 0 {
		n++
	}
	return n
}

// Clone returns a deep copy so callers can't mutate store state.
func (f FilterSpecification) Clone() FilterSpecification {
	out := f
	out.JobType = slices.Clone(f.JobType)
	out.WorkMode = slices.Clone(f.WorkMode)
	out.Experience = slices.Clone(f.Experience)
	out.Languages = slices.Clone(f.Languages)
	out.Skills = slices.Clone(f.Skills)
	if f.SalaryRange != nil {
		sr := *f.SalaryRange
		sr.Min = clonePtr(f.SalaryRange.Min)
		sr.Max = clonePtr(f.SalaryRange.Max)
		out.SalaryRange = &sr
	}
	out.PostedWithin = clonePtr(f.PostedWithin)
	return out
}

// FilterPatch is a partial FilterSpecification. Nil fields leave the current
// value alone; a non-nil pointer to an empty slice clears that dimension.
// Fields listed in Reset are cleared before the set fields are applied.
type FilterPatch struct {
	Search       *string            `json:"search,omitempty"`
	Location     *string            `json:"location,omitempty"`
	JobType      *[]JobType         `json:"jobType,omitempty"`
	WorkMode     *[]WorkMode        `json:"workMode,omitempty"`
	Experience   *[]ExperienceLevel `json:"experience,omitempty"`
	SalaryRange  *SalaryRange       `json:"salaryRange,omitempty"`
	PostedWithin *int               `json:"postedWithin,omitempty"`
	Languages    *[]string          `json:"languages,omitempty"`
	Skills       *[]string          `json:"skills,omitempty"`
	Reset        []Field            `json:"reset,omitempty"`
}

// Apply merges p into f and returns the result. f is not modified.
func (p FilterPatch) Apply(f FilterSpecification) FilterSpecification {
	out := f.Clone()
	for _, field := range p.Reset {
		out.reset(field)
	}
	if p.Search != nil {
		out.Search = *p.Search
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.JobType != nil {
		out.JobType = slices.Clone(*p.JobType)
	}
	if p.WorkMode != nil {
		out.WorkMode = slices.Clone(*p.WorkMode)
	}
	if p.Experience != nil {
		out.Experience = slices.Clone(*p.Experience)
	}
	if p.SalaryRange != nil {
		sr := *p.SalaryRange
		sr.Min = clonePtr(p.SalaryRange.Min)
		sr.Max = clonePtr(p.SalaryRange.Max)
		out.SalaryRange = &sr
	}
	if p.PostedWithin != nil {
		out.PostedWithin = clonePtr(p.PostedWithin)
	}
	if p.Languages != nil {
		out.Languages = slices.Clone(*p.Languages)
	}
	if p.Skills != nil {
		out.Skills = slices.Clone(*p.Skills)
	}
	return out
}

func (f *FilterSpecification) reset(field Field) {
	switch field {
	case FieldSearch:
		f.Search = ""
	case FieldLocation:
		f.Location = ""
	case FieldJobType:
		f.JobType = nil
	case FieldWorkMode:
		f.WorkMode = nil
	case FieldExperience:
		f.Experience = nil
	case FieldSalaryRange:
		f.SalaryRange = nil
	case FieldPostedWithin:
		f.PostedWithin = nil
	case FieldLanguages:
		f.Languages = nil
	case FieldSkills:
		f.Skills = nil
	}
}

// Toggle adds value to the set named by field if absent and removes it if
// present. It reports false when field is not set-valued.
func (f FilterSpecification) Toggle(field Field, value string) (FilterSpecification, bool) {
	out := f.Clone()
	switch field {
	case FieldJobType:
		out.JobType = toggle(out.JobType, JobType(value))
	case FieldWorkMode:
		out.WorkMode = toggle(out.WorkMode, WorkMode(value))
	case FieldExperience:
		out.Experience = toggle(out.Experience, ExperienceLevel(value))
	case FieldLanguages:
		out.Languages = toggle(out.Languages, value)
	case FieldSkills:
		out.Skills = toggle(out.Skills, value)
	default:
		return f, false
	}
	return out, true
}

func toggle[T comparable](set []T, value T) []T {
	if i := slices.Index(set, value); i >= 0 {
		return slices.Delete(set, i, i+1)
	}
	return append(set, value)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
