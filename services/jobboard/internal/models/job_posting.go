package models

import (
	"encoding/json"
	"time"
)

type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeFreelance  JobType = "freelance"
)

type WorkMode string

const (
	WorkModeRemote WorkMode = "remote"
	WorkModeOnsite WorkMode = "onsite"
	WorkModeHybrid WorkMode = "hybrid"
)

type ExperienceLevel string

const (
	ExperienceFresher ExperienceLevel = "fresher"
	ExperienceJunior  ExperienceLevel = "1-2"
	ExperienceMid     ExperienceLevel = "3-5"
	ExperienceSenior  ExperienceLevel = "5+"
)

// Salary bounds are nil when the backend omitted them or sent zero.
type Salary struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Period   string   `json:"period,omitempty"`
}

func (s Salary) IsUnspecified() bool {
	return s.Min == nil && s.Max == nil
}

// JobPosting is the normalized form of a backend job record. Whatever id
// field or salary shape the backend used, the parser has already resolved it.
type JobPosting struct {
	ID              string          `json:"id" validate:"required"`
	Title           string          `json:"title" validate:"required"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	JobType         JobType         `json:"job_type,omitempty"`
	WorkMode        WorkMode        `json:"work_mode,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty"`
	Salary          Salary          `json:"salary"`

	Requirements     []string `json:"requirements"`
	Responsibilities []string `json:"responsibilities"`
	Benefits         []string `json:"benefits"`
	Skills           []string `json:"skills"`
	Languages        []string `json:"languages,omitempty"`

	// CreatedAtRaw keeps the backend string. CreatedAt is nil when it
	// could not be parsed.
	CreatedAtRaw        string     `json:"created_at_raw,omitempty"`
	CreatedAt           *time.Time `json:"created_at,omitempty"`
	ApplicationDeadline *time.Time `json:"application_deadline,omitempty"`

	EmployerID        string `json:"employer_id,omitempty"`
	EmployerName      string `json:"employer_name,omitempty"`
	CompanyName       string `json:"company_name,omitempty"`
	ApplicationsCount int    `json:"applications_count" validate:"gte=0"`
	IsActive          bool   `json:"is_active"`
	IsFeatured        bool   `json:"is_featured"`
}

func (p JobPosting) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

func (p *JobPosting) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}
