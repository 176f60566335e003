package models

import "time"

type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "pending"
	StatusReviewed    ApplicationStatus = "reviewed"
	StatusShortlisted ApplicationStatus = "shortlisted"
	StatusRejected    ApplicationStatus = "rejected"
	StatusAccepted    ApplicationStatus = "accepted"
	StatusWaiting     ApplicationStatus = "waiting"
	StatusUnderReview ApplicationStatus = "under_review"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusShortlisted, StatusRejected,
		StatusAccepted, StatusWaiting, StatusUnderReview:
		return true
	}
	return false
}

type Application struct {
	ID          string            `json:"id" validate:"required"`
	JobID       string            `json:"job_id"`
	UserID      string            `json:"user_id"`
	Status      ApplicationStatus `json:"status"`
	CoverLetter string            `json:"cover_letter,omitempty"`
	AppliedAt   *time.Time        `json:"applied_at,omitempty"`
	ReviewedAt  *time.Time        `json:"reviewed_at,omitempty"`
}
