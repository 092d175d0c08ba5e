package db

import (
	"time"

	"github.com/google/uuid"
)

// Candidate status constants
const (
	CandidateStatusPending   = "pending"
	CandidateStatusAccepted  = "accepted"
	CandidateStatusRejected  = "rejected"
	CandidateStatusContacted = "contacted"
)

// Outreach delivery status constants
const (
	DeliveryStatusGenerated = "generated"
	DeliveryStatusDraft     = "draft"
	DeliveryStatusSent      = "sent"
	DeliveryStatusFailed    = "failed"
)

// ValidCandidateStatus reports whether status is a known candidate status.
func ValidCandidateStatus(status string) bool {
	switch status {
	case CandidateStatusPending, CandidateStatusAccepted, CandidateStatusRejected, CandidateStatusContacted:
		return true
	}
	return false
}

// Job represents a job opening that candidates are sourced for
type Job struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	CompanyWebsite  string    `json:"company_website,omitempty"`
	Description     string    `json:"description"`
	RequiredSkills  []string  `json:"required_skills"`
	ExperienceLevel string    `json:"experience_level"`
	Location        string    `json:"location"`
	CreatedAt       time.Time `json:"created_at"`
}

// JobInput represents input for creating a job
type JobInput struct {
	Title           string
	Company         string
	CompanyWebsite  string
	Description     string
	RequiredSkills  []string
	ExperienceLevel string
	Location        string
}

// Candidate represents a sourced candidate for a job
type Candidate struct {
	ID              uuid.UUID `json:"id"`
	JobID           uuid.UUID `json:"job_id"`
	Name            string    `json:"name"`
	CurrentRole     string    `json:"current_role"`
	CurrentCompany  string    `json:"current_company"`
	YearsExperience int       `json:"years_experience"`
	Skills          []string  `json:"skills"`
	Location        string    `json:"location"`
	Email           string    `json:"email"`
	LinkedInSummary string    `json:"linkedin_summary"`
	LinkedInURL     *string   `json:"linkedin_url,omitempty"`
	CompanyWebsite  *string   `json:"company_website,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// CandidateInput represents input for creating a candidate
type CandidateInput struct {
	JobID           uuid.UUID
	Name            string
	CurrentRole     string
	CurrentCompany  string
	YearsExperience int
	Skills          []string
	Location        string
	Email           string
	LinkedInSummary string
	LinkedInURL     *string
	CompanyWebsite  *string
}

// Match represents the matching agent's evaluation of one candidate.
// RankPosition is relative to the batch the candidate was sourced in.
type Match struct {
	ID            uuid.UUID `json:"id"`
	JobID         uuid.UUID `json:"job_id"`
	CandidateID   uuid.UUID `json:"candidate_id"`
	Score         float64   `json:"score"`
	KeyHighlights []string  `json:"key_highlights"`
	FitReasoning  string    `json:"fit_reasoning"`
	RankPosition  int       `json:"rank_position"`
	CreatedAt     time.Time `json:"created_at"`
}

// MatchInput represents input for creating a match
type MatchInput struct {
	JobID         uuid.UUID
	CandidateID   uuid.UUID
	Score         float64
	KeyHighlights []string
	FitReasoning  string
	RankPosition  int
}

// Outreach represents a personalised pitch and its delivery lifecycle
type Outreach struct {
	ID             uuid.UUID  `json:"id"`
	JobID          uuid.UUID  `json:"job_id"`
	CandidateID    uuid.UUID  `json:"candidate_id"`
	Subject        string     `json:"subject"`
	Body           string     `json:"body"`
	DeliveryStatus string     `json:"delivery_status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OutreachInput represents input for creating an outreach record
type OutreachInput struct {
	JobID          uuid.UUID
	CandidateID    uuid.UUID
	Subject        string
	Body           string
	DeliveryStatus string
}

// CandidateWithMatch joins a candidate with its match
type CandidateWithMatch struct {
	Candidate Candidate `json:"candidate"`
	Match     Match     `json:"match"`
}

// JobStats holds aggregate counts for a job
type JobStats struct {
	TotalSourced     int `json:"total_sourced"`
	Pending          int `json:"pending"`
	Accepted         int `json:"accepted"`
	Rejected         int `json:"rejected"`
	Contacted        int `json:"contacted"`
	PitchesGenerated int `json:"pitches_generated"`
	OutreachSent     int `json:"outreach_sent"`
	OutreachFailed   int `json:"outreach_failed"`
}
