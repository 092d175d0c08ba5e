package types

import "github.com/google/uuid"

// CreateJobRequest represents the request to create a job and start sourcing for it.
type CreateJobRequest struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Company         string   `json:"company" validate:"required,max=200"`
	CompanyWebsite  string   `json:"company_website,omitempty" validate:"max=500"`
	Description     string   `json:"description" validate:"required"`
	RequiredSkills  []string `json:"required_skills" validate:"max=50,dive,required"`
	ExperienceLevel string   `json:"experience_level" validate:"max=100"`
	Location        string   `json:"location" validate:"max=200"`
}

// SendOutreachRequest represents the recruiter's final edit of a draft and the request to deliver it.
type SendOutreachRequest struct {
	OutreachID uuid.UUID `json:"outreach_id" validate:"required"`
	Subject    string    `json:"subject" validate:"required,max=300"`
	Body       string    `json:"body" validate:"required"`
}
