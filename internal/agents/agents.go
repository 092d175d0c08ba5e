// Package agents implements the recruiting pipeline's stage adapters: sourcing candidates,
// ranking them against a job, writing outreach pitches and delivering mail.
package agents

import (
	"context"

	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/types"
)

// Sourcer generates a batch of candidate profiles for a job
type Sourcer interface {
	GenerateCandidates(ctx context.Context, job types.JobBrief, count int) ([]types.CandidateProfile, error)
}

// Matcher scores a batch of candidates against a job.
// Results refer to candidates by their index in the batch.
type Matcher interface {
	RankCandidates(ctx context.Context, job types.JobBrief, candidates []types.CandidateProfile) ([]types.MatchResult, error)
}

// PitchWriter writes a personalised outreach message for one candidate
type PitchWriter interface {
	CreatePitch(ctx context.Context, job types.JobBrief, candidate types.CandidateProfile, match types.MatchResult) (*types.Pitch, error)
}

// Mailer delivers an outreach message. It reports success and a human-readable delivery message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (bool, string)
}

// JobBrief converts a stored job into the view handed to the agents
func JobBrief(job *db.Job) types.JobBrief {
	return types.JobBrief{
		Title:           job.Title,
		Company:         job.Company,
		CompanyWebsite:  job.CompanyWebsite,
		Description:     job.Description,
		RequiredSkills:  job.RequiredSkills,
		ExperienceLevel: job.ExperienceLevel,
		Location:        job.Location,
	}
}

// ProfileFromCandidate converts a stored candidate back into an agent profile
func ProfileFromCandidate(c *db.Candidate) types.CandidateProfile {
	return types.CandidateProfile{
		Name:            c.Name,
		CurrentRole:     c.CurrentRole,
		CurrentCompany:  c.CurrentCompany,
		YearsExperience: c.YearsExperience,
		Skills:          c.Skills,
		Location:        c.Location,
		Email:           c.Email,
		LinkedInSummary: c.LinkedInSummary,
		LinkedInURL:     deref(c.LinkedInURL),
		CompanyWebsite:  deref(c.CompanyWebsite),
	}
}

// ResultFromMatch converts a stored match back into a matching result
func ResultFromMatch(m *db.Match) types.MatchResult {
	return types.MatchResult{
		Score:         m.Score,
		KeyHighlights: m.KeyHighlights,
		FitReasoning:  m.FitReasoning,
		RankPosition:  m.RankPosition,
	}
}

// CandidateInput builds the store input for a sourced profile
func CandidateInput(job *db.Job, p types.CandidateProfile) *db.CandidateInput {
	return &db.CandidateInput{
		JobID:           job.ID,
		Name:            p.Name,
		CurrentRole:     p.CurrentRole,
		CurrentCompany:  p.CurrentCompany,
		YearsExperience: p.YearsExperience,
		Skills:          p.Skills,
		Location:        p.Location,
		Email:           p.Email,
		LinkedInSummary: p.LinkedInSummary,
		LinkedInURL:     optional(p.LinkedInURL),
		CompanyWebsite:  optional(p.CompanyWebsite),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
