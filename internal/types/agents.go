// Package types provides type definitions for the structured data exchanged with the recruiting agents.
//
//nolint:revive // types is a standard Go package name pattern
package types

// JobBrief is the view of a job opening handed to the agents
type JobBrief struct {
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	CompanyWebsite  string   `json:"company_website,omitempty"`
	Description     string   `json:"description"`
	RequiredSkills  []string `json:"required_skills"`
	ExperienceLevel string   `json:"experience_level"`
	Location        string   `json:"location"`
	// CompanyContext is optional research about the hiring company used to personalise pitches
	CompanyContext string `json:"company_context,omitempty"`
}

// CandidateProfile is a candidate produced by the sourcing agent
type CandidateProfile struct {
	Name            string   `json:"name"`
	CurrentRole     string   `json:"current_role"`
	CurrentCompany  string   `json:"current_company"`
	YearsExperience int      `json:"years_experience"`
	Skills          []string `json:"skills"`
	Location        string   `json:"location"`
	Email           string   `json:"email"`
	LinkedInSummary string   `json:"linkedin_summary"`
	LinkedInURL     string   `json:"linkedin_url,omitempty"`
	CompanyWebsite  string   `json:"company_website,omitempty"`
}

// SourcingResult is the JSON envelope returned by the sourcing agent
type SourcingResult struct {
	Candidates []CandidateProfile `json:"candidates"`
}

// MatchResult is the matching agent's evaluation of one candidate in a batch.
// CandidateIndex refers to the position in the batch that was ranked.
type MatchResult struct {
	CandidateIndex int      `json:"candidate_index"`
	Score          float64  `json:"score"`
	KeyHighlights  []string `json:"key_highlights"`
	FitReasoning   string   `json:"fit_reasoning"`
	RankPosition   int      `json:"rank_position"`
}

// MatchingResult is the JSON envelope returned by the matching agent
type MatchingResult struct {
	Matches []MatchResult `json:"matches"`
}

// Pitch is a personalised outreach message
type Pitch struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
