package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/events"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/schemas"
	"github.com/jonathan/recruiter-agent/internal/types"
	"github.com/rs/zerolog"
)

// LLMMatcher scores candidates with a language model
type LLMMatcher struct {
	client llm.Client
	logger zerolog.Logger
}

// NewLLMMatcher creates a matching agent
func NewLLMMatcher(client llm.Client, logger zerolog.Logger) *LLMMatcher {
	return &LLMMatcher{client: client, logger: logger.With().Str("agent", events.AgentMatching).Logger()}
}

// RankCandidates scores every candidate in the batch. Scores are clamped to 0-100.
// Index validation is left to the caller, which knows the batch it persisted.
func (m *LLMMatcher) RankCandidates(ctx context.Context, job types.JobBrief, candidates []types.CandidateProfile) ([]types.MatchResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var result types.MatchingResult
	err := generateJSON(ctx, m.client, generateRequest{
		agent:     events.AgentMatching,
		systemKey: "matching-system",
		promptKey: "matching-rank",
		data: map[string]string{
			"Title":           job.Title,
			"Company":         job.Company,
			"ExperienceLevel": orNone(job.ExperienceLevel),
			"Location":        orNone(job.Location),
			"RequiredSkills":  joinOrNone(job.RequiredSkills),
			"Description":     job.Description,
			"Candidates":      formatCandidates(candidates),
		},
		tier:        llm.TierStandard,
		temperature: 0.2,
		schema:      schemas.Matching,
	}, &result)
	if err != nil {
		return nil, err
	}

	for i := range result.Matches {
		result.Matches[i].Score = clampScore(result.Matches[i].Score)
	}

	m.logger.Debug().Int("candidates", len(candidates)).Int("matches", len(result.Matches)).Msg("ranked batch")
	return result.Matches, nil
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

func formatCandidates(candidates []types.CandidateProfile) string {
	var sb strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&sb, "[%d] %s - %s at %s, %d years, %s\n", i, c.Name, c.CurrentRole, c.CurrentCompany, c.YearsExperience, orNone(c.Location))
		fmt.Fprintf(&sb, "    Skills: %s\n", joinOrNone(c.Skills))
		if c.LinkedInSummary != "" {
			fmt.Fprintf(&sb, "    Summary: %s\n", c.LinkedInSummary)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
