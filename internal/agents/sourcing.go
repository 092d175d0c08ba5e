package agents

import (
	"context"
	"strconv"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/events"
	"github.com/jonathan/recruiter-agent/internal/llm"
	"github.com/jonathan/recruiter-agent/internal/schemas"
	"github.com/jonathan/recruiter-agent/internal/types"
	"github.com/rs/zerolog"
)

// LLMSourcer generates candidate profiles with a language model
type LLMSourcer struct {
	client llm.Client
	logger zerolog.Logger
}

// NewLLMSourcer creates a sourcing agent
func NewLLMSourcer(client llm.Client, logger zerolog.Logger) *LLMSourcer {
	return &LLMSourcer{client: client, logger: logger.With().Str("agent", events.AgentSourcing).Logger()}
}

// GenerateCandidates returns up to count candidate profiles for job.
// Profiles without a name are dropped; extra profiles beyond count are ignored.
func (s *LLMSourcer) GenerateCandidates(ctx context.Context, job types.JobBrief, count int) ([]types.CandidateProfile, error) {
	if count <= 0 {
		return nil, nil
	}

	var result types.SourcingResult
	err := generateJSON(ctx, s.client, generateRequest{
		agent:     events.AgentSourcing,
		systemKey: "sourcing-system",
		promptKey: "sourcing-generate",
		data: map[string]string{
			"Count":           strconv.Itoa(count),
			"Title":           job.Title,
			"Company":         job.Company,
			"Location":        orNone(job.Location),
			"ExperienceLevel": orNone(job.ExperienceLevel),
			"RequiredSkills":  joinOrNone(job.RequiredSkills),
			"Description":     job.Description,
		},
		tier:        llm.TierStandard,
		temperature: 0.9, // variety matters more than determinism here
		schema:      schemas.Sourcing,
	}, &result)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.CandidateProfile, 0, count)
	for _, c := range result.Candidates {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		if c.YearsExperience < 0 {
			c.YearsExperience = 0
		}
		candidates = append(candidates, c)
		if len(candidates) == count {
			break
		}
	}

	s.logger.Debug().
		Int("requested", count).
		Int("returned", len(result.Candidates)).
		Int("kept", len(candidates)).
		Msg("sourced candidates")
	return candidates, nil
}
