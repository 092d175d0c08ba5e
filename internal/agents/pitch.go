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

// LLMPitchWriter writes outreach pitches with a language model
type LLMPitchWriter struct {
	client     llm.Client
	researcher CompanyResearcher
	logger     zerolog.Logger
}

// NewLLMPitchWriter creates a pitch-writing agent. researcher may be nil.
func NewLLMPitchWriter(client llm.Client, researcher CompanyResearcher, logger zerolog.Logger) *LLMPitchWriter {
	return &LLMPitchWriter{
		client:     client,
		researcher: researcher,
		logger:     logger.With().Str("agent", events.AgentPitchWriter).Logger(),
	}
}

// CreatePitch writes a subject and body for candidate
func (p *LLMPitchWriter) CreatePitch(ctx context.Context, job types.JobBrief, candidate types.CandidateProfile, match types.MatchResult) (*types.Pitch, error) {
	companyContext := job.CompanyContext
	if companyContext == "" && p.researcher != nil && job.CompanyWebsite != "" {
		notes, err := p.researcher.Research(ctx, job.CompanyWebsite)
		if err != nil {
			// research only sharpens the pitch
			p.logger.Warn().Err(err).Str("website", job.CompanyWebsite).Msg("company research failed")
		}
		companyContext = notes
	}

	highlights := make([]string, 0, len(match.KeyHighlights))
	for _, h := range match.KeyHighlights {
		highlights = append(highlights, "- "+h)
	}

	var pitch types.Pitch
	err := generateJSON(ctx, p.client, generateRequest{
		agent:     events.AgentPitchWriter,
		systemKey: "pitch-system",
		promptKey: "pitch-create",
		data: map[string]string{
			"CandidateName":    candidate.Name,
			"CandidateRole":    orNone(candidate.CurrentRole),
			"CandidateCompany": orNone(candidate.CurrentCompany),
			"Title":            job.Title,
			"Company":          job.Company,
			"Score":            strconv.FormatFloat(match.Score, 'f', 0, 64),
			"Highlights":       orNone(strings.Join(highlights, "\n")),
			"FitReasoning":     match.FitReasoning,
			"Summary":          orNone(candidate.LinkedInSummary),
			"CompanyContext":   orNone(companyContext),
		},
		tier:        llm.TierAdvanced,
		temperature: 0.7,
		schema:      schemas.Pitch,
	}, &pitch)
	if err != nil {
		return nil, err
	}

	pitch.Subject = strings.TrimSpace(pitch.Subject)
	pitch.Body = strings.TrimSpace(pitch.Body)
	return &pitch, nil
}
