package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract shared by the PostgreSQL and in-memory backends.
// Reads of missing rows return (nil, nil).
type Store interface {
	CreateJob(ctx context.Context, input *JobInput) (*Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)

	CreateCandidate(ctx context.Context, input *CandidateInput) (*Candidate, error)
	GetCandidate(ctx context.Context, id uuid.UUID) (*Candidate, error)
	UpdateCandidateStatus(ctx context.Context, id uuid.UUID, status string) (*Candidate, error)
	GetNextCandidate(ctx context.Context, jobID uuid.UUID) (*CandidateWithMatch, error)
	ListCandidatesByStatus(ctx context.Context, jobID uuid.UUID, status string) ([]CandidateWithMatch, error)

	CreateMatch(ctx context.Context, input *MatchInput) (*Match, error)
	GetMatchByCandidate(ctx context.Context, candidateID uuid.UUID) (*Match, error)

	CreateOutreach(ctx context.Context, input *OutreachInput) (*Outreach, error)
	GetOutreach(ctx context.Context, id uuid.UUID) (*Outreach, error)
	GetOutreachByCandidate(ctx context.Context, candidateID uuid.UUID) (*Outreach, error)
	UpdateOutreachContent(ctx context.Context, id uuid.UUID, subject, body string) error
	UpdateOutreachStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time, errorMessage *string) error

	GetJobStats(ctx context.Context, jobID uuid.UUID) (*JobStats, error)

	Ping(ctx context.Context) error
	Close()
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*MemoryStore)(nil)
)
