package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Match Methods
// -----------------------------------------------------------------------------

// CreateMatch stores the matching agent's evaluation of a candidate
func (db *DB) CreateMatch(ctx context.Context, input *MatchInput) (*Match, error) {
	highlights := input.KeyHighlights
	if highlights == nil {
		highlights = []string{}
	}

	var m Match
	err := db.pool.QueryRow(ctx,
		`INSERT INTO matches AS m (job_id, candidate_id, score, key_highlights, fit_reasoning, rank_position)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+matchColumns,
		input.JobID, input.CandidateID, input.Score, highlights, input.FitReasoning, input.RankPosition,
	).Scan(matchFields(&m)...)
	if err != nil {
		return nil, storageErr("create match", err)
	}
	return &m, nil
}

// GetMatchByCandidate retrieves the match for a candidate
func (db *DB) GetMatchByCandidate(ctx context.Context, candidateID uuid.UUID) (*Match, error) {
	var m Match
	err := db.pool.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM matches m WHERE m.candidate_id = $1`,
		candidateID,
	).Scan(matchFields(&m)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get match", err)
	}
	return &m, nil
}
