package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Candidate Methods
// -----------------------------------------------------------------------------

const candidateColumns = `c.id, c.job_id, c.name, c.role_title, c.current_company, c.years_experience,
	c.skills, c.location, c.email, c.linkedin_summary, c.linkedin_url, c.company_website,
	c.status, c.created_at`

const matchColumns = `m.id, m.job_id, m.candidate_id, m.score, m.key_highlights, m.fit_reasoning,
	m.rank_position, m.created_at`

func candidateFields(c *Candidate) []any {
	return []any{&c.ID, &c.JobID, &c.Name, &c.CurrentRole, &c.CurrentCompany, &c.YearsExperience,
		&c.Skills, &c.Location, &c.Email, &c.LinkedInSummary, &c.LinkedInURL, &c.CompanyWebsite,
		&c.Status, &c.CreatedAt}
}

func matchFields(m *Match) []any {
	return []any{&m.ID, &m.JobID, &m.CandidateID, &m.Score, &m.KeyHighlights, &m.FitReasoning,
		&m.RankPosition, &m.CreatedAt}
}

// CreateCandidate inserts a sourced candidate with status pending
func (db *DB) CreateCandidate(ctx context.Context, input *CandidateInput) (*Candidate, error) {
	skills := input.Skills
	if skills == nil {
		skills = []string{}
	}

	var c Candidate
	err := db.pool.QueryRow(ctx,
		`INSERT INTO candidates AS c (job_id, name, role_title, current_company, years_experience, skills,
		                              location, email, linkedin_summary, linkedin_url, company_website, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending')
		 RETURNING `+candidateColumns,
		input.JobID, input.Name, input.CurrentRole, input.CurrentCompany, input.YearsExperience, skills,
		input.Location, input.Email, input.LinkedInSummary, input.LinkedInURL, input.CompanyWebsite,
	).Scan(candidateFields(&c)...)
	if err != nil {
		return nil, storageErr("create candidate", err)
	}
	return &c, nil
}

// GetCandidate retrieves a candidate by ID
func (db *DB) GetCandidate(ctx context.Context, id uuid.UUID) (*Candidate, error) {
	var c Candidate
	err := db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates c WHERE c.id = $1`,
		id,
	).Scan(candidateFields(&c)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get candidate", err)
	}
	return &c, nil
}

// UpdateCandidateStatus moves a candidate to status, enforcing the candidate lifecycle.
// The row is locked for the read-check-write so concurrent updates serialize.
func (db *DB) UpdateCandidateStatus(ctx context.Context, id uuid.UUID, status string) (*Candidate, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var c Candidate
	err = tx.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates c WHERE c.id = $1 FOR UPDATE`,
		id,
	).Scan(candidateFields(&c)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get candidate", err)
	}

	if !CanTransition(c.Status, status) {
		return nil, &TransitionError{From: c.Status, To: status}
	}
	if c.Status == status {
		return &c, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE candidates SET status = $1 WHERE id = $2`, status, id); err != nil {
		return nil, storageErr("update candidate status", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit candidate status", err)
	}

	c.Status = status
	return &c, nil
}

// GetNextCandidate returns the best-scoring pending candidate for a job, oldest first on ties
func (db *DB) GetNextCandidate(ctx context.Context, jobID uuid.UUID) (*CandidateWithMatch, error) {
	var cm CandidateWithMatch
	fields := append(candidateFields(&cm.Candidate), matchFields(&cm.Match)...)
	err := db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+`, `+matchColumns+`
		 FROM candidates c
		 JOIN matches m ON m.candidate_id = c.id
		 WHERE c.job_id = $1 AND c.status = 'pending'
		 ORDER BY m.score DESC, c.created_at ASC
		 LIMIT 1`,
		jobID,
	).Scan(fields...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get next candidate", err)
	}
	return &cm, nil
}

// ListCandidatesByStatus returns a job's candidates in a status joined with their matches, best score first
func (db *DB) ListCandidatesByStatus(ctx context.Context, jobID uuid.UUID, status string) ([]CandidateWithMatch, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+candidateColumns+`, `+matchColumns+`
		 FROM candidates c
		 JOIN matches m ON m.candidate_id = c.id
		 WHERE c.job_id = $1 AND c.status = $2
		 ORDER BY m.score DESC, c.created_at ASC`,
		jobID, status,
	)
	if err != nil {
		return nil, storageErr("list candidates", err)
	}
	defer rows.Close()

	result := []CandidateWithMatch{}
	for rows.Next() {
		var cm CandidateWithMatch
		fields := append(candidateFields(&cm.Candidate), matchFields(&cm.Match)...)
		if err := rows.Scan(fields...); err != nil {
			return nil, storageErr("scan candidate", err)
		}
		result = append(result, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list candidates", err)
	}
	return result, nil
}
