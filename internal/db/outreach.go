package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Outreach Methods
// -----------------------------------------------------------------------------

const outreachColumns = `id, job_id, candidate_id, subject, body, delivery_status, sent_at, error_message,
	created_at, updated_at`

func outreachFields(o *Outreach) []any {
	return []any{&o.ID, &o.JobID, &o.CandidateID, &o.Subject, &o.Body, &o.DeliveryStatus,
		&o.SentAt, &o.ErrorMessage, &o.CreatedAt, &o.UpdatedAt}
}

// CreateOutreach stores a pitch for a candidate. Callers check for an existing record first.
func (db *DB) CreateOutreach(ctx context.Context, input *OutreachInput) (*Outreach, error) {
	status := input.DeliveryStatus
	if status == "" {
		status = DeliveryStatusGenerated
	}

	var o Outreach
	err := db.pool.QueryRow(ctx,
		`INSERT INTO outreach (job_id, candidate_id, subject, body, delivery_status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+outreachColumns,
		input.JobID, input.CandidateID, input.Subject, input.Body, status,
	).Scan(outreachFields(&o)...)
	if err != nil {
		return nil, storageErr("create outreach", err)
	}
	return &o, nil
}

// GetOutreach retrieves an outreach record by ID
func (db *DB) GetOutreach(ctx context.Context, id uuid.UUID) (*Outreach, error) {
	var o Outreach
	err := db.pool.QueryRow(ctx,
		`SELECT `+outreachColumns+` FROM outreach WHERE id = $1`,
		id,
	).Scan(outreachFields(&o)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get outreach", err)
	}
	return &o, nil
}

// GetOutreachByCandidate retrieves the most recent outreach record for a candidate
func (db *DB) GetOutreachByCandidate(ctx context.Context, candidateID uuid.UUID) (*Outreach, error) {
	var o Outreach
	err := db.pool.QueryRow(ctx,
		`SELECT `+outreachColumns+` FROM outreach
		 WHERE candidate_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		candidateID,
	).Scan(outreachFields(&o)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get outreach by candidate", err)
	}
	return &o, nil
}

// UpdateOutreachContent replaces the subject and body of an outreach record
func (db *DB) UpdateOutreachContent(ctx context.Context, id uuid.UUID, subject, body string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE outreach SET subject = $1, body = $2, updated_at = NOW() WHERE id = $3`,
		subject, body, id,
	)
	if err != nil {
		return storageErr("update outreach content", err)
	}
	return nil
}

// UpdateOutreachStatus records a delivery status change
func (db *DB) UpdateOutreachStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time, errorMessage *string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE outreach
		 SET delivery_status = $1, sent_at = COALESCE($2, sent_at), error_message = $3, updated_at = NOW()
		 WHERE id = $4`,
		status, sentAt, errorMessage, id,
	)
	if err != nil {
		return storageErr("update outreach status", err)
	}
	return nil
}
