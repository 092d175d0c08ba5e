package db

import (
	"context"

	"github.com/google/uuid"
)

// GetJobStats aggregates candidate and outreach counts for a job
func (db *DB) GetJobStats(ctx context.Context, jobID uuid.UUID) (*JobStats, error) {
	var s JobStats
	err := db.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*),
		   COUNT(*) FILTER (WHERE status = 'pending'),
		   COUNT(*) FILTER (WHERE status = 'accepted'),
		   COUNT(*) FILTER (WHERE status = 'rejected'),
		   COUNT(*) FILTER (WHERE status = 'contacted')
		 FROM candidates WHERE job_id = $1`,
		jobID,
	).Scan(&s.TotalSourced, &s.Pending, &s.Accepted, &s.Rejected, &s.Contacted)
	if err != nil {
		return nil, storageErr("get candidate stats", err)
	}

	err = db.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*),
		   COUNT(*) FILTER (WHERE delivery_status = 'sent'),
		   COUNT(*) FILTER (WHERE delivery_status = 'failed')
		 FROM outreach WHERE job_id = $1`,
		jobID,
	).Scan(&s.PitchesGenerated, &s.OutreachSent, &s.OutreachFailed)
	if err != nil {
		return nil, storageErr("get outreach stats", err)
	}

	return &s, nil
}
