package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Job Methods
// -----------------------------------------------------------------------------

// CreateJob inserts a new job opening
func (db *DB) CreateJob(ctx context.Context, input *JobInput) (*Job, error) {
	skills := input.RequiredSkills
	if skills == nil {
		skills = []string{}
	}

	var j Job
	err := db.pool.QueryRow(ctx,
		`INSERT INTO jobs (title, company, company_website, description, required_skills, experience_level, location)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, title, company, company_website, description, required_skills, experience_level, location, created_at`,
		input.Title, input.Company, input.CompanyWebsite, input.Description, skills, input.ExperienceLevel, input.Location,
	).Scan(&j.ID, &j.Title, &j.Company, &j.CompanyWebsite, &j.Description, &j.RequiredSkills,
		&j.ExperienceLevel, &j.Location, &j.CreatedAt)
	if err != nil {
		return nil, storageErr("create job", err)
	}
	return &j, nil
}

// GetJob retrieves a job by ID
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	var j Job
	err := db.pool.QueryRow(ctx,
		`SELECT id, title, company, company_website, description, required_skills, experience_level, location, created_at
		 FROM jobs WHERE id = $1`,
		id,
	).Scan(&j.ID, &j.Title, &j.Company, &j.CompanyWebsite, &j.Description, &j.RequiredSkills,
		&j.ExperienceLevel, &j.Location, &j.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("get job", err)
	}
	return &j, nil
}
