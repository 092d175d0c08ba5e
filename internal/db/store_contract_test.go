package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the Store contract against any backend.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	job, err := store.CreateJob(ctx, &JobInput{
		Title:           "Senior Backend Engineer",
		Company:         "Acme",
		CompanyWebsite:  "https://acme.example.com",
		Description:     "Build distributed systems",
		RequiredSkills:  []string{"Go", "PostgreSQL"},
		ExperienceLevel: "senior",
		Location:        "Remote",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, job.ID)

	newCandidate := func(name string, score float64, rank int) *Candidate {
		t.Helper()
		c, err := store.CreateCandidate(ctx, &CandidateInput{
			JobID:  job.ID,
			Name:   name,
			Skills: []string{"Go"},
			Email:  name + "@example.com",
		})
		require.NoError(t, err)
		_, err = store.CreateMatch(ctx, &MatchInput{
			JobID:         job.ID,
			CandidateID:   c.ID,
			Score:         score,
			KeyHighlights: []string{"strong Go"},
			FitReasoning:  "good fit",
			RankPosition:  rank,
		})
		require.NoError(t, err)
		return c
	}

	t.Run("job roundtrip", func(t *testing.T) {
		got, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Acme", got.Company)
		assert.Equal(t, []string{"Go", "PostgreSQL"}, got.RequiredSkills)
	})

	t.Run("missing rows return nil without error", func(t *testing.T) {
		missing := uuid.New()

		j, err := store.GetJob(ctx, missing)
		assert.NoError(t, err)
		assert.Nil(t, j)

		c, err := store.GetCandidate(ctx, missing)
		assert.NoError(t, err)
		assert.Nil(t, c)

		o, err := store.GetOutreachByCandidate(ctx, missing)
		assert.NoError(t, err)
		assert.Nil(t, o)

		updated, err := store.UpdateCandidateStatus(ctx, missing, CandidateStatusAccepted)
		assert.NoError(t, err)
		assert.Nil(t, updated)
	})

	low := newCandidate("low", 40, 2)
	best := newCandidate("best", 92, 1)
	mid := newCandidate("mid", 75, 1)

	t.Run("next candidate is best score", func(t *testing.T) {
		next, err := store.GetNextCandidate(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, best.ID, next.Candidate.ID)
		assert.Equal(t, 92.0, next.Match.Score)
		assert.Equal(t, CandidateStatusPending, next.Candidate.Status)
	})

	t.Run("status lifecycle", func(t *testing.T) {
		accepted, err := store.UpdateCandidateStatus(ctx, best.ID, CandidateStatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, CandidateStatusAccepted, accepted.Status)

		// repeating the current status is a no-op
		again, err := store.UpdateCandidateStatus(ctx, best.ID, CandidateStatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, CandidateStatusAccepted, again.Status)

		_, err = store.UpdateCandidateStatus(ctx, best.ID, CandidateStatusRejected)
		assert.True(t, errors.Is(err, ErrInvalidTransition))

		_, err = store.UpdateCandidateStatus(ctx, low.ID, CandidateStatusRejected)
		require.NoError(t, err)
		_, err = store.UpdateCandidateStatus(ctx, low.ID, CandidateStatusPending)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		next, err := store.GetNextCandidate(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, mid.ID, next.Candidate.ID)
	})

	t.Run("list by status ordered by score", func(t *testing.T) {
		_, err := store.UpdateCandidateStatus(ctx, mid.ID, CandidateStatusAccepted)
		require.NoError(t, err)

		list, err := store.ListCandidatesByStatus(ctx, job.ID, CandidateStatusAccepted)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, best.ID, list[0].Candidate.ID)
		assert.Equal(t, mid.ID, list[1].Candidate.ID)

		empty, err := store.ListCandidatesByStatus(ctx, job.ID, CandidateStatusContacted)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("outreach lifecycle and stats", func(t *testing.T) {
		o, err := store.CreateOutreach(ctx, &OutreachInput{
			JobID:       job.ID,
			CandidateID: best.ID,
			Subject:     "Hello",
			Body:        "We'd love to talk",
		})
		require.NoError(t, err)
		assert.Equal(t, DeliveryStatusGenerated, o.DeliveryStatus)

		latest, err := store.GetOutreachByCandidate(ctx, best.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, o.ID, latest.ID)

		require.NoError(t, store.UpdateOutreachContent(ctx, o.ID, "Edited", "Edited body"))
		sentAt := time.Now().UTC()
		require.NoError(t, store.UpdateOutreachStatus(ctx, o.ID, DeliveryStatusSent, &sentAt, nil))

		got, err := store.GetOutreach(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "Edited", got.Subject)
		assert.Equal(t, DeliveryStatusSent, got.DeliveryStatus)
		require.NotNil(t, got.SentAt)
		assert.Nil(t, got.ErrorMessage)

		_, err = store.UpdateCandidateStatus(ctx, best.ID, CandidateStatusContacted)
		require.NoError(t, err)

		stats, err := store.GetJobStats(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, JobStats{
			TotalSourced:     3,
			Accepted:         1,
			Rejected:         1,
			Contacted:        1,
			PitchesGenerated: 1,
			OutreachSent:     1,
		}, *stats)
	})
}
