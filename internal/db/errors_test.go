package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("load job: %w", storageErr("get job", cause))

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to get job: connection refused")

	var se *StorageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "get job", se.Op)
}

func TestTransitionError(t *testing.T) {
	err := &TransitionError{From: CandidateStatusRejected, To: CandidateStatusAccepted}
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, "cannot move candidate from rejected to accepted", err.Error())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{CandidateStatusPending, CandidateStatusAccepted, true},
		{CandidateStatusPending, CandidateStatusRejected, true},
		{CandidateStatusPending, CandidateStatusContacted, false},
		{CandidateStatusAccepted, CandidateStatusContacted, true},
		{CandidateStatusAccepted, CandidateStatusRejected, false},
		{CandidateStatusAccepted, CandidateStatusPending, false},
		{CandidateStatusRejected, CandidateStatusAccepted, false},
		{CandidateStatusRejected, CandidateStatusRejected, true},
		{CandidateStatusContacted, CandidateStatusContacted, true},
		{CandidateStatusContacted, CandidateStatusAccepted, false},
		{"bogus", "bogus", false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidCandidateStatus(t *testing.T) {
	assert.True(t, ValidCandidateStatus(CandidateStatusContacted))
	assert.False(t, ValidCandidateStatus("archived"))
	assert.False(t, ValidCandidateStatus(""))
}

func TestSchemaEmbedded(t *testing.T) {
	schema := Schema()
	for _, table := range []string{"jobs", "candidates", "matches", "outreach"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
}
