package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/pipeline"
	"github.com/jonathan/recruiter-agent/internal/server/ratelimit"
	"github.com/jonathan/recruiter-agent/internal/types"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "title", Message: "required"}
	assert.Equal(t, "validation error: title - required", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestErrNotFound(t *testing.T) {
	err := &ErrNotFound{Resource: "Job"}
	assert.Equal(t, "Job not found", err.Error())
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "transition", err: &db.TransitionError{From: "rejected", To: "accepted"}, want: http.StatusConflict},
		{name: "wrapped transition", err: fmt.Errorf("accept: %w", &db.TransitionError{From: "rejected", To: "accepted"}), want: http.StatusConflict},
		{name: "rate limited", err: &ratelimit.ErrRateLimitExceeded{Action: "create_job", Limit: 10, Window: time.Hour}, want: http.StatusTooManyRequests},
		{name: "shutting down", err: pipeline.ErrShuttingDown, want: http.StatusServiceUnavailable},
		{name: "storage", err: &db.StorageError{Op: "create job", Err: errors.New("connection refused")}, want: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	v := validator.New()

	err := validationError(v.Struct(types.CreateJobRequest{Company: "Acme", Description: "Build"}))
	assert.Equal(t, "validation error: Title - required", err.Error())

	err = validationError(errors.New("not a validator error"))
	assert.Equal(t, "validation error: request - invalid request", err.Error())
}
