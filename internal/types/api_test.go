package types

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCreateJobRequest_Validation(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name    string
		req     CreateJobRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  CreateJobRequest{Title: "Backend Engineer", Company: "Acme", Description: "Build APIs", RequiredSkills: []string{"Go"}},
		},
		{
			name: "no skills is fine",
			req:  CreateJobRequest{Title: "Backend Engineer", Company: "Acme", Description: "Build APIs"},
		},
		{
			name:    "missing title",
			req:     CreateJobRequest{Company: "Acme", Description: "Build APIs"},
			wantErr: true,
		},
		{
			name:    "missing description",
			req:     CreateJobRequest{Title: "Backend Engineer", Company: "Acme"},
			wantErr: true,
		},
		{
			name:    "blank skill",
			req:     CreateJobRequest{Title: "Backend Engineer", Company: "Acme", Description: "Build APIs", RequiredSkills: []string{"Go", ""}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSendOutreachRequest_Validation(t *testing.T) {
	v := validator.New()

	assert.NoError(t, v.Struct(SendOutreachRequest{OutreachID: uuid.New(), Subject: "Hi", Body: "Hello"}))
	assert.Error(t, v.Struct(SendOutreachRequest{Subject: "Hi", Body: "Hello"}))
	assert.Error(t, v.Struct(SendOutreachRequest{OutreachID: uuid.New(), Body: "Hello"}))
}
