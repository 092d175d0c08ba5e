package schemas

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemas_AreValidJSON(t *testing.T) {
	for _, name := range []string{Sourcing, Matching, Pitch} {
		t.Run(name, func(t *testing.T) {
			raw, err := Raw(name)
			require.NoError(t, err)

			var v map[string]any
			require.NoError(t, json.Unmarshal([]byte(raw), &v))
			assert.Equal(t, "object", v["type"])
		})
	}
}

func TestValidate_Sourcing(t *testing.T) {
	valid := `{"candidates": [{
		"name": "Grace Hopper",
		"current_role": "Principal Engineer",
		"current_company": "Navy Labs",
		"years_experience": 20,
		"skills": ["COBOL", "Go"],
		"email": "grace@example.com",
		"linkedin_url": null
	}]}`
	assert.NoError(t, Validate(Sourcing, valid))

	missing := `{"candidates": [{"name": "No Email", "current_role": "x", "current_company": "y", "years_experience": 1, "skills": []}]}`
	err := Validate(Sourcing, missing)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, Sourcing, ve.Schema)
	assert.Contains(t, ve.Error(), "email")
}

func TestValidate_MatchingWrongType(t *testing.T) {
	doc := `{"matches": [{"candidate_index": "zero", "score": 80, "key_highlights": [], "fit_reasoning": "", "rank_position": 1}]}`

	err := Validate(Matching, doc)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve.Errors)
	assert.Contains(t, ve.Errors[0].Field, "candidate_index")
}

func TestValidate_Pitch(t *testing.T) {
	assert.NoError(t, Validate(Pitch, `{"subject": "Hi", "body": "Let's talk"}`))
	assert.Error(t, Validate(Pitch, `{"subject": "", "body": "Let's talk"}`))
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(Pitch, `{"subject":`)
	require.Error(t, err)
	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope", `{}`)
	var le *SchemaLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "nope", le.Path)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type": "object", "required": ["id"], "properties": {"id": {"type": "integer"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"id": 1}`))

	err := ValidateJSONString(schema, `{}`)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "(root)", ve.Errors[0].Field)
}
