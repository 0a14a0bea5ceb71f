package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
	"type": "object",
	"required": ["decedent"],
	"properties": {
		"decedent": {
			"type": "object",
			"required": ["fullName", "dateOfDeath"],
			"properties": {
				"fullName": {"type": "string", "minLength": 1},
				"dateOfDeath": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"}
			}
		}
	}
}`

func TestSchema_Validate(t *testing.T) {
	s, err := Compile(personSchema)
	require.NoError(t, err)

	tests := []struct {
		name       string
		doc        interface{}
		valid      bool
		errorField string
	}{
		{
			name:  "valid",
			doc:   map[string]interface{}{"decedent": map[string]interface{}{"fullName": "Ada Lovelace", "dateOfDeath": "2024-02-01"}},
			valid: true,
		},
		{
			name:       "missing nested field",
			doc:        map[string]interface{}{"decedent": map[string]interface{}{"fullName": "Ada Lovelace"}},
			errorField: "decedent.dateOfDeath",
		},
		{
			name:       "missing root field",
			doc:        map[string]interface{}{},
			errorField: "decedent",
		},
		{
			name:       "pattern mismatch",
			doc:        map[string]interface{}{"decedent": map[string]interface{}{"fullName": "A", "dateOfDeath": "Feb 1"}},
			errorField: "decedent.dateOfDeath",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.Validate(tt.doc)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.errorField != "" {
				assert.True(t, result.HasErrors(tt.errorField), "errors: %v", result.GetErrorMessages())
				assert.NotEmpty(t, result.GetErrorsForField("decedent"))
			}
		})
	}
}

func TestSchema_ValidateJSON(t *testing.T) {
	s := MustCompile(personSchema)

	assert.True(t, s.ValidateJSON([]byte(`{"decedent":{"fullName":"x","dateOfDeath":"2023-01-01"}}`)).Valid)

	bad := s.ValidateJSON([]byte(`{not json`))
	assert.False(t, bad.Valid)
	assert.Equal(t, "INVALID_JSON", bad.Errors[0].Code)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)

	_, err = CompileMap(map[string]interface{}{"type": "object"})
	assert.NoError(t, err)
}

func TestValidationResult_Add(t *testing.T) {
	r := &ValidationResult{Valid: true}
	r.Add("decedent.county", "UNKNOWN_COUNTY", "not a California county")
	assert.False(t, r.Valid)
	assert.Equal(t, []string{"decedent.county: not a California county"}, r.GetErrorMessages())
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"+14155550123", "(415) 555-0123", "415.555.0123", "+44 20 7946 0958"}
	invalid := []string{"555-0123", "abc", "", "+0123456789"}

	for _, p := range valid {
		assert.True(t, ValidatePhone(p), p)
	}
	for _, p := range invalid {
		assert.False(t, ValidatePhone(p), p)
	}
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("executor@example.com"))
	assert.False(t, ValidateEmail("executor@"))
}
