// internal/workers/case/validate-intake/models.go
package validateintake

import (
	commonvalidation "probate-workers/internal/common/validation"
	"probate-workers/internal/models"
)

type Input struct {
	IntakeData map[string]interface{} `json:"intakeData"`
}

type Output struct {
	IsValid          bool                               `json:"isValid"`
	ValidatedData    *models.Intake                     `json:"validatedData,omitempty"`
	ValidationErrors []commonvalidation.ValidationError `json:"validationErrors"`
}

const dateLayout = "2006-01-02"

// IntakeSchema is the structural contract of the intake form. Business rules
// that need the clock or reference data are checked separately.
const IntakeSchema = `{
	"type": "object",
	"required": ["decedent", "petitioner"],
	"properties": {
		"decedent": {
			"type": "object",
			"required": ["fullName", "dateOfDeath", "county"],
			"properties": {
				"fullName":    {"type": "string", "minLength": 2, "maxLength": 200},
				"dateOfDeath": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
				"county":      {"type": "string", "minLength": 1},
				"lastAddress": {"type": "string"}
			}
		},
		"petitioner": {
			"type": "object",
			"required": ["fullName", "email", "relationship"],
			"properties": {
				"fullName":     {"type": "string", "minLength": 2, "maxLength": 200},
				"email":        {"type": "string", "minLength": 3},
				"phone":        {"type": "string"},
				"relationship": {"type": "string", "minLength": 1}
			}
		},
		"estimatedEstateValue": {"type": "number", "minimum": 0},
		"hasWill": {"type": "boolean"}
	}
}`
