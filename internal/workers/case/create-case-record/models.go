// internal/workers/case/create-case-record/models.go
package createcaserecord

import "probate-workers/internal/models"

type Input struct {
	ValidatedData *models.Intake `json:"validatedData"`
	RequestedBy   string         `json:"requestedBy,omitempty"`
}

type Output struct {
	CaseID    string       `json:"caseId"`
	Phase     models.Phase `json:"phase"`
	CreatedAt string       `json:"createdAt"` // ISO 8601
}
