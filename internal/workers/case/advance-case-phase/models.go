// internal/workers/case/advance-case-phase/models.go
package advancecasephase

import "probate-workers/internal/models"

type Input struct {
	CaseID      string `json:"caseId"`
	TargetPhase string `json:"targetPhase"`
	ChangedBy   string `json:"changedBy,omitempty"`
}

type Output struct {
	CaseID        string       `json:"caseId"`
	PreviousPhase models.Phase `json:"previousPhase"`
	Phase         models.Phase `json:"phase"`
	PhaseNumber   int          `json:"phaseNumber"`
	Changed       bool         `json:"changed"`
	ChangedAt     string       `json:"changedAt,omitempty"`
}
