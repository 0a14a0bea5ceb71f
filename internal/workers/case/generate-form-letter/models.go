// internal/workers/case/generate-form-letter/models.go
package generateformletter

type Input struct {
	TemplateID string                 `json:"templateId"`
	CaseID     string                 `json:"caseId,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

type Output struct {
	LetterID    string `json:"letterId"`
	TemplateID  string `json:"templateId"`
	CaseID      string `json:"caseId,omitempty"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	GeneratedAt string `json:"generatedAt"`
}
