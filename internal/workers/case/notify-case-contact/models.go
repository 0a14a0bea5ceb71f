// internal/workers/case/notify-case-contact/models.go
package notifycasecontact

type Input struct {
	CaseID           string                 `json:"caseId"`
	NotificationType string                 `json:"notificationType"`
	Priority         string                 `json:"priority,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	SentAt         string   `json:"sentAt"`
	Channels       []string `json:"channels,omitempty"`
	Error          string   `json:"error,omitempty"`
}

const (
	TypeAssetDiscoveryComplete = "asset_discovery_complete"
	TypePhaseAdvanced          = "phase_advanced"
	TypeLetterReady            = "letter_ready"
)

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const PriorityHigh = "high"

type notificationTemplate struct {
	Subject string
	Body    string
}

// templates are rendered with registry.Render against the case contact
// fields merged with the job metadata.
var templates = map[string]notificationTemplate{
	TypeAssetDiscoveryComplete: {
		Subject: "Asset discovery complete for the estate of {{decedentName}}",
		Body: "Hello {{petitionerName}},\n\nWe finished reviewing the documents for the estate of {{decedentName}}. " +
			"{{totalAssets}} assets were identified. {{statusMessage}}.\n\nCase reference: {{caseId}}",
	},
	TypePhaseAdvanced: {
		Subject: "Your probate case has moved to {{phase}}",
		Body: "Hello {{petitionerName}},\n\nThe case for the estate of {{decedentName}} is now in the {{phase}} phase " +
			"(step {{phaseNumber}} of 11).\n\nCase reference: {{caseId}}",
	},
	TypeLetterReady: {
		Subject: "A letter is ready for your review",
		Body: "Hello {{petitionerName}},\n\nA letter \"{{letterSubject}}\" has been prepared for the estate of {{decedentName}} " +
			"and is ready for your signature.\n\nCase reference: {{caseId}}",
	},
}
