// internal/models/case.go
package models

import "time"

type Case struct {
	ID                   string    `json:"id"`
	DecedentName         string    `json:"decedentName"`
	DateOfDeath          string    `json:"dateOfDeath"`
	County               string    `json:"county"`
	PetitionerName       string    `json:"petitionerName"`
	PetitionerEmail      string    `json:"petitionerEmail"`
	PetitionerPhone      string    `json:"petitionerPhone,omitempty"`
	Relationship         string    `json:"relationship"`
	EstimatedEstateValue *float64  `json:"estimatedEstateValue,omitempty"`
	HasWill              bool      `json:"hasWill"`
	Phase                Phase     `json:"phase"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Intake is the client intake form submitted to open a case.
type Intake struct {
	Decedent             Decedent   `json:"decedent"`
	Petitioner           Petitioner `json:"petitioner"`
	EstimatedEstateValue *float64   `json:"estimatedEstateValue,omitempty"`
	HasWill              *bool      `json:"hasWill,omitempty"`
}

type Decedent struct {
	FullName    string `json:"fullName"`
	DateOfDeath string `json:"dateOfDeath"`
	County      string `json:"county"`
	LastAddress string `json:"lastAddress,omitempty"`
}

type Petitioner struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship"`
}

// PhaseChange is one row of a case's phase history.
type PhaseChange struct {
	CaseID    string    `json:"caseId"`
	FromPhase Phase     `json:"fromPhase,omitempty"`
	ToPhase   Phase     `json:"toPhase"`
	ChangedBy string    `json:"changedBy,omitempty"`
	ChangedAt time.Time `json:"changedAt"`
}
