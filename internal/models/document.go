// internal/models/document.go
package models

import (
	"time"

	"probate-workers/internal/assets"
)

// Document types the analysis prompt distinguishes.
const (
	DocumentTypeTaxReturn     = "Tax Return"
	DocumentTypeBankStatement = "Bank Statement"
	DocumentTypeOther         = "Other"
)

// Document is an uploaded case document with its extracted text.
type Document struct {
	ID           string    `json:"id"`
	CaseID       string    `json:"caseId"`
	Name         string    `json:"name"`
	DocumentType string    `json:"documentType"`
	TaxYear      string    `json:"taxYear,omitempty"`
	Text         string    `json:"-"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// SourceID is the identifier attached to assets found in the document.
func (d Document) SourceID() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// AnalysisSummary is the per-document summary returned by the model.
type AnalysisSummary struct {
	TotalAssetsFound int      `json:"totalAssetsFound"`
	AssetTypes       []string `json:"assetTypes"`
	Recommendations  []string `json:"recommendations"`
	Notes            string   `json:"notes,omitempty"`
}

// Analysis is the result of analyzing one document.
type Analysis struct {
	Assets  []assets.AssetRecord `json:"assets"`
	Summary AnalysisSummary      `json:"summary"`
}

// DocumentFailure records a document excluded from a discovery run.
type DocumentFailure struct {
	DocumentID   string `json:"documentId"`
	DocumentName string `json:"documentName"`
	Reason       string `json:"reason"`
}

// DiscoveryResult is the consolidated asset picture for a case.
type DiscoveryResult struct {
	RunID             string                     `json:"runId"`
	CaseID            string                     `json:"caseId"`
	Assets            []assets.ConsolidatedAsset `json:"assets"`
	Recommendations   []string                   `json:"recommendations"`
	Summary           assets.Summary             `json:"summary"`
	DocumentsTotal    int                        `json:"documentsTotal"`
	DocumentsAnalyzed int                        `json:"documentsAnalyzed"`
	FailedDocuments   []DocumentFailure          `json:"failedDocuments"`
	StatusMessage     string                     `json:"statusMessage"`
	CompletedAt       time.Time                  `json:"completedAt"`
}

// IndexedAsset is the search document stored for each consolidated asset.
type IndexedAsset struct {
	CaseID          string   `json:"caseId"`
	RunID           string   `json:"runId"`
	Position        int      `json:"position"`
	Type            string   `json:"type"`
	Institution     string   `json:"institution"`
	AccountNumber   string   `json:"accountNumber,omitempty"`
	Description     string   `json:"description"`
	Evidence        string   `json:"evidence"`
	EstimatedValue  *string  `json:"estimatedValue"`
	ActionRequired  string   `json:"actionRequired"`
	SourceDocuments []string `json:"sourceDocuments"`
	IndexedAt       string   `json:"indexedAt"`
}
