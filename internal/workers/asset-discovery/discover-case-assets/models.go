// internal/workers/asset-discovery/discover-case-assets/models.go
package discovercaseassets

import "probate-workers/internal/models"

type Input struct {
	CaseID      string   `json:"caseId"`
	DocumentIDs []string `json:"documentIds,omitempty"`
}

type Output = models.DiscoveryResult

// docResult is the outcome of analyzing the document at the same index.
type docResult struct {
	analysis     models.Analysis
	manualReview bool
	err          error
}

// IndexMapping is the Elasticsearch mapping of the case asset index.
const IndexMapping = `{
  "mappings": {
    "properties": {
      "caseId":          {"type": "keyword"},
      "runId":           {"type": "keyword"},
      "position":        {"type": "integer"},
      "type":            {"type": "keyword"},
      "institution":     {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "accountNumber":   {"type": "keyword"},
      "description":     {"type": "text"},
      "evidence":        {"type": "text"},
      "estimatedValue":  {"type": "keyword"},
      "actionRequired":  {"type": "text"},
      "sourceDocuments": {"type": "keyword"},
      "indexedAt":       {"type": "date"}
    }
  }
}`
