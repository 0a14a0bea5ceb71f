// internal/workers/asset-discovery/search-case-assets/models.go
package searchcaseassets

type Input struct {
	Institution string     `json:"institution,omitempty"`
	Type        string     `json:"type,omitempty"`
	CaseID      string     `json:"caseId,omitempty"`
	Query       string     `json:"q,omitempty"`
	Pagination  Pagination `json:"pagination"`
}

type Pagination struct {
	From int `json:"from"`
	Size int `json:"size"`
}

type Output struct {
	Data      []map[string]interface{} `json:"data"`
	TotalHits int64                    `json:"totalHits"`
	MaxScore  float64                  `json:"maxScore"`
	Took      int64                    `json:"took"` // milliseconds
}
