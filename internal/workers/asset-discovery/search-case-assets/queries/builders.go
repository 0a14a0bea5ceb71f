package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrMissingIndex = errors.New("index name is required")
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

// AssetQuery is a cross-case search over indexed consolidated assets.
type AssetQuery struct {
	Index       string
	Institution string
	Type        string
	CaseID      string
	Text        string
	From        int
	Size        int
}

// BuildQuery builds the search request for q.
func BuildQuery(q AssetQuery) (*esapi.SearchRequest, error) {
	if q.Index == "" {
		return nil, ErrMissingIndex
	}

	from, size := page(q.From, q.Size)
	body, err := json.Marshal(buildAssetSearchQuery(q))
	if err != nil {
		return nil, err
	}

	return &esapi.SearchRequest{
		Index: []string{q.Index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}, nil
}

func page(from, size int) (int, int) {
	if from < 0 {
		from = 0
	}
	switch {
	case size < 1:
		size = DefaultSize
	case size > MaxSize:
		size = MaxSize
	}
	return from, size
}

func buildAssetSearchQuery(q AssetQuery) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if text := strings.TrimSpace(q.Text); text != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"institution^3", "description^2", "evidence"},
				"type":   "best_fields",
			},
		})
	}

	if institution := strings.TrimSpace(q.Institution); institution != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"match": map[string]interface{}{
				"institution": map[string]interface{}{"query": institution, "operator": "and"},
			},
		})
	}

	if q.Type != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"type": q.Type},
		})
	}
	if q.CaseID != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"caseId": q.CaseID},
		})
	}

	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery := map[string]interface{}{"must": mustClauses}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"caseId": "asc"},
			map[string]interface{}{"position": "asc"},
		},
	}
}
