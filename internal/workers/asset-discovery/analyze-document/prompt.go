// internal/workers/asset-discovery/analyze-document/prompt.go
package analyzedocument

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"probate-workers/internal/assets"
	"probate-workers/internal/models"
)

const ManualReviewRecommendation = "Manual review required - automated analysis could not structure this document"

const systemPrompt = `You are a California probate paralegal reviewing documents from a decedent's estate.
Identify every asset the document reveals or implies: bank and credit union accounts, brokerage and investment accounts,
retirement plans and IRAs, real estate, business interests, life insurance policies, vehicles and anything else of value.
Interest and dividend income, property tax deductions and K-1 schedules are evidence of an asset even when no balance is shown.
Respond with a single JSON object and nothing else.`

const responseShape = `{
  "assets": [
    {
      "type": "Bank Account | Investment | Retirement | Real Estate | Business | Life Insurance | Vehicle | Other",
      "institution": "name of the bank, brokerage, insurer or other holder",
      "accountNumber": "last digits if shown, otherwise omit",
      "description": "what the asset is",
      "evidence": "the exact excerpt that shows the asset",
      "estimatedValue": "value if stated, otherwise null",
      "actionRequired": "what the executor should do next"
    }
  ],
  "summary": {
    "totalAssetsFound": 0,
    "assetTypes": [],
    "recommendations": [],
    "notes": ""
  }
}`

const truncationMarker = "\n[... document truncated ...]"

// buildPrompt renders the user prompt for one document.
func buildPrompt(in *Input, maxChars int) string {
	var parts []string

	parts = append(parts, "Analyze the following document for probate assets.")
	if in.DocumentType != "" {
		parts = append(parts, fmt.Sprintf("Document type: %s", in.DocumentType))
	}
	if in.DocumentName != "" {
		parts = append(parts, fmt.Sprintf("Document name: %s", in.DocumentName))
	}
	if year := in.YearString(); year != "" {
		parts = append(parts, fmt.Sprintf("Tax year: %s", year))
	}

	parts = append(parts, "\nReturn JSON with exactly this shape:")
	parts = append(parts, responseShape)
	parts = append(parts, "\nDocument text:")
	parts = append(parts, truncate(in.DocumentText, maxChars))

	return strings.Join(parts, "\n")
}

// truncate cuts text to at most max bytes on a rune boundary.
func truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + truncationMarker
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")

// extractJSON returns the first JSON object in a model reply: the contents of
// a fenced block when there is one, otherwise the first balanced {...} span.
func extractJSON(text string) (map[string]interface{}, bool) {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		if obj, ok := decodeObject(m[1]); ok {
			return obj, true
		}
	}

	for start := strings.IndexByte(text, '{'); start >= 0; {
		end := matchBrace(text, start)
		if end < 0 {
			return nil, false
		}
		if obj, ok := decodeObject(text[start : end+1]); ok {
			return obj, true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func decodeObject(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// matchBrace finds the brace closing the one at start, skipping string
// literals. It returns -1 when the object never closes.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseAnalysis coerces a decoded reply. ok is false when the object carries
// neither assets nor a summary.
func parseAnalysis(obj map[string]interface{}) (models.Analysis, bool) {
	rawAssets, hasAssets := obj["assets"].([]interface{})
	rawSummary, hasSummary := obj["summary"].(map[string]interface{})
	if !hasAssets && !hasSummary {
		return models.Analysis{}, false
	}

	records := assets.FromRawList(rawAssets)
	summary := models.AnalysisSummary{
		TotalAssetsFound: len(records),
		AssetTypes:       []string{},
		Recommendations:  []string{},
	}

	if hasSummary {
		if n, ok := rawSummary["totalAssetsFound"].(float64); ok && n >= 0 {
			summary.TotalAssetsFound = int(n)
		}
		summary.AssetTypes = stringList(rawSummary["assetTypes"])
		summary.Recommendations = stringList(rawSummary["recommendations"])
		if notes, ok := rawSummary["notes"].(string); ok {
			summary.Notes = strings.TrimSpace(notes)
		}
	}

	if len(summary.AssetTypes) == 0 {
		for _, t := range assets.Summarize(assets.Consolidate(typed(records))).Types {
			summary.AssetTypes = append(summary.AssetTypes, string(t))
		}
	}
	if len(summary.Recommendations) == 0 {
		summary.Recommendations = assets.Recommend(assets.Consolidate(typed(records)))
	}

	return models.Analysis{Assets: records, Summary: summary}, true
}

// typed drops records whose type the model left blank.
func typed(records []assets.AssetRecord) []assets.AssetRecord {
	out := make([]assets.AssetRecord, 0, len(records))
	for _, r := range records {
		if r.Type != "" {
			out = append(out, r)
		}
	}
	return out
}

func stringList(v interface{}) []string {
	out := []string{}
	items, _ := v.([]interface{})
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// manualReview is the graceful result for a reply that could not be
// structured.
func manualReview(raw string) *Output {
	return &Output{
		Success: true,
		Analysis: models.Analysis{
			Assets: []assets.AssetRecord{},
			Summary: models.AnalysisSummary{
				AssetTypes:      []string{},
				Recommendations: []string{ManualReviewRecommendation},
			},
		},
		RawResponse:  raw,
		ManualReview: true,
	}
}
