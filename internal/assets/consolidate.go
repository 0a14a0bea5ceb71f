package assets

import "strings"

// keySeparator joins identity key components. Extracted free text does not
// carry ASCII control characters, so components cannot bleed into each other.
const keySeparator = "\x1f"

// Key returns the identity of the real-world asset a record describes. Missing
// institution or account number count as the empty string, so two findings of
// the same type with no institution collapse into one group.
func Key(r AssetRecord) string {
	return strings.ToLower(string(r.Type.Canonical())) + keySeparator +
		strings.ToLower(strings.TrimSpace(r.Institution)) + keySeparator +
		strings.TrimSpace(r.AccountNumber)
}

// Consolidate folds records into one ConsolidatedAsset per identity key, in
// the order each key is first seen. The first record for a key supplies every
// field; later records only contribute their source identifier and, while the
// group has none, an estimated value.
func Consolidate(records []AssetRecord) []ConsolidatedAsset {
	if len(records) == 0 {
		return []ConsolidatedAsset{}
	}

	index := make(map[string]int, len(records))
	out := make([]ConsolidatedAsset, 0, len(records))

	for _, rec := range records {
		key := Key(rec)
		src := rec.SourceID()

		pos, seen := index[key]
		if !seen {
			group := ConsolidatedAsset{
				AssetRecord:     rec,
				SourceDocuments: []string{},
			}
			group.Type = rec.Type.Canonical()
			if rec.EstimatedValue != nil {
				v := *rec.EstimatedValue
				group.EstimatedValue = &v
			}
			if src != "" {
				group.SourceDocuments = append(group.SourceDocuments, src)
			}
			index[key] = len(out)
			out = append(out, group)
			continue
		}

		group := &out[pos]
		if src != "" && !contains(group.SourceDocuments, src) {
			group.SourceDocuments = append(group.SourceDocuments, src)
		}
		if group.EstimatedValue == nil && rec.EstimatedValue != nil {
			v := *rec.EstimatedValue
			group.EstimatedValue = &v
		}
	}

	return out
}

// Flatten is the inverse shape of Consolidate: one record per source
// identifier of every group, in group order.
func Flatten(groups []ConsolidatedAsset) []AssetRecord {
	var out []AssetRecord
	for _, g := range groups {
		out = append(out, g.Records()...)
	}
	return out
}

// Summary counts consolidated assets per type.
type Summary struct {
	TotalAssets int               `json:"totalAssets"`
	ByType      map[AssetType]int `json:"byType"`
	Types       []AssetType       `json:"types"`
}

// Summarize counts the groups per canonical type. Types are listed in
// AllTypes order.
func Summarize(groups []ConsolidatedAsset) Summary {
	s := Summary{
		TotalAssets: len(groups),
		ByType:      make(map[AssetType]int),
		Types:       []AssetType{},
	}
	for _, g := range groups {
		s.ByType[g.Type.Canonical()]++
	}
	for _, t := range AllTypes {
		if s.ByType[t] > 0 {
			s.Types = append(s.Types, t)
		}
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
