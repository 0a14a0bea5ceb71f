// pkg/registry/schema.go
package registry

// LetterRegistry is the on-disk catalog of form letters an executor sends to
// institutions holding estate assets.
type LetterRegistry struct {
	Version     string           `json:"version"`
	LastUpdated string           `json:"lastUpdated"`
	Templates   []LetterTemplate `json:"templates"`
}

type LetterTemplate struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	AssetTypes  []string               `json:"assetTypes,omitempty"`
	Subject     string                 `json:"subject"`
	Body        string                 `json:"body"`
	DataSchema  map[string]interface{} `json:"dataSchema,omitempty"`
	Version     string                 `json:"version,omitempty"`
}
