// internal/workers/asset-discovery/analyze-document/models.go
package analyzedocument

import (
	"fmt"
	"strconv"
	"strings"

	"probate-workers/internal/models"
)

// Input accepts the current request shape and the legacy tax return shape
// ({taxReturnText, year}).
type Input struct {
	DocumentText  string      `json:"documentText"`
	DocumentType  string      `json:"documentType,omitempty"`
	DocumentName  string      `json:"documentName,omitempty"`
	TaxReturnText string      `json:"taxReturnText,omitempty"`
	Year          interface{} `json:"year,omitempty"`
}

type Output struct {
	Success     bool            `json:"success"`
	Analysis    models.Analysis `json:"analysis"`
	RawResponse string          `json:"rawResponse,omitempty"`

	// ManualReview is set when the reply could not be structured.
	ManualReview bool `json:"-"`
}

// normalize folds the legacy fields into the current ones.
func (in *Input) normalize() {
	if strings.TrimSpace(in.DocumentText) == "" && strings.TrimSpace(in.TaxReturnText) != "" {
		in.DocumentText = in.TaxReturnText
		if in.DocumentType == "" {
			in.DocumentType = models.DocumentTypeTaxReturn
		}
	}
	in.TaxReturnText = ""
}

// YearString renders year whether it arrived as a string or a number.
func (in *Input) YearString() string {
	switch v := in.Year.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

// label names the document in logs and errors.
func (in *Input) label() string {
	switch {
	case in.DocumentName != "":
		return in.DocumentName
	case in.YearString() != "":
		return strings.TrimSpace(in.DocumentType + " " + in.YearString())
	case in.DocumentType != "":
		return in.DocumentType
	default:
		return "document"
	}
}
