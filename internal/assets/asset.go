// Package assets consolidates per-document asset findings into a deduplicated
// list and derives executor recommendations from the asset types present.
//
// Everything in this package is pure: plain data in, plain data out, no I/O.
package assets

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AssetType is the closed set of asset categories a finding can carry.
type AssetType string

const (
	TypeBankAccount   AssetType = "Bank Account"
	TypeInvestment    AssetType = "Investment"
	TypeRetirement    AssetType = "Retirement"
	TypeRealEstate    AssetType = "Real Estate"
	TypeBusiness      AssetType = "Business"
	TypeLifeInsurance AssetType = "Life Insurance"
	TypeVehicle       AssetType = "Vehicle"
	TypeOther         AssetType = "Other"
)

// AllTypes lists every AssetType in display order.
var AllTypes = []AssetType{
	TypeBankAccount,
	TypeInvestment,
	TypeRetirement,
	TypeRealEstate,
	TypeBusiness,
	TypeLifeInsurance,
	TypeVehicle,
	TypeOther,
}

// typeAliases maps a squashed, lower-cased spelling to its AssetType.
var typeAliases = map[string]AssetType{
	"bankaccount":       TypeBankAccount,
	"bank":              TypeBankAccount,
	"checking":          TypeBankAccount,
	"checkingaccount":   TypeBankAccount,
	"savings":           TypeBankAccount,
	"savingsaccount":    TypeBankAccount,
	"creditunion":       TypeBankAccount,
	"cd":                TypeBankAccount,
	"investment":        TypeInvestment,
	"investments":       TypeInvestment,
	"brokerage":         TypeInvestment,
	"brokerageaccount":  TypeInvestment,
	"stock":             TypeInvestment,
	"stocks":            TypeInvestment,
	"bond":              TypeInvestment,
	"bonds":             TypeInvestment,
	"mutualfund":        TypeInvestment,
	"retirement":        TypeRetirement,
	"retirementaccount": TypeRetirement,
	"ira":               TypeRetirement,
	"rothira":           TypeRetirement,
	"401k":              TypeRetirement,
	"403b":              TypeRetirement,
	"pension":           TypeRetirement,
	"annuity":           TypeRetirement,
	"realestate":        TypeRealEstate,
	"realproperty":      TypeRealEstate,
	"property":          TypeRealEstate,
	"house":             TypeRealEstate,
	"land":              TypeRealEstate,
	"business":          TypeBusiness,
	"businessinterest":  TypeBusiness,
	"llc":               TypeBusiness,
	"partnership":       TypeBusiness,
	"lifeinsurance":     TypeLifeInsurance,
	"insurance":         TypeLifeInsurance,
	"insurancepolicy":   TypeLifeInsurance,
	"vehicle":           TypeVehicle,
	"auto":              TypeVehicle,
	"automobile":        TypeVehicle,
	"car":               TypeVehicle,
	"boat":              TypeVehicle,
	"other":             TypeOther,
}

// ParseAssetType coerces a free-form type string into the closed set.
// Unknown or empty values fall back to TypeOther.
func ParseAssetType(s string) AssetType {
	squashed := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '(', ')', '/', '.', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	if t, ok := typeAliases[squashed]; ok {
		return t
	}
	return TypeOther
}

// Canonical maps t onto the closed set. A blank type stays blank.
func (t AssetType) Canonical() AssetType {
	if strings.TrimSpace(string(t)) == "" {
		return ""
	}
	return ParseAssetType(string(t))
}

// Valid reports whether t is a member of the closed set.
func (t AssetType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// AssetRecord is one extraction hit. Everything except SourceDocument and
// SourceYear comes from an untrusted model response.
type AssetRecord struct {
	Type           AssetType `json:"type"`
	Institution    string    `json:"institution"`
	Description    string    `json:"description"`
	Evidence       string    `json:"evidence"`
	EstimatedValue *string   `json:"estimatedValue"`
	ActionRequired string    `json:"actionRequired"`
	AccountNumber  string    `json:"accountNumber,omitempty"`
	SourceDocument string    `json:"sourceDocument,omitempty"`
	SourceYear     string    `json:"sourceYear,omitempty"`
}

// SourceID identifies where the record came from: the document when known,
// otherwise the tax year.
func (r AssetRecord) SourceID() string {
	if r.SourceDocument != "" {
		return r.SourceDocument
	}
	return r.SourceYear
}

// HasValue reports whether the record carries a non-null estimated value.
func (r AssetRecord) HasValue() bool {
	return r.EstimatedValue != nil
}

// ConsolidatedAsset is the group produced for one identity key. The embedded
// record is a copy of the first record that established the group.
type ConsolidatedAsset struct {
	AssetRecord
	SourceDocuments []string `json:"sourceDocuments"`
}

// Records flattens the group back into input-shaped records, one per source
// identifier. Every record carries the group's estimated value. A group with
// no source identifier yields a single sourceless record.
func (c ConsolidatedAsset) Records() []AssetRecord {
	if len(c.SourceDocuments) == 0 {
		r := c.AssetRecord
		r.SourceDocument, r.SourceYear = "", ""
		return []AssetRecord{r}
	}
	out := make([]AssetRecord, 0, len(c.SourceDocuments))
	for _, src := range c.SourceDocuments {
		r := c.AssetRecord
		r.SourceDocument = src
		r.SourceYear = ""
		out = append(out, r)
	}
	return out
}

// StringValue returns a pointer to s, or nil when s is blank.
func StringValue(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// FromRaw coerces one untrusted JSON object into an AssetRecord. Missing or
// mistyped fields become zero values; unknown fields are ignored. A blank type
// stays blank so callers can drop the record; any other unknown type becomes
// TypeOther.
func FromRaw(raw map[string]interface{}) AssetRecord {
	rec := AssetRecord{
		Institution:    stringField(raw, "institution"),
		Description:    stringField(raw, "description"),
		Evidence:       stringField(raw, "evidence"),
		ActionRequired: stringField(raw, "actionRequired"),
		AccountNumber:  stringField(raw, "accountNumber"),
		SourceDocument: stringField(raw, "sourceDocument"),
		SourceYear:     stringField(raw, "sourceYear"),
	}
	if t := stringField(raw, "type"); t != "" {
		rec.Type = ParseAssetType(t)
	}
	rec.EstimatedValue = valueField(raw["estimatedValue"])
	return rec
}

// FromRawList coerces a decoded JSON array. Entries that are not objects are
// dropped.
func FromRawList(raw []interface{}) []AssetRecord {
	out := make([]AssetRecord, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, FromRaw(obj))
	}
	return out
}

func stringField(raw map[string]interface{}, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func valueField(v interface{}) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return StringValue(val)
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s
	case int:
		s := strconv.Itoa(val)
		return &s
	case int64:
		s := strconv.FormatInt(val, 10)
		return &s
	case json.Number:
		return StringValue(val.String())
	case bool, map[string]interface{}, []interface{}:
		return nil
	default:
		return StringValue(fmt.Sprint(val))
	}
}
