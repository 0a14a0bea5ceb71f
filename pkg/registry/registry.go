// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrDuplicateID      = errors.New("duplicate template id")
)

func LoadRegistry(path string) (*LetterRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg LetterRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// SaveRegistry writes reg as indented JSON, creating the directory if needed.
func SaveRegistry(reg *LetterRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func (r *LetterRegistry) Find(id string) (*LetterTemplate, error) {
	for i := range r.Templates {
		if r.Templates[i].ID == id {
			return &r.Templates[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// Add appends t after checking it on its own and against the existing ids.
func (r *LetterRegistry) Add(t LetterTemplate) error {
	if _, err := r.Find(t.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	r.Templates = append(r.Templates, t)
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// Validate checks every template and that ids are unique.
func (r *LetterRegistry) Validate() error {
	if len(r.Templates) == 0 {
		return errors.New("registry contains no templates")
	}

	ids := make(map[string]bool, len(r.Templates))
	var problems []string
	for _, t := range r.Templates {
		if ids[t.ID] {
			problems = append(problems, fmt.Sprintf("%s: %s", ErrDuplicateID, t.ID))
		}
		ids[t.ID] = true
		if err := t.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (t *LetterTemplate) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("template missing required field: id")
	}
	if strings.TrimSpace(t.Subject) == "" {
		return fmt.Errorf("template %s missing required field: subject", t.ID)
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("template %s missing required field: body", t.ID)
	}
	if len(t.DataSchema) > 0 {
		if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.DataSchema)); err != nil {
			return fmt.Errorf("template %s: invalid dataSchema: %w", t.ID, err)
		}
	}
	return nil
}
