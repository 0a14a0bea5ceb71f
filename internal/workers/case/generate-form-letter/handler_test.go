package generateformletter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	commonerrors "probate-workers/internal/common/errors"
	"probate-workers/internal/common/logger"
	"probate-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shippedRegistry = "../../../../configs/letter-templates.json"

func writeRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "letters.json")
	reg := &registry.LetterRegistry{
		Version: "1.0.0",
		Templates: []registry.LetterTemplate{
			{
				ID:      "balance",
				Name:    "Balance",
				Subject: "Estate of {{ decedent.fullName }}",
				Body:    "Account {{asset.accountNumber}} held {{asset.estimatedValue}}; joint: {{asset.joint}}; note: {{asset.note}}",
				DataSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"decedent"},
					"properties": map[string]interface{}{
						"decedent": map[string]interface{}{
							"type":     "object",
							"required": []interface{}{"fullName"},
						},
					},
				},
			},
			{ID: "plain", Subject: "Hello", Body: "No placeholders here."},
		},
	}
	require.NoError(t, registry.SaveRegistry(reg, path))
	return path
}

func newTestHandler(t *testing.T, path string) *Handler {
	cfg := LoadConfig()
	cfg.RegistryPath = path
	cfg.CacheTTL = time.Minute
	return NewHandler(cfg, logger.NewTestLogger(t))
}

// ==========================
// Rendering
// ==========================

func TestExecute_RendersNestedValues(t *testing.T) {
	h := newTestHandler(t, writeRegistry(t))

	out, err := h.Execute(context.Background(), &Input{
		TemplateID: "balance",
		CaseID:     "case-1",
		Data: map[string]interface{}{
			"decedent": map[string]interface{}{"fullName": "Harold Whitfield"},
			"asset": map[string]interface{}{
				"accountNumber":  "****4821",
				"estimatedValue": 42500.5,
				"joint":          false,
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Estate of Harold Whitfield", out.Subject)
	assert.Equal(t, "Account ****4821 held 42500.5; joint: false; note: ", out.Body)
	assert.Equal(t, "balance", out.TemplateID)
	assert.Equal(t, "case-1", out.CaseID)
	assert.NotEmpty(t, out.LetterID)
	_, err = time.Parse(time.RFC3339, out.GeneratedAt)
	assert.NoError(t, err)
}

// ==========================
// Errors
// ==========================

func TestExecute_TemplateNotFound(t *testing.T) {
	h := newTestHandler(t, writeRegistry(t))

	_, err := h.Execute(context.Background(), &Input{TemplateID: "missing"})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Equal(t, commonerrors.ErrCodeTemplateNotFound, toStandardError("missing", err).Code)
}

func TestExecute_RegistryUnreadable(t *testing.T) {
	h := newTestHandler(t, filepath.Join(t.TempDir(), "absent.json"))

	_, err := h.Execute(context.Background(), &Input{TemplateID: "balance"})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestExecute_DataFailsSchema(t *testing.T) {
	h := newTestHandler(t, writeRegistry(t))

	_, err := h.Execute(context.Background(), &Input{
		TemplateID: "balance",
		Data:       map[string]interface{}{"decedent": map[string]interface{}{}},
	})
	require.ErrorIs(t, err, ErrTemplateValidationFailed)
	assert.Contains(t, err.Error(), "decedent.fullName")

	stdErr := toStandardError("balance", err)
	assert.Equal(t, commonerrors.ErrCodeTemplateValidationFailed, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestExecute_MissingTemplateID(t *testing.T) {
	h := newTestHandler(t, writeRegistry(t))

	_, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeInvalidInput, toStandardError("", err).Code)
}

// ==========================
// Cache
// ==========================

func TestExecute_RegistryIsCached(t *testing.T) {
	path := writeRegistry(t)
	h := newTestHandler(t, path)

	_, err := h.Execute(context.Background(), &Input{TemplateID: "plain"})
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	out, err := h.Execute(context.Background(), &Input{TemplateID: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "No placeholders here.", out.Body)
}

// ==========================
// Shipped templates
// ==========================

func TestShippedTemplates(t *testing.T) {
	reg, err := registry.LoadRegistry(shippedRegistry)
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	h := newTestHandler(t, shippedRegistry)
	data := map[string]interface{}{
		"decedent": map[string]interface{}{
			"fullName":    "Harold James Whitfield",
			"dateOfDeath": "2024-02-14",
			"county":      "Los Angeles",
		},
		"petitioner": map[string]interface{}{
			"fullName":     "Margaret Whitfield",
			"email":        "margaret.whitfield@example.com",
			"relationship": "spouse",
		},
		"institution": map[string]interface{}{"name": "Wells Fargo"},
		"asset":       map[string]interface{}{"accountNumber": "****4821"},
	}

	for _, id := range []string{"dod-balance-request", "life-insurance-claim", "retirement-beneficiary-inquiry"} {
		t.Run(id, func(t *testing.T) {
			out, err := h.Execute(context.Background(), &Input{TemplateID: id, Data: data})
			require.NoError(t, err)
			assert.Contains(t, out.Subject+out.Body, "Harold James Whitfield")
			assert.Contains(t, out.Body, "Wells Fargo")
			assert.NotContains(t, out.Body, "{{")
		})
	}
}
