package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplate(id string) LetterTemplate {
	return LetterTemplate{
		ID:      id,
		Name:    "Balance request",
		Subject: "Date of death balance for {{decedent.fullName}}",
		Body:    "Please provide the balance of account {{asset.accountNumber}}.",
		DataSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"decedent"},
		},
	}
}

func TestRegistry_SaveLoadFind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "letters.json")
	reg := &LetterRegistry{Version: "1.0.0"}
	require.NoError(t, reg.Add(sampleTemplate("dod-balance")))
	require.NoError(t, SaveRegistry(reg, path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.NotEmpty(t, loaded.LastUpdated)

	tpl, err := loaded.Find("dod-balance")
	require.NoError(t, err)
	assert.Equal(t, "Balance request", tpl.Name)

	_, err = loaded.Find("missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRegistry_AddRejectsDuplicates(t *testing.T) {
	reg := &LetterRegistry{}
	require.NoError(t, reg.Add(sampleTemplate("a")))
	assert.ErrorIs(t, reg.Add(sampleTemplate("a")), ErrDuplicateID)
}

func TestRegistry_Validate(t *testing.T) {
	assert.Error(t, (&LetterRegistry{}).Validate())

	noBody := sampleTemplate("no-body")
	noBody.Body = " "
	badSchema := sampleTemplate("bad-schema")
	badSchema.DataSchema = map[string]interface{}{"type": 12}

	reg := &LetterRegistry{Templates: []LetterTemplate{
		sampleTemplate("ok"), sampleTemplate("ok"), noBody, badSchema,
	}}
	err := reg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate template id: ok")
	assert.Contains(t, err.Error(), "no-body missing required field: body")
	assert.Contains(t, err.Error(), "bad-schema: invalid dataSchema")
}

func TestLoadRegistry_Missing(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
