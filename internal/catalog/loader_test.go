package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluent-loop/feed-engine/internal/models"
)

func writeChallenge(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	writeChallenge(t, dir, "re-1.yaml", `
id: re-1
type: reverse-engineer
concept_area: prompt-craft
title: The Apology Email
difficulty: 1
payload:
  correct_index: 1
`)
	writeChallenge(t, dir, "dd-1.yml", `
id: dd-1
type: debug-detective
concept_area: coding-with-ai
title: The Off-By-One Refund
difficulty: 2
`)

	// Subdirectory one level deep is scanned too.
	sub := filepath.Join(dir, "extra")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeChallenge(t, sub, "tc-1.yaml", `
id: tc-1
type: taste-curator
concept_area: human-judgment
title: Pick the Stronger Summary
difficulty: 1
`)

	// Broken files are skipped, not fatal.
	writeChallenge(t, dir, "broken.yaml", "id: [not valid")
	writeChallenge(t, dir, "unknown-type.yaml", `
id: zz-1
type: mystery-box
concept_area: prompt-craft
title: Nope
`)

	loader := NewLoader()
	require.NoError(t, loader.LoadFromDir(dir))

	assert.Equal(t, 3, loader.Len())

	c, err := loader.Get("re-1")
	require.NoError(t, err)
	assert.Equal(t, models.TypeReverseEngineer, c.Type)
	assert.Equal(t, models.AreaPromptCraft, c.ConceptArea)
	assert.Equal(t, "The Apology Email", c.Title)
	assert.EqualValues(t, 1, c.Payload["correct_index"])

	_, err = loader.Get("tc-1")
	assert.NoError(t, err)

	_, err = loader.Get("zz-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFromFileValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"missing id", "type: prompt-forge\nconcept_area: prompt-craft\n"},
		{"bad type", "id: x-1\ntype: nonsense\nconcept_area: prompt-craft\n"},
		{"bad area", "id: x-1\ntype: prompt-forge\nconcept_area: nonsense\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeChallenge(t, dir, "c.yaml", tt.content)
			loader := NewLoader()
			assert.Error(t, loader.LoadFromFile(filepath.Join(dir, "c.yaml")))
		})
	}
}

func TestLoadFromDirReplacesOnRefresh(t *testing.T) {
	dir := t.TempDir()
	writeChallenge(t, dir, "pf-1.yaml", `
id: pf-1
type: prompt-forge
concept_area: prompt-craft
title: First Title
`)

	loader := NewLoader()
	require.NoError(t, loader.LoadFromDir(dir))

	c, err := loader.Get("pf-1")
	require.NoError(t, err)
	assert.Equal(t, "First Title", c.Title)

	writeChallenge(t, dir, "pf-1.yaml", `
id: pf-1
type: prompt-forge
concept_area: prompt-craft
title: Second Title
`)
	require.NoError(t, loader.LoadFromDir(dir))

	c, err = loader.Get("pf-1")
	require.NoError(t, err)
	assert.Equal(t, "Second Title", c.Title)
	assert.Equal(t, 1, loader.Len())
}

func TestListAndAdd(t *testing.T) {
	loader := NewLoader()
	assert.Empty(t, loader.List())

	loader.Add(&models.Challenge{ID: "aa-1", Type: models.TypeAgentArchitect, ConceptArea: models.AreaAgentDesign})
	loader.Add(&models.Challenge{ID: "cs-1", Type: models.TypeContextSurgeon, ConceptArea: models.AreaContextEngineering})

	assert.Len(t, loader.List(), 2)
	assert.Equal(t, 2, loader.Len())
}
