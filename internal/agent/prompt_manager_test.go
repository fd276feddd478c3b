package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestPromptManager_JoinsFilesInFixedOrder(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "synthesis.md", "SYNTHESIS")
	writePrompt(t, dir, "identity.md", "IDENTITY")
	writePrompt(t, dir, "catalog.md", "CATALOG")

	pm := NewPromptManager(dir)
	prompt, err := pm.GetSynthesisPrompt()
	require.NoError(t, err)

	iIdentity := strings.Index(prompt, "IDENTITY")
	iCatalog := strings.Index(prompt, "CATALOG")
	iSynthesis := strings.Index(prompt, "SYNTHESIS")
	assert.True(t, iIdentity < iCatalog && iCatalog < iSynthesis,
		"expected identity, catalog, synthesis order, got: %s", prompt)
}

func TestPromptManager_ExcludesDegradedFromSynthesis(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "identity.md", "IDENTITY")
	writePrompt(t, dir, "degraded.md", "DEGRADED")

	pm := NewPromptManager(dir)
	prompt, err := pm.GetSynthesisPrompt()
	require.NoError(t, err)
	assert.NotContains(t, prompt, "DEGRADED")

	degraded, err := pm.GetDegradedPrompt()
	require.NoError(t, err)
	assert.Equal(t, "DEGRADED", degraded)
}

func TestPromptManager_IgnoresNonMarkdownFiles(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "identity.md", "IDENTITY")
	writePrompt(t, dir, "notes.txt", "NOTES")

	pm := NewPromptManager(dir)
	prompt, err := pm.GetSynthesisPrompt()
	require.NoError(t, err)
	assert.NotContains(t, prompt, "NOTES")
}

func TestPromptManager_EmptyDirectoryIsAnError(t *testing.T) {
	pm := NewPromptManager(t.TempDir())
	_, err := pm.GetSynthesisPrompt()
	assert.Error(t, err)
}
