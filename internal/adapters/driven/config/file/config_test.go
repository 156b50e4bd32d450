package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "openai", cfg.Embedder.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, 6, cfg.Retrieval.K)
	assert.InDelta(t, 0.25, cfg.Retrieval.MinScore, 1e-9)
	assert.Equal(t, 2, cfg.Retrieval.MinHits)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, "tesseract", cfg.OCR.Binary)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 60*time.Second, cfg.AnswerTimeout())
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
[embedder]
provider = "ollama"
model = "nomic-embed-text"
base_url = "http://localhost:11434"

[retrieval]
k = 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embedder.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Model)
	assert.Equal(t, 10, cfg.Retrieval.K)
	// Untouched fields keep their defaults.
	assert.InDelta(t, 0.25, cfg.Retrieval.MinScore, 1e-9)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator.Model)
	assert.True(t, cfg.OCR.Enabled)
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [toml"), 0600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestConfigSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/sds"
	cfg.Generator.Provider = "gemini"
	cfg.Generator.Model = "gemini-2.0-flash"
	cfg.Answer.TimeoutSeconds = 30
	require.NoError(t, cfg.Save(dir))

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sds", loaded.DataDir)
	assert.Equal(t, "gemini", loaded.Generator.Provider)
	assert.Equal(t, "gemini-2.0-flash", loaded.Generator.Model)
	assert.Equal(t, 30*time.Second, loaded.AnswerTimeout())
}
