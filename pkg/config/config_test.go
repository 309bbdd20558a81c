package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{"llm":[{"type":"ollama","models":["qwen3"]}]}`)
	writeFile(t, filepath.Join(dir, "system.json"), `{"max_retries":5,"debug_chunks":true}`)

	cfg, sys, err := Load(path)
	require.NoError(t, err)

	assert.JSONEq(t, `[{"type":"ollama","models":["qwen3"]}]`, string(cfg.LLM))
	assert.Equal(t, "file", cfg.History.Driver)
	assert.Equal(t, filepath.Join(dir, "history"), cfg.History.Path)

	assert.Equal(t, 5, sys.MaxRetries)
	assert.True(t, sys.DebugChunks)
	// untouched fields keep defaults
	assert.Equal(t, 500, sys.RetryDelayMs)
	assert.Equal(t, "info", sys.LogLevel)
}

func TestLoadSQLiteDefaultPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{"llm":[{"type":"openai"}],"history":{"driver":"sqlite"}}`)

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.History.Path)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "not found")

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `{"llm":`)
	_, _, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse")

	empty := filepath.Join(dir, "empty.json")
	writeFile(t, empty, `{}`)
	_, _, err = Load(empty)
	assert.ErrorContains(t, err, "'llm'")

	driver := filepath.Join(dir, "driver.json")
	writeFile(t, driver, `{"llm":[{}],"history":{"driver":"redis"}}`)
	_, _, err = Load(driver)
	assert.ErrorContains(t, err, "unknown history driver")
}

func TestLoadSystemConfigFallsBackOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.json")
	writeFile(t, path, `{"max_retries": "three"`)

	assert.Equal(t, DefaultSystemConfig(), LoadSystemConfig(path))
}
