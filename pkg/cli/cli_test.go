package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skarllot/flow-pair/pkg/config"
	"github.com/skarllot/flow-pair/pkg/history"
	"github.com/skarllot/flow-pair/pkg/llm"
)

type testWriter struct{}

func (testWriter) Complete(_ context.Context, _ llm.ModelSelector, messages []llm.Message) (llm.Message, error) {
	last := messages[len(messages)-1].Content
	switch {
	case strings.HasPrefix(last, "Where"):
		return llm.NewAssistantMessage(`{"path": "calc/add_test.go"}`), nil
	case strings.HasPrefix(last, "Write"):
		return llm.NewAssistantMessage("```go\npackage calc\n```"), nil
	}
	return llm.NewAssistantMessage("Test Add."), nil
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "calc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calc", "add.go"), []byte("package calc\n"), 0o644))

	store, err := history.NewFileStore(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)

	return &env{
		dir:       dir,
		cfg:       &config.Config{},
		sys:       config.DefaultSystemConfig(),
		completer: testWriter{},
		store:     store,
	}
}

func TestGenerateTestsReport(t *testing.T) {
	e := newTestEnv(t)

	var out bytes.Buffer
	err := generateTests(context.Background(), e, "calc/add.go", testOptions{format: history.FormatJSON}, &out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"calc/add_test.go","code":"package calc\n"}`, out.String())
}

func TestGenerateTestsWrite(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, generateTests(ctx, e, filepath.Join(e.dir, "calc", "add.go"), testOptions{write: true}, &out))
	assert.Equal(t, "calc/add_test.go\n", out.String())

	data, err := os.ReadFile(filepath.Join(e.dir, "calc", "add_test.go"))
	require.NoError(t, err)
	assert.Equal(t, "package calc\n", string(data))

	err = generateTests(ctx, e, "calc/add.go", testOptions{write: true}, &out)
	assert.ErrorIs(t, err, ErrTestFileExists)

	assert.NoError(t, generateTests(ctx, e, "calc/add.go", testOptions{write: true, force: true}, &out))
}

func TestGenerateTestsAbsoluteTargetFromWorkingDir(t *testing.T) {
	e := newTestEnv(t)
	project := e.dir
	t.Chdir(project)
	e.dir = "."

	var out bytes.Buffer
	require.NoError(t, generateTests(context.Background(), e, filepath.Join(project, "calc", "add.go"), testOptions{write: true}, &out))
	assert.Equal(t, "calc/add_test.go\n", out.String())

	data, err := os.ReadFile(filepath.Join(project, "calc", "add_test.go"))
	require.NoError(t, err)
	assert.Equal(t, "package calc\n", string(data))
}

func TestGenerateTestsOutsideProject(t *testing.T) {
	e := newTestEnv(t)
	other := filepath.Join(t.TempDir(), "add.go")
	require.NoError(t, os.WriteFile(other, []byte("package calc\n"), 0o644))

	var out bytes.Buffer
	err := generateTests(context.Background(), e, other, testOptions{}, &out)
	assert.ErrorIs(t, err, ErrOutsideProject)

	err = generateTests(context.Background(), e, "../add.go", testOptions{}, &out)
	assert.ErrorIs(t, err, ErrOutsideProject)
	assert.Empty(t, out.String())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "flow-pair dev\n", out.String())
}

func TestHistoryShowCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"llm": [{"type": "ollama", "models": ["m"]}]}`), 0o644))

	store, err := history.NewFileStore(filepath.Join(dir, "history"))
	require.NoError(t, err)
	require.NoError(t, store.WriteHistory(context.Background(), "review-1", [][]llm.Message{{llm.NewUserMessage("hi")}}))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"history", "show", "review-1", "--config", cfgPath, "--format", "json", "--log-level", "error"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.JSONEq(t, `[[{"role":"user","content":"hi"}]]`, out.String())
}
