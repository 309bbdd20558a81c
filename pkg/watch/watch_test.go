package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchBatchesWrites(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, 50*time.Millisecond, root)
	require.NoError(t, err)

	a := filepath.Join(root, "pkg", "a.go")
	b := filepath.Join(root, "b.go")
	require.NoError(t, os.WriteFile(a, []byte("package pkg"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("package root"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "index"), []byte("x"), 0o644))

	absRoot, err := filepath.Abs(root)
	require.NoError(t, err)

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for !seen[filepath.Join(absRoot, "pkg", "a.go")] || !seen[filepath.Join(absRoot, "b.go")] {
		select {
		case batch := <-changes:
			for _, name := range batch {
				seen[name] = true
			}
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	assert.False(t, seen[filepath.Join(absRoot, ".git", "index")])

	cancel()
	for range changes {
	}
}

func TestWatchMissingPath(t *testing.T) {
	_, err := Watch(context.Background(), DefaultDebounce, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
