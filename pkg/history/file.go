package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/skarllot/flow-pair/pkg/llm"
)

var filenameSafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// FileStore writes each run to <dir>/history_<name>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file a run name is stored in.
func (s *FileStore) Path(name string) string {
	safe := filenameSafeRegex.ReplaceAllString(name, "_")
	return filepath.Join(s.dir, fmt.Sprintf("history_%s.json", safe))
}

// WriteHistory implements Store.
func (s *FileStore) WriteHistory(_ context.Context, name string, logs [][]llm.Message) error {
	data, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := os.WriteFile(s.Path(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// ReadHistory implements Store.
func (s *FileStore) ReadHistory(_ context.Context, name string) ([][]llm.Message, error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var logs [][]llm.Message
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, fmt.Errorf("failed to parse history %s: %w", name, err)
	}
	return logs, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}
