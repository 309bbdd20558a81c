package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/skarllot/flow-pair/pkg/llm"
)

// ErrNoChanges is returned when there is nothing to review.
var ErrNoChanges = errors.New("no changes found")

// Builder composes the seed messages of each flow from a project directory.
type Builder struct {
	Root         string
	MaxFileBytes int
	TreeDepth    int

	diff func(ctx context.Context, dir, base string) (string, error)
}

// NewBuilder creates a Builder for the project at root.
func NewBuilder(root string) *Builder {
	return &Builder{
		Root:         root,
		MaxFileBytes: 64 * 1024,
		TreeDepth:    3,
		diff:         GitDiff,
	}
}

// Review returns the seed of a review: the diff against base followed by the current
// content of the changed files.
func (b *Builder) Review(ctx context.Context, base string) ([]llm.Message, error) {
	diffText, err := b.diff(ctx, b.Root, base)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(diffText) == "" {
		return nil, ErrNoChanges
	}

	files, err := ChangedFiles(diffText)
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{
		llm.NewUserMessage("This is the change to review:\n" + fenceFor(diffText) + "diff\n" + ensureNewline(diffText) + fenceFor(diffText)),
	}

	dump, err := FileDump(b.Root, files, b.MaxFileBytes)
	if err != nil {
		return nil, err
	}
	if dump != "" {
		messages = append(messages, llm.NewUserMessage("Current content of the changed files:\n\n"+dump))
	}
	return messages, nil
}

// TestGen returns the seed of a test generation for target, a path relative to Root:
// the project layout, the target source and the existing tests next to it.
func (b *Builder) TestGen(target string) ([]llm.Message, error) {
	target = filepath.ToSlash(filepath.Clean(target))
	if _, err := os.Stat(filepath.Join(b.Root, filepath.FromSlash(target))); err != nil {
		return nil, fmt.Errorf("target %s: %w", target, err)
	}

	tree, err := DirectoryTree(b.Root, b.TreeDepth)
	if err != nil {
		return nil, err
	}
	source, err := FileDump(b.Root, []string{target}, b.MaxFileBytes)
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{
		llm.NewUserMessage("Project layout:\n" + tree),
		llm.NewUserMessage("Write tests for this file.\n\n" + source),
	}

	tests, err := b.siblingTests(target)
	if err != nil {
		return nil, err
	}
	if len(tests) > 0 {
		examples, err := FileDump(b.Root, tests, b.MaxFileBytes)
		if err != nil {
			return nil, err
		}
		messages = append(messages, llm.NewUserMessage("Existing tests in the same directory:\n\n"+examples))
	}
	return messages, nil
}

// siblingTests lists up to two test files in the directory of target.
func (b *Builder) siblingTests(target string) ([]string, error) {
	dir := path.Dir(target)
	entries, err := os.ReadDir(filepath.Join(b.Root, filepath.FromSlash(dir)))
	if err != nil {
		return nil, err
	}

	var tests []string
	for _, e := range entries {
		name := path.Join(dir, e.Name())
		if e.IsDir() || name == target || !strings.Contains(strings.ToLower(e.Name()), "test") {
			continue
		}
		tests = append(tests, name)
		if len(tests) == 2 {
			break
		}
	}
	return tests, nil
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
