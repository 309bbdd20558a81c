// Package seed builds the opening messages of a run from the working tree.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// GitDiff returns the unified diff of the working tree in dir against base.
// An empty base compares against HEAD, so staged and unstaged changes are both included.
func GitDiff(ctx context.Context, dir, base string) (string, error) {
	if base == "" {
		base = "HEAD"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "diff", "--no-color", "--no-ext-diff", base, "--")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git diff %s: %w: %s", base, err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

// ChangedFiles lists the paths, relative to the repository root, of the files a diff
// creates or modifies. Deleted files are left out.
func ChangedFiles(diffText string) ([]string, error) {
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	var paths []string
	seen := map[string]bool{}
	for _, fd := range fileDiffs {
		if fd == nil {
			continue
		}
		name := strings.Trim(strings.TrimSpace(fd.NewName), "\"")
		if name == "" || name == "/dev/null" {
			continue
		}
		name = strings.TrimPrefix(name, "b/")
		if !seen[name] {
			seen[name] = true
			paths = append(paths, name)
		}
	}
	return paths, nil
}
