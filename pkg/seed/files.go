package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var skippedDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
}

// SkipDir reports whether a directory with this base name is left out of trees and watches.
func SkipDir(name string) bool {
	return skippedDirs[name]
}

// FileDump renders each file under root as a fenced block headed by its path. Missing and
// binary files are skipped. Files longer than maxBytes are cut; zero means no limit.
func FileDump(root string, paths []string, maxBytes int) (string, error) {
	var sb strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", p, err)
		}
		if bytes.IndexByte(data, 0) >= 0 {
			continue
		}

		truncated := false
		if maxBytes > 0 && len(data) > maxBytes {
			data = data[:maxBytes]
			truncated = true
		}

		content := string(data)
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		fence := fenceFor(content)

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "File: %s\n%s%s\n%s%s\n", p, fence, strings.TrimPrefix(filepath.Ext(p), "."), content, fence)
		if truncated {
			fmt.Fprintf(&sb, "(cut after %d bytes)\n", maxBytes)
		}
	}
	return sb.String(), nil
}

// fenceFor returns a backtick fence longer than any backtick run in content.
func fenceFor(content string) string {
	longest, run := 0, 0
	for i := 0; i < len(content); i++ {
		if content[i] == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

// DirectoryTree renders the layout of root down to depth levels, one entry per line,
// indented by two spaces per level. Directories end with a slash.
func DirectoryTree(root string, depth int) (string, error) {
	var sb strings.Builder
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if d.IsDir() && SkipDir(d.Name()) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		level := strings.Count(filepath.ToSlash(rel), "/")
		if depth > 0 && level >= depth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		sb.WriteString(strings.Repeat("  ", level))
		sb.WriteString(d.Name())
		if d.IsDir() {
			sb.WriteString("/")
		}
		sb.WriteString("\n")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", root, err)
	}
	return sb.String(), nil
}
