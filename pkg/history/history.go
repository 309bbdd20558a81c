// Package history persists the message logs of finished runs and renders reports.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/skarllot/flow-pair/pkg/config"
	"github.com/skarllot/flow-pair/pkg/llm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when a run name is unknown.
var ErrNotFound = errors.New("history not found")

// Store keeps one entry per run: the final message log of every thread, in thread order.
type Store interface {
	WriteHistory(ctx context.Context, name string, logs [][]llm.Message) error
	ReadHistory(ctx context.Context, name string) ([][]llm.Message, error)
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(cfg config.HistoryConfig) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

// Report formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteReport encodes v to w as indented JSON or YAML.
func WriteReport(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown report format %q (expected %s or %s)", format, FormatJSON, FormatYAML)
	}
}
