package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skarllot/flow-pair/pkg/monitor"
)

// StreamDebugger appends raw provider events to a per-run debug file.
type StreamDebugger struct {
	file    *os.File
	enabled bool
}

// NewStreamDebugger opens debug/chunks/<run-id>/<provider>/<timestamp>.log when enabled.
// Failures only disable debugging; they never fail the completion.
func NewStreamDebugger(ctx context.Context, provider string, enabled bool) *StreamDebugger {
	if !enabled {
		return &StreamDebugger{enabled: false}
	}

	debugDir := filepath.Join("debug", "chunks", provider)
	if runID := monitor.RunID(ctx); runID != "" {
		debugDir = filepath.Join("debug", "chunks", runID, provider)
	}

	if err := os.MkdirAll(debugDir, 0755); err != nil {
		slog.ErrorContext(ctx, "Failed to create debug directory", "dir", debugDir, "error", err)
		return &StreamDebugger{enabled: false}
	}

	filename := filepath.Join(debugDir, fmt.Sprintf("%s.log", time.Now().Format("20060102_150405.000000")))
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to open debug file", "file", filename, "error", err)
		return &StreamDebugger{enabled: false}
	}

	slog.DebugContext(ctx, "Debug mode ON", "provider", provider, "file", filename)
	return &StreamDebugger{file: f, enabled: true}
}

// WriteJSON appends v as one JSON line.
func (d *StreamDebugger) WriteJSON(v any) {
	if !d.enabled || d.file == nil || v == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to encode debug event", "error", err)
		return
	}
	d.WriteString(string(data))
}

// WriteString appends s followed by a newline.
func (d *StreamDebugger) WriteString(s string) {
	if !d.enabled || d.file == nil {
		return
	}
	if _, err := d.file.WriteString(s + "\n"); err != nil {
		slog.Warn("Failed to write to debug file", "error", err)
	}
}

// Close closes the debug file handle.
func (d *StreamDebugger) Close() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
}
