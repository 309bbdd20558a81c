package monitor

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ProgressPrinter prints one line per completed step of a run.
type ProgressPrinter struct {
	mu     sync.Mutex
	writer io.Writer
	label  string
}

// NewProgressPrinter creates a printer writing to stderr.
func NewProgressPrinter(label string) *ProgressPrinter {
	return &ProgressPrinter{writer: os.Stderr, label: label}
}

// NewProgressPrinterTo creates a printer writing to w.
func NewProgressPrinterTo(w io.Writer, label string) *ProgressPrinter {
	return &ProgressPrinter{writer: w, label: label}
}

// OnAdvance prints the progress line. It can be called from several goroutines.
func (p *ProgressPrinter) OnAdvance(done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\033[90m[%d/%d]\033[0m %s\n", done, total, p.label)
}
