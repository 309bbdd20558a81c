package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skarllot/flow-pair/pkg/chat"
	"github.com/skarllot/flow-pair/pkg/llm"
	"github.com/skarllot/flow-pair/pkg/monitor"
	"github.com/skarllot/flow-pair/pkg/utils"
)

// HistoryWriter persists the final message log of every thread of a run.
type HistoryWriter interface {
	WriteHistory(ctx context.Context, name string, logs [][]llm.Message) error
}

// Script is an ordered list of instructions plus what the seed thread needs.
type Script struct {
	// Name prefixes the persisted history, e.g. "review".
	Name string
	// System is the first message of the seed thread.
	System string
	// Model selects the completion model for every thread.
	Model        llm.ModelSelector
	Instructions []chat.Instruction
	Parser       chat.Parser
}

// Result is the final state of a successful run.
type Result struct {
	Name      string
	Workspace chat.Workspace
	Steps     int64
	Total     int
}

// Runner drives scripts against a completion provider.
type Runner struct {
	completer    llm.Completer
	history      HistoryWriter
	observer     func(done, total int64)
	stopKeywords func() string
	now          func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory persists every successful run to w.
func WithHistory(w HistoryWriter) Option {
	return func(r *Runner) { r.history = w }
}

// WithProgress calls observe after every thread operation.
func WithProgress(observe func(done, total int64)) Option {
	return func(r *Runner) { r.observer = observe }
}

// WithStopKeywords overrides the per-run stop keyword source.
func WithStopKeywords(next func() string) Option {
	return func(r *Runner) { r.stopKeywords = next }
}

// WithClock overrides the clock used to timestamp run names.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner.
func NewRunner(c llm.Completer, opts ...Option) *Runner {
	r := &Runner{
		completer:    c,
		stopKeywords: utils.GenerateStopKeyword,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run seeds one thread with the system message and seed, then applies the instructions in
// order. The first error aborts the remaining instructions.
func (r *Runner) Run(ctx context.Context, script Script, seed []llm.Message) (*Result, error) {
	started := r.now()
	name := fmt.Sprintf("%s-%s", script.Name, started.Format("20060102-150405"))
	if monitor.RunID(ctx) == "" {
		ctx = monitor.WithRunID(ctx, utils.ShortID())
	}

	total := TotalSteps(script.Instructions)
	progress := chat.NewProgress(total, r.observer)

	messages := make([]llm.Message, 0, len(seed)+1)
	messages = append(messages, llm.NewSystemMessage(script.System))
	messages = append(messages, seed...)

	ws := chat.NewWorkspace(chat.NewThread(chat.ThreadOptions{
		Model:       script.Model,
		StopKeyword: r.stopKeywords(),
		Parser:      script.Parser,
		Progress:    progress,
	}, messages...))

	slog.InfoContext(ctx, "Run started", "script", script.Name, "instructions", len(script.Instructions), "steps", total)

	for i, instr := range script.Instructions {
		next, err := ws.RunInstruction(ctx, r.completer, instr)
		if err != nil {
			slog.ErrorContext(ctx, "Run aborted", "script", script.Name, "instruction", i+1, "error", err)
			return nil, fmt.Errorf("instruction %d of %s: %w", i+1, script.Name, err)
		}
		ws = next
		slog.DebugContext(ctx, "Instruction done", "instruction", i+1, "threads", ws.Len(), "progress", progress.Done())
	}

	if r.history != nil {
		if err := r.history.WriteHistory(ctx, name, ws.Histories()); err != nil {
			slog.ErrorContext(ctx, "Failed to persist history", "name", name, "error", err)
		}
	}

	slog.InfoContext(ctx, "Run finished", "script", script.Name, "threads", ws.Len(), "duration", r.now().Sub(started).String())

	return &Result{
		Name:      name,
		Workspace: ws,
		Steps:     progress.Done(),
		Total:     total,
	}, nil
}
