package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/skarllot/flow-pair/pkg/llm"
	"golang.org/x/sync/errgroup"
)

var errNoVariants = errors.New("multi-step instruction has no variants")

// Workspace is the ordered set of threads that advance through a script together.
type Workspace struct {
	threads []Thread
}

// NewWorkspace creates a workspace holding threads in order.
func NewWorkspace(threads ...Thread) Workspace {
	return Workspace{threads: slices.Clone(threads)}
}

// Threads returns the threads in order.
func (w Workspace) Threads() []Thread {
	return slices.Clone(w.threads)
}

// Len returns the number of threads.
func (w Workspace) Len() int {
	return len(w.threads)
}

// Histories returns the message log of every thread, in thread order.
func (w Workspace) Histories() [][]llm.Message {
	logs := make([][]llm.Message, len(w.threads))
	for i, t := range w.threads {
		logs[i] = t.Messages()
	}
	return logs
}

// RunInstruction applies instr to every thread concurrently, or splits the single thread
// for a MultiStep. The receiver is left untouched; on error it should be discarded.
func (w Workspace) RunInstruction(ctx context.Context, c llm.Completer, instr Instruction) (Workspace, error) {
	switch in := instr.(type) {
	case Step:
		return w.fanOut(func(t Thread) (Thread, error) {
			return t.RunStep(ctx, c, in)
		})
	case JSONConvert:
		return w.fanOut(func(t Thread) (Thread, error) {
			return t.RunJSONConvert(ctx, c, in)
		})
	case CodeExtract:
		return w.fanOut(func(t Thread) (Thread, error) {
			return t.RunCodeExtract(ctx, c, in)
		})
	case MultiStep:
		return w.split(ctx, c, in)
	default:
		return w, fmt.Errorf("unsupported instruction %T", instr)
	}
}

// fanOut runs fn on every thread and joins the results by index.
// A failure does not cancel siblings; they finish and their work is dropped.
func (w Workspace) fanOut(fn func(Thread) (Thread, error)) (Workspace, error) {
	results := make([]Thread, len(w.threads))

	var g errgroup.Group
	for i, t := range w.threads {
		g.Go(func() error {
			next, err := fn(t)
			if err != nil {
				return err
			}
			results[i] = next
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return w, err
	}
	return Workspace{threads: results}, nil
}

// split replaces the single thread with one copy per variant of m.
func (w Workspace) split(ctx context.Context, c llm.Completer, m MultiStep) (Workspace, error) {
	if len(w.threads) != 1 {
		return w, fmt.Errorf("%w: workspace holds %d", ErrMultiStepNeedsSingleThread, len(w.threads))
	}
	if len(m.Variants) == 0 {
		return w, errNoVariants
	}

	seed := w.threads[0]
	results := make([]Thread, len(m.Variants))

	var g errgroup.Group
	for i := range m.Variants {
		g.Go(func() error {
			next, err := seed.RunMultiStep(ctx, c, m, i)
			if err != nil {
				return err
			}
			results[i] = next
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return w, err
	}
	return Workspace{threads: results}, nil
}
