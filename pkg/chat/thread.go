package chat

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/skarllot/flow-pair/pkg/llm"
)

// MaxParseAttempts bounds the completions spent on one JSONConvert or CodeExtract.
const MaxParseAttempts = 3

var errNoParser = errors.New("thread has no parser")

// ThreadOptions configures a new Thread.
type ThreadOptions struct {
	Model       llm.ModelSelector
	StopKeyword string
	Parser      Parser
	Progress    *Progress
}

// Thread is one conversation. It is an immutable snapshot: every Run method returns a
// new Thread and leaves the receiver untouched, so copies can be run concurrently.
type Thread struct {
	progress    *Progress
	model       llm.ModelSelector
	stopKeyword string
	messages    []llm.Message
	outputs     map[string]any
	parser      Parser
}

// NewThread creates a thread seeded with messages.
func NewThread(opts ThreadOptions, seed ...llm.Message) Thread {
	model := opts.Model
	if model == "" {
		model = llm.ModelDefault
	}
	return Thread{
		progress:    opts.Progress,
		model:       model,
		stopKeyword: opts.StopKeyword,
		messages:    slices.Clone(seed),
		outputs:     map[string]any{},
		parser:      opts.Parser,
	}
}

// Messages returns a copy of the message log.
func (t Thread) Messages() []llm.Message {
	return slices.Clone(t.messages)
}

// Len returns the number of messages in the log.
func (t Thread) Len() int {
	return len(t.messages)
}

// Output returns the value stored under key.
func (t Thread) Output(key string) (any, bool) {
	v, ok := t.outputs[key]
	return v, ok
}

// OutputKeys returns the stored output keys in sorted order.
func (t Thread) OutputKeys() []string {
	return slices.Sorted(maps.Keys(t.outputs))
}

// StopKeyword returns the token that marks the thread as interrupted.
func (t Thread) StopKeyword() string {
	return t.stopKeyword
}

// Interrupted reports whether the last message is an assistant reply holding the stop keyword.
// An interrupted thread ignores every further instruction.
func (t Thread) Interrupted() bool {
	if len(t.messages) == 0 {
		return false
	}
	last := t.messages[len(t.messages)-1]
	return last.Role == llm.RoleAssistant && last.Contains(t.stopKeyword)
}

// RunStep sends the rendered step and appends the reply.
func (t Thread) RunStep(ctx context.Context, c llm.Completer, s Step) (Thread, error) {
	defer t.progress.Advance()

	if t.Interrupted() {
		return t, nil
	}
	return t.exchange(ctx, c, s.Render(t.stopKeyword))
}

// RunMultiStep sends variant index of m and appends the reply.
func (t Thread) RunMultiStep(ctx context.Context, c llm.Completer, m MultiStep, index int) (Thread, error) {
	defer t.progress.Advance()

	if t.Interrupted() {
		return t, nil
	}
	return t.exchange(ctx, c, m.Render(index, t.stopKeyword))
}

// RunJSONConvert asks for a JSON answer and stores the parsed value under j.OutputKey.
func (t Thread) RunJSONConvert(ctx context.Context, c llm.Completer, j JSONConvert) (Thread, error) {
	defer t.progress.Advance()
	model := t.model
	if j.Model != "" {
		model = j.Model
	}
	return t.extract(ctx, c, model, j.OutputKey, j.Render(t.stopKeyword))
}

// RunCodeExtract asks for a code block and stores the parsed value under x.OutputKey.
func (t Thread) RunCodeExtract(ctx context.Context, c llm.Completer, x CodeExtract) (Thread, error) {
	defer t.progress.Advance()
	return t.extract(ctx, c, t.model, x.OutputKey, x.Render(t.stopKeyword))
}

func (t Thread) exchange(ctx context.Context, c llm.Completer, msg llm.Message) (Thread, error) {
	msgs := append(slices.Clone(t.messages), msg)

	reply, err := c.Complete(ctx, t.model, msgs)
	if err != nil {
		return t, &TransportError{Err: err}
	}

	next := t
	next.messages = append(msgs, reply)
	return next, nil
}

// extract runs the parse-and-retry loop. Parse failures are fed back to the model as a
// user turn. Running out of attempts is not an error: the thread just lacks the key.
func (t Thread) extract(ctx context.Context, c llm.Completer, model llm.ModelSelector, key string, msg llm.Message) (Thread, error) {
	if _, ok := t.outputs[key]; ok {
		return t, nil
	}
	if t.Interrupted() {
		return t, nil
	}
	if t.parser == nil {
		return t, errNoParser
	}

	msgs := append(slices.Clone(t.messages), msg)
	for attempt := 1; attempt <= MaxParseAttempts; attempt++ {
		reply, err := c.Complete(ctx, model, msgs)
		if err != nil {
			return t, &TransportError{Err: err}
		}
		msgs = append(msgs, reply)

		value, parseErr := t.parser.Parse(key, reply.Content)
		if parseErr == nil {
			next := t
			next.messages = msgs
			next.outputs = maps.Clone(t.outputs)
			next.outputs[key] = value
			return next, nil
		}

		slog.DebugContext(ctx, "Output rejected", "key", key, "attempt", attempt, "max", MaxParseAttempts, "error", parseErr)

		if reply.Contains(t.stopKeyword) {
			break
		}
		msgs = append(msgs, llm.NewUserMessage(parseErr.Error()))
	}

	slog.WarnContext(ctx, "Output not produced", "key", key, "attempts", MaxParseAttempts)
	next := t
	next.messages = msgs
	return next, nil
}
