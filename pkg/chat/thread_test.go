package chat

import (
	"context"
	"testing"

	"github.com/skarllot/flow-pair/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStep(t *testing.T) {
	progress := NewProgress(1, nil)
	thread := newTestThread(progress)
	completer := newScripted("looks fine")

	next, err := thread.RunStep(context.Background(), completer, Step{Text: "Reply " + StopPlaceholder + " when done"})
	require.NoError(t, err)

	assert.Equal(t, thread.Len()+2, next.Len())
	msgs := next.Messages()
	assert.Equal(t, llm.NewUserMessage("Reply "+testStop+" when done"), msgs[1])
	assert.Equal(t, llm.NewAssistantMessage("looks fine"), msgs[2])
	assert.EqualValues(t, 1, progress.Done())

	// the receiver is a snapshot and is never mutated
	assert.Equal(t, 1, thread.Len())
}

func TestRunStepTransportError(t *testing.T) {
	progress := NewProgress(1, nil)
	thread := newTestThread(progress)

	next, err := thread.RunStep(context.Background(), newScripted(), Step{Text: "hi"})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, thread, next)
	assert.EqualValues(t, 1, progress.Done(), "progress advances on the error path")
}

func TestRunMultiStepRendersVariant(t *testing.T) {
	thread := newTestThread(nil)
	completer := newScripted("ok")
	m := MultiStep{Preamble: "Focus on ", Variants: []string{"security", "performance"}, Ending: ". Say " + StopPlaceholder + " if none."}

	next, err := thread.RunMultiStep(context.Background(), completer, m, 1)
	require.NoError(t, err)

	assert.Equal(t, "Focus on performance. Say "+testStop+" if none.", next.Messages()[1].Content)
}

func TestInterruptedThreadIgnoresInstructions(t *testing.T) {
	progress := NewProgress(4, nil)
	thread := newTestThread(progress,
		llm.NewSystemMessage("sys"),
		llm.NewUserMessage("review"),
		llm.NewAssistantMessage("nothing to review "+testStop),
	)
	require.True(t, thread.Interrupted())

	completer := newScripted()
	ctx := context.Background()

	next, err := thread.RunStep(ctx, completer, Step{Text: "a"})
	require.NoError(t, err)
	next, err = next.RunMultiStep(ctx, completer, MultiStep{Variants: []string{"b"}}, 0)
	require.NoError(t, err)
	next, err = next.RunJSONConvert(ctx, completer, JSONConvert{OutputKey: "result", Text: "c"})
	require.NoError(t, err)
	next, err = next.RunCodeExtract(ctx, completer, CodeExtract{OutputKey: "code", Text: "d"})
	require.NoError(t, err)

	assert.Equal(t, thread.Messages(), next.Messages())
	assert.EqualValues(t, 0, completer.calls.Load())
	assert.EqualValues(t, 4, progress.Done())
}

func TestInterruptedRequiresAssistantRole(t *testing.T) {
	thread := newTestThread(nil,
		llm.NewSystemMessage("sys"),
		llm.NewUserMessage("say "+testStop),
	)
	assert.False(t, thread.Interrupted())

	empty := NewThread(ThreadOptions{StopKeyword: testStop})
	assert.False(t, empty.Interrupted())
}

func TestRunJSONConvertRetries(t *testing.T) {
	tests := []struct {
		name       string
		replies    []string
		wantGrowth int
		wantOutput bool
	}{
		{
			name:       "first attempt",
			replies:    []string{`{"k":1}`},
			wantGrowth: 2,
			wantOutput: true,
		},
		{
			name:       "two failures then success",
			replies:    []string{"nope", "still no", `{"k":1}`},
			wantGrowth: 6,
			wantOutput: true,
		},
		{
			name:       "attempts exhausted",
			replies:    []string{"a", "b", "c"},
			wantGrowth: 7,
			wantOutput: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress := NewProgress(1, nil)
			thread := newTestThread(progress)
			completer := newScripted(tt.replies...)

			next, err := thread.RunJSONConvert(context.Background(), completer, JSONConvert{OutputKey: "result", Text: "as json"})
			require.NoError(t, err)

			assert.Equal(t, thread.Len()+tt.wantGrowth, next.Len())
			assert.EqualValues(t, len(tt.replies), completer.calls.Load())
			assert.EqualValues(t, 1, progress.Done())

			_, ok := next.Output("result")
			assert.Equal(t, tt.wantOutput, ok)
		})
	}
}

func TestRunJSONConvertInjectsParseError(t *testing.T) {
	thread := newTestThread(nil)
	completer := newScripted("plain text", `{"k":1}`)

	next, err := thread.RunJSONConvert(context.Background(), completer, JSONConvert{OutputKey: "result", Text: "as json", Schema: "{\"k\": number}"})
	require.NoError(t, err)

	msgs := next.Messages()
	assert.Equal(t, "as json\n\n{\"k\": number}", msgs[1].Content)
	assert.Equal(t, llm.NewUserMessage("the answer must be a single JSON object"), msgs[3])

	// the retry sees the whole exchange, including the injected error
	require.Len(t, completer.seen, 2)
	assert.Len(t, completer.seen[1], 4)
}

func TestRunJSONConvertIdempotent(t *testing.T) {
	progress := NewProgress(2, nil)
	thread := newTestThread(progress)
	ctx := context.Background()
	instr := JSONConvert{OutputKey: "result", Text: "as json"}

	first, err := thread.RunJSONConvert(ctx, newScripted(`{"k":1}`), instr)
	require.NoError(t, err)

	completer := newScripted(`{"k":2}`)
	second, err := first.RunJSONConvert(ctx, completer, instr)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 0, completer.calls.Load())
	v, _ := second.Output("result")
	assert.Equal(t, `{"k":1}`, v)
	assert.EqualValues(t, 2, progress.Done())
}

func TestRunJSONConvertModelOverride(t *testing.T) {
	thread := newTestThread(nil)
	completer := newScripted("no json here", `{"k":1}`, "```\nx\n```")
	ctx := context.Background()

	next, err := thread.RunJSONConvert(ctx, completer, JSONConvert{OutputKey: "result", Text: "as json", Model: llm.ModelFast})
	require.NoError(t, err)
	_, err = next.RunCodeExtract(ctx, completer, CodeExtract{OutputKey: "code", Text: "code"})
	require.NoError(t, err)

	assert.Equal(t, []llm.ModelSelector{llm.ModelFast, llm.ModelFast, llm.ModelDefault}, completer.models)
}

func TestRunJSONConvertTransportErrorDuringRetry(t *testing.T) {
	progress := NewProgress(1, nil)
	thread := newTestThread(progress)
	// the second attempt finds the queue empty and fails like a dropped connection
	completer := newScripted("not json")

	next, err := thread.RunJSONConvert(context.Background(), completer, JSONConvert{OutputKey: "result", Text: "as json"})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, thread, next)
	assert.Equal(t, 1, next.Len())
	assert.EqualValues(t, 2, completer.calls.Load())
	assert.EqualValues(t, 1, progress.Done())
}

func TestRunCodeExtractIdempotent(t *testing.T) {
	progress := NewProgress(2, nil)
	thread := newTestThread(progress)
	ctx := context.Background()
	instr := CodeExtract{OutputKey: "code", Text: "write it"}

	first, err := thread.RunCodeExtract(ctx, newScripted("```\nfirst\n```"), instr)
	require.NoError(t, err)

	completer := newScripted("```\nsecond\n```")
	second, err := first.RunCodeExtract(ctx, completer, instr)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 0, completer.calls.Load())
	v, _ := second.Output("code")
	assert.Equal(t, "first\n", v)
	assert.EqualValues(t, 2, progress.Done())
}

func TestRunCodeExtract(t *testing.T) {
	thread := newTestThread(nil)
	completer := newScripted("here:\n```\nfunc TestX(t *testing.T) {}\n```")

	next, err := thread.RunCodeExtract(context.Background(), completer, CodeExtract{OutputKey: "code", Text: "write it"})
	require.NoError(t, err)

	v, ok := next.Output("code")
	require.True(t, ok)
	assert.Equal(t, "func TestX(t *testing.T) {}\n", v)
	assert.Equal(t, []string{"code"}, next.OutputKeys())
}

func TestExtractStopsWhenReplyInterrupts(t *testing.T) {
	thread := newTestThread(nil)
	completer := newScripted("nothing to convert " + testStop)

	next, err := thread.RunJSONConvert(context.Background(), completer, JSONConvert{OutputKey: "result", Text: "as json"})
	require.NoError(t, err)

	assert.Equal(t, thread.Len()+2, next.Len())
	assert.True(t, next.Interrupted())
	assert.EqualValues(t, 1, completer.calls.Load())
}

func TestExtractWithoutParser(t *testing.T) {
	thread := NewThread(ThreadOptions{StopKeyword: testStop}, llm.NewSystemMessage("sys"))

	_, err := thread.RunJSONConvert(context.Background(), newScripted("{}"), JSONConvert{OutputKey: "result"})
	assert.ErrorIs(t, err, errNoParser)
}

func TestKeyedParserUnknownKey(t *testing.T) {
	_, err := KeyedParser{}.Parse("missing", "x")
	assert.ErrorContains(t, err, `"missing"`)
}
