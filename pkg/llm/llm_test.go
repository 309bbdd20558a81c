package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skarllot/flow-pair/pkg/config"
)

// fakeClient streams a fixed reply, or fails the first failures calls with err.
type fakeClient struct {
	name      string
	reply     []StreamChunk
	err       error
	failures  int
	transient bool
	calls     int
}

func (f *fakeClient) Provider() string { return f.name }

func (f *fakeClient) IsTransientError(error) bool { return f.transient }

func (f *fakeClient) StreamChat(ctx context.Context, messages []Message) (<-chan StreamChunk, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	ch := make(chan StreamChunk, len(f.reply))
	for _, c := range f.reply {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func textReply(text string) []StreamChunk {
	return []StreamChunk{NewTextChunk(text[:1]), NewThinkingChunk("hmm"), NewTextChunk(text[1:]), NewFinalChunk(StopReasonStop, &LLMUsage{TotalTokens: 3})}
}

func TestCollect(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		chunks  []StreamChunk
		want    Message
		wantErr string
	}{
		{"text", textReply("hello"), NewAssistantMessage("hello"), ""},
		{"closed without final", []StreamChunk{NewTextChunk("hi")}, NewAssistantMessage("hi"), ""},
		{"error chunk", []StreamChunk{NewTextChunk("hi"), NewErrorChunk(errors.New("boom"))}, Message{}, "boom"},
		{"empty", []StreamChunk{NewFinalChunk(StopReasonStop, nil)}, Message{}, "empty completion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := make(chan StreamChunk, len(tt.chunks))
			for _, c := range tt.chunks {
				ch <- c
			}
			close(ch)

			msg, _, err := Collect(ctx, ch)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestCollectContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Collect(ctx, make(chan StreamChunk))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackClient(t *testing.T) {
	primary := &fakeClient{name: "a", err: errors.New("503 service unavailable"), failures: 10, transient: true}
	secondary := &fakeClient{name: "b", reply: textReply("ok")}

	f := &FallbackClient{Clients: []LLMClient{primary, secondary}, MaxRetries: 2}
	ch, err := f.StreamChat(context.Background(), nil)
	require.NoError(t, err)

	msg, _, err := Collect(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackClientRetriesTransientErrors(t *testing.T) {
	flaky := &fakeClient{name: "a", err: errors.New("timeout"), failures: 1, transient: true, reply: textReply("ok")}

	f := &FallbackClient{Clients: []LLMClient{flaky}, MaxRetries: 3, RetryDelay: time.Millisecond}
	_, err := f.StreamChat(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, flaky.calls)
}

func TestFallbackClientAllFail(t *testing.T) {
	denied := errors.New("401 unauthorized")
	a := &fakeClient{name: "a", err: denied, failures: 10}
	b := &fakeClient{name: "b", err: denied, failures: 10}

	f := &FallbackClient{Clients: []LLMClient{a, b}, MaxRetries: 3}
	_, err := f.StreamChat(context.Background(), nil)
	assert.ErrorIs(t, err, denied)
	// non-transient errors are not retried
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestRouter(t *testing.T) {
	def := &fakeClient{name: "default", reply: textReply("from default")}
	fast := &fakeClient{name: "fast", reply: textReply("from fast")}
	r := NewRouter(map[ModelSelector]LLMClient{ModelDefault: def, ModelFast: fast}, time.Second)

	msg, err := r.Complete(context.Background(), ModelFast, []Message{NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "from fast", msg.Content)

	msg, err = r.Complete(context.Background(), "large", nil)
	require.NoError(t, err)
	assert.Equal(t, "from default", msg.Content)

	broken := &fakeClient{name: "broken", err: errors.New("boom"), failures: 1}
	_, err = NewRouter(map[ModelSelector]LLMClient{ModelDefault: broken}, 0).Complete(context.Background(), ModelDefault, nil)
	assert.EqualError(t, err, "broken: boom")

	_, err = NewRouter(map[ModelSelector]LLMClient{ModelFast: fast}, 0).Complete(context.Background(), ModelDefault, nil)
	assert.ErrorContains(t, err, `no client configured for model "default"`)
}

type fakeFactory struct{}

func (fakeFactory) Create(cfg ProviderGroupConfig, _ *config.SystemConfig) ([]LLMClient, error) {
	var clients []LLMClient
	for _, m := range cfg.Models {
		clients = append(clients, &fakeClient{name: m, reply: textReply(m)})
	}
	return clients, nil
}

func TestNewFromConfig(t *testing.T) {
	RegisterProvider("fake", fakeFactory{})

	raw := []byte(`[
		{"type": "fake", "models": ["m1", "m2"]},
		{"type": "fake", "selector": "fast", "models": ["f1"]},
		{"type": "unknown", "models": ["x"]}
	]`)
	r, err := NewFromConfig(raw, nil)
	require.NoError(t, err)

	c, ok := r.Client(ModelDefault)
	require.True(t, ok)
	require.IsType(t, &FallbackClient{}, c)
	assert.Len(t, c.(*FallbackClient).Clients, 2)

	c, ok = r.Client(ModelFast)
	require.True(t, ok)
	assert.Equal(t, "f1", c.Provider())

	_, err = NewFromConfig([]byte(`[{"type": "unknown", "models": ["x"]}]`), nil)
	assert.ErrorContains(t, err, "no LLM clients")

	_, err = NewFromConfig([]byte(`{`), nil)
	assert.Error(t, err)
}

func TestIsTransientMessage(t *testing.T) {
	assert.True(t, IsTransientMessage(errors.New("POST: 503 Service Unavailable")))
	assert.True(t, IsTransientMessage(errors.New("429 Too Many Requests")))
	assert.False(t, IsTransientMessage(errors.New("400 bad request")))
	assert.False(t, IsTransientMessage(nil))
}

func TestMessageContains(t *testing.T) {
	m := NewAssistantMessage("done STOP_1")
	assert.True(t, m.Contains("STOP_1"))
	assert.False(t, m.Contains(""))
	assert.False(t, m.Contains("stop_1"))
}
