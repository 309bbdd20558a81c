package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skarllot/flow-pair/pkg/config"
	"github.com/skarllot/flow-pair/pkg/llm"
)

func TestJSONFixingRoundTripper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"content":"costs \$5\n"}`)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &JSONFixingRoundTripper{Proxied: http.DefaultTransport}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"content":"costs $5\n"}`, string(body))
}

func TestStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"model":"m","message":{"role":"assistant","content":"Hel"},"done":false}`+"\n")
		io.WriteString(w, `{"model":"m","message":{"role":"assistant","content":"lo"},"done":false}`+"\n")
		io.WriteString(w, `{"model":"m","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":3,"eval_count":2}`+"\n")
	}))
	defer srv.Close()

	clients, err := (&OllamaFactory{}).Create(llm.ProviderGroupConfig{Type: "ollama", Models: []string{"m"}, BaseURL: srv.URL}, config.DefaultSystemConfig())
	require.NoError(t, err)
	require.Len(t, clients, 1)

	ctx := context.Background()
	ch, err := clients[0].StreamChat(ctx, []llm.Message{llm.NewUserMessage("hi")})
	require.NoError(t, err)

	msg, usage, err := llm.Collect(ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, llm.NewAssistantMessage("Hello"), msg)
	require.NotNil(t, usage)
	assert.Equal(t, 5, usage.TotalTokens)
}

func TestStreamChatLoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model \"m\" not found"}`)
	}))
	defer srv.Close()

	client, err := NewOllamaClient("m", srv.URL, nil, &SystemSettings{})
	require.NoError(t, err)

	_, err = client.StreamChat(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
	assert.ErrorContains(t, err, "not found")
}

func TestConvertMessages(t *testing.T) {
	got := convertMessages([]llm.Message{llm.NewSystemMessage("s"), llm.NewFunctionMessage("f")})
	assert.Equal(t, "system", got[0].Role)
	assert.Equal(t, "user", got[1].Role)
}
