package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/skarllot/flow-pair/pkg/llm"
)

// scriptedCompleter replies from a fixed queue, in call order.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	calls   atomic.Int32
	seen    [][]llm.Message
	models  []llm.ModelSelector
}

func newScripted(replies ...string) *scriptedCompleter {
	return &scriptedCompleter{replies: replies}
}

func (s *scriptedCompleter) Complete(_ context.Context, model llm.ModelSelector, messages []llm.Message) (llm.Message, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = append(s.seen, messages)
	s.models = append(s.models, model)
	if len(s.replies) == 0 {
		return llm.Message{}, errors.New("script exhausted")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return llm.NewAssistantMessage(reply), nil
}

// echoCompleter answers with the content of the last message and fails any conversation
// mentioning fail. Safe for concurrent use.
type echoCompleter struct {
	calls atomic.Int32
	fail  string
}

func (e *echoCompleter) Complete(_ context.Context, _ llm.ModelSelector, messages []llm.Message) (llm.Message, error) {
	e.calls.Add(1)
	if e.fail != "" {
		for _, m := range messages {
			if strings.Contains(m.Content, e.fail) {
				return llm.Message{}, errors.New("connection reset")
			}
		}
	}
	last := messages[len(messages)-1].Content
	return llm.NewAssistantMessage("echo: " + last), nil
}

// objectParser accepts replies shaped like {...}.
var objectParser = KeyedParser{
	"result": func(raw string) (any, error) {
		raw = strings.TrimSpace(raw)
		if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
			return nil, errors.New("the answer must be a single JSON object")
		}
		return raw, nil
	},
	"code": func(raw string) (any, error) {
		_, body, ok := strings.Cut(raw, "```\n")
		if !ok {
			return nil, errors.New("no code block found")
		}
		code, _, _ := strings.Cut(body, "```")
		return code, nil
	},
}

const testStop = "STOP-1234"

func newTestThread(progress *Progress, seed ...llm.Message) Thread {
	if len(seed) == 0 {
		seed = []llm.Message{llm.NewSystemMessage("you review code")}
	}
	return NewThread(ThreadOptions{
		StopKeyword: testStop,
		Parser:      objectParser,
		Progress:    progress,
	}, seed...)
}
