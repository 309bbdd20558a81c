package llm

import "strings"

//----------------------------------------------------------------
// Message - a single conversation turn
//----------------------------------------------------------------

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Message is an immutable conversation turn. Values are copied, never shared by pointer.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// NewSystemMessage creates a system message
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// NewUserMessage creates a user message
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// NewAssistantMessage creates an assistant message
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// NewFunctionMessage creates a function result message
func NewFunctionMessage(text string) Message {
	return Message{Role: RoleFunction, Content: text}
}

// Contains reports whether the message content holds keyword as a literal substring.
func (m Message) Contains(keyword string) bool {
	return keyword != "" && strings.Contains(m.Content, keyword)
}

//----------------------------------------------------------------
// StreamChunk - incremental provider output
//----------------------------------------------------------------

// StreamChunk is one increment of a streamed completion.
type StreamChunk struct {
	// Text is the new visible text, if any.
	Text string `json:"text,omitempty"`

	// Thinking is reasoning output; it is logged but never kept in the conversation.
	Thinking string `json:"thinking,omitempty"`

	IsFinal bool `json:"is_final"`

	// FinishReason is only set on the final chunk.
	FinishReason string `json:"finish_reason,omitempty"`

	Usage *LLMUsage `json:"usage,omitempty"`

	// RawError marks a failed stream. Collectors stop at the first one.
	RawError error `json:"-"`
}

// NewTextChunk creates a text chunk
func NewTextChunk(text string) StreamChunk {
	return StreamChunk{Text: text}
}

// NewThinkingChunk creates a thinking chunk
func NewThinkingChunk(text string) StreamChunk {
	return StreamChunk{Thinking: text}
}

// NewFinalChunk creates the terminating chunk carrying usage statistics
func NewFinalChunk(reason string, usage *LLMUsage) StreamChunk {
	return StreamChunk{
		IsFinal:      true,
		FinishReason: reason,
		Usage:        usage,
	}
}

// NewErrorChunk creates a chunk that aborts the stream
func NewErrorChunk(err error) StreamChunk {
	return StreamChunk{RawError: err, IsFinal: true}
}
