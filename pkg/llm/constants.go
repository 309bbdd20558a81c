package llm

// StopReason constants define normalized reasons for LLM generation termination.
// All providers must normalize their native stop reasons to these values.
const (
	StopReasonStop   = "stop"   // Normal completion
	StopReasonLength = "length" // Output truncated due to token limit
)

// ModelSelector names a class of model. Provider groups declare which selector they serve.
type ModelSelector string

const (
	ModelDefault ModelSelector = "default"
	ModelFast    ModelSelector = "fast"
)

// DefaultMaxTokens is used by providers that require an explicit output budget.
const DefaultMaxTokens = 4096
