// Package autoload registers every built-in LLM provider.
package autoload

import (
	_ "github.com/skarllot/flow-pair/pkg/llm/anthropicllm"
	_ "github.com/skarllot/flow-pair/pkg/llm/gemini"
	_ "github.com/skarllot/flow-pair/pkg/llm/ollama"
	_ "github.com/skarllot/flow-pair/pkg/llm/openailm"
)
