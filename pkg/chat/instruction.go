package chat

import (
	"strings"

	"github.com/skarllot/flow-pair/pkg/llm"
)

// StopPlaceholder is replaced with the thread's stop keyword when an instruction is rendered.
// Instruction authors use it to tell the model how to end the conversation early.
const StopPlaceholder = "{{STOP_KEYWORD}}"

// Instruction is one scripted directive. The set of variants is closed:
// Step, MultiStep, JSONConvert and CodeExtract.
type Instruction interface {
	instruction()
}

// Step is a single directive rendered as one user turn.
type Step struct {
	Text string
}

// MultiStep shares a preamble and an ending between independent variants.
// Dispatching it splits a single-thread workspace into one thread per variant.
type MultiStep struct {
	Preamble string
	Variants []string
	Ending   string
}

// JSONConvert asks for a JSON answer stored under OutputKey.
type JSONConvert struct {
	OutputKey string
	Text      string
	Schema    string
	// Model overrides the thread's model for this conversion when set.
	Model llm.ModelSelector
}

// CodeExtract asks for a fenced code block stored under OutputKey.
type CodeExtract struct {
	OutputKey string
	Text      string
}

func (Step) instruction()        {}
func (MultiStep) instruction()   {}
func (JSONConvert) instruction() {}
func (CodeExtract) instruction() {}

func render(text, stopKeyword string) llm.Message {
	return llm.NewUserMessage(strings.ReplaceAll(text, StopPlaceholder, stopKeyword))
}

// Render returns the user message of the directive.
func (s Step) Render(stopKeyword string) llm.Message {
	return render(s.Text, stopKeyword)
}

// Render returns the user message of variant index.
func (m MultiStep) Render(index int, stopKeyword string) llm.Message {
	return render(m.Preamble+m.Variants[index]+m.Ending, stopKeyword)
}

// Render returns the directive followed by the expected schema, when one is given.
func (j JSONConvert) Render(stopKeyword string) llm.Message {
	text := j.Text
	if j.Schema != "" {
		text += "\n\n" + j.Schema
	}
	return render(text, stopKeyword)
}

// Render returns the user message of the directive.
func (c CodeExtract) Render(stopKeyword string) llm.Message {
	return render(c.Text, stopKeyword)
}
