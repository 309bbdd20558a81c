// Package flows holds the instruction scripts the CLI runs and the parsers that turn
// their answers into typed results.
package flows

import (
	"fmt"
	"strings"

	"github.com/skarllot/flow-pair/pkg/chat"
	"github.com/skarllot/flow-pair/pkg/extract"
	"github.com/skarllot/flow-pair/pkg/llm"
	"github.com/skarllot/flow-pair/pkg/orchestrator"
)

// FeedbackKey is the output key of the review comments.
const FeedbackKey = "feedback"

// Severity values accepted in review comments.
const (
	SeverityInfo     = "info"
	SeverityMinor    = "minor"
	SeverityMajor    = "major"
	SeverityCritical = "critical"
)

var severities = []string{SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical}

// ReviewComment is one finding of a code review.
type ReviewComment struct {
	File       string `json:"file" yaml:"file"`
	Line       int    `json:"line,omitempty" yaml:"line,omitempty"`
	Severity   string `json:"severity" yaml:"severity"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// ReviewAspects are the independent angles a change is reviewed from.
var ReviewAspects = []string{
	"correctness: logic errors, unhandled edge cases, broken error handling and concurrency bugs",
	"security: injection, unsafe input handling, secrets, permissions and unsafe defaults",
	"performance: needless allocations, quadratic loops, blocking calls and resource leaks",
	"maintainability: naming, duplication, dead code, missing tests and unclear structure",
}

const reviewSystem = `You are a senior software engineer reviewing a change set.
Be specific and concise. Only comment on code that is part of the change.
Never invent files or line numbers that are not in the diff.`

const feedbackSchema = `Use exactly this JSON shape (an array, possibly empty):
[
  {
    "file": "path/of/the/file as shown in the diff",
    "line": 42,
    "severity": "info | minor | major | critical",
    "message": "what is wrong",
    "suggestion": "how to fix it (optional)"
  }
]`

// ReviewScript returns the review script. extraSystem is appended to the system message.
func ReviewScript(extraSystem string) orchestrator.Script {
	return orchestrator.Script{
		Name:   "review",
		System: joinSystem(reviewSystem, extraSystem),
		Model:  llm.ModelDefault,
		Instructions: []chat.Instruction{
			chat.Step{Text: "Read the change above and summarize, in a few sentences, what it does. " +
				"If the change has nothing worth reviewing (only formatting, generated files or lock files), " +
				"answer with the single word " + chat.StopPlaceholder + "."},
			chat.MultiStep{
				Preamble: "Review the change focusing only on ",
				Variants: ReviewAspects,
				Ending: ". List every issue you find with its file and line. " +
					"If there is no issue for this focus, answer with the single word " + chat.StopPlaceholder + ".",
			},
			chat.JSONConvert{
				OutputKey: FeedbackKey,
				Text:      "Convert the issues you listed into JSON. Do not add new issues.",
				Schema:    feedbackSchema,
			},
		},
		Parser: chat.KeyedParser{FeedbackKey: ParseFeedback},
	}
}

// ParseFeedback decodes and validates a JSON array of review comments.
func ParseFeedback(raw string) (any, error) {
	comments, err := extract.JSONArray[[]ReviewComment](raw)
	if err != nil {
		return nil, err
	}

	var problems []string
	for i := range comments {
		c := &comments[i]
		c.Severity = strings.ToLower(strings.TrimSpace(c.Severity))
		switch {
		case strings.TrimSpace(c.File) == "":
			problems = append(problems, fmt.Sprintf("item %d has no \"file\"", i+1))
		case strings.TrimSpace(c.Message) == "":
			problems = append(problems, fmt.Sprintf("item %d has no \"message\"", i+1))
		case c.Line < 0:
			problems = append(problems, fmt.Sprintf("item %d has a negative \"line\"", i+1))
		case !validSeverity(c.Severity):
			problems = append(problems, fmt.Sprintf("item %d has severity %q, expected one of %s", i+1, c.Severity, strings.Join(severities, ", ")))
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("The JSON array is not valid: %s. Reply again with the corrected JSON array.", strings.Join(problems, "; "))
	}
	return comments, nil
}

// ReviewResult collects the comments of every review thread, in aspect order.
func ReviewResult(ws chat.Workspace) ([]ReviewComment, error) {
	return orchestrator.AggregateList[ReviewComment](ws, FeedbackKey)
}

func validSeverity(s string) bool {
	for _, v := range severities {
		if s == v {
			return true
		}
	}
	return false
}

func joinSystem(base, extra string) string {
	if strings.TrimSpace(extra) == "" {
		return base
	}
	return base + "\n\n" + strings.TrimSpace(extra)
}
