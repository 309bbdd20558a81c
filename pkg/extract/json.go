// Package extract pulls structured values out of free-form model answers.
package extract

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ScanError explains why no JSON value could be taken from an answer.
// Its message is meant to be sent back to the model.
type ScanError struct {
	Kind       string // "object" or "array"
	Candidates int    // balanced spans that were tried
	Err        error  // decode error of the last candidate
}

func (e *ScanError) Error() string {
	if e.Candidates == 0 {
		return fmt.Sprintf("No JSON %s was found in your answer. Reply with a single valid JSON %s.", e.Kind, e.Kind)
	}
	return fmt.Sprintf("The JSON %s in your answer is not valid: %v. Reply again with the corrected JSON %s.", e.Kind, e.Err, e.Kind)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// JSONObject decodes the first balanced {...} span of text that decodes into T.
func JSONObject[T any](text string) (T, error) {
	return ScanJSON[T](text, '{', '}')
}

// JSONArray decodes the first balanced [...] span of text that decodes into T.
func JSONArray[T any](text string) (T, error) {
	return ScanJSON[T](text, '[', ']')
}

// ScanJSON tries every balanced open...close span of text, left to right, and returns the
// first one that decodes into T. Delimiters inside JSON strings are ignored. When a span
// fails to decode, scanning resumes just after its opening delimiter: a valid value nested
// in a broken one is returned before anything that follows the broken span.
func ScanJSON[T any](text string, open, close byte) (T, error) {
	var zero T
	scanErr := &ScanError{Kind: kindOf(open)}
	spans := newSpanIndex(text, open, close)

	for start := 0; start < len(text); {
		i := strings.IndexByte(text[start:], open)
		if i < 0 {
			break
		}
		begin := start + i
		start = begin + 1

		end, ok := spans.match(begin)
		if !ok {
			continue
		}

		scanErr.Candidates++
		var v T
		if err := json.Unmarshal([]byte(text[begin:end+1]), &v); err != nil {
			scanErr.Err = err
			continue
		}
		return v, nil
	}

	return zero, scanErr
}

// spanIndex caches delimiter matches. One scan resolves every opener it meets outside a
// string, so a run of unbalanced openers costs a single pass.
type spanIndex struct {
	text        string
	open, close byte
	closes      map[int]int
	resolved    map[int]bool
}

func newSpanIndex(text string, open, close byte) *spanIndex {
	return &spanIndex{
		text:     text,
		open:     open,
		close:    close,
		closes:   make(map[int]int),
		resolved: make(map[int]bool),
	}
}

// match returns the index of the close delimiter balancing text[begin].
func (x *spanIndex) match(begin int) (int, bool) {
	if !x.resolved[begin] {
		x.scan(begin)
	}
	end, ok := x.closes[begin]
	return end, ok
}

func (x *spanIndex) scan(begin int) {
	var stack []int
	inString := false
	escaped := false

	for i := begin; i < len(x.text); i++ {
		c := x.text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case x.open:
			stack = append(stack, i)
			x.resolved[i] = true
		case x.close:
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x.closes[j] = i
			if len(stack) == 0 {
				return
			}
		}
	}
}

func kindOf(open byte) string {
	switch open {
	case '{':
		return "object"
	case '[':
		return "array"
	default:
		return "value"
	}
}
