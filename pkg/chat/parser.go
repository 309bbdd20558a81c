package chat

import "fmt"

// Parser turns raw assistant text into the typed value stored under an output key.
// A returned error is shown to the model verbatim, so it must be human readable.
type Parser interface {
	Parse(outputKey, raw string) (any, error)
}

// ParseFunc parses the raw text of a single output key.
type ParseFunc func(raw string) (any, error)

// KeyedParser dispatches on the output key.
type KeyedParser map[string]ParseFunc

// Parse implements Parser.
func (p KeyedParser) Parse(outputKey, raw string) (any, error) {
	fn, ok := p[outputKey]
	if !ok {
		return nil, fmt.Errorf("no parser registered for output %q", outputKey)
	}
	return fn(raw)
}
