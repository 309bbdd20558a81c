package orchestrator

import (
	"errors"
	"fmt"

	"github.com/skarllot/flow-pair/pkg/chat"
)

// ErrOutputMissing is returned when no thread produced a required output.
var ErrOutputMissing = errors.New("no thread produced the output")

// FirstPresent returns the value of key from the first thread, in order, that holds it.
func FirstPresent[T any](ws chat.Workspace, key string) (T, error) {
	var zero T
	for i, t := range ws.Threads() {
		v, ok := t.Output(key)
		if !ok {
			continue
		}
		typed, ok := v.(T)
		if !ok {
			return zero, fmt.Errorf("output %q of thread %d is %T, not %T", key, i, v, zero)
		}
		return typed, nil
	}
	return zero, fmt.Errorf("%w %q", ErrOutputMissing, key)
}

// AggregateList concatenates, in thread order, the []T values stored under key.
// Threads without the key are skipped; an empty result is not an error.
func AggregateList[T any](ws chat.Workspace, key string) ([]T, error) {
	all := make([]T, 0)
	for i, t := range ws.Threads() {
		v, ok := t.Output(key)
		if !ok {
			continue
		}
		items, ok := v.([]T)
		if !ok {
			return nil, fmt.Errorf("output %q of thread %d is %T, not %T", key, i, v, items)
		}
		all = append(all, items...)
	}
	return all, nil
}
