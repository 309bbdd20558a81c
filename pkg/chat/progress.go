package chat

import "sync/atomic"

// Progress counts executed instruction steps across all threads of a run.
// It is shared by every thread split from the same seed and safe for concurrent use.
type Progress struct {
	done    atomic.Int64
	total   int64
	observe func(done, total int64)
}

// NewProgress creates a counter expecting total steps. observe may be nil.
func NewProgress(total int, observe func(done, total int64)) *Progress {
	return &Progress{total: int64(total), observe: observe}
}

// Advance records one finished step.
func (p *Progress) Advance() {
	if p == nil {
		return
	}
	done := p.done.Add(1)
	if p.observe != nil {
		p.observe(done, p.total)
	}
}

// Done returns the number of finished steps.
func (p *Progress) Done() int64 {
	if p == nil {
		return 0
	}
	return p.done.Load()
}
