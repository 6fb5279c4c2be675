package supervisor

import (
	"math/rand/v2"
	"time"
)

// Backoff yields doubling waits between Min and Max with up to 50% jitter.
// The zero value uses 250ms..5s. Not safe for concurrent use.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	cur time.Duration
}

func (b *Backoff) bounds() (time.Duration, time.Duration) {
	lo, hi := b.Min, b.Max
	if lo <= 0 {
		lo = 250 * time.Millisecond
	}
	if hi <= 0 {
		hi = 5 * time.Second
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Next returns the wait before the next attempt and advances the step.
func (b *Backoff) Next() time.Duration {
	lo, hi := b.bounds()
	if b.cur < lo {
		b.cur = lo
	}
	wait := b.cur + rand.N(b.cur/2+1)
	b.cur = min(b.cur*2, hi)
	return wait
}

// Reset starts the sequence over at Min.
func (b *Backoff) Reset() { b.cur = 0 }
