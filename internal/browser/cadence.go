// internal/browser/cadence.go
package browser

import (
	"math/rand"
	"sync"
	"time"
	"unicode"
)

// typingCadence produces per-keystroke delays that vary the way a human
// typist's do: a jittered base interval, a longer settle after whitespace,
// and a brief planning pause before punctuation. Uniform robotic pacing
// trips rate heuristics on some editors and drops keystrokes in others.
type typingCadence struct {
	base time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func newTypingCadence(base time.Duration) *typingCadence {
	return &typingCadence{
		base: base,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// next returns the delay to wait after dispatching r. prev is the preceding
// rune, or 0 at the start of the text.
func (c *typingCadence) next(prev, r rune) time.Duration {
	if c.base <= 0 {
		return 0
	}

	c.mu.Lock()
	// Jitter in [0.7, 1.5) of the base interval.
	factor := 0.7 + c.rng.Float64()*0.8
	c.mu.Unlock()

	d := time.Duration(float64(c.base) * factor)
	switch {
	case unicode.IsSpace(r):
		// Word boundaries carry the longest inter-key gaps.
		d *= 3
	case unicode.IsPunct(r) && !unicode.IsPunct(prev):
		d *= 2
	}
	return d
}
