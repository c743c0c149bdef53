// Package jitter provides the randomized timing primitives every polling
// loop uses: uniform durations drawn from a Range, 1-in-N rolls, and a
// context-aware sleeper. Randomized sleeps keep the input timing aperiodic.
package jitter

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/BaSui01/pixelagent/types"
)

// Rand is the subset of *rand.Rand used by the agent.
type Rand interface {
	IntN(n int) int
	Int64N(n int64) int64
}

// NewRand returns a seeded PCG source wrapped for concurrent use.
func NewRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeeded returns a Rand seeded from the wall clock.
func NewTimeSeeded() Rand {
	return NewRand(uint64(time.Now().UnixNano()))
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Int64N(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int64N(n)
}

// Duration draws uniformly from [rg.Min, rg.Max].
func Duration(r Rand, rg types.Range) time.Duration {
	if rg.Max <= rg.Min {
		return rg.Min
	}
	return rg.Min + time.Duration(r.Int64N(int64(rg.Max-rg.Min)+1))
}

// IntBetween draws uniformly from [lo, hi].
func IntBetween(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// Symmetric draws uniformly from [-tol, tol].
func Symmetric(r Rand, tol int) int {
	if tol <= 0 {
		return 0
	}
	return IntBetween(r, -tol, tol)
}

// Roll rolls a die with the given number of sides and reports whether it
// landed on the highest face. Chance 1 (or less) always succeeds.
func Roll(r Rand, chance int) (bool, int) {
	if chance <= 1 {
		return true, 1
	}
	face := r.IntN(chance) + 1
	return face == chance, face
}

// Sleeper blocks the calling goroutine.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on the wall clock and wakes early on cancellation.
type RealSleeper struct{}

// Sleep implements Sleeper.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SleepRange draws a duration from rg and sleeps for it.
func SleepRange(ctx context.Context, s Sleeper, r Rand, rg types.Range) error {
	return s.Sleep(ctx, Duration(r, rg))
}

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
