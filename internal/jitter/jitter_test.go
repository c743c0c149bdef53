package jitter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/BaSui01/pixelagent/types"
)

func TestDuration_StaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.Int64Range(0, int64(time.Hour)).Draw(t, "lo")
		span := rapid.Int64Range(0, int64(time.Hour)).Draw(t, "span")
		seed := rapid.Uint64().Draw(t, "seed")

		rg := types.Range{Min: time.Duration(lo), Max: time.Duration(lo + span)}
		d := Duration(NewRand(seed), rg)

		if d < rg.Min || d > rg.Max {
			t.Fatalf("duration %s outside %s", d, rg)
		}
	})
}

func TestDuration_DegenerateRange(t *testing.T) {
	r := NewRand(1)
	assert.Equal(t, time.Second, Duration(r, types.Between(time.Second, time.Second)))
	assert.Equal(t, time.Second, Duration(r, types.Between(time.Second, 0)))
}

func TestSymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tol := rapid.IntRange(0, 100).Draw(t, "tol")
		v := Symmetric(NewRand(rapid.Uint64().Draw(t, "seed")), tol)
		if v < -tol || v > tol {
			t.Fatalf("value %d outside ±%d", v, tol)
		}
	})
}

func TestRoll(t *testing.T) {
	r := NewRand(7)

	ok, face := Roll(r, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, face)

	hits := 0
	for i := 0; i < 5000; i++ {
		if ok, face := Roll(r, 5); ok {
			assert.Equal(t, 5, face)
			hits++
		}
	}
	// 1-in-5 over 5000 rolls: expected 1000.
	assert.InDelta(t, 1000, hits, 150)
}

func TestRealSleeper_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := RealSleeper{}.Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
