package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func schedulerParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return parameters
}

// Checkpoints are strictly increasing, the first sits at the minimum session
// length and the fifth at the maximum.
func TestProperty_PlanBounds(t *testing.T) {
	properties := gopter.NewProperties(schedulerParameters())

	properties.Property("plan is strictly increasing between min and max", prop.ForAll(
		func(minMinutes, extraMinutes int) bool {
			min := time.Duration(minMinutes) * time.Minute
			max := min + time.Duration(extraMinutes)*time.Minute
			plan := Plan(t0, min, max)
			if !plan[0].Equal(t0.Add(min)) || !plan[NumCheckpoints-1].Equal(t0.Add(max)) {
				return false
			}
			for i := 1; i < NumCheckpoints; i++ {
				if !plan[i].After(plan[i-1]) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 600),
		gen.IntRange(4, 600),
	))

	properties.TestingRun(t)
}

// A second tick at the same instant never re-rolls the checkpoint the first
// tick rolled.
func TestProperty_TickIdempotentPerCheckpoint(t *testing.T) {
	properties := gopter.NewProperties(schedulerParameters())

	properties.Property("same now does not roll the same checkpoint twice", prop.ForAll(
		func(offsetMinutes int, seed uint64) bool {
			h := newHarness(t, testConfig(), neverPass())
			h.sched.rand = &rollOnly{inner: jitter.NewRand(seed)}
			st := h.sched.Start(t0)
			now := t0.Add(time.Duration(offsetMinutes) * time.Minute)

			st1, out1, err := h.sched.Tick(context.Background(), st, now)
			if err != nil || out1.Kind == OutcomeBreak {
				return err == nil
			}
			_, out2, err := h.sched.Tick(context.Background(), st1, now)
			if err != nil {
				return false
			}
			if out1.Kind == OutcomeIdle {
				return out2.Kind == OutcomeIdle
			}
			return out2.Kind == OutcomeIdle || out2.Checkpoint > out1.Checkpoint
		},
		gen.IntRange(0, 240),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

// When no earlier checkpoint fires, the fifth always forces exactly one
// break per session, and the run stops after TotalSessions breaks.
func TestProperty_ForcedBreakEverySession(t *testing.T) {
	properties := gopter.NewProperties(schedulerParameters())

	properties.Property("one forced break per session, then termination", prop.ForAll(
		func(total, minMinutes, extraMinutes int) bool {
			cfg := testConfig()
			cfg.TotalSessions = total
			cfg.MinSession = time.Duration(minMinutes) * time.Minute
			cfg.MaxSession = cfg.MinSession + time.Duration(extraMinutes)*time.Minute
			h := newHarness(t, cfg, neverPass())
			ctx := context.Background()

			st := h.sched.Start(t0)
			forced := 0
			for session := 0; session < total; session++ {
				for i := 0; i < NumCheckpoints; i++ {
					var out Outcome
					var err error
					st, out, err = h.sched.Tick(ctx, st, st.Checkpoints[i].At)
					if err != nil {
						return false
					}
					if i < NumCheckpoints-1 && out.Kind != OutcomeStay {
						return false
					}
					if i == NumCheckpoints-1 {
						if !out.Forced || (out.Kind != OutcomeBreak && out.Kind != OutcomeFinished) {
							return false
						}
						forced++
					}
				}
			}
			if forced != total || st.Completed != total || !st.Done {
				return false
			}
			if len(h.exits.codes) != 1 || h.exits.codes[0] != 0 {
				return false
			}
			_, _, err := h.sched.Tick(ctx, st, st.Checkpoints[4].At.Add(time.Hour))
			return err == ErrFinished && h.logout.count() == total
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 300),
		gen.IntRange(4, 300),
	))

	properties.TestingRun(t)
}

// rollOnly uses a real random source for rolls and the minimum break.
type rollOnly struct {
	inner jitter.Rand
}

func (r *rollOnly) IntN(n int) int       { return r.inner.IntN(n) }
func (r *rollOnly) Int64N(n int64) int64 { return 0 }
