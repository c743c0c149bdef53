package input

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/internal/metrics"
	"github.com/BaSui01/pixelagent/testutil/mocks"
	"github.com/BaSui01/pixelagent/types"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestHumanizer(t *testing.T, cfg Config) (*Humanizer, *RecordingDriver, *mocks.InstantSleeper) {
	t.Helper()
	drv := NewRecordingDriver()
	sleeper := mocks.NewInstantSleeper()
	h := NewHumanizer(drv, cfg, WithSleeper(sleeper), WithRand(jitter.NewRand(7)))
	return h, drv, sleeper
}

func TestHumanizer_ClickInStaysInsideRect(t *testing.T) {
	h, drv, _ := newTestHumanizer(t, DefaultConfig())
	rect := types.NewRegion(100, 200, 30, 12)

	for i := 0; i < 50; i++ {
		require.NoError(t, h.ClickIn(context.Background(), rect, false))
	}
	clicks := drv.Clicks()
	require.Len(t, clicks, 50)
	for _, c := range clicks {
		assert.True(t, rect.Contains(c.Point), "click %s outside %s", c.Point, rect)
	}
}

func TestHumanizer_ClickSequence(t *testing.T) {
	h, drv, sleeper := newTestHumanizer(t, DefaultConfig())

	require.NoError(t, h.ClickAt(context.Background(), types.Pt(10, 20), WithModifier("ctrl")))

	var kinds []EventKind
	for _, e := range drv.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{EventMove, EventKeyDown, EventMouseDown, EventMouseUp, EventKeyUp}, kinds)

	clicks := drv.Clicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, types.Pt(10, 20), clicks[0].Point)
	assert.Equal(t, []string{"ctrl"}, clicks[0].Held)
	assert.Empty(t, drv.Held())
	// pre, hold and post delays
	assert.Equal(t, 3, sleeper.Count())
}

func TestHumanizer_DelaysWithinConfiguredRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreClick = types.Millis(100, 100)
	cfg.ClickHold = types.Millis(50, 50)
	cfg.PostClick = types.Millis(200, 200)
	h, _, sleeper := newTestHumanizer(t, cfg)

	require.NoError(t, h.ClickAt(context.Background(), types.Pt(1, 1)))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 50 * time.Millisecond, 200 * time.Millisecond}, sleeper.Sleeps())
}

func TestHumanizer_MoveAway(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MoveAway = types.NewRegion(0, 0, 50, 50)
	h, drv, _ := newTestHumanizer(t, cfg)

	require.NoError(t, h.ClickIn(context.Background(), types.NewRegion(300, 300, 10, 10), true))
	events := drv.Events()
	last := events[len(events)-1]
	assert.Equal(t, EventMove, last.Kind)
	assert.True(t, cfg.MoveAway.Contains(last.Point))
	assert.True(t, cfg.MoveAway.Contains(drv.Pointer()))
}

func TestHumanizer_MoveAwayWithoutRegionIsNoop(t *testing.T) {
	h, drv, _ := newTestHumanizer(t, DefaultConfig())
	require.NoError(t, h.MoveAway(context.Background()))
	assert.Empty(t, drv.Events())
}

func TestHumanizer_ModifierReleasedOnFailure(t *testing.T) {
	drv := NewRecordingDriver()
	h := NewHumanizer(&failingClickDriver{RecordingDriver: drv}, DefaultConfig(),
		WithSleeper(mocks.NewInstantSleeper()), WithRand(jitter.NewRand(1)))

	err := h.ClickAt(context.Background(), types.Pt(5, 5), WithModifier("ctrl"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInputFailed))
	assert.Empty(t, drv.Held(), "modifier must be released")
}

func TestHumanizer_ModifierReleasedOnCancel(t *testing.T) {
	drv := NewRecordingDriver()
	ctx, cancel := context.WithCancel(context.Background())
	drv.OnEvent(func(e Event) {
		if e.Kind == EventMouseDown {
			cancel()
		}
	})
	h := NewHumanizer(drv, DefaultConfig(), WithSleeper(mocks.NewInstantSleeper()), WithRand(jitter.NewRand(1)))

	err := h.ClickAt(ctx, types.Pt(5, 5), WithModifier("ctrl"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, drv.Held())
}

func TestHumanizer_Type(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeyDelay = types.Millis(40, 120)
	h, drv, sleeper := newTestHumanizer(t, cfg)

	require.NoError(t, h.Type(context.Background(), "hunter2"))
	assert.Equal(t, "hunter2", drv.Typed())
	assert.Len(t, drv.Events(), 7)
	assert.Equal(t, 6, sleeper.Count())
	for _, d := range sleeper.Sleeps() {
		assert.GreaterOrEqual(t, d, 40*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}

func TestHumanizer_Hold(t *testing.T) {
	h, drv, sleeper := newTestHumanizer(t, DefaultConfig())

	require.NoError(t, h.Hold(context.Background(), "up", 2*time.Second))
	events := drv.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventKeyDown, events[0].Kind)
	assert.Equal(t, EventKeyUp, events[1].Kind)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.Sleeps())
}

func TestHumanizer_DriverErrorIsInputFailed(t *testing.T) {
	drv := NewRecordingDriver().FailWith(errors.New("x11 gone"))
	h := NewHumanizer(drv, DefaultConfig(), WithSleeper(mocks.NewInstantSleeper()))

	err := h.Press(context.Background(), "enter")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInputFailed))
	assert.False(t, types.IsFatal(err))
}

func TestHumanizer_RateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ActionsPerSecond = 1000
	cfg.Burst = 1
	h, drv, _ := newTestHumanizer(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		require.NoError(t, h.Press(ctx, "a"))
	}
	assert.Len(t, drv.Events(), 10)
}

func TestHumanizer_Metrics(t *testing.T) {
	c := metrics.NewCollector("it", nil)
	drv := NewRecordingDriver()
	h := NewHumanizer(drv, DefaultConfig(), WithSleeper(mocks.NewInstantSleeper()), WithMetrics(c))

	require.NoError(t, h.ClickAt(context.Background(), types.Pt(1, 1)))
	require.NoError(t, h.Press(context.Background(), "a"))
	require.NoError(t, h.Press(context.Background(), "b"))

	expected := `
# HELP it_input_actions_total Total number of synthetic input actions
# TYPE it_input_actions_total counter
it_input_actions_total{kind="click"} 1
it_input_actions_total{kind="key"} 2
`
	assert.NoError(t, promtest.GatherAndCompare(c.Registry(), strings.NewReader(expected), "it_input_actions_total"))
}

func TestHumanizer_PointInProperty(t *testing.T) {
	h, _, _ := newTestHumanizer(t, DefaultConfig())
	rapid.Check(t, func(t *rapid.T) {
		rect := types.NewRegion(
			rapid.IntRange(0, 2000).Draw(t, "left"),
			rapid.IntRange(0, 2000).Draw(t, "top"),
			rapid.IntRange(1, 300).Draw(t, "w"),
			rapid.IntRange(1, 300).Draw(t, "h"),
		)
		p := h.PointIn(rect)
		if !rect.Contains(p) {
			t.Fatalf("%s not in %s", p, rect)
		}
	})
}

type failingClickDriver struct {
	*RecordingDriver
}

func (d *failingClickDriver) MouseDown(context.Context, Button) error {
	return errors.New("button stuck")
}
