package routine

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/pixelagent/client"
	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/internal/metrics"
	"github.com/BaSui01/pixelagent/internal/telemetry"
	"github.com/BaSui01/pixelagent/navigation"
	"github.com/BaSui01/pixelagent/types"
	"github.com/BaSui01/pixelagent/vision"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// =============================================================================
// ▶️ Executor
// =============================================================================

// SideStoneOpener 打开侧边栏标签页，*client.Client 满足该接口
type SideStoneOpener interface {
	OpenSideStone(ctx context.Context, name string) error
}

// Traveler 沿路线行走，*navigation.Navigator 满足该接口
type Traveler interface {
	TravelRoute(ctx context.Context, route *navigation.Route, maps *vision.NeedleStore) error
}

// Deps 是执行例程所需的协作者。SideStones、Traveler 与 Maps 只在例程
// 用到对应步骤时才需要。
type Deps struct {
	Query      *vision.Query
	Needles    *vision.NeedleStore
	Layout     client.Layout
	Input      client.Input
	SideStones SideStoneOpener
	Traveler   Traveler
	Maps       *vision.NeedleStore
}

// Result 一次例程执行的统计
type Result struct {
	Executed int
	Skipped  int
	// Stopped 表示某个 on_miss: stop 的步骤提前结束了本轮
	Stopped   bool
	StoppedAt string
}

// Executor runs routines step by step.
type Executor struct {
	deps Deps

	mu     sync.Mutex
	routes map[string]*navigation.Route

	sleeper jitter.Sleeper
	rand    jitter.Rand
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// Option 配置 Executor
type Option func(*Executor)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s jitter.Sleeper) Option {
	return func(e *Executor) { e.sleeper = s }
}

// WithRand replaces the random source.
func WithRand(r jitter.Rand) Option {
	return func(e *Executor) { e.rand = r }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Executor) { e.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an Executor.
func NewExecutor(deps Deps, opts ...Option) *Executor {
	e := &Executor{
		deps:    deps,
		routes:  make(map[string]*navigation.Route),
		sleeper: jitter.RealSleeper{},
		tracer:  telemetry.Tracer("routine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rand == nil {
		e.rand = jitter.NewTimeSeeded()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.With(zap.String("component", "routine"))
	return e
}

// Prepare validates r against the layout, preloads every needle and loads
// every route. Any problem is a ConfigurationError, so a broken routine
// fails before the first session starts.
func (e *Executor) Prepare(r *Routine) error {
	hasRegion := func(name string) bool {
		_, ok := e.deps.Layout.Region(name)
		return ok
	}
	if err := r.Validate(hasRegion); err != nil {
		return err
	}
	if names := r.NeedleNames(); len(names) > 0 {
		if e.deps.Needles == nil {
			return types.NewConfigurationError("routine %q uses needles but no needle store is configured", r.Name).WithComponent("routine")
		}
		if err := e.deps.Needles.Preload(names...); err != nil {
			return err
		}
	}

	for i, s := range r.Steps {
		switch s.Action {
		case ActionTravel:
			if e.deps.Traveler == nil || e.deps.Maps == nil {
				return types.NewConfigurationError("routine %q %s: travel needs a navigator and a map store", r.Name, s.Label(i)).WithComponent("routine")
			}
			if _, err := e.route(s.Route); err != nil {
				return err
			}
		case ActionSideStone:
			if e.deps.SideStones == nil {
				return types.NewConfigurationError("routine %q %s: no side stone opener", r.Name, s.Label(i)).WithComponent("routine")
			}
		}
	}
	return nil
}

// Run executes every step once, in order.
//
// A vision step that misses follows its on_miss policy: fail returns an
// OperationFailed, skip moves on, stop ends the iteration early without an
// error. Errors from collaborators are returned wrapped with the step label.
func (e *Executor) Run(ctx context.Context, r *Routine) (res Result, err error) {
	if err := e.Prepare(r); err != nil {
		return Result{}, err
	}

	ctx, span := e.tracer.Start(ctx, "routine.run", trace.WithAttributes(
		attribute.String("routine", r.Name),
		attribute.Int("steps", len(r.Steps)),
	))
	defer func() {
		span.SetAttributes(
			attribute.Int("executed", res.Executed),
			attribute.Int("skipped", res.Skipped),
			attribute.Bool("stopped", res.Stopped),
		)
		telemetry.EndSpan(span, err)
	}()

	for i, s := range r.Steps {
		label := s.Label(i)
		found, err := e.step(ctx, s)
		if err != nil {
			e.metrics.RecordRoutineStep(string(s.Action), "error")
			return res, fmt.Errorf("routine %q %s: %w", r.Name, label, err)
		}
		if found {
			res.Executed++
			e.metrics.RecordRoutineStep(string(s.Action), "ok")
			continue
		}

		switch s.Policy() {
		case MissSkip:
			res.Skipped++
			e.metrics.RecordRoutineStep(string(s.Action), "skipped")
			e.logger.Debug("step missed, skipping", zap.String("step", label))
		case MissStop:
			res.Stopped, res.StoppedAt = true, label
			e.metrics.RecordRoutineStep(string(s.Action), "stopped")
			e.logger.Info("step missed, ending iteration", zap.String("routine", r.Name), zap.String("step", label))
			return res, nil
		default:
			e.metrics.RecordRoutineStep(string(s.Action), "failed")
			return res, types.NewOperationFailed("routine %q %s: %v not found", r.Name, label, s.Candidates()).
				WithComponent("routine")
		}
	}
	return res, nil
}

// step runs one step and reports whether its target was found. Steps
// without a vision target always report true.
func (e *Executor) step(ctx context.Context, s Step) (bool, error) {
	if s.IsVision() {
		return e.visionStep(ctx, s)
	}

	in := e.deps.Input
	switch s.Action {
	case ActionKey:
		if s.Hold.IsZero() {
			return true, in.Press(ctx, s.Key)
		}
		return true, in.Hold(ctx, s.Key, jitter.Duration(e.rand, s.Hold))
	case ActionType:
		return true, in.Type(ctx, s.Text)
	case ActionSleep:
		return true, jitter.SleepRange(ctx, e.sleeper, e.rand, s.Duration)
	case ActionTravel:
		route, err := e.route(s.Route)
		if err != nil {
			return false, err
		}
		return true, e.deps.Traveler.TravelRoute(ctx, route, e.deps.Maps)
	case ActionSideStone:
		return true, e.deps.SideStones.OpenSideStone(ctx, s.SideStone)
	}
	return false, types.NewConfigurationError("unknown action %q", s.Action).WithComponent("routine")
}

func (e *Executor) visionStep(ctx context.Context, s Step) (bool, error) {
	region, _ := e.deps.Layout.Region(s.Region)
	opts := vision.Options{
		Region:     region,
		Confidence: s.Confidence,
		Attempts:   s.Attempts,
		Poll:       s.Poll,
		MoveAway:   s.MoveAway,
	}
	needles := make([]*vision.Needle, 0, len(s.Candidates()))
	for _, name := range s.Candidates() {
		n, err := e.deps.Needles.Get(name)
		if err != nil {
			return false, err
		}
		needles = append(needles, n)
	}

	q := e.deps.Query
	switch s.Action {
	case ActionAwait:
		return q.AwaitPresence(ctx, needles[0], opts)
	case ActionClick:
		return q.AwaitAndClick(ctx, needles[0], opts)
	default:
		_, ok, err := q.AwaitAnyAndClick(ctx, needles, opts)
		return ok, err
	}
}

func (e *Executor) route(path string) (*navigation.Route, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.routes[path]; ok {
		return r, nil
	}
	r, err := navigation.LoadRoute(path)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	e.routes[path] = r
	return r, nil
}
