package navigation

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/input"
	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/internal/metrics"
	"github.com/BaSui01/pixelagent/internal/telemetry"
	"github.com/BaSui01/pixelagent/types"
	"github.com/BaSui01/pixelagent/vision"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// =============================================================================
// 🧭 Navigator
// =============================================================================

// Clicker 在显示器坐标上点击，可附带修饰键
type Clicker interface {
	ClickAt(ctx context.Context, p types.Point, opts ...input.ClickOption) error
}

// Minimap 描述小地图在显示器上的位置
type Minimap struct {
	// 每次定位时截取的小地图切片
	Slice types.Region
	// 小地图中心（玩家位置）
	Center types.Point
}

// Config Navigator 配置
type Config struct {
	// 每个 waypoint 的默认最大尝试次数
	MaxAttempts int
	// 定位得分低于该值时不点击
	Confidence float64
	// 点击时按住的跑步键
	RunKey string
	// 路线文件未写 arrival / sleep 的 waypoint 使用这两个默认值
	Arrival types.Point
	Sleep   types.Range
}

// ConfigFrom builds the navigator configuration from the loaded section.
func ConfigFrom(c config.NavigationConfig) Config {
	return Config{
		MaxAttempts: c.MaxAttempts,
		Confidence:  c.Confidence,
		RunKey:      c.RunKey,
		Arrival:     c.Tolerance,
		Sleep:       c.Sleep,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return types.NewConfigurationError("navigation max attempts must be >= 1, got %d", c.MaxAttempts).WithComponent("navigation")
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return types.NewConfigurationError("navigation confidence must be in [0, 1], got %v", c.Confidence).WithComponent("navigation")
	}
	return nil
}

// Navigator 通过点击小地图把角色带到参考地图上的 waypoint。
//
// Position is found by matching the live minimap slice inside the static
// reference map; the center of the best match is the agent's map position.
type Navigator struct {
	capture vision.CaptureSource
	matcher vision.Matcher
	clicker Clicker
	minimap Minimap
	config  Config

	sleeper jitter.Sleeper
	rand    jitter.Rand
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// Option 配置 Navigator
type Option func(*Navigator)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s jitter.Sleeper) Option {
	return func(n *Navigator) { n.sleeper = s }
}

// WithRand replaces the random source used for jitter and sleeps.
func WithRand(r jitter.Rand) Option {
	return func(n *Navigator) { n.rand = r }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(n *Navigator) { n.metrics = c }
}

// WithTracer replaces the component tracer.
func WithTracer(t trace.Tracer) Option {
	return func(n *Navigator) { n.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Navigator) { n.logger = l }
}

// NewNavigator creates a Navigator.
func NewNavigator(capture vision.CaptureSource, matcher vision.Matcher, clicker Clicker, minimap Minimap, config Config, opts ...Option) *Navigator {
	n := &Navigator{
		capture: capture,
		matcher: matcher,
		clicker: clicker,
		minimap: minimap,
		config:  config,
		sleeper: jitter.RealSleeper{},
		tracer:  telemetry.Tracer("navigation"),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.rand == nil {
		n.rand = jitter.NewTimeSeeded()
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	n.logger = n.logger.With(zap.String("component", "navigation"))
	return n
}

// Localize returns the agent's position on reference and the match score.
func (n *Navigator) Localize(ctx context.Context, reference *image.Gray) (types.Point, float64, error) {
	img, err := n.capture.Capture(ctx, n.minimap.Slice)
	if err != nil {
		if ctx.Err() != nil {
			return types.Point{}, 0, ctx.Err()
		}
		return types.Point{}, 0, types.NewError(types.ErrCaptureFailed,
			fmt.Sprintf("capture minimap %s", n.minimap.Slice)).
			WithComponent("navigation").
			WithRetryable(true).
			WithCause(err)
	}
	n.metrics.RecordCapture()

	slice := vision.ToGray(img)
	loc, score, err := n.matcher.Match(reference, slice)
	if err != nil {
		return types.Point{}, 0, types.NewConfigurationError("minimap slice does not fit the reference map").
			WithComponent("navigation").
			WithCause(err)
	}
	n.metrics.RecordLocalize(score)

	size := slice.Rect.Size()
	return types.Point{X: loc.X + size.X/2, Y: loc.Y + size.Y/2}, score, nil
}

// Travel 依次走到每个 waypoint。
//
// maxAttempts bounds the actions spent on each waypoint; 0 uses the configured
// default. A waypoint that is still out of reach after its budget fails the
// whole call with an OperationFailed error. Logging out on failure is left to
// the caller.
func (n *Navigator) Travel(ctx context.Context, waypoints []Waypoint, reference *vision.Needle, maxAttempts int) (err error) {
	if maxAttempts == 0 {
		maxAttempts = n.config.MaxAttempts
	}
	if maxAttempts < 1 {
		return types.NewConfigurationError("max attempts per waypoint must be >= 1, got %d", maxAttempts).WithComponent("navigation")
	}
	if reference == nil || reference.Image == nil {
		return types.NewConfigurationError("travel without a reference map").WithComponent("navigation")
	}
	for i, w := range waypoints {
		if verr := w.Validate(); verr != nil {
			return types.NewConfigurationError("waypoint %d", i).WithComponent("navigation").WithCause(verr)
		}
	}

	ctx, span := n.tracer.Start(ctx, "navigation.travel", trace.WithAttributes(
		attribute.String("map", reference.Name),
		attribute.Int("waypoints", len(waypoints)),
		attribute.Int("max_attempts", maxAttempts),
	))
	start := time.Now()
	defer func() {
		telemetry.EndSpan(span, err)
		n.metrics.RecordTravel(travelResult(err), time.Since(start))
	}()

	for i, w := range waypoints {
		clicks, werr := n.reach(ctx, reference.Image, w, maxAttempts)
		if werr != nil {
			n.logger.Warn("could not reach waypoint",
				zap.Int("waypoint", i),
				zap.Stringer("target", w.Target),
				zap.Error(werr))
			return fmt.Errorf("waypoint %d %s: %w", i, w.Target, werr)
		}
		n.metrics.RecordWaypoint(clicks)
		span.AddEvent("waypoint_reached", trace.WithAttributes(
			attribute.Int("index", i),
			attribute.Int("clicks", clicks),
		))
		n.logger.Debug("waypoint reached", zap.Int("waypoint", i), zap.Int("clicks", clicks))
	}
	return nil
}

// TravelRoute loads the route's reference map from store and travels it.
func (n *Navigator) TravelRoute(ctx context.Context, route *Route, store *vision.NeedleStore) error {
	if err := route.Validate(); err != nil {
		return err
	}
	reference, err := store.LoadReference(route.Map)
	if err != nil {
		return err
	}
	return n.Travel(ctx, route.WithDefaults(n.config.Arrival, n.config.Sleep).Waypoints, reference, route.MaxAttempts)
}

// reach drives the agent to one waypoint and returns the number of clicks.
func (n *Navigator) reach(ctx context.Context, reference *image.Gray, w Waypoint, maxAttempts int) (int, error) {
	clicks := 0
	for attempt := 0; ; attempt++ {
		pos, score, err := n.Localize(ctx, reference)
		switch {
		case err == nil:
		case types.IsRetryable(err):
			if attempt >= maxAttempts {
				return clicks, types.NewOperationFailed("waypoint %s: minimap capture kept failing", w.Target).
					WithComponent("navigation").
					WithCause(err)
			}
			n.logger.Debug("localize failed", zap.Int("attempt", attempt), zap.Error(err))
			if err := jitter.SleepRange(ctx, n.sleeper, n.rand, w.Sleep); err != nil {
				return clicks, err
			}
			continue
		default:
			return clicks, err
		}

		delta := w.Target.Sub(pos)
		if score >= n.config.Confidence && delta.Within(w.Arrival) {
			return clicks, nil
		}
		if attempt >= maxAttempts {
			return clicks, types.NewOperationFailed("waypoint %s not reached after %d attempts", w.Target, maxAttempts).
				WithComponent("navigation")
		}

		if score < n.config.Confidence {
			n.logger.Debug("minimap not localized",
				zap.Float64("score", score),
				zap.Float64("confidence", n.config.Confidence),
				zap.Int("attempt", attempt))
		} else {
			target := ClickPoint(n.minimap.Center, delta, drawJitter(n.rand, w.Jitter))
			n.logger.Debug("minimap click",
				zap.Stringer("position", pos),
				zap.Stringer("delta", delta),
				zap.Stringer("click", target),
				zap.Int("attempt", attempt))
			if err := n.clicker.ClickAt(ctx, target, input.WithModifier(n.config.RunKey)); err != nil {
				return clicks, fmt.Errorf("minimap click: %w", err)
			}
			clicks++
		}

		if err := jitter.SleepRange(ctx, n.sleeper, n.rand, w.Sleep); err != nil {
			return clicks, err
		}
	}
}

func travelResult(err error) string {
	if err == nil {
		return "arrived"
	}
	if types.IsErrorCode(err, types.ErrOperationFailed) {
		return "failed"
	}
	return "error"
}
