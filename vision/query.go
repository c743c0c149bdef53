package vision

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/internal/metrics"
	"github.com/BaSui01/pixelagent/internal/telemetry"
	"github.com/BaSui01/pixelagent/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// =============================================================================
// 🎯 查询参数与结果
// =============================================================================

// Options 是单次视觉查询的参数。零值字段取 Query 的默认值。
type Options struct {
	// 搜索区域（显示器坐标）
	Region types.Region
	// 接受匹配所需的最低分数 (0, 1]
	Confidence float64
	// 最多截图次数，必须有限
	Attempts int
	// 两次尝试之间的随机等待
	Poll types.Range
	// 点击后把鼠标移开，避免遮挡后续匹配（仅点击类操作）
	MoveAway bool
}

// Match 是一次成功的匹配
type Match struct {
	// 匹配到的矩形（显示器坐标）
	Rect types.Region
	// 相关系数
	Score float64
	// 多候选查询中命中的候选下标
	Variant int
	// 命中的模板名称
	Needle string
}

// Center returns the center of the matched rectangle.
func (m Match) Center() types.Point {
	return m.Rect.Center()
}

// Clicker dispatches a humanized click at a random point inside rect.
type Clicker interface {
	ClickIn(ctx context.Context, rect types.Region, moveAway bool) error
}

// =============================================================================
// 🔍 Query
// =============================================================================

// Query 编排 截图 → 匹配 → 等待 的重试循环。
//
// Misses are reported as a false result, never as an error. Errors are
// reserved for invalid parameters (ConfigurationError), capture failures and
// cancellation.
type Query struct {
	capture  CaptureSource
	matcher  Matcher
	clicker  Clicker
	defaults Options

	sleeper jitter.Sleeper
	rand    jitter.Rand
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// QueryOption 配置 Query
type QueryOption func(*Query)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s jitter.Sleeper) QueryOption {
	return func(q *Query) { q.sleeper = s }
}

// WithRand replaces the random source used for poll intervals.
func WithRand(r jitter.Rand) QueryOption {
	return func(q *Query) { q.rand = r }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) QueryOption {
	return func(q *Query) { q.metrics = c }
}

// WithTracer replaces the component tracer.
func WithTracer(t trace.Tracer) QueryOption {
	return func(q *Query) { q.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) QueryOption {
	return func(q *Query) { q.logger = l }
}

// NewQuery creates a Query. clicker may be nil when no click operation is
// used.
func NewQuery(capture CaptureSource, matcher Matcher, clicker Clicker, defaults Options, opts ...QueryOption) *Query {
	q := &Query{
		capture:  capture,
		matcher:  matcher,
		clicker:  clicker,
		defaults: defaults,
		sleeper:  jitter.RealSleeper{},
		tracer:   telemetry.Tracer("vision"),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.rand == nil {
		q.rand = jitter.NewTimeSeeded()
	}
	if q.logger == nil {
		q.logger = zap.NewNop()
	}
	q.logger = q.logger.With(zap.String("component", "vision"))
	return q
}

// Locate searches for needle and returns the first match scoring at least
// the confidence.
func (q *Query) Locate(ctx context.Context, needle *Needle, opts Options) (Match, bool, error) {
	return q.run(ctx, "locate", []*Needle{needle}, opts)
}

// AwaitPresence reports whether needle appears within the attempt budget.
func (q *Query) AwaitPresence(ctx context.Context, needle *Needle, opts Options) (bool, error) {
	_, ok, err := q.run(ctx, "await_presence", []*Needle{needle}, opts)
	return ok, err
}

// AwaitAndClick waits for needle and clicks a random point inside the match.
func (q *Query) AwaitAndClick(ctx context.Context, needle *Needle, opts Options) (bool, error) {
	m, ok, err := q.run(ctx, "await_and_click", []*Needle{needle}, opts)
	if err != nil || !ok {
		return false, err
	}
	if err := q.click(ctx, m, opts); err != nil {
		return false, err
	}
	return true, nil
}

// LocateAny tests every candidate against the same capture, in order, and
// returns the first that scores at least the confidence. Match.Variant holds
// the index of the winning candidate.
func (q *Query) LocateAny(ctx context.Context, needles []*Needle, opts Options) (Match, bool, error) {
	return q.run(ctx, "locate_any", needles, opts)
}

// AwaitAnyAndClick is LocateAny followed by a click on the winner.
func (q *Query) AwaitAnyAndClick(ctx context.Context, needles []*Needle, opts Options) (Match, bool, error) {
	m, ok, err := q.run(ctx, "await_any_and_click", needles, opts)
	if err != nil || !ok {
		return Match{}, false, err
	}
	if err := q.click(ctx, m, opts); err != nil {
		return Match{}, false, err
	}
	return m, true, nil
}

// =============================================================================
// 🔧 内部实现
// =============================================================================

func (q *Query) click(ctx context.Context, m Match, opts Options) error {
	if q.clicker == nil {
		return types.NewConfigurationError("vision query has no clicker").WithComponent("vision")
	}
	if err := q.clicker.ClickIn(ctx, m.Rect, opts.MoveAway); err != nil {
		return fmt.Errorf("click %s at %s: %w", m.Needle, m.Rect, err)
	}
	return nil
}

// resolve fills zero fields from the defaults and validates the result.
func (q *Query) resolve(opts Options) (Options, error) {
	if opts.Region.Empty() {
		opts.Region = q.defaults.Region
	}
	if opts.Confidence == 0 {
		opts.Confidence = q.defaults.Confidence
	}
	if opts.Attempts == 0 {
		opts.Attempts = q.defaults.Attempts
	}
	if opts.Poll.IsZero() {
		opts.Poll = q.defaults.Poll
	}

	switch {
	case opts.Confidence <= 0 || opts.Confidence > 1:
		return opts, types.NewConfigurationError("confidence %.3f outside (0, 1]", opts.Confidence).WithComponent("vision")
	case opts.Attempts < 1:
		return opts, types.NewConfigurationError("attempts must be at least 1, got %d", opts.Attempts).WithComponent("vision")
	case opts.Region.Empty():
		return opts, types.NewConfigurationError("search region %s has no area", opts.Region).WithComponent("vision")
	}
	if err := opts.Poll.Validate(); err != nil {
		return opts, types.NewConfigurationError("poll interval: %v", err).WithComponent("vision")
	}
	return opts, nil
}

// run is the shared attempt loop. Every attempt captures the region once
// and tests the candidates in order; sleeps happen only between attempts.
func (q *Query) run(ctx context.Context, op string, needles []*Needle, opts Options) (match Match, found bool, err error) {
	if len(needles) == 0 {
		return Match{}, false, types.NewConfigurationError("%s called without needles", op).WithComponent("vision")
	}
	for i, n := range needles {
		if n == nil || n.Image == nil {
			return Match{}, false, types.NewConfigurationError("%s: needle %d is nil", op, i).WithComponent("vision")
		}
	}
	opts, err = q.resolve(opts)
	if err != nil {
		return Match{}, false, err
	}

	ctx, span := q.tracer.Start(ctx, "vision."+op, trace.WithAttributes(
		attribute.String("needle", needles[0].Name),
		attribute.Int("candidates", len(needles)),
		attribute.Float64("confidence", opts.Confidence),
		attribute.Int("attempts", opts.Attempts),
	))
	attempts := 0
	defer func() {
		span.SetAttributes(attribute.Bool("found", found), attribute.Int("captures", attempts))
		telemetry.EndSpan(span, err)
		q.metrics.RecordVisionQuery(op, queryResult(found, err), attempts)
	}()

	fits := make([]bool, len(needles))
	anyFits := false
	for i, n := range needles {
		fits[i] = opts.Region.Fits(n.Width(), n.Height())
		anyFits = anyFits || fits[i]
	}
	if !anyFits {
		q.logger.Debug("region smaller than needle",
			zap.String("needle", needles[0].Name),
			zap.Stringer("region", opts.Region),
		)
		return Match{}, false, nil
	}

	best := math.Inf(-1)
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := jitter.SleepRange(ctx, q.sleeper, q.rand, opts.Poll); err != nil {
				return Match{}, false, err
			}
		}

		attempts++
		img, err := q.capture.Capture(ctx, opts.Region)
		if err != nil {
			if ctx.Err() != nil {
				return Match{}, false, ctx.Err()
			}
			return Match{}, false, types.NewError(types.ErrCaptureFailed,
				fmt.Sprintf("capture %s", opts.Region)).
				WithComponent("vision").
				WithRetryable(true).
				WithCause(err)
		}
		q.metrics.RecordCapture()
		haystack := ToGray(img)

		for i, n := range needles {
			if !fits[i] {
				continue
			}
			loc, score, err := q.matcher.Match(haystack, n.Image)
			if errors.Is(err, ErrNeedleTooLarge) {
				continue
			}
			if err != nil {
				return Match{}, false, fmt.Errorf("match %s: %w", n.Name, err)
			}
			q.metrics.RecordMatchScore(score)
			best = math.Max(best, score)

			if score >= opts.Confidence {
				m := Match{
					Rect:    types.NewRegion(opts.Region.Left+loc.X, opts.Region.Top+loc.Y, n.Width(), n.Height()),
					Score:   score,
					Variant: i,
					Needle:  n.Name,
				}
				q.logger.Debug("needle found",
					zap.String("op", op),
					zap.String("needle", n.Name),
					zap.Stringer("rect", m.Rect),
					zap.Float64("score", score),
					zap.Int("attempt", attempt),
				)
				return m, true, nil
			}
		}
	}

	q.logger.Debug("needle not found",
		zap.String("op", op),
		zap.String("needle", needles[0].Name),
		zap.Int("candidates", len(needles)),
		zap.Float64("best_score", best),
		zap.Float64("confidence", opts.Confidence),
		zap.Int("attempts", opts.Attempts),
	)
	return Match{}, false, nil
}

func queryResult(found bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case found:
		return "found"
	default:
		return "not_found"
	}
}
