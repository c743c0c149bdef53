package input

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/internal/metrics"
	"github.com/BaSui01/pixelagent/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// =============================================================================
// ⚙️ 配置
// =============================================================================

// Config 拟人化输入参数
type Config struct {
	PreClick     types.Range
	PostClick    types.Range
	MoveDuration types.Range
	KeyDelay     types.Range
	// 鼠标按下到抬起之间的停顿
	ClickHold types.Range
	// 每秒最多动作数，<= 0 表示不限速
	ActionsPerSecond float64
	Burst            int
	// 点击后鼠标移开的目标区域
	MoveAway types.Region
}

// DefaultConfig 返回默认输入参数
func DefaultConfig() Config {
	return FromConfig(config.DefaultInputConfig(), types.Region{})
}

// FromConfig builds the humanizer parameters from the loaded configuration.
// moveAway is usually the game screen region.
func FromConfig(c config.InputConfig, moveAway types.Region) Config {
	return Config{
		PreClick:         c.PreClick,
		PostClick:        c.PostClick,
		MoveDuration:     c.MoveDuration,
		KeyDelay:         c.KeyDelay,
		ClickHold:        types.Millis(40, 110),
		ActionsPerSecond: c.ActionsPerSecond,
		Burst:            c.Burst,
		MoveAway:         moveAway,
	}
}

// =============================================================================
// 🖱️ Humanizer
// =============================================================================

// Humanizer 在 Driver 之上加入随机延迟、随机落点和限速。
//
// Every public method is one atomic input sequence. Sequences never
// interleave and modifier keys pressed by a sequence are always released,
// even when the context is cancelled halfway.
type Humanizer struct {
	driver  Driver
	cfg     Config
	limiter *rate.Limiter

	mu      sync.Mutex
	sleeper jitter.Sleeper
	rand    jitter.Rand
	metrics *metrics.Collector
	logger  *zap.Logger
}

// Option 配置 Humanizer
type Option func(*Humanizer)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s jitter.Sleeper) Option {
	return func(h *Humanizer) { h.sleeper = s }
}

// WithRand replaces the random source.
func WithRand(r jitter.Rand) Option {
	return func(h *Humanizer) { h.rand = r }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(h *Humanizer) { h.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Humanizer) { h.logger = l }
}

// NewHumanizer wraps driver.
func NewHumanizer(driver Driver, cfg Config, opts ...Option) *Humanizer {
	h := &Humanizer{
		driver:  driver,
		cfg:     cfg,
		sleeper: jitter.RealSleeper{},
	}
	for _, opt := range opts {
		opt(h)
	}
	if cfg.ActionsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), burst)
	} else {
		h.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if h.rand == nil {
		h.rand = jitter.NewTimeSeeded()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	h.logger = h.logger.With(zap.String("component", "input"))
	return h
}

// ClickOption 单次点击的可选参数
type ClickOption func(*clickSpec)

type clickSpec struct {
	button    Button
	modifiers []string
	moveAway  bool
}

// WithButton selects the mouse button (left by default).
func WithButton(b Button) ClickOption {
	return func(s *clickSpec) { s.button = b }
}

// WithModifier holds key down across the click.
func WithModifier(key string) ClickOption {
	return func(s *clickSpec) {
		if key != "" {
			s.modifiers = append(s.modifiers, key)
		}
	}
}

// WithMoveAway moves the pointer into the move-away region after the click.
func WithMoveAway() ClickOption {
	return func(s *clickSpec) { s.moveAway = true }
}

// ClickAt 在指定的显示器坐标点击
func (h *Humanizer) ClickAt(ctx context.Context, p types.Point, opts ...ClickOption) error {
	spec := clickSpec{button: ButtonLeft}
	for _, opt := range opts {
		opt(&spec)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.wait(ctx); err != nil {
		return err
	}
	if err := h.sleep(ctx, h.cfg.PreClick); err != nil {
		return err
	}
	if err := h.driver.Move(ctx, p, jitter.Duration(h.rand, h.cfg.MoveDuration)); err != nil {
		return inputError("move", err)
	}
	if err := h.pressAround(ctx, spec); err != nil {
		return err
	}
	h.metrics.RecordInput("click")
	h.logger.Debug("click",
		zap.Stringer("point", p),
		zap.String("button", string(spec.button)),
		zap.Strings("modifiers", spec.modifiers))

	if err := h.sleep(ctx, h.cfg.PostClick); err != nil {
		return err
	}
	if spec.moveAway {
		return h.moveAway(ctx)
	}
	return nil
}

// ClickIn clicks a random point inside rect. It satisfies vision.Clicker.
func (h *Humanizer) ClickIn(ctx context.Context, rect types.Region, moveAway bool) error {
	opts := []ClickOption{}
	if moveAway {
		opts = append(opts, WithMoveAway())
	}
	return h.ClickAt(ctx, h.PointIn(rect), opts...)
}

// PointIn draws a point inside rect, biased away from the border.
func (h *Humanizer) PointIn(rect types.Region) types.Point {
	mx, my := rect.Width/5, rect.Height/5
	return types.Point{
		X: jitter.IntBetween(h.rand, rect.Left+mx, rect.Left+rect.Width-1-mx),
		Y: jitter.IntBetween(h.rand, rect.Top+my, rect.Top+rect.Height-1-my),
	}
}

// Press 按下并松开一个键
func (h *Humanizer) Press(ctx context.Context, key string) error {
	return h.Hold(ctx, key, jitter.Duration(h.rand, h.cfg.KeyDelay))
}

// Hold 按住一个键一段时间（例如转动镜头）
func (h *Humanizer) Hold(ctx context.Context, key string, d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.wait(ctx); err != nil {
		return err
	}
	if err := h.driver.KeyDown(ctx, key); err != nil {
		return inputError("key down "+key, err)
	}
	sleepErr := h.sleeper.Sleep(ctx, d)
	if err := h.driver.KeyUp(context.WithoutCancel(ctx), key); err != nil {
		return inputError("key up "+key, err)
	}
	h.metrics.RecordInput("key")
	return sleepErr
}

// Type 逐字输入文本，每个字符之间随机停顿
func (h *Humanizer) Type(ctx context.Context, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, ch := range []rune(text) {
		if i > 0 {
			if err := h.sleep(ctx, h.cfg.KeyDelay); err != nil {
				return err
			}
		}
		if err := h.driver.Type(ctx, string(ch)); err != nil {
			return inputError("type", err)
		}
	}
	h.metrics.RecordInput("type")
	return nil
}

// MoveAway 把鼠标移到 move-away 区域内的随机位置
func (h *Humanizer) MoveAway(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.moveAway(ctx)
}

// =============================================================================
// 🔧 内部实现
// =============================================================================

// pressAround holds the modifiers, clicks, and releases them in reverse.
func (h *Humanizer) pressAround(ctx context.Context, spec clickSpec) (err error) {
	held := make([]string, 0, len(spec.modifiers))
	defer func() {
		release := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if upErr := h.driver.KeyUp(release, held[i]); upErr != nil && err == nil {
				err = inputError("key up "+held[i], upErr)
			}
		}
	}()

	for _, key := range spec.modifiers {
		if err := h.driver.KeyDown(ctx, key); err != nil {
			return inputError("key down "+key, err)
		}
		held = append(held, key)
	}
	if err := h.driver.MouseDown(ctx, spec.button); err != nil {
		return inputError("mouse down", err)
	}
	holdErr := h.sleep(ctx, h.cfg.ClickHold)
	if err := h.driver.MouseUp(context.WithoutCancel(ctx), spec.button); err != nil {
		return inputError("mouse up", err)
	}
	return holdErr
}

func (h *Humanizer) moveAway(ctx context.Context) error {
	if h.cfg.MoveAway.Empty() {
		return nil
	}
	p := h.PointIn(h.cfg.MoveAway)
	if err := h.driver.Move(ctx, p, jitter.Duration(h.rand, h.cfg.MoveDuration)); err != nil {
		return inputError("move away", err)
	}
	h.metrics.RecordInput("move")
	return nil
}

func (h *Humanizer) wait(ctx context.Context) error {
	return h.limiter.Wait(ctx)
}

func (h *Humanizer) sleep(ctx context.Context, rg types.Range) error {
	return jitter.SleepRange(ctx, h.sleeper, h.rand, rg)
}

func inputError(action string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return types.NewError(types.ErrInputFailed, fmt.Sprintf("%s failed", action)).
		WithCause(err).
		WithComponent("input")
}
