package client

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/types"
	"github.com/BaSui01/pixelagent/vision"
	"go.uber.org/zap"
)

// =============================================================================
// 🎮 Client
// =============================================================================

// Input 是界面操作需要的输入能力，input.Humanizer 满足该接口
type Input interface {
	vision.Clicker
	Press(ctx context.Context, key string) error
	Hold(ctx context.Context, key string, d time.Duration) error
	Type(ctx context.Context, text string) error
}

// State 客户端登录状态
type State string

const (
	StateLoggedIn  State = "logged_in"
	StateLoggedOut State = "logged_out"
	StateUnknown   State = "unknown"
)

const (
	// 登录界面、小地图标记等常规界面元素
	uiConfidence        = 0.95
	sideStoneConfidence = 0.98
	sideStoneTries      = 5
)

// Client 在固定布局上执行界面级操作
type Client struct {
	query   *vision.Query
	needles *vision.NeedleStore
	layout  Layout
	input   Input

	sleeper jitter.Sleeper
	rand    jitter.Rand
	logger  *zap.Logger
}

// Option 配置 Client 与 Account
type Option func(*options)

type options struct {
	sleeper jitter.Sleeper
	rand    jitter.Rand
	logger  *zap.Logger
}

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s jitter.Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

// WithRand replaces the random source.
func WithRand(r jitter.Rand) Option {
	return func(o *options) { o.rand = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{sleeper: jitter.RealSleeper{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rand == nil {
		o.rand = jitter.NewTimeSeeded()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// New creates a Client.
func New(query *vision.Query, needles *vision.NeedleStore, layout Layout, in Input, opts ...Option) *Client {
	o := buildOptions(opts)
	return &Client{
		query:   query,
		needles: needles,
		layout:  layout,
		input:   in,
		sleeper: o.sleeper,
		rand:    o.rand,
		logger:  o.logger.With(zap.String("component", "client")),
	}
}

// Orient 识别客户端当前是否已登录。
//
// The logged-in minimap marker and the logged-out login screen are tested
// against one capture of the client region. Neither matching is reported as
// StateUnknown, not as an error.
func (c *Client) Orient(ctx context.Context) (State, vision.Match, error) {
	candidates, err := c.load(NeedleLoggedIn, NeedleLoggedOut)
	if err != nil {
		return StateUnknown, vision.Match{}, err
	}
	m, ok, err := c.query.LocateAny(ctx, candidates, vision.Options{
		Region: c.layout.Client, Confidence: uiConfidence, Attempts: 1,
	})
	if err != nil || !ok {
		return StateUnknown, vision.Match{}, err
	}
	state := StateLoggedIn
	if m.Variant == 1 {
		state = StateLoggedOut
	}
	c.logger.Debug("oriented", zap.String("state", string(state)), zap.Stringer("rect", m.Rect))
	return state, m, nil
}

// OpenSideStone 打开一个侧边栏标签页，已经打开时直接返回。
func (c *Client) OpenSideStone(ctx context.Context, name string) error {
	if err := validSideStone(name); err != nil {
		return err
	}
	needles, err := c.load(SideStoneOpen(name), SideStoneClosed(name), NeedleClose)
	if err != nil {
		return err
	}
	open, closed, closeButton := needles[0], needles[1], needles[2]
	region := c.layout.SideStones

	isOpen, err := c.query.AwaitPresence(ctx, open, vision.Options{
		Region: region, Confidence: sideStoneConfidence, Attempts: 1,
	})
	if err != nil {
		return err
	}
	if isOpen {
		c.logger.Debug("side stone already open", zap.String("side_stone", name))
		return nil
	}

	for try := 1; try <= sideStoneTries; try++ {
		if _, err := c.query.AwaitAndClick(ctx, closed, vision.Options{
			Region: region, Confidence: uiConfidence, Attempts: 3, Poll: types.Millis(100, 300), MoveAway: true,
		}); err != nil {
			return err
		}
		isOpen, err := c.query.AwaitPresence(ctx, open, vision.Options{
			Region: region, Confidence: sideStoneConfidence, Attempts: 3, Poll: types.Millis(100, 200),
		})
		if err != nil {
			return err
		}
		if isOpen {
			c.logger.Info("side stone opened", zap.String("side_stone", name), zap.Int("tries", try))
			return nil
		}
		// 可能有窗口挡住侧边栏
		if _, err := c.query.AwaitAndClick(ctx, closeButton, vision.Options{
			Region: c.layout.GameScreen, Confidence: uiConfidence, Attempts: 1,
		}); err != nil {
			return err
		}
	}
	return types.NewOperationFailed("could not open side stone %q after %d tries", name, sideStoneTries).
		WithComponent("client")
}

func (c *Client) load(names ...string) ([]*vision.Needle, error) {
	out := make([]*vision.Needle, len(names))
	for i, name := range names {
		n, err := c.needles.Get(name)
		if err != nil {
			return nil, fmt.Errorf("load needle %s: %w", name, err)
		}
		out[i] = n
	}
	return out, nil
}

func (c *Client) sleep(ctx context.Context, rg types.Range) error {
	return jitter.SleepRange(ctx, c.sleeper, c.rand, rg)
}
