package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/internal/metrics"
	"github.com/BaSui01/pixelagent/ledger"
	"github.com/BaSui01/pixelagent/types"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"go.uber.org/zap"
)

// ErrFinished is returned by Tick once the session budget is exhausted.
var ErrFinished = errors.New("scheduler: all sessions completed")

// Logouter 是登出协作者，已登出时必须直接返回成功
type Logouter interface {
	Logout(ctx context.Context) error
}

// Config 调度器参数
type Config struct {
	MinSession    time.Duration
	MaxSession    time.Duration
	MinBreak      time.Duration
	MaxBreak      time.Duration
	TotalSessions int
	// 检查点 1-4 的掷骰面数
	RollChance int
	// 检查点 5 的掷骰面数，只能为 1（必定休息）
	ForcedChance int
}

// ConfigFrom extracts the scheduler parameters from the session config.
func ConfigFrom(c config.SessionConfig) Config {
	return Config{
		MinSession:    c.MinSession,
		MaxSession:    c.MaxSession,
		MinBreak:      c.MinBreak,
		MaxBreak:      c.MaxBreak,
		TotalSessions: c.TotalSessions,
		RollChance:    c.RollChance,
		ForcedChance:  c.ForcedChance,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.MinSession <= 0 || c.MinSession >= c.MaxSession:
		return types.NewConfigurationError("session duration range %s..%s is invalid", c.MinSession, c.MaxSession)
	case c.MinBreak < 0 || c.MinBreak > c.MaxBreak:
		return types.NewConfigurationError("break range %s..%s is invalid", c.MinBreak, c.MaxBreak)
	case c.TotalSessions < 1:
		return types.NewConfigurationError("total sessions must be >= 1, got %d", c.TotalSessions)
	case c.RollChance < 1:
		return types.NewConfigurationError("roll chance must be >= 1, got %d", c.RollChance)
	case c.ForcedChance != 1:
		return types.NewConfigurationError("forced chance must be 1, got %d", c.ForcedChance)
	}
	return nil
}

// OutcomeKind Tick 的结果类型
type OutcomeKind string

const (
	// OutcomeIdle 没有到期的检查点
	OutcomeIdle OutcomeKind = "idle"
	// OutcomeStay 掷骰未通过，继续当前会话
	OutcomeStay OutcomeKind = "stay"
	// OutcomeBreak 已登出并休息完毕，调用方需要重新登录
	OutcomeBreak OutcomeKind = "break"
	// OutcomeFinished 会话预算用完
	OutcomeFinished OutcomeKind = "finished"
)

// Outcome 描述一次 Tick 做了什么
type Outcome struct {
	Kind OutcomeKind
	// 被评估或下一个待评估的检查点 (1-5)
	Checkpoint int
	Roll       int
	Forced     bool
	Break      time.Duration
	// 下一个待评估检查点的时间
	Next time.Time
}

// =============================================================================
// ⏱️ Scheduler
// =============================================================================

// Scheduler 在五个检查点上掷骰决定何时登出休息。
type Scheduler struct {
	config Config
	logout Logouter
	ledger ledger.Store

	sleeper jitter.Sleeper
	rand    jitter.Rand
	exit    func(code int)
	metrics *metrics.Collector
	logger  *zap.Logger
}

// Option 配置 Scheduler
type Option func(*Scheduler)

// WithSleeper replaces the wall-clock sleeper used for breaks.
func WithSleeper(s jitter.Sleeper) Option {
	return func(sc *Scheduler) { sc.sleeper = s }
}

// WithRand replaces the random source used for rolls and break lengths.
func WithRand(r jitter.Rand) Option {
	return func(sc *Scheduler) { sc.rand = r }
}

// WithLedger records every break in store.
func WithLedger(store ledger.Store) Option {
	return func(sc *Scheduler) { sc.ledger = store }
}

// WithExit replaces os.Exit, called with 0 once the last session completes.
func WithExit(fn func(code int)) Option {
	return func(sc *Scheduler) { sc.exit = fn }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(sc *Scheduler) { sc.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(sc *Scheduler) { sc.logger = l }
}

// New creates a Scheduler.
func New(cfg Config, logout Logouter, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logout == nil {
		return nil, types.NewConfigurationError("scheduler needs a logout collaborator")
	}
	s := &Scheduler{
		config:  cfg,
		logout:  logout,
		sleeper: jitter.RealSleeper{},
		exit:    os.Exit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ledger == nil {
		s.ledger = ledger.NewMemoryStore()
	}
	if s.rand == nil {
		s.rand = jitter.NewTimeSeeded()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("component", "scheduler"))
	return s, nil
}

// Start returns the state of a fresh run whose first session begins at now.
func (s *Scheduler) Start(now time.Time) State {
	st := reseed(State{Total: s.config.TotalSessions}, now, s.config.MinSession, s.config.MaxSession)
	s.logger.Info("session started",
		zap.Int("session", st.Completed+1),
		zap.Int("total", st.Total),
		zap.Time("first_checkpoint", st.Checkpoints[0].At),
		zap.Time("last_checkpoint", st.Checkpoints[NumCheckpoints-1].At))
	return st
}

// Tick evaluates at most one checkpoint.
//
// The first unchecked checkpoint at or before now is marked checked and
// rolled; checkpoints 1-4 use RollChance and checkpoint 5 always passes.
// A passing roll logs out, counts the session and then either terminates the
// process (budget exhausted) or blocks for a random break and reseeds the
// checkpoints from the end of the break.
func (s *Scheduler) Tick(ctx context.Context, st State, now time.Time) (State, Outcome, error) {
	if st.Done {
		return st, Outcome{Kind: OutcomeFinished}, ErrFinished
	}

	idx := st.due(now)
	if idx < 0 {
		out := Outcome{Kind: OutcomeIdle}
		if next := st.Pending(); next >= 0 {
			out.Checkpoint = next + 1
			out.Next = st.Checkpoints[next].At
			s.logger.Info("checkpoint pending",
				zap.Int("checkpoint", out.Checkpoint),
				zap.Time("at", out.Next),
				zap.String("eta", durafmt.Parse(out.Next.Sub(now)).LimitFirstN(2).String()))
		}
		return st, out, nil
	}

	forced := idx == NumCheckpoints-1
	chance := s.config.RollChance
	if forced {
		chance = s.config.ForcedChance
	}
	passed, roll := jitter.Roll(s.rand, chance)
	s.metrics.RecordRoll(idx+1, passed)
	s.logger.Info("checkpoint rolled",
		zap.Int("checkpoint", idx+1),
		zap.Int("roll", roll),
		zap.Int("chance", chance),
		zap.Bool("break", passed))

	st.Checkpoints[idx].Checked = true
	out := Outcome{Kind: OutcomeStay, Checkpoint: idx + 1, Roll: roll, Forced: forced}
	if !passed {
		if next := st.Pending(); next >= 0 {
			out.Next = st.Checkpoints[next].At
		}
		return st, out, nil
	}
	return s.takeBreak(ctx, st, out, now)
}

// takeBreak logs out, counts the session and rests.
func (s *Scheduler) takeBreak(ctx context.Context, st State, out Outcome, now time.Time) (State, Outcome, error) {
	if err := s.logout.Logout(ctx); err != nil {
		return st, out, fmt.Errorf("logout at checkpoint %d: %w", out.Checkpoint, err)
	}

	st.Completed++
	s.metrics.RecordSession(st.Completed)
	final := st.Completed >= st.Total

	if !final {
		out.Break = jitter.Duration(s.rand, types.Between(s.config.MinBreak, s.config.MaxBreak))
	}
	s.record(ctx, st, out, now, final)

	if final {
		s.logger.Info("final session completed",
			zap.Int("completed", st.Completed),
			zap.Int("total", st.Total),
			zap.String("ran_for", durafmt.Parse(now.Sub(st.SessionStart)).LimitFirstN(2).String()))
		st.Done = true
		out.Kind = OutcomeFinished
		s.exit(0)
		return st, out, nil
	}

	until := now.Add(out.Break)
	s.logger.Info("taking a break",
		zap.Int("completed", st.Completed),
		zap.Int("total", st.Total),
		zap.String("duration", durafmt.Parse(out.Break).LimitFirstN(2).String()),
		zap.String("until", until.Format(time.Kitchen)),
		zap.String("resumes", humanize.RelTime(until, now, "ago", "from now")))
	s.metrics.RecordBreak(out.Break)

	st = reseed(st, until, s.config.MinSession, s.config.MaxSession)
	out.Kind = OutcomeBreak
	out.Next = st.Checkpoints[0].At
	if err := s.sleeper.Sleep(ctx, out.Break); err != nil {
		return st, out, err
	}
	return st, out, nil
}

// record appends the break to the ledger; failures are logged only.
func (s *Scheduler) record(ctx context.Context, st State, out Outcome, now time.Time, final bool) {
	rec := &ledger.Record{
		Session:     st.Completed,
		Total:       st.Total,
		Checkpoint:  out.Checkpoint,
		Forced:      out.Forced,
		Roll:        out.Roll,
		LoggedOutAt: now,
		Break:       out.Break,
		Final:       final,
	}
	if err := s.ledger.Append(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to record break", zap.Error(err))
	}
}

// Describe renders a schedule for display.
func Describe(st State, now time.Time) []string {
	lines := make([]string, 0, NumCheckpoints)
	for i, cp := range st.Checkpoints {
		mark := " "
		if cp.Checked {
			mark = "x"
		}
		lines = append(lines, fmt.Sprintf("[%s] checkpoint %d  %s  (%s)",
			mark, i+1, cp.At.Format(time.DateTime), humanize.RelTime(cp.At, now, "ago", "from now")))
	}
	return lines
}
