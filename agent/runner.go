package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/routine"
	"github.com/BaSui01/pixelagent/scheduler"
	"github.com/BaSui01/pixelagent/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🤖 协作者接口
// =============================================================================

// Account 登录登出，*client.Account 满足该接口
type Account interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
}

// RoutineRunner 执行一轮例程，*routine.Executor 满足该接口
type RoutineRunner interface {
	Run(ctx context.Context, r *routine.Routine) (routine.Result, error)
}

// Scheduler 决定何时休息，*scheduler.Scheduler 满足该接口
type Scheduler interface {
	Start(now time.Time) scheduler.State
	Tick(ctx context.Context, st scheduler.State, now time.Time) (scheduler.State, scheduler.Outcome, error)
}

// FatalPolicy 会话级致命错误的处理方式
type FatalPolicy string

const (
	// FatalLogout 先安全登出再停止
	FatalLogout FatalPolicy = "logout"
	// FatalCrash 直接停止，不做任何界面操作
	FatalCrash FatalPolicy = "crash"
)

// =============================================================================
// ⚙️ 配置
// =============================================================================

// Config 控制循环配置
type Config struct {
	LoginOnStart bool
	OnFatal      FatalPolicy
	// 最大迭代次数，0 表示直到会话预算用完
	MaxIterations int
	// 两次迭代之间的随机等待
	Pause types.Range
}

// ConfigFrom builds the runner configuration from the loaded sections.
func ConfigFrom(s config.SessionConfig, a config.AgentConfig) Config {
	return Config{
		LoginOnStart:  s.LoginOnStart,
		OnFatal:       FatalPolicy(s.OnFatal),
		MaxIterations: a.MaxIterations,
		Pause:         a.Pause,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.OnFatal {
	case FatalLogout, FatalCrash:
	default:
		return types.NewConfigurationError("on_fatal must be logout or crash, got %q", c.OnFatal).WithComponent("agent")
	}
	if c.MaxIterations < 0 {
		return types.NewConfigurationError("max_iterations must be >= 0, got %d", c.MaxIterations).WithComponent("agent")
	}
	if err := c.Pause.Validate(); err != nil {
		return types.NewConfigurationError("pause: %v", err).WithComponent("agent")
	}
	return nil
}

// =============================================================================
// 🏃 Runner
// =============================================================================

// Report 一次 Run 的统计
type Report struct {
	Iterations int `json:"iterations"`
	Breaks     int `json:"breaks"`
	// 因 on_miss: stop 提前结束的迭代数
	Stopped int `json:"stopped"`
	// 最后的调度状态
	Schedule scheduler.State `json:"schedule"`
	Finished bool            `json:"finished"`
}

// Runner 是控制循环：登录 → 反复执行例程 → 每轮之后让调度器掷骰。
//
// The runner is the only owner of the scheduler state; it passes the state
// into every Tick and keeps the returned value.
type Runner struct {
	account   Account
	executor  RoutineRunner
	routine   *routine.Routine
	scheduler Scheduler
	cfg       Config

	mu    sync.RWMutex
	state State
	last  Report

	clock   jitter.Clock
	sleeper jitter.Sleeper
	rand    jitter.Rand
	logger  *zap.Logger
}

// Option 配置 Runner
type Option func(*Runner)

// WithClock replaces the wall clock used for scheduler ticks.
func WithClock(c jitter.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s jitter.Sleeper) Option {
	return func(r *Runner) { r.sleeper = s }
}

// WithRand replaces the random source.
func WithRand(rnd jitter.Rand) Option {
	return func(r *Runner) { r.rand = rnd }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner.
func NewRunner(account Account, executor RoutineRunner, rt *routine.Routine, sched Scheduler, cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if account == nil || executor == nil || rt == nil || sched == nil {
		return nil, types.NewConfigurationError("runner needs an account, an executor, a routine and a scheduler").WithComponent("agent")
	}
	r := &Runner{
		account:   account,
		executor:  executor,
		routine:   rt,
		scheduler: sched,
		cfg:       cfg,
		state:     StateIdle,
		clock:     jitter.SystemClock{},
		sleeper:   jitter.RealSleeper{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rand == nil {
		r.rand = jitter.NewTimeSeeded()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.With(zap.String("component", "agent"), zap.String("routine", rt.Name))
	return r, nil
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Status 是 Runner 的只读快照
type Status struct {
	State  State  `json:"state"`
	Report Report `json:"report"`
}

// Status returns the lifecycle state and the counters of the current or
// last run. Safe to call from another goroutine.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Status{State: r.state, Report: r.last}
}

func (r *Runner) publish(rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = rep
}

// Run 运行控制循环，直到会话预算用完、达到迭代上限、出错或 ctx 取消。
//
// A session-fatal error (OperationFailed, ConfigurationError) is handled
// according to OnFatal: logout performs a best-effort safety logout before
// returning the error, crash returns it untouched. Retryable errors such as
// capture failures only cost the current iteration.
func (r *Runner) Run(ctx context.Context) (rep Report, err error) {
	if err := r.begin(); err != nil {
		return Report{}, err
	}
	defer func() {
		r.publish(rep)
		switch {
		case err != nil:
			r.setState(StateFailed)
		default:
			r.setState(StateCompleted)
		}
	}()

	st := r.scheduler.Start(r.clock.Now())
	rep.Schedule = st
	r.publish(rep)
	r.logger.Info("agent started",
		zap.Int("sessions", st.Total),
		zap.Time("first_checkpoint", st.Checkpoints[0].At))

	if r.cfg.LoginOnStart {
		if err := r.login(ctx); err != nil {
			return rep, r.fatal(ctx, err)
		}
	}
	r.setState(StateRunning)

	for i := 1; r.cfg.MaxIterations == 0 || i <= r.cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		res, err := r.executor.Run(ctx, r.routine)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return rep, ctx.Err()
		case types.IsRetryable(err):
			r.logger.Warn("iteration failed, retrying", zap.Int("iteration", i), zap.Error(err))
		default:
			return rep, r.fatal(ctx, err)
		}
		rep.Iterations++
		if res.Stopped {
			rep.Stopped++
		}

		var out scheduler.Outcome
		st, out, err = r.scheduler.Tick(ctx, st, r.clock.Now())
		rep.Schedule = st
		r.publish(rep)
		if errors.Is(err, scheduler.ErrFinished) {
			rep.Finished = true
			return rep, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			return rep, r.fatal(ctx, err)
		}

		switch out.Kind {
		case scheduler.OutcomeFinished:
			rep.Finished = true
			r.logger.Info("all sessions completed", zap.Int("iterations", rep.Iterations))
			return rep, nil
		case scheduler.OutcomeBreak:
			rep.Breaks++
			r.setState(StateOnBreak)
			if err := r.login(ctx); err != nil {
				return rep, r.fatal(ctx, err)
			}
			r.setState(StateRunning)
		}

		if err := jitter.SleepRange(ctx, r.sleeper, r.rand, r.cfg.Pause); err != nil {
			return rep, err
		}
	}

	r.logger.Info("iteration limit reached", zap.Int("iterations", rep.Iterations))
	return rep, nil
}

func (r *Runner) login(ctx context.Context) error {
	r.setState(StateLoggingIn)
	if err := r.account.Login(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// fatal applies the fatal policy to err and returns the error to surface.
func (r *Runner) fatal(ctx context.Context, err error) error {
	r.logger.Error("session-fatal error", zap.Error(err), zap.String("policy", string(r.cfg.OnFatal)))
	if r.cfg.OnFatal != FatalLogout {
		return err
	}
	if logoutErr := r.account.Logout(context.WithoutCancel(ctx)); logoutErr != nil {
		r.logger.Error("safety logout failed", zap.Error(logoutErr))
		return errors.Join(err, fmt.Errorf("safety logout: %w", logoutErr))
	}
	r.logger.Info("safety logout done")
	return err
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == s {
		return
	}
	if !CanTransition(r.state, s) {
		r.logger.Warn("unexpected state transition", zap.Error(ErrInvalidTransition{From: r.state, To: s}))
	}
	r.logger.Debug("state changed", zap.String("from", string(r.state)), zap.String("to", string(s)))
	r.state = s
}

// begin resets a finished runner and enters the first state of a run. A
// runner that is already running cannot be started again.
func (r *Runner) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if CanTransition(r.state, StateIdle) {
		r.state = StateIdle
	}
	next := StateRunning
	if r.cfg.LoginOnStart {
		next = StateLoggingIn
	}
	if !CanTransition(r.state, next) {
		return ErrInvalidTransition{From: r.state, To: next}
	}
	r.state = next
	return nil
}
