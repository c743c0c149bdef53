// ManualClock 与 InstantSleeper 的时间测试模拟实现。
package mocks

import (
	"context"
	"sync"
	"time"
)

// ManualClock 是手动推进的时钟
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock 创建从 start 开始的时钟
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now 返回当前时间
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 推进时钟
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set 设置时钟
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// InstantSleeper records requested sleeps without blocking. When a clock is
// attached, each sleep advances it by the requested duration.
type InstantSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	clock  *ManualClock
}

// NewInstantSleeper 创建不阻塞的 sleeper
func NewInstantSleeper() *InstantSleeper {
	return &InstantSleeper{}
}

// WithClock 让每次等待推进 clock
func (s *InstantSleeper) WithClock(clock *ManualClock) *InstantSleeper {
	s.clock = clock
	return s
}

// Sleep 记录等待时长，仅在上下文已取消时返回错误
func (s *InstantSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	if s.clock != nil {
		s.clock.Advance(d)
	}
	return nil
}

// Sleeps 返回所有等待时长
func (s *InstantSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// Count 返回等待次数
func (s *InstantSleeper) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sleeps)
}

// Total 返回等待总时长
func (s *InstantSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.sleeps {
		total += d
	}
	return total
}
