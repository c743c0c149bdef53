// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器. A nil *Collector is valid and records nothing, so
// components can take one unconditionally.
type Collector struct {
	registry *prometheus.Registry

	// Vision 指标
	visionQueriesTotal *prometheus.CounterVec
	visionCaptures     prometheus.Counter
	visionMatchScore   prometheus.Histogram
	visionAttempts     *prometheus.HistogramVec

	// Input 指标
	inputActionsTotal *prometheus.CounterVec

	// Navigation 指标
	travelTotal    *prometheus.CounterVec
	waypointClicks prometheus.Histogram
	localizeScore  prometheus.Histogram
	travelDuration prometheus.Histogram

	// Scheduler 指标
	schedulerRolls    *prometheus.CounterVec
	sessionsCompleted prometheus.Gauge
	breakDuration     prometheus.Histogram

	// Routine 指标
	routineSteps *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器 with its own registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// Vision 指标
	c.visionQueriesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_queries_total",
			Help:      "Total number of vision queries by operation and result",
		},
		[]string{"operation", "result"},
	)

	c.visionCaptures = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_captures_total",
			Help:      "Total number of screen captures",
		},
	)

	c.visionMatchScore = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vision_match_score",
			Help:      "Best normalized correlation score per match attempt",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 0.8, 0.85, 0.9, 0.95, 0.98, 0.99, 1},
		},
	)

	c.visionAttempts = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vision_query_attempts",
			Help:      "Attempts used per vision query",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50, 100},
		},
		[]string{"operation"},
	)

	// Input 指标
	c.inputActionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_actions_total",
			Help:      "Total number of synthetic input actions",
		},
		[]string{"kind"},
	)

	// Navigation 指标
	c.travelTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_travel_total",
			Help:      "Total number of travel calls by result",
		},
		[]string{"result"},
	)

	c.waypointClicks = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "navigation_waypoint_clicks",
			Help:      "Minimap clicks issued per waypoint",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		},
	)

	c.localizeScore = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "navigation_localize_score",
			Help:      "Correlation score of the minimap inside the reference map",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		},
	)

	c.travelDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "navigation_travel_duration_seconds",
			Help:      "Travel duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// Scheduler 指标
	c.schedulerRolls = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_rolls_total",
			Help:      "Total number of checkpoint rolls by checkpoint and result",
		},
		[]string{"checkpoint", "result"},
	)

	c.sessionsCompleted = f.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_sessions_completed",
			Help:      "Number of completed sessions in this run",
		},
	)

	c.breakDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_break_duration_seconds",
			Help:      "Break duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(60, 2, 8),
		},
	)

	// Routine 指标
	c.routineSteps = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routine_steps_total",
			Help:      "Total number of routine steps by action and result",
		},
		[]string{"action", "result"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// Registry returns the registry all metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an http.Handler serving the registry in text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// 👁️ Vision 指标记录
// =============================================================================

// RecordCapture 记录一次截屏
func (c *Collector) RecordCapture() {
	if c == nil {
		return
	}
	c.visionCaptures.Inc()
}

// RecordMatchScore 记录一次匹配得分
func (c *Collector) RecordMatchScore(score float64) {
	if c == nil {
		return
	}
	c.visionMatchScore.Observe(score)
}

// RecordVisionQuery 记录 vision 查询结果
func (c *Collector) RecordVisionQuery(operation, result string, attempts int) {
	if c == nil {
		return
	}
	c.visionQueriesTotal.WithLabelValues(operation, result).Inc()
	c.visionAttempts.WithLabelValues(operation).Observe(float64(attempts))
}

// =============================================================================
// 🖱️ Input 指标记录
// =============================================================================

// RecordInput 记录输入动作
func (c *Collector) RecordInput(kind string) {
	if c == nil {
		return
	}
	c.inputActionsTotal.WithLabelValues(kind).Inc()
}

// =============================================================================
// 🧭 Navigation 指标记录
// =============================================================================

// RecordTravel 记录一次 travel
func (c *Collector) RecordTravel(result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.travelTotal.WithLabelValues(result).Inc()
	c.travelDuration.Observe(duration.Seconds())
}

// RecordWaypoint 记录到达某个 waypoint 所用的点击次数
func (c *Collector) RecordWaypoint(clicks int) {
	if c == nil {
		return
	}
	c.waypointClicks.Observe(float64(clicks))
}

// RecordLocalize 记录 minimap 定位得分
func (c *Collector) RecordLocalize(score float64) {
	if c == nil {
		return
	}
	c.localizeScore.Observe(score)
}

// =============================================================================
// ⏱️ Scheduler 指标记录
// =============================================================================

// RecordRoll 记录 checkpoint 掷骰
func (c *Collector) RecordRoll(checkpoint int, passed bool) {
	if c == nil {
		return
	}
	result := "stay"
	if passed {
		result = "break"
	}
	c.schedulerRolls.WithLabelValues(strconv.Itoa(checkpoint), result).Inc()
}

// RecordSession 记录完成的 session 数
func (c *Collector) RecordSession(completed int) {
	if c == nil {
		return
	}
	c.sessionsCompleted.Set(float64(completed))
}

// RecordBreak 记录休息时长
func (c *Collector) RecordBreak(d time.Duration) {
	if c == nil {
		return
	}
	c.breakDuration.Observe(d.Seconds())
}

// =============================================================================
// 📜 Routine 指标记录
// =============================================================================

// RecordRoutineStep 记录 routine 步骤
func (c *Collector) RecordRoutineStep(action, result string) {
	if c == nil {
		return
	}
	c.routineSteps.WithLabelValues(action, result).Inc()
}
