package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/pixelagent/client"
	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/input"
	"github.com/BaSui01/pixelagent/internal/desktop"
	"github.com/BaSui01/pixelagent/internal/metrics"
	"github.com/BaSui01/pixelagent/internal/telemetry"
	"github.com/BaSui01/pixelagent/navigation"
	"github.com/BaSui01/pixelagent/types"
	"github.com/BaSui01/pixelagent/vision"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// wireOptions 控制与桌面的绑定方式
type wireOptions struct {
	// 用 RecordingDriver 代替真实鼠标键盘
	dryRun bool
	// 非空时从该截图读取画面，而不是截取显示器
	screen string
}

// stack 是一次命令运行所需的全部组件
type stack struct {
	cfg    *config.Config
	logger *zap.Logger

	metrics   *metrics.Collector
	telemetry *telemetry.Providers

	capture vision.CaptureSource
	// 屏幕查询始终使用精确的全局搜索
	matcher vision.Matcher
	// 小地图在参考地图上的定位，按 vision.backend 选择
	mapMatcher vision.Matcher

	needles   *vision.NeedleStore
	maps      *vision.NeedleStore
	recorder  *input.RecordingDriver
	humanizer *input.Humanizer
	layout    client.Layout
	query     *vision.Query
	client    *client.Client
	navigator *navigation.Navigator
}

// telemetryFlushTimeout bounds the final export to the OTLP collector.
const telemetryFlushTimeout = 5 * time.Second

// buildStack wires capture, matching, input and navigation from cfg.
//
// The client origin is calibrated before the humanizer is built, so the
// move-away region follows the calibrated game screen. A failed build
// shuts down the telemetry providers it already started.
func buildStack(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts wireOptions) (_ *stack, err error) {
	s := &stack{cfg: cfg, logger: logger}
	defer func() {
		if err == nil {
			return
		}
		if cerr := s.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("failed to flush telemetry", zap.Error(cerr))
		}
	}()

	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger,
		attribute.String("pixelagent.vision.backend", cfg.Vision.Backend),
		attribute.Bool("pixelagent.dry_run", opts.dryRun))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		providers = &telemetry.Providers{}
	}
	s.telemetry = providers
	s.metrics = metrics.NewCollector(cfg.Metrics.Namespace, logger)

	s.matcher = vision.NewNCCMatcher()
	s.mapMatcher, err = newMatcher(cfg.Vision)
	if err != nil {
		return nil, err
	}
	s.capture, err = newCapture(opts, cfg.Client.Display, logger)
	if err != nil {
		return nil, err
	}
	s.needles = vision.NewDirStore(cfg.Vision.NeedleDir, logger)
	s.maps = vision.NewDirStore(cfg.Navigation.MapDir, logger)

	defaults := vision.Options{
		Region:     cfg.Client.Display,
		Confidence: cfg.Vision.Confidence,
		Attempts:   cfg.Vision.Attempts,
		Poll:       cfg.Vision.Poll,
	}
	queryOpts := []vision.QueryOption{vision.WithMetrics(s.metrics), vision.WithLogger(logger)}

	probe := vision.NewQuery(s.capture, s.matcher, nil, defaults, queryOpts...)
	s.layout, err = client.Calibrate(ctx, probe, s.needles, cfg.Client)
	if err != nil {
		return nil, fmt.Errorf("calibrate client: %w", err)
	}
	logger.Info("client layout ready",
		zap.Stringer("origin", s.layout.Origin),
		zap.Stringer("client", s.layout.Client))

	var driver input.Driver
	if opts.dryRun {
		s.recorder = input.NewRecordingDriver()
		driver = s.recorder
		logger.Info("dry run: input is recorded, not sent")
	} else {
		driver = desktop.NewRobotDriver(logger)
	}
	s.humanizer = input.NewHumanizer(driver, input.FromConfig(cfg.Input, s.layout.GameScreen),
		input.WithMetrics(s.metrics),
		input.WithLogger(logger))

	s.query = vision.NewQuery(s.capture, s.matcher, s.humanizer, defaults, queryOpts...)
	s.client = client.New(s.query, s.needles, s.layout, s.humanizer, client.WithLogger(logger))

	navCfg := navigation.ConfigFrom(cfg.Navigation)
	if err := navCfg.Validate(); err != nil {
		return nil, err
	}
	s.navigator = navigation.NewNavigator(s.capture, s.mapMatcher, s.humanizer, s.layout.NavigationMinimap(), navCfg,
		navigation.WithMetrics(s.metrics),
		navigation.WithLogger(logger))

	return s, nil
}

// Close flushes telemetry.
func (s *stack) Close(ctx context.Context) error {
	if s == nil || s.telemetry == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, telemetryFlushTimeout)
	defer cancel()
	return s.telemetry.Shutdown(ctx)
}

func newMatcher(c config.VisionConfig) (vision.Matcher, error) {
	switch c.Backend {
	case "ncc", "":
		return vision.NewNCCMatcher(), nil
	case "pyramid":
		return vision.NewPyramidMatcher(c.PyramidScale, c.PyramidCandidates), nil
	default:
		return nil, types.NewConfigurationError("unknown vision backend %q", c.Backend)
	}
}

func newCapture(opts wireOptions, display types.Region, logger *zap.Logger) (vision.CaptureSource, error) {
	if opts.screen != "" {
		return vision.LoadImageCapture(opts.screen)
	}
	if opts.dryRun {
		logger.Info("dry run without --screen: capturing the live display")
	}
	capture := desktop.NewScreenCapture(logger)
	bounds, err := capture.DisplayBounds()
	if err != nil {
		return nil, err
	}
	if err := checkDisplay(display, bounds); err != nil {
		return nil, err
	}
	return capture, nil
}

// checkDisplay rejects a configured display region that leaves the screen.
func checkDisplay(display, bounds types.Region) error {
	if !display.Rect().In(bounds.Rect()) {
		return types.NewConfigurationError("client.display %s is outside the screen %s", display, bounds)
	}
	return nil
}

// shutdown closes the stack and reports the first failure.
func shutdown(ctx context.Context, s *stack, closers ...func() error) error {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c())
	}
	errs = append(errs, s.Close(ctx))
	return errors.Join(errs...)
}
