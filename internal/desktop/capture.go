package desktop

import (
	"context"
	"fmt"
	"image"

	"github.com/BaSui01/pixelagent/types"
	"github.com/vova616/screenshot"
	"go.uber.org/zap"
)

// ScreenCapture 截取真实显示器的像素
type ScreenCapture struct {
	logger *zap.Logger
}

// NewScreenCapture creates a capture source for the primary display.
func NewScreenCapture(logger *zap.Logger) *ScreenCapture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScreenCapture{logger: logger.With(zap.String("component", "screen_capture"))}
}

// Capture grabs region in display coordinates.
func (s *ScreenCapture) Capture(ctx context.Context, region types.Region) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if region.Empty() {
		return nil, captureError(fmt.Errorf("empty region %s", region))
	}
	img, err := screenshot.CaptureRect(region.Rect())
	if err != nil {
		return nil, captureError(err)
	}
	s.logger.Debug("captured", zap.Stringer("region", region))
	return img, nil
}

// DisplayBounds returns the bounds of the primary display.
func (s *ScreenCapture) DisplayBounds() (types.Region, error) {
	rect, err := screenshot.ScreenRect()
	if err != nil {
		return types.Region{}, captureError(err)
	}
	return types.RegionFromRect(rect), nil
}

func captureError(err error) error {
	return types.NewError(types.ErrCaptureFailed, "screen capture failed").
		WithCause(err).
		WithRetryable(true).
		WithComponent("screen_capture")
}
