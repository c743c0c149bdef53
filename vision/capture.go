package vision

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"sync"

	"github.com/BaSui01/pixelagent/types"
)

// CaptureSource 返回显示器指定区域的像素。
//
// The returned image covers exactly the region; its Bounds().Min maps to
// the region's top-left corner.
type CaptureSource interface {
	Capture(ctx context.Context, region types.Region) (image.Image, error)
}

// ImageCapture serves captures from a still image standing in for the whole
// display. It backs offline matching and dry runs.
type ImageCapture struct {
	mu  sync.RWMutex
	img image.Image
}

// NewImageCapture wraps img.
func NewImageCapture(img image.Image) *ImageCapture {
	return &ImageCapture{img: img}
}

// LoadImageCapture decodes the image at path.
func LoadImageCapture(path string) (*ImageCapture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewConfigurationError("open capture image %q", path).WithCause(err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, types.NewConfigurationError("decode capture image %q", path).WithCause(err)
	}
	return NewImageCapture(img), nil
}

// Set swaps the displayed image.
func (c *ImageCapture) Set(img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.img = img
}

// Bounds returns the full display region.
func (c *ImageCapture) Bounds() types.Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.RegionFromRect(c.img.Bounds())
}

// Capture implements CaptureSource.
func (c *ImageCapture) Capture(ctx context.Context, region types.Region) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	src := c.img
	c.mu.RUnlock()

	r := region.Rect()
	if !r.In(src.Bounds()) {
		return nil, types.NewError(types.ErrCaptureFailed,
			fmt.Sprintf("region %s outside display %s", region, types.RegionFromRect(src.Bounds())))
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), src, r.Min, draw.Src)
	return out, nil
}
