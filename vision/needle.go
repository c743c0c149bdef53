package vision

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Needle 是一张具名的只读模板图像，以灰度形式保存。
type Needle struct {
	Name  string
	Image *image.Gray
}

// NewNeedle converts img to grayscale and wraps it.
func NewNeedle(name string, img image.Image) *Needle {
	return &Needle{Name: name, Image: ToGray(img)}
}

// Width returns the needle width in pixels.
func (n *Needle) Width() int { return n.Image.Rect.Dx() }

// Height returns the needle height in pixels.
func (n *Needle) Height() int { return n.Image.Rect.Dy() }

// Size returns the needle dimensions.
func (n *Needle) Size() image.Point { return n.Image.Rect.Size() }

func (n *Needle) String() string { return n.Name }

// ToGray returns img as an *image.Gray anchored at (0,0). Gray images that
// already start at the origin are returned as is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
	return dst
}
