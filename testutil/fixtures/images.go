// =============================================================================
// 📦 测试数据工厂 - 合成图像
// =============================================================================
// 提供确定性的合成图像，用于模板匹配、小地图定位等测试
// =============================================================================
package fixtures

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// 🎨 纹理图像
// =============================================================================

// Texture returns a w×h grayscale image of 4-pixel blocks with fine noise on
// top. The same seed always yields the same pixels. Any crop larger than a
// few blocks is unique inside the image, which makes it a good needle.
func Texture(w, h int, seed uint32) *image.Gray {
	return BlockTexture(w, h, 4, seed)
}

// BlockTexture is Texture with a configurable block size. Coarser blocks
// survive down-scaling, which the pyramid matcher relies on.
func BlockTexture(w, h, cell int, seed uint32) *image.Gray {
	if cell < 1 {
		cell = 1
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := hash(uint32(x/cell), uint32(y/cell), seed) % 200
			fine := hash(uint32(x), uint32(y), seed^0x5bd1e995) % 48
			img.Pix[y*img.Stride+x] = uint8(base + fine)
		}
	}
	return img
}

// Flat returns a single-valued grayscale image.
func Flat(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// Crop copies r out of src into a new image anchored at (0,0).
func Crop(src image.Image, r image.Rectangle) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst
}

// Paste draws src onto dst with its top-left corner at at.
func Paste(dst draw.Image, src image.Image, at image.Point) {
	r := image.Rectangle{Min: at, Max: at.Add(src.Bounds().Size())}
	draw.Draw(dst, r, src, src.Bounds().Min, draw.Src)
}

// Clone returns a deep copy of a grayscale image.
func Clone(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

// ToRGBA converts img to RGBA so colour capture paths are exercised.
func ToRGBA(img image.Image) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}

// Fill paints r with a single gray value.
func Fill(dst *image.Gray, r image.Rectangle, v uint8) {
	draw.Draw(dst, r, &image.Uniform{C: color.Gray{Y: v}}, image.Point{}, draw.Src)
}

// =============================================================================
// 💾 落盘辅助
// =============================================================================

// WritePNG encodes img under dir/name and returns the full path.
func WritePNG(t testing.TB, dir, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

// hash is a small integer mixer (lowbias32).
func hash(x, y, seed uint32) uint32 {
	h := x*0x8da6b343 ^ y*0xd8163841 ^ seed*0xcb1ab31f
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return h
}
