package vision

import (
	"errors"
	"image"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrNeedleTooLarge is returned when the needle does not fit in the haystack.
var ErrNeedleTooLarge = errors.New("vision: needle larger than haystack")

// Matcher 在 haystack 中寻找 needle 的最佳位置。
//
// Both images are indexed from their own top-left corner. Match returns the
// offset of the best placement and its score in [-1, 1].
type Matcher interface {
	Match(haystack, needle *image.Gray) (image.Point, float64, error)
}

// flatEpsilon is the variance below which a window counts as flat.
const flatEpsilon = 1e-6

// NCCMatcher computes the zero-mean normalized cross-correlation
// (TM_CCOEFF_NORMED) at every placement and returns the global maximum.
// Ties resolve to the first placement in row-major order.
//
// A flat needle or a flat window scores 0; both flat scores 1.
type NCCMatcher struct {
	workers int
}

// NewNCCMatcher creates a matcher that spreads rows over GOMAXPROCS workers.
func NewNCCMatcher() *NCCMatcher {
	return &NCCMatcher{workers: runtime.GOMAXPROCS(0)}
}

// Match implements Matcher.
func (m *NCCMatcher) Match(haystack, needle *image.Gray) (image.Point, float64, error) {
	scores, cols, _, err := m.scoreMap(haystack, needle)
	if err != nil {
		return image.Point{}, 0, err
	}
	best, bestScore := 0, math.Inf(-1)
	for i, s := range scores {
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return image.Pt(best%cols, best/cols), bestScore, nil
}

// scoreMap returns the score of every placement, row-major, together with the
// number of placement columns and rows.
func (m *NCCMatcher) scoreMap(haystack, needle *image.Gray) ([]float64, int, int, error) {
	hw, hh := haystack.Rect.Dx(), haystack.Rect.Dy()
	nw, nh := needle.Rect.Dx(), needle.Rect.Dy()
	if nw == 0 || nh == 0 {
		return nil, 0, 0, errors.New("vision: empty needle")
	}
	if nw > hw || nh > hh {
		return nil, 0, 0, ErrNeedleTooLarge
	}

	t := newTemplate(needle)
	ig := newIntegral(haystack)
	cols, rows := hw-nw+1, hh-nh+1
	scores := make([]float64, cols*rows)

	workers := max(1, m.workers)
	band := max(1, (rows+workers-1)/workers)

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < rows; start += band {
		end := min(rows, start+band)
		g.Go(func() error {
			for y := start; y < end; y++ {
				for x := 0; x < cols; x++ {
					scores[y*cols+x] = scoreAt(haystack, ig, &t, x, y)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, 0, err
	}
	return scores, cols, rows, nil
}

// template holds the zero-mean needle.
type template struct {
	w, h   int
	n      float64
	zero   []float64
	energy float64
}

func newTemplate(needle *image.Gray) template {
	w, h := needle.Rect.Dx(), needle.Rect.Dy()
	t := template{w: w, h: h, n: float64(w * h), zero: make([]float64, w*h)}

	var sum float64
	for y := 0; y < h; y++ {
		row := needle.Pix[y*needle.Stride : y*needle.Stride+w]
		for x, p := range row {
			t.zero[y*w+x] = float64(p)
			sum += float64(p)
		}
	}
	mean := sum / t.n
	for i := range t.zero {
		t.zero[i] -= mean
		t.energy += t.zero[i] * t.zero[i]
	}
	return t
}

// integral holds summed-area tables of pixel values and squared values,
// (w+1)×(h+1) with a zero first row and column.
type integral struct {
	stride int
	sum    []int64
	sq     []int64
}

func newIntegral(img *image.Gray) *integral {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	stride := w + 1
	ig := &integral{
		stride: stride,
		sum:    make([]int64, stride*(h+1)),
		sq:     make([]int64, stride*(h+1)),
	}
	for y := 0; y < h; y++ {
		var rowSum, rowSq int64
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, p := range row {
			v := int64(p)
			rowSum += v
			rowSq += v * v
			i := (y+1)*stride + x + 1
			ig.sum[i] = ig.sum[i-stride] + rowSum
			ig.sq[i] = ig.sq[i-stride] + rowSq
		}
	}
	return ig
}

// window returns the pixel sum and squared sum of the w×h window at (x,y).
func (ig *integral) window(x, y, w, h int) (int64, int64) {
	a := y*ig.stride + x
	b := a + w
	c := (y+h)*ig.stride + x
	d := c + w
	return ig.sum[d] - ig.sum[b] - ig.sum[c] + ig.sum[a],
		ig.sq[d] - ig.sq[b] - ig.sq[c] + ig.sq[a]
}

// scoreAt is the normalized correlation of t placed at (x,y). The window
// mean drops out of the numerator because t is zero-mean.
func scoreAt(hay *image.Gray, ig *integral, t *template, x, y int) float64 {
	sum, sq := ig.window(x, y, t.w, t.h)
	fsum := float64(sum)
	variance := float64(sq) - fsum*fsum/t.n

	flatNeedle := t.energy <= flatEpsilon
	flatWindow := variance <= flatEpsilon
	switch {
	case flatNeedle && flatWindow:
		return 1
	case flatNeedle || flatWindow:
		return 0
	}

	var num float64
	for j := 0; j < t.h; j++ {
		off := (y+j)*hay.Stride + x
		row := hay.Pix[off : off+t.w]
		tr := t.zero[j*t.w : (j+1)*t.w]
		for i, p := range row {
			num += tr[i] * float64(p)
		}
	}

	s := num / math.Sqrt(t.energy*variance)
	return math.Max(-1, math.Min(1, s))
}
