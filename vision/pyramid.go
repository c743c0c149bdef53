package vision

import (
	"cmp"
	"image"
	"math"
	"slices"

	xdraw "golang.org/x/image/draw"
)

// minCoarseSide is the smallest down-scaled needle side worth matching.
// Below it the pyramid falls back to a full-resolution scan.
const minCoarseSide = 4

// PyramidMatcher 两级金字塔匹配：先在缩小后的图像上找出若干候选，
// 再在原分辨率的小邻域内精确匹配。用于参考地图这类大图。
type PyramidMatcher struct {
	scale      int
	candidates int
	fine       *NCCMatcher
}

// NewPyramidMatcher creates a matcher that down-scales by scale and refines
// the best candidates coarse placements.
func NewPyramidMatcher(scale, candidates int) *PyramidMatcher {
	return &PyramidMatcher{
		scale:      max(1, scale),
		candidates: max(1, candidates),
		fine:       NewNCCMatcher(),
	}
}

// Match implements Matcher.
func (p *PyramidMatcher) Match(haystack, needle *image.Gray) (image.Point, float64, error) {
	hw, hh := haystack.Rect.Dx(), haystack.Rect.Dy()
	nw, nh := needle.Rect.Dx(), needle.Rect.Dy()
	if nw > hw || nh > hh {
		return image.Point{}, 0, ErrNeedleTooLarge
	}
	if p.scale < 2 || nw/p.scale < minCoarseSide || nh/p.scale < minCoarseSide {
		return p.fine.Match(haystack, needle)
	}

	smallHay := downscale(haystack, p.scale)
	smallNeedle := downscale(needle, p.scale)
	scores, cols, _, err := p.fine.scoreMap(smallHay, smallNeedle)
	if err != nil {
		return image.Point{}, 0, err
	}

	radius := max(smallNeedle.Rect.Dx(), smallNeedle.Rect.Dy()) / 2
	margin := 2 * p.scale

	bestLoc, bestScore := image.Point{}, math.Inf(-1)
	for _, c := range topCandidates(scores, cols, p.candidates, radius) {
		window := image.Rect(
			c.X*p.scale-margin, c.Y*p.scale-margin,
			c.X*p.scale+nw+margin, c.Y*p.scale+nh+margin,
		).Intersect(haystack.Rect.Sub(haystack.Rect.Min))
		if window.Dx() < nw || window.Dy() < nh {
			continue
		}
		sub := subGray(haystack, window)
		loc, score, err := p.fine.Match(sub, needle)
		if err != nil {
			return image.Point{}, 0, err
		}
		if score > bestScore {
			bestLoc, bestScore = loc.Add(window.Min), score
		}
	}
	if math.IsInf(bestScore, -1) {
		return p.fine.Match(haystack, needle)
	}
	return bestLoc, bestScore, nil
}

// topCandidates picks up to k placements by descending score, skipping any
// within radius (Chebyshev) of an already chosen one.
func topCandidates(scores []float64, cols, k, radius int) []image.Point {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	out := make([]image.Point, 0, k)
	for _, i := range idx {
		pt := image.Pt(i%cols, i/cols)
		suppressed := false
		for _, q := range out {
			if absInt(pt.X-q.X) <= radius && absInt(pt.Y-q.Y) <= radius {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}
		out = append(out, pt)
		if len(out) == k {
			break
		}
	}
	return out
}

// downscale shrinks img by an integer factor with bilinear filtering.
func downscale(img *image.Gray, factor int) *image.Gray {
	w := max(1, img.Rect.Dx()/factor)
	h := max(1, img.Rect.Dy()/factor)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Rect, xdraw.Src, nil)
	return dst
}

// subGray returns the r part of img (r in img-local coordinates) sharing
// pixels with img.
func subGray(img *image.Gray, r image.Rectangle) *image.Gray {
	return img.SubImage(r.Add(img.Rect.Min)).(*image.Gray)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
