package navigation

import (
	"github.com/BaSui01/pixelagent/internal/jitter"
	"github.com/BaSui01/pixelagent/types"
)

// 小地图几何常量。小地图是一个圆形视口，这些常量是按其像素半径实测得到的。
const (
	// MinimapRadius 是小地图可点击半径
	MinimapRadius = 50
	// EdgeBoost 在正交轴位移很小时，沿该轴额外外推的距离
	EdgeBoost = 13
	// EdgeBoostWindow 是触发 EdgeBoost 的正交轴位移上限
	EdgeBoostWindow = 10
)

// ClickOffset returns the minimap offset, before jitter, that moves the
// agent toward a target delta map units away.
//
// Each axis is clamped to MinimapRadius independently. A clamped axis is
// pushed a further EdgeBoost outward when the orthogonal delta is within
// EdgeBoostWindow, since the circular viewport reaches farther along an axis
// than along a diagonal.
func ClickOffset(delta types.Point) types.Point {
	return types.Point{
		X: axisOffset(delta.X, delta.Y),
		Y: axisOffset(delta.Y, delta.X),
	}
}

func axisOffset(d, orthogonal int) int {
	boost := 0
	if abs(orthogonal) <= EdgeBoostWindow {
		boost = EdgeBoost
	}
	switch {
	case d >= MinimapRadius:
		return MinimapRadius + boost
	case d <= -MinimapRadius:
		return -MinimapRadius - boost
	default:
		return d
	}
}

// ClickPoint places the click for delta around the minimap center, adds the
// per-axis jitter and folds negative coordinates back to positive.
func ClickPoint(center, delta, jit types.Point) types.Point {
	return center.Add(ClickOffset(delta)).Add(jit).Abs()
}

// drawJitter draws one symmetric jitter value per axis.
func drawJitter(r jitter.Rand, tol int) types.Point {
	return types.Point{X: jitter.Symmetric(r, tol), Y: jitter.Symmetric(r, tol)}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
