package types

import (
	"fmt"
	"image"
)

// Point is a coordinate in display units. Depending on context it is either
// absolute (display space) or relative to a haystack such as a reference map.
type Point struct {
	X int `json:"x" yaml:"x" env:"X"`
	Y int `json:"y" yaml:"y" env:"Y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Abs returns the point with both axes made non-negative.
func (p Point) Abs() Point {
	return Point{X: absInt(p.X), Y: absInt(p.Y)}
}

// Within reports whether |p.X| <= tol.X and |p.Y| <= tol.Y.
func (p Point) Within(tol Point) bool {
	return absInt(p.X) <= tol.X && absInt(p.Y) <= tol.Y
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Region is an immutable rectangular screen area (left, top, width, height).
type Region struct {
	Left   int `json:"left" yaml:"left" env:"LEFT"`
	Top    int `json:"top" yaml:"top" env:"TOP"`
	Width  int `json:"width" yaml:"width" env:"WIDTH"`
	Height int `json:"height" yaml:"height" env:"HEIGHT"`
}

// NewRegion creates a Region.
func NewRegion(left, top, width, height int) Region {
	return Region{Left: left, Top: top, Width: width, Height: height}
}

// RegionFromRect converts an image.Rectangle into a Region.
func RegionFromRect(r image.Rectangle) Region {
	return Region{Left: r.Min.X, Top: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Origin returns the top-left corner.
func (r Region) Origin() Point {
	return Point{X: r.Left, Y: r.Top}
}

// Center returns the integer center of the region.
func (r Region) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Fits reports whether a w×h needle fits inside the region.
func (r Region) Fits(w, h int) bool {
	return r.Width >= w && r.Height >= h
}

// Contains reports whether p lies inside the region.
func (r Region) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Left+r.Width &&
		p.Y >= r.Top && p.Y < r.Top+r.Height
}

// Offset returns the region translated by p.
func (r Region) Offset(p Point) Region {
	r.Left += p.X
	r.Top += p.Y
	return r
}

// Sub returns a region positioned relative to r's origin.
func (r Region) Sub(left, top, width, height int) Region {
	return Region{Left: r.Left + left, Top: r.Top + top, Width: width, Height: height}
}

// SplitHalves splits the region into a left and a right half.
func (r Region) SplitHalves() (Region, Region) {
	left := Region{Left: r.Left, Top: r.Top, Width: r.Width / 2, Height: r.Height}
	right := Region{Left: r.Left + left.Width, Top: r.Top, Width: r.Width - left.Width, Height: r.Height}
	return left, right
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.Left, r.Top, r.Width, r.Height)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
