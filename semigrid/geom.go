package semigrid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the threshold below which masses and distances are treated as
// zero.
const Epsilon = 1e-4

// Rect is an axis-aligned rectangle from Min to Max (inclusive).
type Rect struct {
	Min, Max mgl64.Vec2
}

// R is shorthand for a Rect from (x0,y0) to (x1,y1).
func R(x0, y0, x1, y1 float64) Rect {
	return Rect{Min: mgl64.Vec2{x0, y0}, Max: mgl64.Vec2{x1, y1}}
}

// Size is the width and height of the rect.
func (r Rect) Size() mgl64.Vec2 {
	return r.Max.Sub(r.Min)
}

// Center of the rect.
func (r Rect) Center() mgl64.Vec2 {
	return r.Min.Add(r.Max).Mul(0.5)
}

// Empty reports whether the rect has no area (or is inverted).
func (r Rect) Empty() bool {
	return !(r.Max[0] > r.Min[0]) || !(r.Max[1] > r.Min[1])
}

// does this rect contain point?
func (r Rect) Contains(point mgl64.Vec2) bool {
	return (r.Min[0] <= point[0] && point[0] <= r.Max[0]) &&
		(r.Min[1] <= point[1] && point[1] <= r.Max[1])
}

// Expand grows the rect by d on every side.
func (r Rect) Expand(d float64) Rect {
	r.Min = r.Min.Sub(mgl64.Vec2{d, d})
	r.Max = r.Max.Add(mgl64.Vec2{d, d})
	return r
}

// Union grows the rect just enough to contain point.
func (r Rect) Union(point mgl64.Vec2) Rect {
	r.Min[0] = math.Min(r.Min[0], point[0])
	r.Min[1] = math.Min(r.Min[1], point[1])
	r.Max[0] = math.Max(r.Max[0], point[0])
	r.Max[1] = math.Max(r.Max[1], point[1])
	return r
}

// Intersect returns the overlap of r and o. The result may be Empty.
func (r Rect) Intersect(o Rect) Rect {
	r.Min[0] = math.Max(r.Min[0], o.Min[0])
	r.Min[1] = math.Max(r.Min[1], o.Min[1])
	r.Max[0] = math.Min(r.Max[0], o.Max[0])
	r.Max[1] = math.Min(r.Max[1], o.Max[1])
	return r
}

// normalize returns v scaled to unit length, or zero if v is shorter than
// Epsilon. mgl64's Normalize divides by zero instead.
func normalize(v mgl64.Vec2) mgl64.Vec2 {
	l := v.Len()
	if l < Epsilon {
		return mgl64.Vec2{}
	}
	return v.Mul(1 / l)
}
