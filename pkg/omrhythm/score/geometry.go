package score

import "math"

// Rect is an axis-aligned bounding box in sheet pixels, y growing downward.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

func (r Rect) Right() float64   { return r.X + r.W }
func (r Rect) Bottom() float64  { return r.Y + r.H }
func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// YOverlap is the length of the common ordinate range, negative when disjoint.
func (r Rect) YOverlap(o Rect) float64 {
	return math.Min(r.Bottom(), o.Bottom()) - math.Max(r.Y, o.Y)
}

// XGap is the horizontal space between the boxes, negative when they overlap.
func (r Rect) XGap(o Rect) float64 {
	return math.Max(r.X, o.X) - math.Min(r.Right(), o.Right())
}

func (r Rect) Union(o Rect) Rect {
	if r.W == 0 && r.H == 0 {
		return o
	}
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	return Rect{
		X: x,
		Y: y,
		W: math.Max(r.Right(), o.Right()) - x,
		H: math.Max(r.Bottom(), o.Bottom()) - y,
	}
}
