package geom

import "math"

type Point struct {
	X float64
	Y float64
}

type Vec struct {
	DX float64
	DY float64
}

func (v Vec) IsZero() bool { return v.DX == 0 && v.DY == 0 }

// Advance returns p moved by v for dt seconds.
func (p Point) Advance(v Vec, dt float64) Point {
	return Point{X: p.X + v.DX*dt, Y: p.Y + v.DY*dt}
}

func (p Point) Sub(o Point) Vec { return Vec{DX: p.X - o.X, DY: p.Y - o.Y} }

func (v Vec) Dot(o Vec) float64 { return v.DX*o.DX + v.DY*o.DY }

func SqDist(a, b Point) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// Borders is an axis-aligned rectangle given by its inclusive extents.
type Borders struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
}

func (b Borders) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

func (b Borders) Union(o Borders) Borders {
	return Borders{
		MinX: math.Min(b.MinX, o.MinX),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Clamp pulls each axis of p independently into b.
func (b Borders) Clamp(p Point) Point {
	return Point{
		X: math.Min(math.Max(p.X, b.MinX), b.MaxX),
		Y: math.Min(math.Max(p.Y, b.MinY), b.MaxY),
	}
}

// Rect is an integer grid rectangle (buildings).
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Floor2 truncates v down to two decimal places.
func Floor2(v float64) float64 {
	return math.Floor(v*100) / 100
}
