package tile

import (
	"math"
)

// MaxLevel bounds pyramid depth so 1<<level never overflows.
const MaxLevel = 30

// TilesAt returns the number of tiles along one axis at level.
func TilesAt(level int) int {
	if level < 0 || level > MaxLevel {
		return 0
	}
	return 1 << level
}

// Valid reports whether i lies inside the pyramid.
func (i Index) Valid() bool {
	n := TilesAt(i.Level)
	return n > 0 && i.X >= 0 && i.X < n && i.Y >= 0 && i.Y < n
}

// Parent returns the tile one level up that contains i.
func (i Index) Parent() (Index, bool) {
	if i.Level == 0 {
		return Index{}, false
	}
	// arithmetic shift floors negative indices too
	return Index{X: i.X >> 1, Y: i.Y >> 1, Level: i.Level - 1}, true
}

// Children returns the four tiles one level down, row-major.
func (i Index) Children() [4]Index {
	x, y, l := i.X<<1, i.Y<<1, i.Level+1
	return [4]Index{
		{X: x, Y: y, Level: l},
		{X: x + 1, Y: y, Level: l},
		{X: x, Y: y + 1, Level: l},
		{X: x + 1, Y: y + 1, Level: l},
	}
}

// Range is an inclusive rectangle of tile indices on one level.
type Range struct {
	Level int `json:"level"`
	MinX  int `json:"min_x"`
	MinY  int `json:"min_y"`
	MaxX  int `json:"max_x"`
	MaxY  int `json:"max_y"`
}

func (r Range) Len() int {
	if r.MaxX < r.MinX || r.MaxY < r.MinY {
		return 0
	}
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

func (r Range) Contains(i Index) bool {
	return i.Level == r.Level &&
		i.X >= r.MinX && i.X <= r.MaxX &&
		i.Y >= r.MinY && i.Y <= r.MaxY
}

// Indexes enumerates the range row by row, bottom row first.
func (r Range) Indexes() []Index {
	out := make([]Index, 0, r.Len())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			out = append(out, Index{X: x, Y: y, Level: r.Level})
		}
	}
	return out
}

// Keys is Indexes with every tile sharing size and overlap.
func (r Range) Keys(size, overlap Point) []Key {
	idx := r.Indexes()
	out := make([]Key, len(idx))
	for n, i := range idx {
		out[n] = Key{Index: i, Size: size, Overlap: overlap}
	}
	return out
}

// Cover returns the tiles at level whose cells intersect b, where tile
// (x, y) spans [x*size.X, (x+1)*size.X) horizontally and likewise
// vertically. The result is clamped to the pyramid. ok is false when
// nothing is visible.
func Cover(b Bounds, level int, size Point) (r Range, ok bool) {
	n := TilesAt(level)
	if n == 0 || size.X <= 0 || size.Y <= 0 || b.Empty() {
		return Range{}, false
	}

	sx, sy := float64(size.X), float64(size.Y)
	extent := float64(n)
	if b.MaxX <= 0 || b.MaxY <= 0 || b.MinX >= extent*sx || b.MinY >= extent*sy {
		return Range{}, false
	}

	r = Range{
		Level: level,
		MinX:  clamp(int(math.Floor(b.MinX/sx)), 0, n-1),
		MinY:  clamp(int(math.Floor(b.MinY/sy)), 0, n-1),
		MaxX:  clamp(int(math.Ceil(b.MaxX/sx))-1, 0, n-1),
		MaxY:  clamp(int(math.Ceil(b.MaxY/sy))-1, 0, n-1),
	}

	return r, r.Len() > 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
