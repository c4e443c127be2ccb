// Package tile describes tiles of a flat tile pyramid: their identity,
// their world-space edges and the arithmetic that maps a viewport onto
// the tiles covering it.
package tile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedKey = errors.New("malformed canonical tile key")

// Index addresses a tile by pyramid level, row (Y) and column (X).
type Index struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Level int `json:"level"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key is a tile identity: where it sits in the pyramid, how many pixels it
// spans and how far it reaches into its neighbours. Treat it as immutable.
type Key struct {
	Index   Index `json:"index"`
	Size    Point `json:"size"`
	Overlap Point `json:"overlap"`
}

// CanonicalKey formats "level/y/x". It depends on the index only, so keys
// with different size or overlap but the same index collide on purpose.
func (i Index) CanonicalKey() string {
	var b strings.Builder
	b.Grow(16)
	b.WriteString(strconv.Itoa(i.Level))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(i.Y))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(i.X))
	return b.String()
}

func (i Index) String() string {
	return i.CanonicalKey()
}

func (k Key) CanonicalKey() string {
	return k.Index.CanonicalKey()
}

func (k Key) String() string {
	return k.Index.CanonicalKey()
}

// ParseCanonicalKey is the inverse of Index.CanonicalKey.
func ParseCanonicalKey(s string) (Index, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Index{}, fmt.Errorf("%w: %q: want level/y/x", ErrMalformedKey, s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Index{}, fmt.Errorf("%w: %q: %v", ErrMalformedKey, s, err)
		}
		nums[i] = n
	}

	if nums[0] < 0 {
		return Index{}, fmt.Errorf("%w: %q: negative level", ErrMalformedKey, s)
	}

	return Index{Level: nums[0], Y: nums[1], X: nums[2]}, nil
}

// Left returns the world-space left edge. offset translates the index
// before scaling; it lets callers rebase large indices near zero.
func (k Key) Left(offset int) int {
	return k.Size.X*(k.Index.X-offset) - k.Overlap.X
}

func (k Key) Right(offset int) int {
	return k.Size.X*(k.Index.X-offset+1) + k.Overlap.X
}

func (k Key) Bottom(offset int) int {
	return k.Size.Y*(k.Index.Y-offset) - k.Overlap.Y
}

func (k Key) Top(offset int) int {
	return k.Size.Y*(k.Index.Y-offset+1) + k.Overlap.Y
}

// Bounds collects the four edges, overlap included.
func (k Key) Bounds(offset int) Bounds {
	return Bounds{
		MinX: float64(k.Left(offset)),
		MinY: float64(k.Bottom(offset)),
		MaxX: float64(k.Right(offset)),
		MaxY: float64(k.Top(offset)),
	}
}

// Bounds is an axis-aligned world-space rectangle.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func (b Bounds) Empty() bool {
	return b.MaxX <= b.MinX || b.MaxY <= b.MinY
}
