package tile

import (
	"strings"

	"github.com/paulmach/orb/maptile"
)

// Quadkey encodes i as a base-4 string, one digit per level. Level 0 is
// the empty string. Only meaningful for valid indices.
func (i Index) Quadkey() string {
	var b strings.Builder
	b.Grow(i.Level)
	for l := i.Level; l > 0; l-- {
		digit := byte('0')
		mask := 1 << (l - 1)
		if i.X&mask != 0 {
			digit++
		}
		if i.Y&mask != 0 {
			digit += 2
		}
		b.WriteByte(digit)
	}
	return b.String()
}

// QuadkeyHash is an alternative cache hash. Out-of-pyramid indices
// collide, so only use it where keys are known to be valid.
func QuadkeyHash(k Key) string {
	return k.Index.Quadkey()
}

// CanonicalHash is the default cache hash for keys.
func CanonicalHash(k Key) string {
	return k.Index.CanonicalKey()
}

// MapTile converts i to an orb maptile. ok is false outside the pyramid.
func (i Index) MapTile() (t maptile.Tile, ok bool) {
	if !i.Valid() {
		return maptile.Tile{}, false
	}
	return maptile.New(uint32(i.X), uint32(i.Y), maptile.Zoom(i.Level)), true
}
