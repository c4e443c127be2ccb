package dto

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/jaennil/guide_helper/tilecache/internal/tile"
)

type TileCacheResponse struct {
	Data   []byte `json:"data"`
	Exists bool   `json:"exists"`
}

type CapacityRequest struct {
	// pointer so an explicit 0 passes "required"
	Capacity *int `json:"capacity" validate:"required,gte=0"`
}

type CapacityResponse struct {
	Capacity int `json:"capacity"`
	Evicted  int `json:"evicted"`
}

type Viewport struct {
	MinX float64 `json:"min_x" form:"minx"`
	MinY float64 `json:"min_y" form:"miny"`
	MaxX float64 `json:"max_x" form:"maxx" validate:"gtfield=MinX"`
	MaxY float64 `json:"max_y" form:"maxy" validate:"gtfield=MinY"`
}

func (v Viewport) Bounds() tile.Bounds {
	return tile.Bounds{MinX: v.MinX, MinY: v.MinY, MaxX: v.MaxX, MaxY: v.MaxY}
}

type CoverRequest struct {
	Viewport
	Level int `form:"level" validate:"gte=0,lte=30"`
	// Size overrides the layer's tile size when set.
	Size int `form:"size" validate:"omitempty,gt=0"`
}

type CoverResponse struct {
	Range    tile.Range `json:"range"`
	Keys     []string   `json:"keys"`
	Quadkeys []string   `json:"quadkeys"`
	Tiles    []MapTile  `json:"tiles"`
}

// MapTile is a z/x/y web map tile with its lon/lat bound.
type MapTile struct {
	Z     uint32    `json:"z"`
	X     uint32    `json:"x"`
	Y     uint32    `json:"y"`
	Bound orb.Bound `json:"bound"`
}

func NewMapTile(t maptile.Tile) MapTile {
	return MapTile{Z: uint32(t.Z), X: t.X, Y: t.Y, Bound: t.Bound()}
}

type CacheKeysResponse struct {
	Keys []string `json:"keys"`
	// Tiles holds the keys that parse as canonical "level/y/x".
	Tiles []tile.Index `json:"tiles"`
}

type PrefetchRequest struct {
	Viewport Viewport `json:"viewport"`
	Level    *int     `json:"level" validate:"required,gte=0,lte=30"`
}
