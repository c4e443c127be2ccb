package layer

import (
	"time"

	"github.com/jaennil/guide_helper/tilecache/internal/tile"
)

type State int

const (
	StatePending State = iota
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tile is a cached tile and the state of its content.
type Tile struct {
	Key      tile.Key
	State    State
	Content  []byte
	Err      error
	LoadedAt time.Time
}
