package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jaennil/guide_helper/tilecache/internal/layer"
	"github.com/jaennil/guide_helper/tilecache/internal/tile"
)

var ErrViewportTooLarge = errors.New("viewport needs more tiles than the layer keeps")

// PrefetchUseCase shares one layer between HTTP requests. The layer is
// single-owner, so every call is serialized.
type PrefetchUseCase struct {
	mu    sync.Mutex
	layer *layer.Layer
}

func NewPrefetchUseCase(l *layer.Layer) *PrefetchUseCase {
	return &PrefetchUseCase{layer: l}
}

// Prefetch loads the tiles covering viewport at level. A cover larger than
// the layer's capacity is refused before anything is fetched.
func (uc *PrefetchUseCase) Prefetch(ctx context.Context, viewport tile.Bounds, level int) (layer.UpdateResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	r, ok, err := uc.layer.Cover(viewport, level)
	if err != nil {
		return layer.UpdateResult{}, err
	}
	if ok && r.Len() > uc.layer.Capacity() {
		return layer.UpdateResult{Range: r, Visible: r.Len()},
			fmt.Errorf("%w: %d tiles, capacity %d", ErrViewportTooLarge, r.Len(), uc.layer.Capacity())
	}

	return uc.layer.Update(ctx, viewport, level)
}

func (uc *PrefetchUseCase) Cover(viewport tile.Bounds, level int) (tile.Range, bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	return uc.layer.Cover(viewport, level)
}
