package tile

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidDescriptor = errors.New("invalid tile descriptor")

var validate = validator.New()

// Descriptor is the loose input form of a Key, as it arrives from JSON or
// from a layer's configuration. Level and Overlap are optional.
type Descriptor struct {
	Index   IndexDescriptor    `json:"index"`
	Size    SizeDescriptor     `json:"size"`
	Overlap *OverlapDescriptor `json:"overlap,omitempty" validate:"omitempty"`
}

type IndexDescriptor struct {
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Level *int `json:"level,omitempty" validate:"omitempty,gte=0"`
}

type SizeDescriptor struct {
	X int `json:"x" validate:"gt=0"`
	Y int `json:"y" validate:"gt=0"`
}

type OverlapDescriptor struct {
	X int `json:"x" validate:"gte=0"`
	Y int `json:"y" validate:"gte=0"`
}

// New validates d and builds the Key it describes.
func New(d Descriptor) (Key, error) {
	if err := validate.Struct(d); err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}

	k := Key{
		Index: Index{X: d.Index.X, Y: d.Index.Y},
		Size:  Point{X: d.Size.X, Y: d.Size.Y},
	}
	if d.Index.Level != nil {
		k.Index.Level = *d.Index.Level
	}
	if d.Overlap != nil {
		k.Overlap = Point{X: d.Overlap.X, Y: d.Overlap.Y}
	}

	return k, nil
}

// MustNew is New for literals known to be valid.
func MustNew(d Descriptor) Key {
	k, err := New(d)
	if err != nil {
		panic(err)
	}
	return k
}
