package grid

import (
	"github.com/google/uuid"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/layout"
)

// Instance is a live placement of an item definition.
type Instance struct {
	ID        string
	Def       *item.Definition
	Footprint item.Dimensions
	Rotated   bool
	// Handle is the presentation element of the item; nil until the owning
	// grid attaches one.
	Handle layout.Handle
	// Nested is set while the container view of this item is open.
	Nested *Container
}

// NewInstance creates an unrotated instance of def with a fresh ID.
func NewInstance(def *item.Definition) *Instance {
	return NewInstanceWithID(uuid.NewString(), def)
}

// NewInstanceWithID creates an unrotated instance with a known ID, used when
// restoring persisted records.
func NewInstanceWithID(id string, def *item.Definition) *Instance {
	if id == "" {
		id = uuid.NewString()
	}
	return &Instance{ID: id, Def: def, Footprint: def.Size}
}

// Rotate swaps the footprint extents. Calling it twice restores the
// original footprint.
func (i *Instance) Rotate() {
	i.Footprint = i.Footprint.Rotated()
	i.Rotated = !i.Rotated
}

// SetOrientation forces the rotation flag, adjusting the footprint.
func (i *Instance) SetOrientation(rotated bool) {
	if i.Rotated != rotated {
		i.Rotate()
	}
}

// RotationDegrees is the icon rotation matching the rotation flag.
func (i *Instance) RotationDegrees() float64 {
	if i.Rotated {
		return 90
	}
	return 0
}

// IsContainer reports whether the instance can hold a nested grid.
func (i *Instance) IsContainer() bool {
	return i != nil && i.Def.IsContainer()
}
