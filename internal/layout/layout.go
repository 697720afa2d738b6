// Package layout defines the capabilities the inventory core consumes from a
// presentation host. The core never draws anything: it positions opaque
// handles, toggles their visibility and reads back bounding boxes once the
// host has finished a layout pass.
package layout

import (
	"context"

	"github.com/gravitas-games/gridinv/internal/geom"
)

// Handle is an element owned by the presentation host.
type Handle interface {
	// BoundingBox returns the on-screen box of the element as of the last
	// completed layout pass.
	BoundingBox() geom.Rect
	// SetPosition moves the element relative to its parent grid. The change
	// becomes visible in BoundingBox only after the next settled layout.
	SetPosition(pos geom.Vec)
	SetSize(size geom.Vec)
	SetVisible(visible bool)
	// SetRotation rotates the icon presentation only; the element box is
	// governed by SetSize.
	SetRotation(degrees float64)
	BringToFront()
}

// Service drives host layout passes.
type Service interface {
	RequestLayout()
	// AwaitSettled blocks until the pass requested by RequestLayout has been
	// applied and bounding boxes are authoritative again.
	AwaitSettled(ctx context.Context) error
}

// GridSpec describes a grid view to the host.
type GridSpec struct {
	Key      string
	Title    string
	Columns  int
	Rows     int
	SlotSize geom.Vec
}

// ItemSpec describes an item view to the host.
type ItemSpec struct {
	InstanceID   string
	DefinitionID string
	Name         string
	Icon         string
	Size         geom.Vec
}

// Presenter creates and destroys handles and runs layout passes.
type Presenter interface {
	Service
	NewGrid(spec GridSpec) Handle
	NewItem(grid Handle, spec ItemSpec) Handle
	// NewTelegraph creates the hidden highlight used to preview a drop.
	NewTelegraph(grid Handle) Handle
	Release(h Handle)
}
