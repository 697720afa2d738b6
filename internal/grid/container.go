package grid

import "github.com/gravitas-games/gridinv/internal/item"

// Record is the persisted form of a stored entry: the definition, the
// instance identity and the last known anchor.
type Record struct {
	InstanceID   string  `json:"instanceId,omitempty"`
	DefinitionID item.ID `json:"definitionId"`
	Position     *Point  `json:"position,omitempty"`
	Rotated      bool    `json:"rotated,omitempty"`
}

// Container is the open nested grid of a container item.
type Container struct {
	Grid *Grid
	Item *Instance
}

// NewContainer attaches g to the container item inst.
func NewContainer(inst *Instance, g *Grid) *Container {
	g.Owner = inst
	return &Container{Grid: g, Item: inst}
}
