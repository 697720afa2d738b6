package config

import (
	"fmt"

	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/inventory"
	"github.com/gravitas-games/gridinv/internal/placement"
)

// ServiceConfig converts the inventory section into the settings of one
// inventory service. The owner is left for the caller to fill in.
func (c InventoryConfig) ServiceConfig() (inventory.Config, error) {
	rootPolicy, err := placement.ParsePolicy(c.RootLoadPolicy)
	if err != nil {
		return inventory.Config{}, fmt.Errorf("root load policy: %w", err)
	}
	containerPolicy, err := placement.ParsePolicy(c.ContainerLoadPolicy)
	if err != nil {
		return inventory.Config{}, fmt.Errorf("container load policy: %w", err)
	}
	return inventory.Config{
		Columns:             c.Columns,
		Rows:                c.Rows,
		SlotSize:            geom.Vec{c.SlotSize, c.SlotSize},
		RootPolicy:          rootPolicy,
		ContainerPolicy:     containerPolicy,
		RestorePositions:    c.RestorePositions,
		StickyPickup:        c.StickyPickup,
		HandoffRequiresOpen: c.RequiresOpen(),
	}, nil
}
