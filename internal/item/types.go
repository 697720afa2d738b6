// Package item holds the immutable item templates the inventory places into
// grids. Definitions are loaded by the host (usually from a YAML catalog) and
// are read-only to the placement core.
package item

// ID is an application-defined identifier for an item definition.
type ID string

// Dimensions is a width x height extent measured in slots.
type Dimensions struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Rotated returns d with width and height swapped.
func (d Dimensions) Rotated() Dimensions {
	return Dimensions{Width: d.Height, Height: d.Width}
}

// Valid reports whether both extents are positive.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// Definition is the template every placed item instance is built from.
type Definition struct {
	ID          ID     `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	SellPrice   int    `yaml:"sell_price,omitempty" json:"sellPrice,omitempty"`
	// Icon is an opaque reference resolved by the presentation layer.
	Icon string     `yaml:"icon,omitempty" json:"icon,omitempty"`
	Size Dimensions `yaml:"size" json:"size"`

	// Container items carry their own nested grid.
	Container     bool       `yaml:"container,omitempty" json:"container,omitempty"`
	ContainerSize Dimensions `yaml:"container_size,omitempty" json:"containerSize,omitempty"`
}

// IsContainer reports whether the definition describes an openable container
// with a usable grid.
func (d *Definition) IsContainer() bool {
	return d != nil && d.Container && d.ContainerSize.Valid()
}
