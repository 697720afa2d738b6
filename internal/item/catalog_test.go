package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsMissingID(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(Definition{Name: "Rock", Size: Dimensions{Width: 1, Height: 1}}))
	defs := c.Export()
	require.Len(t, defs, 1)
	assert.NotEmpty(t, defs[0].ID)
}

func TestRegisterRejectsInvalidSizes(t *testing.T) {
	c := NewCatalog()
	assert.Error(t, c.Register(Definition{ID: "x", Size: Dimensions{Width: 0, Height: 1}}))
	assert.Error(t, c.Register(Definition{ID: "bag", Size: Dimensions{Width: 1, Height: 1}, Container: true}))
}

func TestParseCatalog(t *testing.T) {
	doc := []byte(`
items:
  - id: backpack
    name: Backpack
    sell_price: 60
    size: {width: 2, height: 2}
    container: true
    container_size: {width: 4, height: 3}
  - id: potion
    name: Potion
    size: {width: 1, height: 1}
`)
	c, err := ParseCatalog(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	bag, ok := c.Lookup("backpack")
	require.True(t, ok)
	assert.True(t, bag.IsContainer())
	assert.Equal(t, Dimensions{Width: 4, Height: 3}, bag.ContainerSize)
	assert.Equal(t, 60, bag.SellPrice)

	potion, ok := c.Lookup("potion")
	require.True(t, ok)
	assert.False(t, potion.IsContainer())
}

func TestParseCatalogRejectsEmpty(t *testing.T) {
	_, err := ParseCatalog([]byte("items: []"))
	assert.Error(t, err)
}

func TestDimensionsRotated(t *testing.T) {
	d := Dimensions{Width: 1, Height: 3}
	assert.Equal(t, Dimensions{Width: 3, Height: 1}, d.Rotated())
	assert.Equal(t, d, d.Rotated().Rotated())
}

func TestSampleCatalogIsValid(t *testing.T) {
	c := SampleCatalog()
	assert.Equal(t, 7, c.Len())
	bag, ok := c.Lookup("backpack")
	require.True(t, ok)
	assert.True(t, bag.IsContainer())
}
