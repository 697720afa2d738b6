package item

// SampleCatalog returns a small adventure-themed catalog used by the demo
// hosts when no catalog file is configured.
func SampleCatalog() *Catalog {
	return NewCatalog(
		Definition{ID: "potion", Name: "Health Potion", Description: "Restores a little health.", SellPrice: 15, Icon: "icons/potion", Size: Dimensions{Width: 1, Height: 1}},
		Definition{ID: "dagger", Name: "Dagger", Description: "Short and sharp.", SellPrice: 40, Icon: "icons/dagger", Size: Dimensions{Width: 1, Height: 2}},
		Definition{ID: "sword", Name: "Longsword", Description: "A knight's blade.", SellPrice: 120, Icon: "icons/sword", Size: Dimensions{Width: 1, Height: 3}},
		Definition{ID: "shield", Name: "Kite Shield", Description: "Heavy but reliable.", SellPrice: 90, Icon: "icons/shield", Size: Dimensions{Width: 2, Height: 2}},
		Definition{ID: "bow", Name: "Hunting Bow", Description: "Strung with sinew.", SellPrice: 75, Icon: "icons/bow", Size: Dimensions{Width: 2, Height: 1}},
		Definition{ID: "pouch", Name: "Belt Pouch", Description: "Holds small things.", SellPrice: 20, Icon: "icons/pouch", Size: Dimensions{Width: 1, Height: 1}, Container: true, ContainerSize: Dimensions{Width: 2, Height: 2}},
		Definition{ID: "backpack", Name: "Backpack", Description: "Room for the road.", SellPrice: 60, Icon: "icons/backpack", Size: Dimensions{Width: 2, Height: 2}, Container: true, ContainerSize: Dimensions{Width: 4, Height: 3}},
	)
}
