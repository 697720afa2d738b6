package item

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Catalog stores item definitions keyed by ID.
type Catalog struct {
	mu    sync.RWMutex
	items map[ID]*Definition
}

// NewCatalog constructs a catalog and optionally seeds it with definitions.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{items: make(map[ID]*Definition, len(defs))}
	for _, d := range defs {
		_ = c.Register(d) // ignore invalid seeds
	}
	return c
}

// Register inserts or replaces a definition. A definition without an ID is
// assigned a random one.
func (c *Catalog) Register(def Definition) error {
	if def.ID == "" {
		def.ID = ID(uuid.NewString())
	}
	if !def.Size.Valid() {
		return fmt.Errorf("item %s: size must be positive, got %dx%d", def.ID, def.Size.Width, def.Size.Height)
	}
	if def.Container && !def.ContainerSize.Valid() {
		return fmt.Errorf("item %s: container size must be positive", def.ID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[ID]*Definition)
	}
	d := def
	c.items[def.ID] = &d
	return nil
}

// Lookup returns the definition for id, if present.
func (c *Catalog) Lookup(id ID) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.items[id]
	return d, ok
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Export copies the catalog into a slice sorted by ID.
func (c *Catalog) Export() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Definition, 0, len(c.items))
	for _, d := range c.items {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type catalogFile struct {
	Items []Definition `yaml:"items"`
}

// ParseCatalog decodes a YAML document with a top-level items list.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, errors.New("catalog has no items")
	}
	c := NewCatalog()
	for _, d := range f.Items {
		if err := c.Register(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}
