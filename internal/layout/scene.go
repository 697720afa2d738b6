package layout

import (
	"context"
	"sort"

	"github.com/gravitas-games/gridinv/internal/geom"
)

// Kind classifies scene nodes for hosts that render a Scene.
type Kind int

const (
	KindGrid Kind = iota
	KindItem
	KindTelegraph
)

// Scene is a headless presenter. Requested positions and sizes only reach
// bounding boxes when a requested layout pass is awaited, which mirrors a
// retained-mode UI toolkit closely enough to exercise the settle protocol.
type Scene struct {
	// Origin is where the first grid is laid out on screen.
	Origin geom.Vec
	// Gap separates grids laid out side by side.
	Gap float64

	nodes     []*node
	nextID    int
	nextZ     int
	requested bool
	passes    int
}

// NewScene creates an empty scene.
func NewScene(origin geom.Vec, gap float64) *Scene {
	return &Scene{Origin: origin, Gap: gap}
}

type node struct {
	scene    *Scene
	id       int
	kind     Kind
	parent   *node
	label    string
	icon     string
	key      string
	pos      geom.Vec
	size     geom.Vec
	laidPos  geom.Vec
	laidSize geom.Vec
	visible  bool
	rotation float64
	z        int
}

func (n *node) BoundingBox() geom.Rect {
	origin := geom.Vec{}
	if n.parent != nil {
		origin = n.parent.BoundingBox().Min
	}
	return geom.RectAt(origin.Add(n.laidPos), n.laidSize)
}

func (n *node) SetPosition(pos geom.Vec)    { n.pos = pos }
func (n *node) SetSize(size geom.Vec)       { n.size = size }
func (n *node) SetVisible(visible bool)     { n.visible = visible }
func (n *node) SetRotation(degrees float64) { n.rotation = degrees }

func (n *node) BringToFront() {
	n.scene.nextZ++
	n.z = n.scene.nextZ
}

// RequestLayout marks the scene dirty.
func (s *Scene) RequestLayout() { s.requested = true }

// AwaitSettled applies every pending position and size change.
func (s *Scene) AwaitSettled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, n := range s.nodes {
		n.laidPos = n.pos
		n.laidSize = n.size
	}
	s.requested = false
	s.passes++
	return nil
}

// Passes returns how many layout passes have completed.
func (s *Scene) Passes() int { return s.passes }

// NewGrid lays a new grid out to the right of the existing ones.
func (s *Scene) NewGrid(spec GridSpec) Handle {
	pos := s.Origin
	for _, n := range s.nodes {
		if n.kind != KindGrid {
			continue
		}
		right := n.pos.X() + n.size.X() + s.Gap
		if right > pos.X() {
			pos = geom.Vec{right, s.Origin.Y()}
		}
	}
	size := geom.Vec{float64(spec.Columns) * spec.SlotSize.X(), float64(spec.Rows) * spec.SlotSize.Y()}
	n := s.add(&node{kind: KindGrid, label: spec.Title, key: spec.Key, pos: pos, size: size, visible: true})
	return n
}

// NewItem creates a hidden item view inside grid.
func (s *Scene) NewItem(grid Handle, spec ItemSpec) Handle {
	parent, _ := grid.(*node)
	return s.add(&node{kind: KindItem, parent: parent, label: spec.Name, icon: spec.Icon, key: spec.InstanceID, size: spec.Size})
}

// NewTelegraph creates a hidden drop highlight inside grid.
func (s *Scene) NewTelegraph(grid Handle) Handle {
	parent, _ := grid.(*node)
	return s.add(&node{kind: KindTelegraph, parent: parent})
}

// Release removes h and everything parented to it.
func (s *Scene) Release(h Handle) {
	target, ok := h.(*node)
	if !ok {
		return
	}
	kept := s.nodes[:0]
	for _, n := range s.nodes {
		if n == target || n.parent == target {
			continue
		}
		kept = append(kept, n)
	}
	s.nodes = kept
}

func (s *Scene) add(n *node) *node {
	s.nextID++
	n.id = s.nextID
	n.scene = s
	s.nodes = append(s.nodes, n)
	return n
}

// NodeInfo is a read-only snapshot of a scene node for rendering.
type NodeInfo struct {
	ID       int
	Kind     Kind
	Key      string
	Label    string
	Icon     string
	Box      geom.Rect
	Visible  bool
	Rotation float64
	Z        int
}

// Nodes returns every visible node, grids first and then by z order.
func (s *Scene) Nodes() []NodeInfo {
	out := make([]NodeInfo, 0, len(s.nodes))
	for _, n := range s.nodes {
		if !n.visible || (n.parent != nil && !n.parent.visible) {
			continue
		}
		out = append(out, NodeInfo{
			ID:       n.id,
			Kind:     n.kind,
			Key:      n.key,
			Label:    n.label,
			Icon:     n.icon,
			Box:      n.BoundingBox(),
			Visible:  n.visible,
			Rotation: n.rotation,
			Z:        n.z,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].Kind == KindGrid) != (out[j].Kind == KindGrid) {
			return out[i].Kind == KindGrid
		}
		return out[i].Z < out[j].Z
	})
	return out
}
