package impostor

import (
	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/geom"
)

// Mesh is indexed triangle geometry in local space.
type Mesh struct {
	Vertices []mgl32.Vec3
	Indices  []uint32

	bounds    geom.AABB
	hasBounds bool
}

// NewMesh returns a mesh with its local bounds precomputed, so it can be shared
// between primitives that are bounded concurrently.
func NewMesh(vertices []mgl32.Vec3, indices []uint32) *Mesh {
	m := &Mesh{Vertices: vertices, Indices: indices}
	m.bounds = m.computeBounds()
	m.hasBounds = true
	return m
}

// Bounds returns the local-space box of the mesh.
func (m *Mesh) Bounds() geom.AABB {
	if m.hasBounds {
		return m.bounds
	}
	return m.computeBounds()
}

func (m *Mesh) computeBounds() geom.AABB {
	b := geom.EmptyAABB()
	for _, v := range m.Vertices {
		b = b.Extend(v)
	}
	return b
}

// Primitive is one renderable piece of a trackable: a mesh placed in the world.
type Primitive struct {
	Name  string
	Mesh  *Mesh
	World mgl32.Mat4
	// Scale is the cumulative max-axis scale of the primitive's transform chain.
	Scale float32
	Color Color

	// Layer is the render layer the primitive is drawn on; masks select layers.
	Layer int
	// Enabled is false while an impostor stands in for the primitive.
	Enabled bool

	baseLayer int
}

// NewPrimitive returns an enabled primitive on render layer 0.
func NewPrimitive(name string, mesh *Mesh, world mgl32.Mat4, scale float32, color Color) *Primitive {
	return &Primitive{
		Name:    name,
		Mesh:    mesh,
		World:   world,
		Scale:   scale,
		Color:   color,
		Enabled: true,
	}
}

// WorldBounds transforms the mesh box into world space.
func (p *Primitive) WorldBounds() geom.AABB {
	if p.Mesh == nil {
		return geom.EmptyAABB()
	}
	return p.Mesh.Bounds().Transform(p.World)
}

// Visible reports whether a camera with the given culling mask would draw p.
func (p *Primitive) Visible(mask uint32) bool {
	return p.Enabled && mask&(1<<uint(p.Layer)) != 0
}

// Trackable is a world object that can be replaced by an impostor.
type Trackable struct {
	ID       int
	Name     string
	Position mgl32.Vec3

	seq   int
	prims []*Primitive

	bounds geom.AABB
	center mgl32.Vec3
	radius float32

	impostor bool
	owner    *Layer
	mark     uint64

	// per-trackable surface mode
	surface   *Surface
	frame     Frame
	framed    bool
	noSurface bool
}

// NewTrackable builds a trackable owning prims and computes its bounds.
func NewTrackable(name string, position mgl32.Vec3, prims []*Primitive) *Trackable {
	t := &Trackable{Name: name, Position: position, prims: prims}
	for _, p := range prims {
		p.baseLayer = p.Layer
	}
	t.RefreshBounds()
	return t
}

func (t *Trackable) Primitives() []*Primitive { return t.prims }

// Sequence is the registration order, used for progressive sub-groups.
func (t *Trackable) Sequence() int { return t.seq }

// Subgroup is the progressive render group of t when a refresh is split n ways.
func (t *Trackable) Subgroup(n int) int {
	if n <= 1 {
		return 0
	}
	return t.seq % n
}

func (t *Trackable) Bounds() geom.AABB { return t.bounds }

// BoundingSphere returns the centre and radius computed by RefreshBounds.
func (t *Trackable) BoundingSphere() (mgl32.Vec3, float32) { return t.center, t.radius }

// RefreshBounds recomputes the world box over all primitives and the bounding-sphere
// radius: the farthest vertex from the box centre, measured in each primitive's local
// space and scaled by its cumulative scale.
func (t *Trackable) RefreshBounds() {
	box := geom.EmptyAABB()
	for _, p := range t.prims {
		box = box.Union(p.WorldBounds())
	}
	t.bounds = box
	if box.IsEmpty() {
		t.center = t.Position
		t.radius = 0
		return
	}
	t.center = box.Center()

	var radius float32
	for _, p := range t.prims {
		if p.Mesh == nil {
			continue
		}
		local := mgl32.TransformCoordinate(t.center, p.World.Inv())
		var maxDist float32
		for _, v := range p.Mesh.Vertices {
			if d := v.Sub(local).Len(); d > maxDist {
				maxDist = d
			}
		}
		scale := p.Scale
		if scale == 0 {
			scale = 1
		}
		if r := maxDist * scale; r > radius {
			radius = r
		}
	}
	t.radius = radius
}

// ImpostorVisible reports whether an impostor currently stands in for t.
func (t *Trackable) ImpostorVisible() bool { return t.impostor }

// SetImpostorVisible hides the real primitives when v is true and shows them when
// false. Repeating the current value does nothing.
func (t *Trackable) SetImpostorVisible(v bool) {
	if v == t.impostor {
		return
	}
	for _, p := range t.prims {
		p.Enabled = !v
	}
	t.impostor = v
}

// SetRenderLayer moves every primitive onto layer.
func (t *Trackable) SetRenderLayer(layer int) {
	for _, p := range t.prims {
		p.Layer = layer
	}
}

// ResetRenderLayer moves every primitive back to the layer it was registered on.
func (t *Trackable) ResetRenderLayer() {
	for _, p := range t.prims {
		p.Layer = p.baseLayer
	}
}

// Owner is the impostor layer currently displaying t, if any.
func (t *Trackable) Owner() *Layer { return t.owner }

// Surface is t's own atlas surface in per-trackable mode; nil otherwise or when the
// atlas had no capacity left for it.
func (t *Trackable) Surface() *Surface { return t.surface }

// dropSurface forgets the per-trackable surface after an atlas reset.
func (t *Trackable) dropSurface() {
	t.surface = nil
	t.framed = false
	t.noSurface = false
}
