package impostor

import (
	"math"
	"time"

	"impostor-lod/internal/camera"
	"impostor-lod/internal/config"
	"impostor-lod/internal/geom"
)

// LayerState is the refresh state of a layer within one tick.
type LayerState int

const (
	Idle LayerState = iota
	DueForRefresh
	Rendering
)

func (s LayerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case DueForRefresh:
		return "due"
	case Rendering:
		return "rendering"
	}
	return "unknown"
}

// dueEpsilon absorbs float error in the accumulated clock, so 60 steps of 1/60
// still cross the one-second boundary.
const dueEpsilon = 1e-9

// IsDue reports whether a refresh boundary of rate Hz was crossed between prev and now.
func IsDue(now, prev, rate float64) bool {
	if rate <= 0 {
		return false
	}
	return math.Floor(now*rate+dueEpsilon) != math.Floor(prev*rate+dueEpsilon)
}

// Layer is one distance band of impostors with its own surface and camera.
type Layer struct {
	Def   config.LayerDefinition
	index int

	state   LayerState
	surface *Surface
	camera  *ImpostorCamera

	// active is what the displayed front buffer shows; pending accumulates in the back buffer.
	active   []*Trackable
	pending  []*Trackable
	groupBuf []*Primitive

	cursor      int
	frame       Frame
	presentDue  bool
	displayed   bool
	refreshes   int
	skipped     int
	lastRefresh time.Duration
}

func newLayer(index int, def config.LayerDefinition) *Layer {
	return &Layer{Def: def, index: index, camera: NewImpostorCamera()}
}

func (l *Layer) Index() int { return l.index }

func (l *Layer) State() LayerState { return l.state }

// Surface is nil when no atlas capacity was left for this layer.
func (l *Layer) Surface() *Surface { return l.surface }

func (l *Layer) Camera() *ImpostorCamera { return l.camera }

// Active returns the trackables the layer's impostor currently stands in for.
func (l *Layer) Active() []*Trackable { return l.active }

// Pending returns the trackables of the progressive cycle in progress.
func (l *Layer) Pending() []*Trackable { return l.pending }

// Cursor is the progressive group rendered on the next due tick.
func (l *Layer) Cursor() int { return l.cursor }

// Frame is the framing of the cycle in progress or last presented.
func (l *Layer) Frame() Frame { return l.frame }

// Contains reports whether a view depth falls in the band [MinRadius, MaxRadius).
func (l *Layer) Contains(depth float32) bool {
	return depth >= l.Def.MinRadius && depth < l.Def.MaxRadius
}

func (l *Layer) clearColor() Color {
	if l.Def.DebugFill != nil {
		return Color(*l.Def.DebugFill)
	}
	return transparent
}

// placementDepth is where the billboard sits: the render distance if set, else the
// inner edge of the band, else the framed box centre.
func (l *Layer) placementDepth() float32 {
	if l.Def.RenderDistance > 0 {
		return l.Def.RenderDistance
	}
	return l.Def.MinRadius
}

// collect fills pending with every trackable whose pivot lies in the band and
// returns the union of their bounds.
func (l *Layer) collect(trackables []*Trackable, viewer *camera.Camera) geom.AABB {
	l.pending = l.pending[:0]
	box := geom.EmptyAABB()
	for _, t := range trackables {
		if !l.Contains(viewer.ViewDepth(t.Position)) {
			continue
		}
		l.pending = append(l.pending, t)
		box = box.Union(t.bounds)
	}
	return box
}

// group returns the primitives of pending trackables in progressive group g of n.
func (l *Layer) group(g, n int) []*Primitive {
	l.groupBuf = l.groupBuf[:0]
	for _, t := range l.pending {
		if t.Subgroup(n) != g {
			continue
		}
		l.groupBuf = append(l.groupBuf, t.prims...)
	}
	return l.groupBuf
}

// reset drops all progress without touching trackables.
func (l *Layer) reset() {
	l.state = Idle
	l.cursor = 0
	l.presentDue = false
	l.pending = l.pending[:0]
	l.camera.Deactivate()
}
