package impostor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/camera"
	"impostor-lod/internal/config"
)

type fakeTarget struct {
	id       int
	w, h     int
	released bool
}

func (t *fakeTarget) Size() (int, int) { return t.w, t.h }
func (t *fakeTarget) Release()         { t.released = true }

type fakeMesh struct {
	maxQuads  int
	uploads   int
	vertices  []mgl32.Vec3
	indices   []uint32
	texture   RenderTarget
	transform mgl32.Mat4
	params    MaterialParams
	visible   bool
	released  bool
}

func (m *fakeMesh) Upload(v []mgl32.Vec3, uv []mgl32.Vec2, idx []uint32) error {
	m.uploads++
	m.vertices = append(m.vertices[:0], v...)
	if idx != nil {
		m.indices = append(m.indices[:0], idx...)
	}
	return nil
}
func (m *fakeMesh) SetTexture(t RenderTarget)  { m.texture = t }
func (m *fakeMesh) SetTransform(t mgl32.Mat4)  { m.transform = t }
func (m *fakeMesh) SetParams(p MaterialParams) { m.params = p }
func (m *fakeMesh) SetVisible(v bool)          { m.visible = v }
func (m *fakeMesh) Release()                   { m.released = true }

type recordedPass struct {
	RenderPass
	prims []*Primitive
}

type recordedCopy struct {
	dst, src RenderTarget
	rect     PixelRect
}

type fakeDevice struct {
	targets []*fakeTarget
	meshes  []*fakeMesh
	passes  []recordedPass
	copies  []recordedCopy
}

func (d *fakeDevice) NewRenderTarget(w, h int) (RenderTarget, error) {
	t := &fakeTarget{id: len(d.targets), w: w, h: h}
	d.targets = append(d.targets, t)
	return t, nil
}

func (d *fakeDevice) NewQuadMesh(maxQuads int, _ Material) (QuadMesh, error) {
	m := &fakeMesh{maxQuads: maxQuads}
	d.meshes = append(d.meshes, m)
	return m, nil
}

func (d *fakeDevice) Render(p RenderPass) error {
	prims := append([]*Primitive(nil), p.Primitives...)
	d.passes = append(d.passes, recordedPass{RenderPass: p, prims: prims})
	return nil
}

func (d *fakeDevice) CopyRegion(dst, src RenderTarget, r PixelRect) error {
	d.copies = append(d.copies, recordedCopy{dst: dst, src: src, rect: r})
	return nil
}

// recordHandler keeps every log record for assertions.
type recordHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r.Clone())
	h.mu.Unlock()
	return nil
}

func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

func newRecordLogger() (*slog.Logger, *recordHandler) {
	h := &recordHandler{}
	return slog.New(h), h
}

func cubeMesh() *Mesh {
	v := []mgl32.Vec3{
		{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
		{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
	}
	idx := []uint32{
		0, 1, 2, 0, 2, 3, 4, 6, 5, 4, 7, 6,
		0, 4, 5, 0, 5, 1, 3, 2, 6, 3, 6, 7,
		0, 3, 7, 0, 7, 4, 1, 5, 6, 1, 6, 2,
	}
	return NewMesh(v, idx)
}

func cubeAt(name string, pos mgl32.Vec3) *Trackable {
	world := mgl32.Translate3D(pos.X(), pos.Y(), pos.Z())
	p := NewPrimitive(name, cubeMesh(), world, 1, Color{1, 1, 1, 1})
	return NewTrackable(name, pos, []*Primitive{p})
}

func moveTo(t *Trackable, pos mgl32.Vec3) {
	t.Position = pos
	for _, p := range t.Primitives() {
		p.World = mgl32.Translate3D(pos.X(), pos.Y(), pos.Z())
	}
	t.RefreshBounds()
}

// forwardViewer looks down -Z from the origin, so view depth equals -z.
func forwardViewer() *camera.Camera {
	return camera.NewCamera(1280, 720)
}

func newTestManager(dev Device, s *config.Settings, opts ...Option) (*Manager, *camera.Camera) {
	viewer := forwardViewer()
	m, err := New(dev, s, viewer, opts...)
	if err != nil {
		panic(err)
	}
	return m, viewer
}

func singleLayer(lo, hi float32, rate float64) config.Configuration {
	return config.Configuration{
		Name:                      "test",
		EnableMainCameraRendering: true,
		Layers: []config.LayerDefinition{
			{UpdateRate: rate, MinRadius: lo, MaxRadius: hi},
		},
	}
}

// realVisible reports whether the main viewer draws every primitive of t.
func realVisible(t *Trackable, mask uint32) bool {
	for _, p := range t.Primitives() {
		if !p.Visible(mask) {
			return false
		}
	}
	return true
}

func quadShown(s *Surface) bool {
	q := s.Batch().Quad(s.Slot())
	return q.Corners[0] != q.Corners[2]
}
