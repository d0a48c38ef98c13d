package impostor

import (
	"log/slog"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/config"
	"impostor-lod/internal/geom"
)

func TestBatchMeshShownWithImpostors(t *testing.T) {
	dev := &fakeDevice{}
	m, _ := newTestManager(dev, config.Default())
	if err := m.SetConfiguration(singleLayer(10, 50, 2)); err != nil {
		t.Fatal(err)
	}
	a := cubeAt("a", mgl32.Vec3{0, 0, -20})
	m.Register(a)
	if err := m.Tick(0.5); err != nil {
		t.Fatal(err)
	}

	mesh := dev.meshes[0]
	if !a.ImpostorVisible() || a.Primitives()[0].Enabled {
		t.Fatal("trackable did not hand over to its impostor")
	}
	if !mesh.visible {
		t.Fatal("real geometry hidden but the impostor mesh is not drawn")
	}

	m.SetEnabled(false)
	if mesh.visible {
		t.Error("mesh still drawn after disabling impostors")
	}
	m.SetEnabled(true)
	if !mesh.visible {
		t.Error("mesh not drawn again after re-enabling impostors")
	}
}

func perTrackable(lo, hi float32, rate float64) config.Configuration {
	cfg := singleLayer(lo, hi, rate)
	cfg.Mode = config.ModePerTrackable
	return cfg
}

func TestPerTrackableSurfaces(t *testing.T) {
	dev := &fakeDevice{}
	s := config.Default()
	s.SetTextureSize(256, 256)
	s.SetDivisions(2)
	s.SetMaxAtlasPages(1)
	logger, rec := newRecordLogger()
	m, _ := newTestManager(dev, s, WithLogger(logger))
	if err := m.SetConfiguration(perTrackable(10, 50, 1)); err != nil {
		t.Fatal(err)
	}
	if len(m.Atlas().Pages()) != 0 || m.Layers()[0].Surface() != nil {
		t.Fatal("per-trackable layers must not reserve a layer surface")
	}

	ts := []*Trackable{
		cubeAt("a", mgl32.Vec3{0, 0, -20}),
		cubeAt("b", mgl32.Vec3{4, 0, -30}),
		cubeAt("c", mgl32.Vec3{-4, 0, -25}),
		cubeAt("d", mgl32.Vec3{0, 3, -40}),
		cubeAt("e", mgl32.Vec3{0, -3, -35}),
	}
	far := cubeAt("far", mgl32.Vec3{0, 0, -100})
	m.Register(append(ts, far)...)

	if err := m.Tick(1); err != nil {
		t.Fatal(err)
	}

	// four cells on the only page; the fifth trackable is refused
	viewports := map[PixelRect]bool{}
	for _, tr := range ts[:4] {
		if !tr.ImpostorVisible() || tr.Primitives()[0].Enabled {
			t.Errorf("%s is not an impostor", tr.Name)
		}
		if tr.Surface() == nil {
			t.Fatalf("%s has no surface", tr.Name)
		}
		if !quadShown(tr.Surface()) {
			t.Errorf("%s billboard not placed", tr.Name)
		}
		viewports[tr.Surface().Pixels()] = true
	}
	if len(viewports) != 4 {
		t.Errorf("surfaces share cells: %v", viewports)
	}
	e := ts[4]
	if e.Surface() != nil || e.ImpostorVisible() || !e.Primitives()[0].Enabled {
		t.Error("trackable without atlas room must keep its geometry")
	}
	if far.Surface() != nil || far.ImpostorVisible() {
		t.Error("out-of-band trackable got a surface")
	}

	if len(dev.passes) != 4 {
		t.Fatalf("passes = %d, want one per trackable", len(dev.passes))
	}
	for i, p := range dev.passes {
		if !p.Clear || len(p.prims) != 1 || p.prims[0] != ts[i].Primitives()[0] {
			t.Errorf("pass %d does not render %s alone into a cleared cell", i, ts[i].Name)
		}
		if p.Viewport != ts[i].Surface().Pixels() {
			t.Errorf("pass %d viewport = %v, want %v", i, p.Viewport, ts[i].Surface().Pixels())
		}
	}
	if len(dev.copies) != 4 {
		t.Errorf("copies = %d, want a region present per trackable", len(dev.copies))
	}

	// an on-axis cube frames symmetrically around its own centre
	q := ts[0].Surface().Batch().Quad(ts[0].Surface().Slot())
	center := q.Corners[0].Add(q.Corners[2]).Mul(0.5)
	if !center.ApproxEqualThreshold(mgl32.Vec3{0, 0, -20}, 1e-3) {
		t.Errorf("billboard centre = %v, want the cube centre", center)
	}

	warns := rec.count(slog.LevelWarn)
	if warns == 0 {
		t.Error("refused reservation was not logged")
	}
	if err := m.Tick(1); err != nil {
		t.Fatal(err)
	}
	if rec.count(slog.LevelWarn) != warns {
		t.Error("refused trackable was retried on the next refresh")
	}

	// leaving the band hands the geometry back and hides the billboard
	moveTo(ts[0], mgl32.Vec3{0, 0, -100})
	if err := m.Tick(1); err != nil {
		t.Fatal(err)
	}
	if ts[0].ImpostorVisible() || !ts[0].Primitives()[0].Enabled {
		t.Error("trackable outside the band is still an impostor")
	}
	if quadShown(ts[0].Surface()) {
		t.Error("billboard of a released trackable still shown")
	}
	if !ts[1].ImpostorVisible() {
		t.Error("in-band trackable lost its impostor")
	}

	if err := m.SetConfiguration(singleLayer(10, 50, 1)); err != nil {
		t.Fatal(err)
	}
	for _, tr := range ts {
		if tr.Surface() != nil {
			t.Errorf("%s kept a surface after switching to per-layer mode", tr.Name)
		}
		if tr.ImpostorVisible() {
			t.Errorf("%s still an impostor after reconfiguring", tr.Name)
		}
	}
}

func TestPerTrackableDisableRestoresGeometry(t *testing.T) {
	dev := &fakeDevice{}
	m, _ := newTestManager(dev, config.Default())
	if err := m.SetConfiguration(perTrackable(10, 50, 1)); err != nil {
		t.Fatal(err)
	}
	a := cubeAt("a", mgl32.Vec3{0, 0, -20})
	m.Register(a)
	if err := m.Tick(1); err != nil {
		t.Fatal(err)
	}
	if !a.ImpostorVisible() || !dev.meshes[0].visible {
		t.Fatal("impostor not shown")
	}

	m.SetEnabled(false)
	if a.ImpostorVisible() || !a.Primitives()[0].Enabled || quadShown(a.Surface()) {
		t.Error("disable did not restore geometry")
	}
	if dev.meshes[0].visible {
		t.Error("mesh still drawn while disabled")
	}
}

func TestFrameFrustumLayer(t *testing.T) {
	dev := &fakeDevice{}
	m, viewer := newTestManager(dev, config.Default())
	cfg := singleLayer(10, 50, 1)
	cfg.Layers[0].FrameFrustum = true
	if err := m.SetConfiguration(cfg); err != nil {
		t.Fatal(err)
	}
	a := cubeAt("a", mgl32.Vec3{5, 0, -30})
	m.Register(a)
	if err := m.Tick(1); err != nil {
		t.Fatal(err)
	}
	if !a.ImpostorVisible() {
		t.Fatal("trackable did not become an impostor")
	}

	f := m.Layers()[0].Frame()
	if f.Depth != 10 {
		t.Errorf("window depth = %v, want the band's inner edge", f.Depth)
	}
	w, h := viewer.FrustumSizeAt(10)
	if math.Abs(float64(f.HalfWidth-w/2)) > 1e-3 || math.Abs(float64(f.HalfHeight-h/2)) > 1e-3 {
		t.Errorf("window = %v x %v, want the frustum %v x %v", 2*f.HalfWidth, 2*f.HalfHeight, w, h)
	}
	if len(dev.passes) != 1 || !geom.MatrixNearEqual(dev.passes[0].Projection, viewer.BaseProjection(), 1e-6) {
		t.Error("frustum layer must render with the lens projection")
	}

	l := m.Layers()[0]
	q := l.Surface().Batch().Quad(l.Surface().Slot())
	center := q.Corners[0].Add(q.Corners[2]).Mul(0.5)
	if !center.ApproxEqualThreshold(mgl32.Vec3{0, 0, -10}, 1e-3) {
		t.Errorf("window centre = %v, want straight ahead at the inner edge", center)
	}
}
