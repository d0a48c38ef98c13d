package impostor

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/camera"
	"impostor-lod/internal/geom"
)

// reprojectedRect projects the box corners through the framed matrices and returns
// the NDC bounds.
func reprojectedRect(f Frame, box geom.AABB) (lo, hi mgl32.Vec2) {
	lo = mgl32.Vec2{float32(math.Inf(1)), float32(math.Inf(1))}
	hi = mgl32.Vec2{float32(math.Inf(-1)), float32(math.Inf(-1))}
	vp := f.Projection.Mul4(f.View)
	for _, c := range box.Corners() {
		clip := vp.Mul4x1(c.Vec4(1))
		x, y := clip.X()/clip.W(), clip.Y()/clip.W()
		lo = mgl32.Vec2{min(lo.X(), x), min(lo.Y(), y)}
		hi = mgl32.Vec2{max(hi.X(), x), max(hi.Y(), y)}
	}
	return lo, hi
}

func TestFrameAreaFillsClipRange(t *testing.T) {
	tests := []struct {
		name   string
		eye    mgl32.Vec3
		target mgl32.Vec3
		box    geom.AABB
	}{
		{"centred", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1},
			geom.AABB{Min: mgl32.Vec3{-1, -1, -21}, Max: mgl32.Vec3{1, 1, -19}}},
		{"off axis", mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 2, -1},
			geom.AABB{Min: mgl32.Vec3{5, -3, -40}, Max: mgl32.Vec3{9, 4, -30}}},
		{"wide and shallow", mgl32.Vec3{10, 5, 10}, mgl32.Vec3{0, 0, -50},
			geom.AABB{Min: mgl32.Vec3{-20, -1, -60}, Max: mgl32.Vec3{20, 1, -55}}},
		{"looking down", mgl32.Vec3{0, 50, 0}, mgl32.Vec3{5, 0, -20},
			geom.AABB{Min: mgl32.Vec3{0, 0, -25}, Max: mgl32.Vec3{10, 3, -15}}},
		{"partly off screen", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1},
			geom.AABB{Min: mgl32.Vec3{30, -2, -40}, Max: mgl32.Vec3{45, 2, -35}}},
	}

	const eps = 1e-4
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viewer := camera.NewCamera(1280, 720)
			viewer.Position = tt.eye
			viewer.LookAt(tt.target)

			ic := NewImpostorCamera()
			f, err := ic.FrameArea(tt.box.Min, tt.box.Max, viewer)
			if err != nil {
				t.Fatalf("FrameArea: %v", err)
			}
			lo, hi := reprojectedRect(f, tt.box)
			for _, v := range []float32{lo.X(), lo.Y()} {
				if math.Abs(float64(v+1)) > eps {
					t.Errorf("min edge %v, want -1 (lo=%v hi=%v)", v, lo, hi)
				}
			}
			for _, v := range []float32{hi.X(), hi.Y()} {
				if math.Abs(float64(v-1)) > eps {
					t.Errorf("max edge %v, want 1 (lo=%v hi=%v)", v, lo, hi)
				}
			}

			if !geom.MatrixNearEqual(ic.Camera().ProjectionMatrix(), f.Projection, 0) {
				t.Error("impostor camera does not carry the framed projection")
			}
			if ic.Camera().Position != viewer.Position || ic.Camera().FOV != viewer.FOV {
				t.Error("impostor camera did not copy the viewer pose")
			}
		})
	}
}

func TestFrameAreaBillboardCoversBox(t *testing.T) {
	viewer := camera.NewCamera(800, 600)
	box := geom.AABB{Min: mgl32.Vec3{-2, -1, -22}, Max: mgl32.Vec3{2, 1, -18}}
	f, err := NewImpostorCamera().FrameArea(box.Min, box.Max, viewer)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(float64(f.Depth-20)) > 1e-3 {
		t.Errorf("Depth = %v, want 20", f.Depth)
	}
	// billboard corners land on the box's screen rectangle
	corners := []mgl32.Vec3{
		f.Center.Add(f.Up).Add(f.Right),
		f.Center.Sub(f.Up).Sub(f.Right),
	}
	for _, c := range corners {
		ndc, _ := viewer.WorldToNDC(c)
		clip := f.Projection.Mul4(f.View).Mul4x1(c.Vec4(1))
		x, y := clip.X()/clip.W(), clip.Y()/clip.W()
		if math.Abs(math.Abs(float64(x))-1) > 1e-3 || math.Abs(math.Abs(float64(y))-1) > 1e-3 {
			t.Errorf("billboard corner %v maps to (%v,%v) in the framed view (viewer ndc %v)", c, x, y, ndc)
		}
	}
}

func TestFrameAreaDegenerateBox(t *testing.T) {
	viewer := camera.NewCamera(800, 600)
	p := mgl32.Vec3{3, 1, -30}
	f, err := NewImpostorCamera().FrameArea(p, p, viewer)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 16; i++ {
		v := float64(f.Projection[i])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("projection has non-finite entry %d: %v", i, f.Projection)
		}
	}
	if f.HalfWidth < 0 || f.HalfHeight < 0 {
		t.Errorf("negative extents %v x %v", f.HalfWidth, f.HalfHeight)
	}
}

func TestFrameAreaBehindViewer(t *testing.T) {
	viewer := camera.NewCamera(800, 600)
	_, err := NewImpostorCamera().FrameArea(mgl32.Vec3{-1, -1, 5}, mgl32.Vec3{1, 1, 10}, viewer)
	if !errors.Is(err, ErrDegenerateFrame) {
		t.Fatalf("err = %v, want ErrDegenerateFrame", err)
	}
}

func TestFrameLayer(t *testing.T) {
	viewer := camera.NewCamera(200, 100)
	viewer.FOV = 90
	f := NewImpostorCamera().FrameLayer(10, viewer)

	if !f.Center.ApproxEqualThreshold(mgl32.Vec3{0, 0, -10}, 1e-4) {
		t.Errorf("Center = %v", f.Center)
	}
	if math.Abs(float64(f.HalfHeight-10)) > 1e-3 || math.Abs(float64(f.HalfWidth-20)) > 1e-3 {
		t.Errorf("half extents = %v x %v, want 20 x 10", f.HalfWidth, f.HalfHeight)
	}
	if !geom.MatrixNearEqual(f.Projection, viewer.BaseProjection(), 1e-6) {
		t.Error("FrameLayer should keep the lens projection")
	}
}

func TestFrameAtDepthKeepsScreenCoverage(t *testing.T) {
	viewer := camera.NewCamera(800, 600)
	box := geom.AABB{Min: mgl32.Vec3{1, 1, -42}, Max: mgl32.Vec3{4, 3, -38}}
	f, err := NewImpostorCamera().FrameArea(box.Min, box.Max, viewer)
	if err != nil {
		t.Fatal(err)
	}
	g := f.AtDepth(viewer.Position, 10)
	if math.Abs(float64(viewer.ViewDepth(g.Center)-10)) > 1e-3 {
		t.Fatalf("moved billboard depth = %v", viewer.ViewDepth(g.Center))
	}
	a, _ := viewer.WorldToNDC(f.Center.Add(f.Up).Add(f.Right))
	b, _ := viewer.WorldToNDC(g.Center.Add(g.Up).Add(g.Right))
	if !a.Vec2().ApproxEqualThreshold(b.Vec2(), 1e-4) {
		t.Errorf("corner moved on screen: %v -> %v", a, b)
	}
}

func BenchmarkFrameArea(b *testing.B) {
	viewer := camera.NewCamera(1280, 720)
	ic := NewImpostorCamera()
	lo, hi := mgl32.Vec3{-5, -2, -60}, mgl32.Vec3{5, 4, -40}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ic.FrameArea(lo, hi, viewer)
	}
}
