package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func vecNear(a, b mgl32.Vec3, eps float32) bool {
	return a.ApproxEqualThreshold(b, eps)
}

func TestIdentityLooksDownNegativeZ(t *testing.T) {
	c := NewCamera(800, 600)
	if !vecNear(c.Forward(), mgl32.Vec3{0, 0, -1}, 1e-6) {
		t.Fatalf("forward: got %v", c.Forward())
	}
	if !vecNear(c.Right(), mgl32.Vec3{1, 0, 0}, 1e-6) || !vecNear(c.Up(), mgl32.Vec3{0, 1, 0}, 1e-6) {
		t.Fatalf("basis: right %v up %v", c.Right(), c.Up())
	}
}

func TestLookAtBasis(t *testing.T) {
	c := NewCamera(800, 600)
	c.Position = mgl32.Vec3{1, 2, 3}
	target := mgl32.Vec3{11, 2, 3}
	c.LookAt(target)

	if !vecNear(c.Forward(), mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Fatalf("forward: got %v", c.Forward())
	}
	if !vecNear(c.Up(), mgl32.Vec3{0, 1, 0}, 1e-5) {
		t.Errorf("up: got %v", c.Up())
	}
	if !vecNear(c.Right(), mgl32.Vec3{0, 0, 1}, 1e-5) {
		t.Errorf("right: got %v", c.Right())
	}
	if d := c.ViewDepth(target); !mgl32.FloatEqualThreshold(d, 10, 1e-4) {
		t.Errorf("view depth: got %v, want 10", d)
	}
}

func TestSetYawPitchMatchesFrontVector(t *testing.T) {
	c := NewCamera(800, 600)
	c.SetYawPitch(90, 0)
	if !vecNear(c.Forward(), mgl32.Vec3{0, 0, 1}, 1e-5) {
		t.Fatalf("yaw 90: got %v", c.Forward())
	}
	c.SetYawPitch(0, 120)
	if c.Forward().Y() >= 1 {
		t.Fatalf("pitch should clamp below straight up, got %v", c.Forward())
	}
}

func TestNDCRoundTrip(t *testing.T) {
	c := NewCamera(1280, 720)
	c.Position = mgl32.Vec3{5, 1, -3}
	c.LookAt(mgl32.Vec3{-20, 4, -40})

	points := []mgl32.Vec3{
		{-20, 4, -40},
		{-15, 0, -30},
		{-25, 8, -45},
	}
	for _, p := range points {
		ndc, depth := c.WorldToNDC(p)
		if !mgl32.FloatEqualThreshold(depth, c.ViewDepth(p), 1e-3) {
			t.Errorf("clip w %v != view depth %v", depth, c.ViewDepth(p))
		}
		back := c.NDCToWorld(ndc.X(), ndc.Y(), depth)
		if !vecNear(back, p, 1e-2) {
			t.Errorf("round trip %v -> %v -> %v", p, ndc, back)
		}
	}
}

func TestScreenRoundTrip(t *testing.T) {
	c := NewCamera(640, 480)
	c.Position = mgl32.Vec3{0, 2, 10}
	c.LookAt(mgl32.Vec3{0, 2, 0})

	p := mgl32.Vec3{1.5, 3, 0}
	s := c.WorldToScreen(p, 640, 480)
	if s.X() <= 320 || s.Y() <= 240 {
		t.Fatalf("point up-right of centre should land in upper-right quadrant, got %v", s)
	}
	back := c.ScreenToWorld(s, 640, 480)
	if !vecNear(back, p, 1e-3) {
		t.Errorf("screen round trip: got %v, want %v", back, p)
	}
}

func TestProjectionOverride(t *testing.T) {
	c := NewCamera(100, 100)
	base := c.BaseProjection()
	scaled := mgl32.Scale3D(2, 2, 1).Mul4(base)
	c.SetProjection(scaled)
	if !c.HasCustomProjection() || c.ProjectionMatrix() != scaled {
		t.Fatalf("override not applied")
	}
	c.ResetProjection()
	if c.ProjectionMatrix() != base {
		t.Fatalf("reset should restore the lens projection")
	}
}

func TestFrustumSizeAt(t *testing.T) {
	c := NewCamera(200, 100)
	c.FOV = 90
	w, h := c.FrustumSizeAt(10)
	if !mgl32.FloatEqualThreshold(h, 20, 1e-4) || !mgl32.FloatEqualThreshold(w, 40, 1e-4) {
		t.Errorf("frustum at 10: got %vx%v, want 40x20", w, h)
	}
}
