package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAABBExtendAndUnion(t *testing.T) {
	b := EmptyAABB()
	if !b.IsEmpty() {
		t.Fatalf("new box should be empty")
	}
	b = b.Extend(mgl32.Vec3{1, 2, 3}).Extend(mgl32.Vec3{-1, 0, 5})
	if b.Min != (mgl32.Vec3{-1, 0, 3}) || b.Max != (mgl32.Vec3{1, 2, 5}) {
		t.Fatalf("extend: got %v..%v", b.Min, b.Max)
	}

	o := AABB{Min: mgl32.Vec3{0, -4, 0}, Max: mgl32.Vec3{0.5, 0, 1}}
	u := b.Union(o)
	if u.Min != (mgl32.Vec3{-1, -4, 0}) || u.Max != (mgl32.Vec3{1, 2, 5}) {
		t.Fatalf("union: got %v..%v", u.Min, u.Max)
	}
	if got := EmptyAABB().Union(o); got != o {
		t.Errorf("union with empty: got %v, want %v", got, o)
	}
	if got := u.Center(); got != (mgl32.Vec3{0, -1, 2.5}) {
		t.Errorf("center: got %v", got)
	}
}

func TestAABBCornersCoverBox(t *testing.T) {
	b := AABB{Min: mgl32.Vec3{-1, -2, -3}, Max: mgl32.Vec3{1, 2, 3}}
	again := EmptyAABB()
	for _, c := range b.Corners() {
		again = again.Extend(c)
	}
	if again != b {
		t.Fatalf("corners rebuild %v, want %v", again, b)
	}
}

func TestAABBTransform(t *testing.T) {
	b := AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	m := mgl32.Translate3D(10, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2))
	got := b.Transform(m)
	want := AABB{Min: mgl32.Vec3{8, -2, -2}, Max: mgl32.Vec3{12, 2, 2}}
	for i := 0; i < 3; i++ {
		if !mgl32.FloatEqualThreshold(got.Min[i], want.Min[i], 1e-5) || !mgl32.FloatEqualThreshold(got.Max[i], want.Max[i], 1e-5) {
			t.Fatalf("transform: got %v, want %v", got, want)
		}
	}
}

func TestFrustumIntersectsAABB(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := NewFrustum(proj.Mul4(view))

	tests := []struct {
		name string
		box  AABB
		want bool
	}{
		{"ahead", AABB{Min: mgl32.Vec3{-1, -1, -11}, Max: mgl32.Vec3{1, 1, -9}}, true},
		{"behind", AABB{Min: mgl32.Vec3{-1, -1, 9}, Max: mgl32.Vec3{1, 1, 11}}, false},
		{"beyond far", AABB{Min: mgl32.Vec3{-1, -1, -300}, Max: mgl32.Vec3{1, 1, -200}}, false},
		{"far left", AABB{Min: mgl32.Vec3{-60, -1, -11}, Max: mgl32.Vec3{-50, 1, -9}}, false},
		{"straddling near", AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}, true},
		{"empty", EmptyAABB(), false},
	}
	for _, tt := range tests {
		if got := f.IntersectsAABB(tt.box); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMatrixNearEqual(t *testing.T) {
	a := mgl32.Ident4()
	b := mgl32.Ident4()
	b[5] += 1e-6
	if !MatrixNearEqual(a, b, 1e-5) {
		t.Errorf("expected near-equal")
	}
	b[5] += 1
	if MatrixNearEqual(a, b, 1e-5) {
		t.Errorf("expected not equal")
	}
}
