package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera described by a pose and lens settings.
// The identity rotation looks down -Z with +Y up.
type Camera struct {
	Position    mgl32.Vec3
	Rotation    mgl32.Quat
	AspectRatio float32
	FOV         float32 // vertical, degrees
	NearPlane   float32
	FarPlane    float32

	projection    mgl32.Mat4
	hasProjection bool
}

func NewCamera(width, height int) *Camera {
	return &Camera{
		Rotation:    mgl32.QuatIdent(),
		AspectRatio: float32(width) / float32(height),
		FOV:         60.0,
		NearPlane:   0.1,
		FarPlane:    1000.0,
	}
}

// SetViewport updates the aspect ratio for a new framebuffer size.
func (c *Camera) SetViewport(width, height int) {
	if height <= 0 {
		return
	}
	c.AspectRatio = float32(width) / float32(height)
}

// Snapshot returns a copy of the camera. It lets a *Camera act as a read-only viewer provider.
func (c *Camera) Snapshot() Camera {
	return *c
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Rotation.Rotate(mgl32.Vec3{1, 0, 0})
}

func (c *Camera) Up() mgl32.Vec3 {
	return c.Rotation.Rotate(mgl32.Vec3{0, 1, 0})
}

// LookAt rotates the camera to face target, keeping world +Y as up where possible.
func (c *Camera) LookAt(target mgl32.Vec3) {
	f := target.Sub(c.Position)
	if f.Len() == 0 {
		return
	}
	f = f.Normalize()
	worldUp := mgl32.Vec3{0, 1, 0}
	if math.Abs(float64(f.Dot(worldUp))) > 0.9999 {
		worldUp = mgl32.Vec3{0, 0, 1}
	}
	r := f.Cross(worldUp).Normalize()
	u := r.Cross(f)
	back := f.Mul(-1)

	basis := mgl32.Mat4{
		r.X(), r.Y(), r.Z(), 0,
		u.X(), u.Y(), u.Z(), 0,
		back.X(), back.Y(), back.Z(), 0,
		0, 0, 0, 1,
	}
	c.Rotation = mgl32.Mat4ToQuat(basis).Normalize()
}

// SetYawPitch orients the camera from yaw/pitch angles in degrees.
// Yaw 0 looks down +X; pitch is clamped to +-89.
func (c *Camera) SetYawPitch(yaw, pitch float64) {
	if pitch > 89.0 {
		pitch = 89.0
	}
	if pitch < -89.0 {
		pitch = -89.0
	}
	y := float64(mgl32.DegToRad(float32(yaw)))
	p := float64(mgl32.DegToRad(float32(pitch)))
	front := mgl32.Vec3{
		float32(math.Cos(y) * math.Cos(p)),
		float32(math.Sin(p)),
		float32(math.Sin(y) * math.Cos(p)),
	}
	c.LookAt(c.Position.Add(front))
}

// CopyPose copies lens and pose from other so both cameras share a perspective.
func (c *Camera) CopyPose(other *Camera) {
	c.Position = other.Position
	c.Rotation = other.Rotation
	c.FOV = other.FOV
	c.AspectRatio = other.AspectRatio
	c.NearPlane = other.NearPlane
	c.FarPlane = other.FarPlane
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), c.Up())
}

// CameraToWorld is the inverse of ViewMatrix.
func (c *Camera) CameraToWorld() mgl32.Mat4 {
	p := c.Position
	return mgl32.Translate3D(p.X(), p.Y(), p.Z()).Mul4(c.Rotation.Mat4())
}

// BaseProjection is the lens projection, ignoring any override.
func (c *Camera) BaseProjection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}

// ProjectionMatrix returns the override set by SetProjection, or the lens projection.
func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.hasProjection {
		return c.projection
	}
	return c.BaseProjection()
}

func (c *Camera) SetProjection(m mgl32.Mat4) {
	c.projection = m
	c.hasProjection = true
}

func (c *Camera) ResetProjection() {
	c.hasProjection = false
}

func (c *Camera) HasCustomProjection() bool {
	return c.hasProjection
}

// ViewDepth is the distance of p in front of the camera along its forward axis.
func (c *Camera) ViewDepth(p mgl32.Vec3) float32 {
	return p.Sub(c.Position).Dot(c.Forward())
}

// WorldToNDC projects p to normalized device coordinates. The second value is the
// clip-space w, which equals the view depth for a perspective projection.
func (c *Camera) WorldToNDC(p mgl32.Vec3) (mgl32.Vec3, float32) {
	clip := c.ProjectionMatrix().Mul4(c.ViewMatrix()).Mul4x1(p.Vec4(1))
	w := clip.W()
	if w == 0 {
		return mgl32.Vec3{}, 0
	}
	return mgl32.Vec3{clip.X() / w, clip.Y() / w, clip.Z() / w}, w
}

// NDCToWorld returns the world point that projects to (x, y) and lies viewDepth in
// front of the camera. It intersects the unprojected ray with the depth plane, so it
// also works with off-centre projection overrides.
func (c *Camera) NDCToWorld(x, y, viewDepth float32) mgl32.Vec3 {
	inv := c.ProjectionMatrix().Inv()
	a := inv.Mul4x1(mgl32.Vec4{x, y, -1, 1})
	b := inv.Mul4x1(mgl32.Vec4{x, y, 1, 1})
	nearPt := a.Vec3().Mul(1 / a.W())
	farPt := b.Vec3().Mul(1 / b.W())

	dz := farPt.Z() - nearPt.Z()
	var local mgl32.Vec3
	if dz == 0 {
		local = mgl32.Vec3{nearPt.X(), nearPt.Y(), -viewDepth}
	} else {
		t := (-viewDepth - nearPt.Z()) / dz
		local = nearPt.Add(farPt.Sub(nearPt).Mul(t))
	}
	return mgl32.TransformCoordinate(local, c.CameraToWorld())
}

// WorldToScreen projects p into pixel coordinates of a width x height viewport with the
// origin at the bottom-left corner. The z component is the view depth.
func (c *Camera) WorldToScreen(p mgl32.Vec3, width, height int) mgl32.Vec3 {
	ndc, depth := c.WorldToNDC(p)
	return mgl32.Vec3{
		(ndc.X() + 1) * 0.5 * float32(width),
		(ndc.Y() + 1) * 0.5 * float32(height),
		depth,
	}
}

// ScreenToWorld is the inverse of WorldToScreen.
func (c *Camera) ScreenToWorld(screen mgl32.Vec3, width, height int) mgl32.Vec3 {
	x := screen.X()/float32(width)*2 - 1
	y := screen.Y()/float32(height)*2 - 1
	return c.NDCToWorld(x, y, screen.Z())
}

// FrustumSizeAt returns the full width and height of the lens frustum at depth d.
func (c *Camera) FrustumSizeAt(d float32) (width, height float32) {
	h := d * float32(math.Tan(float64(mgl32.DegToRad(c.FOV))*0.5)) * 2
	return h * c.AspectRatio, h
}
