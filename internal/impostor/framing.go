package impostor

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/camera"
	"impostor-lod/internal/geom"
)

// MinFrameExtent is the smallest NDC width or height a framed box may have before the
// projection scale is inverted.
const MinFrameExtent = 1e-6

// Frame is the result of framing: where the impostor billboard goes and the camera
// matrices that render it.
type Frame struct {
	Center mgl32.Vec3
	// Up and Right are the billboard half-extent vectors.
	Up, Right mgl32.Vec3

	HalfWidth, HalfHeight float32
	// Depth is the view depth the billboard was placed at.
	Depth float32

	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// AtDepth moves the billboard along the viewer rays to depth d, scaling it so it
// still covers the same part of the screen.
func (f Frame) AtDepth(eye mgl32.Vec3, d float32) Frame {
	if d <= 0 || f.Depth <= 0 {
		return f
	}
	k := d / f.Depth
	out := f
	out.Center = eye.Add(f.Center.Sub(eye).Mul(k))
	out.Up = f.Up.Mul(k)
	out.Right = f.Right.Mul(k)
	out.HalfWidth *= k
	out.HalfHeight *= k
	out.Depth = d
	return out
}

// ImpostorCamera is the off-screen camera that renders one layer into its surface.
type ImpostorCamera struct {
	cam *camera.Camera

	target     *Surface
	clear      bool
	clearColor Color
	mask       uint32
	queued     []*Primitive
	active     bool
}

func NewImpostorCamera() *ImpostorCamera {
	return &ImpostorCamera{cam: camera.NewCamera(1, 1)}
}

// Camera exposes the internal camera state for inspection.
func (c *ImpostorCamera) Camera() *camera.Camera { return c.cam }

// FrameArea fits the camera projection around the box [boxMin, boxMax] as seen by viewer.
// The box's screen rectangle is mapped onto the full clip range and the billboard is
// placed at the depth of the box centre.
func (c *ImpostorCamera) FrameArea(boxMin, boxMax mgl32.Vec3, viewer *camera.Camera) (Frame, error) {
	c.cam.CopyPose(viewer)
	c.cam.ResetProjection()

	view := viewer.ViewMatrix()
	proj := viewer.BaseProjection()
	near := viewer.NearPlane

	box := geom.AABB{Min: boxMin, Max: boxMax}
	lo := mgl32.Vec2{float32(math.Inf(1)), float32(math.Inf(1))}
	hi := mgl32.Vec2{float32(math.Inf(-1)), float32(math.Inf(-1))}
	inFront := 0
	for _, corner := range box.Corners() {
		v := view.Mul4x1(corner.Vec4(1))
		if -v.Z() > 0 {
			inFront++
		}
		// corners behind the near plane are pulled onto it
		if -v.Z() < near {
			v[2] = -near
		}
		clip := proj.Mul4x1(v)
		x, y := clip.X()/clip.W(), clip.Y()/clip.W()
		lo = mgl32.Vec2{min(lo.X(), x), min(lo.Y(), y)}
		hi = mgl32.Vec2{max(hi.X(), x), max(hi.Y(), y)}
	}
	if inFront == 0 {
		return Frame{}, ErrDegenerateFrame
	}

	w := max(hi.X()-lo.X(), MinFrameExtent)
	h := max(hi.Y()-lo.Y(), MinFrameExtent)
	cx := (lo.X() + hi.X()) * 0.5
	cy := (lo.Y() + hi.Y()) * 0.5

	depth := max(viewer.ViewDepth(box.Center()), near)
	worldMin := viewer.NDCToWorld(lo.X(), lo.Y(), depth)
	worldMax := viewer.NDCToWorld(hi.X(), hi.Y(), depth)
	diag := worldMax.Sub(worldMin)

	right, up := viewer.Right(), viewer.Up()
	halfW := float32(math.Abs(float64(diag.Dot(right)))) * 0.5
	halfH := float32(math.Abs(float64(diag.Dot(up)))) * 0.5

	framed := mgl32.Scale3D(2/w, 2/h, 1).
		Mul4(mgl32.Translate3D(-cx, -cy, 0)).
		Mul4(proj)
	c.cam.SetProjection(framed)

	return Frame{
		Center:     worldMin.Add(worldMax).Mul(0.5),
		Up:         up.Mul(halfH),
		Right:      right.Mul(halfW),
		HalfWidth:  halfW,
		HalfHeight: halfH,
		Depth:      depth,
		View:       view,
		Projection: framed,
	}, nil
}

// FrameLayer frames the whole viewer frustum as a window at distance in front of it.
func (c *ImpostorCamera) FrameLayer(distance float32, viewer *camera.Camera) Frame {
	c.cam.CopyPose(viewer)
	c.cam.ResetProjection()

	fullW, fullH := viewer.FrustumSizeAt(distance)
	halfW, halfH := fullW*0.5, fullH*0.5
	return Frame{
		Center:     viewer.Position.Add(viewer.Forward().Mul(distance)),
		Up:         viewer.Up().Mul(halfH),
		Right:      viewer.Right().Mul(halfW),
		HalfWidth:  halfW,
		HalfHeight: halfH,
		Depth:      distance,
		View:       viewer.ViewMatrix(),
		Projection: viewer.BaseProjection(),
	}
}

// SetTargetSurface binds the camera to the back buffer of s for continuous rendering.
// The camera draws on the next RenderActive call.
func (c *ImpostorCamera) SetTargetSurface(s *Surface, clear bool, clearColor Color, mask uint32) {
	c.target = s
	c.clear = clear
	c.clearColor = clearColor
	c.mask = mask
	c.active = true
}

// Queue sets the primitives the continuous camera draws next.
func (c *ImpostorCamera) Queue(prims []*Primitive) {
	c.queued = append(c.queued[:0], prims...)
}

// Idle masks the continuous camera off so it draws nothing this frame.
func (c *ImpostorCamera) Idle() {
	c.mask = 0
	c.clear = false
	c.queued = c.queued[:0]
}

// Active reports whether the camera is bound for continuous rendering.
func (c *ImpostorCamera) Active() bool { return c.active }

// Mask is the culling mask of the bound camera; 0 while idle.
func (c *ImpostorCamera) Mask() uint32 { return c.mask }

// RenderActive executes the continuous camera's pass if it has anything to do.
func (c *ImpostorCamera) RenderActive(dev Device) (bool, error) {
	if !c.active || c.target == nil || c.mask == 0 {
		return false, nil
	}
	if len(c.queued) == 0 && !c.clear {
		return false, nil
	}
	err := dev.Render(c.pass(c.target, c.clear, c.clearColor, c.queued))
	c.Idle()
	return true, err
}

// RenderToSurface renders prims into the back buffer of s immediately.
func (c *ImpostorCamera) RenderToSurface(dev Device, s *Surface, clear bool, clearColor Color, prims []*Primitive) error {
	c.target = s
	c.active = false
	return dev.Render(c.pass(s, clear, clearColor, prims))
}

// Deactivate unbinds the camera.
func (c *ImpostorCamera) Deactivate() {
	c.active = false
	c.target = nil
	c.Idle()
}

func (c *ImpostorCamera) pass(s *Surface, clear bool, clearColor Color, prims []*Primitive) RenderPass {
	return RenderPass{
		Target:     s.Back(),
		Viewport:   s.Pixels(),
		Clear:      clear,
		ClearColor: clearColor,
		View:       c.cam.ViewMatrix(),
		Projection: c.cam.ProjectionMatrix(),
		Primitives: prims,
	}
}
