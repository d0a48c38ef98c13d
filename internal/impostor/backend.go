package impostor

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/camera"
)

// Color is a linear RGBA colour.
type Color [4]float32

var (
	transparent = Color{1, 0, 0, 0}
	debugRed    = Color{1, 0, 0, 1}
)

// Rect is a normalized (0..1) texture rectangle.
type Rect struct {
	Min, Max mgl32.Vec2
}

func (r Rect) Width() float32  { return r.Max.X() - r.Min.X() }
func (r Rect) Height() float32 { return r.Max.Y() - r.Min.Y() }

// PixelRect is a rectangle in texture pixels with the origin at the bottom-left.
type PixelRect struct {
	X, Y, W, H int
}

// PixelsOf rounds r onto a width x height texture.
func PixelsOf(r Rect, width, height int) PixelRect {
	round := func(v float32) int { return int(math.Round(float64(v))) }
	return PixelRect{
		X: round(r.Min.X() * float32(width)),
		Y: round(r.Min.Y() * float32(height)),
		W: round(r.Width() * float32(width)),
		H: round(r.Height() * float32(height)),
	}
}

// Viewer supplies the main camera each frame. The core never mutates it.
type Viewer interface {
	Snapshot() camera.Camera
}

// RenderTarget is an off-screen colour texture with a depth buffer.
type RenderTarget interface {
	Size() (width, height int)
	Release()
}

// Material describes how impostor batches are shaded.
type Material struct {
	Shader string
	Params MaterialParams
}

// MaterialParams are the per-batch shader uniforms.
type MaterialParams struct {
	Cutoff         float32
	DepthNear      float32
	DepthFar       float32
	RenderDistance float32
}

// DefaultMaterial returns the impostor material for shader with the alpha cutoff used
// to discard the transparent background of a surface.
func DefaultMaterial(shader string) Material {
	return Material{
		Shader: shader,
		Params: MaterialParams{Cutoff: 0.99},
	}
}

// QuadMesh is the GPU side of a Batch.
type QuadMesh interface {
	// Upload replaces the vertex data. Indices are only passed on the first upload.
	Upload(vertices []mgl32.Vec3, uvs []mgl32.Vec2, indices []uint32) error
	SetTexture(t RenderTarget)
	SetTransform(m mgl32.Mat4)
	SetParams(p MaterialParams)
	SetVisible(v bool)
	Release()
}

// RenderPass is one off-screen render of a primitive list into a region of a target.
// Devices draw every listed primitive regardless of its Enabled flag, which only
// concerns the main viewer.
type RenderPass struct {
	Target     RenderTarget
	Viewport   PixelRect
	Clear      bool
	ClearColor Color
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Primitives []*Primitive
}

// Device creates and drives GPU resources for the impostor core.
type Device interface {
	NewRenderTarget(width, height int) (RenderTarget, error)
	NewQuadMesh(maxQuads int, m Material) (QuadMesh, error)
	Render(pass RenderPass) error
	// CopyRegion copies r from src into the same region of dst.
	CopyRegion(dst, src RenderTarget, r PixelRect) error
}
