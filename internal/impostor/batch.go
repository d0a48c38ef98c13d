package impostor

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

// Quad is one billboard in world space. Corner order is
// center+up+right, center-up+right, center-up-right, center+up-right.
type Quad struct {
	Corners [4]mgl32.Vec3
	UVs     [4]mgl32.Vec2
}

// Batch is a single mesh of up to maxQuads billboards sharing one texture.
// Vertex data is kept in world space; uploads happen at most once per frame in Flush.
type Batch struct {
	mesh     QuadMesh
	material Material
	logger   *slog.Logger

	maxQuads int
	reserved int

	vertices []mgl32.Vec3
	uvs      []mgl32.Vec2
	indices  []uint32

	transform mgl32.Mat4
	texture   RenderTarget
	visible   bool
	dirty     bool
	uploaded  bool
	uploads   int
}

// NewBatch creates a batch and its GPU mesh. An empty material shader is fatal.
func NewBatch(dev Device, material Material, maxQuads int, logger *slog.Logger) (*Batch, error) {
	if material.Shader == "" {
		return nil, ErrMissingMaterial
	}
	if maxQuads < 1 {
		return nil, fmt.Errorf("impostor: batch capacity must be positive, got %d", maxQuads)
	}
	if logger == nil {
		logger = slog.Default()
	}

	mesh, err := dev.NewQuadMesh(maxQuads, material)
	if err != nil {
		return nil, fmt.Errorf("could not create quad mesh: %w", err)
	}

	b := &Batch{
		mesh:      mesh,
		material:  material,
		logger:    logger,
		maxQuads:  maxQuads,
		vertices:  make([]mgl32.Vec3, maxQuads*4),
		uvs:       make([]mgl32.Vec2, maxQuads*4),
		indices:   make([]uint32, 0, maxQuads*6),
		transform: mgl32.Ident4(),
		visible:   true,
	}
	for q := 0; q < maxQuads; q++ {
		base := uint32(q * 4)
		b.indices = append(b.indices, base, base+1, base+2, base, base+2, base+3)
	}
	mesh.SetParams(material.Params)
	mesh.SetVisible(b.visible)
	return b, nil
}

// ReserveQuadSlot returns the next unused slot. Slots are never reused.
// When the batch is full it logs a warning and returns ErrBatchFull; the returned
// slot must not be written.
func (b *Batch) ReserveQuadSlot() (int, error) {
	if b.reserved >= b.maxQuads {
		b.logger.Warn("impostor batch is full, refusing quad reservation",
			"max_quads", b.maxQuads)
		return 0, ErrBatchFull
	}
	slot := b.reserved
	b.reserved++
	return slot, nil
}

// Reserved is the number of slots handed out so far.
func (b *Batch) Reserved() int { return b.reserved }

func (b *Batch) Capacity() int { return b.maxQuads }

// SetQuad writes the billboard for slot.
func (b *Batch) SetQuad(slot int, center, up, right mgl32.Vec3, uv Rect) {
	if slot < 0 || slot >= b.reserved {
		return
	}
	v := b.vertices[slot*4 : slot*4+4]
	v[0] = center.Add(up).Add(right)
	v[1] = center.Sub(up).Add(right)
	v[2] = center.Sub(up).Sub(right)
	v[3] = center.Add(up).Sub(right)

	t := b.uvs[slot*4 : slot*4+4]
	t[0] = uv.Max
	t[1] = mgl32.Vec2{uv.Max.X(), uv.Min.Y()}
	t[2] = uv.Min
	t[3] = mgl32.Vec2{uv.Min.X(), uv.Max.Y()}

	b.dirty = true
}

// HideQuad collapses slot to a point so it covers no pixels.
func (b *Batch) HideQuad(slot int) {
	if slot < 0 || slot >= b.reserved {
		return
	}
	for i := slot * 4; i < slot*4+4; i++ {
		b.vertices[i] = mgl32.Vec3{}
		b.uvs[i] = mgl32.Vec2{}
	}
	b.dirty = true
}

// Quad reads back the stored billboard for slot.
func (b *Batch) Quad(slot int) Quad {
	var q Quad
	if slot < 0 || slot >= b.maxQuads {
		return q
	}
	copy(q.Corners[:], b.vertices[slot*4:slot*4+4])
	copy(q.UVs[:], b.uvs[slot*4:slot*4+4])
	return q
}

// Vertices exposes the world-space vertex array. Callers must not modify it.
func (b *Batch) Vertices() []mgl32.Vec3 { return b.vertices }

func (b *Batch) UVs() []mgl32.Vec2 { return b.uvs }

func (b *Batch) Indices() []uint32 { return b.indices }

func (b *Batch) Dirty() bool { return b.dirty }

// Uploads counts how many times the mesh was sent to the device.
func (b *Batch) Uploads() int { return b.uploads }

func (b *Batch) Material() Material { return b.material }

func (b *Batch) Texture() RenderTarget { return b.texture }

func (b *Batch) SetTexture(t RenderTarget) {
	b.texture = t
	b.mesh.SetTexture(t)
}

func (b *Batch) Visible() bool { return b.visible }

func (b *Batch) SetVisible(v bool) {
	if b.visible == v {
		return
	}
	b.visible = v
	b.mesh.SetVisible(v)
}

// SetParams updates the material uniforms, keeping the shader.
func (b *Batch) SetParams(p MaterialParams) {
	if b.material.Params == p {
		return
	}
	b.material.Params = p
	b.mesh.SetParams(p)
}

// Transform is the batch object transform. It is reset to identity on every Flush
// because the vertex data is already in world space.
func (b *Batch) Transform() mgl32.Mat4 { return b.transform }

func (b *Batch) SetTransform(m mgl32.Mat4) { b.transform = m }

// Flush runs once at the end of a frame: it re-zeroes the transform and uploads
// the mesh if any quad changed since the last flush.
func (b *Batch) Flush() error {
	b.transform = mgl32.Ident4()
	b.mesh.SetTransform(b.transform)

	if !b.dirty {
		return nil
	}
	var indices []uint32
	if !b.uploaded {
		indices = b.indices
	}
	if err := b.mesh.Upload(b.vertices, b.uvs, indices); err != nil {
		return fmt.Errorf("could not upload impostor batch: %w", err)
	}
	b.uploaded = true
	b.dirty = false
	b.uploads++
	return nil
}

// Release frees the GPU mesh.
func (b *Batch) Release() {
	if b.mesh != nil {
		b.mesh.Release()
		b.mesh = nil
	}
}
