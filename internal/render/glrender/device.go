// Package glrender implements the impostor device on OpenGL 4.1 core. All calls
// must come from the goroutine that owns the GL context.
package glrender

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/camera"
	"impostor-lod/internal/config"
	"impostor-lod/internal/geom"
	"impostor-lod/internal/impostor"
)

const ShadersDir = "assets/shaders/impostor"

// ErrForeignTarget is returned for targets created by another device.
var ErrForeignTarget = errors.New("glrender: resource belongs to another device")

// Target is a framebuffer with a half-float colour texture and a 16-bit depth
// renderbuffer.
type Target struct {
	fbo, texture, depth uint32
	width, height       int32
}

func (t *Target) Size() (int, int) { return int(t.width), int(t.height) }
func (t *Target) Texture() uint32  { return t.texture }

func (t *Target) Release() {
	if t.fbo == 0 {
		return
	}
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteTextures(1, &t.texture)
	gl.DeleteRenderbuffers(1, &t.depth)
	t.fbo, t.texture, t.depth = 0, 0, 0
}

// sceneMesh is a primitive mesh resident on the GPU.
type sceneMesh struct {
	vao, vbo, ebo uint32
	count         int32
}

// Device draws impostor passes and the main view with OpenGL.
type Device struct {
	scene    *Shader
	impostor *Shader
	meshes   map[*impostor.Mesh]*sceneMesh
	quads    []*QuadMesh
	logger   *slog.Logger
}

// NewDevice loads the scene and impostor programs from shaderDir. A GL context
// must be current.
func NewDevice(shaderDir string, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	scene, err := LoadShader(shaderDir, "scene")
	if err != nil {
		return nil, err
	}
	imp, err := LoadShader(shaderDir, config.DefaultImpostorShader)
	if err != nil {
		scene.Delete()
		return nil, err
	}
	return &Device{
		scene:    scene,
		impostor: imp,
		meshes:   make(map[*impostor.Mesh]*sceneMesh),
		logger:   logger,
	}, nil
}

func (d *Device) NewRenderTarget(width, height int) (impostor.RenderTarget, error) {
	t := &Target{width: int32(width), height: int32(height)}

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	gl.GenTextures(1, &t.texture)
	gl.BindTexture(gl.TEXTURE_2D, t.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, t.width, t.height, 0, gl.RGBA, gl.HALF_FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.texture, 0)

	gl.GenRenderbuffers(1, &t.depth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT16, t.width, t.height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Release()
		return nil, fmt.Errorf("glrender: framebuffer %dx%d incomplete (0x%x)", width, height, status)
	}
	return t, nil
}

func (d *Device) NewQuadMesh(maxQuads int, m impostor.Material) (impostor.QuadMesh, error) {
	if m.Shader == "" {
		return nil, impostor.ErrMissingMaterial
	}
	if m.Shader != config.DefaultImpostorShader {
		d.logger.Warn("unknown impostor shader, using the built-in one", "shader", m.Shader)
	}
	q := &QuadMesh{maxQuads: maxQuads, transform: mgl32.Ident4(), params: m.Params}

	gl.GenVertexArrays(1, &q.vao)
	gl.BindVertexArray(q.vao)

	gl.GenBuffers(1, &q.positions)
	gl.BindBuffer(gl.ARRAY_BUFFER, q.positions)
	gl.BufferData(gl.ARRAY_BUFFER, maxQuads*4*3*4, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)

	gl.GenBuffers(1, &q.uvs)
	gl.BindBuffer(gl.ARRAY_BUFFER, q.uvs)
	gl.BufferData(gl.ARRAY_BUFFER, maxQuads*4*2*4, nil, gl.DYNAMIC_DRAW)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 2*4, 0)

	gl.GenBuffers(1, &q.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, q.ebo)

	gl.BindVertexArray(0)
	d.quads = append(d.quads, q)
	return q, nil
}

func (d *Device) Render(pass impostor.RenderPass) error {
	t, ok := pass.Target.(*Target)
	if !ok {
		return ErrForeignTarget
	}
	vp := pass.Viewport
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(int32(vp.X), int32(vp.Y), int32(vp.W), int32(vp.H))
	gl.Enable(gl.SCISSOR_TEST)
	gl.Scissor(int32(vp.X), int32(vp.Y), int32(vp.W), int32(vp.H))
	if pass.Clear {
		c := pass.ClearColor
		gl.ClearColor(c[0], c[1], c[2], c[3])
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	}
	gl.Enable(gl.DEPTH_TEST)
	d.drawPrimitives(pass.View, pass.Projection, pass.Primitives, func(*impostor.Primitive) bool { return true })
	gl.Disable(gl.SCISSOR_TEST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

func (d *Device) CopyRegion(dst, src impostor.RenderTarget, r impostor.PixelRect) error {
	dt, ok := dst.(*Target)
	if !ok {
		return ErrForeignTarget
	}
	st, ok := src.(*Target)
	if !ok {
		return ErrForeignTarget
	}
	x0, y0, x1, y1 := int32(r.X), int32(r.Y), int32(r.X+r.W), int32(r.Y+r.H)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, st.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, dt.fbo)
	gl.BlitFramebuffer(x0, y0, x1, y1, x0, y0, x1, y1, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

// DrawScene draws the primitives the main viewer sees into the bound framebuffer.
func (d *Device) DrawScene(viewer *camera.Camera, prims []*impostor.Primitive, mask uint32) {
	gl.Enable(gl.DEPTH_TEST)
	view, proj := viewer.ViewMatrix(), viewer.ProjectionMatrix()
	frustum := geom.NewFrustum(proj.Mul4(view))
	d.drawPrimitives(view, proj, prims, func(p *impostor.Primitive) bool {
		return p.Visible(mask) && frustum.IntersectsAABB(p.WorldBounds())
	})
}

// DrawImpostors draws every visible quad mesh with its atlas texture.
func (d *Device) DrawImpostors(viewer *camera.Camera) {
	view, proj := viewer.ViewMatrix(), viewer.ProjectionMatrix()
	d.impostor.Use()
	d.impostor.SetMatrix4("view", &view)
	d.impostor.SetMatrix4("proj", &proj)
	d.impostor.SetInt("atlas", 0)

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ActiveTexture(gl.TEXTURE0)
	live := d.quads[:0]
	for _, q := range d.quads {
		if q.vao == 0 {
			continue
		}
		live = append(live, q)
		if !q.visible || q.count == 0 {
			continue
		}
		tex, ok := q.texture.(*Target)
		if !ok {
			continue
		}
		d.impostor.SetMatrix4("model", &q.transform)
		d.impostor.SetFloat("cutoff", q.params.Cutoff)
		d.impostor.SetFloat("depthNear", q.params.DepthNear)
		d.impostor.SetFloat("depthFar", q.params.DepthFar)
		d.impostor.SetFloat("renderDistance", q.params.RenderDistance)
		gl.BindTexture(gl.TEXTURE_2D, tex.texture)
		gl.BindVertexArray(q.vao)
		gl.DrawElementsWithOffset(gl.TRIANGLES, q.count, gl.UNSIGNED_INT, 0)
	}
	d.quads = live
	gl.BindVertexArray(0)
	gl.Disable(gl.BLEND)
}

func (d *Device) drawPrimitives(view, proj mgl32.Mat4, prims []*impostor.Primitive, keep func(*impostor.Primitive) bool) {
	d.scene.Use()
	d.scene.SetMatrix4("view", &view)
	d.scene.SetMatrix4("proj", &proj)
	for _, p := range prims {
		if p == nil || p.Mesh == nil || !keep(p) {
			continue
		}
		m := d.mesh(p.Mesh)
		model := p.World
		d.scene.SetMatrix4("model", &model)
		d.scene.SetVector4("color", p.Color)
		gl.BindVertexArray(m.vao)
		gl.DrawElementsWithOffset(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, 0)
	}
	gl.BindVertexArray(0)
}

// mesh uploads a primitive mesh on first use.
func (d *Device) mesh(src *impostor.Mesh) *sceneMesh {
	if m, ok := d.meshes[src]; ok {
		return m
	}
	m := &sceneMesh{count: int32(len(src.Indices))}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if len(src.Vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(src.Vertices)*3*4, gl.Ptr(src.Vertices), gl.STATIC_DRAW)
	}
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	if len(src.Indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(src.Indices)*4, gl.Ptr(src.Indices), gl.STATIC_DRAW)
	}
	gl.BindVertexArray(0)

	d.meshes[src] = m
	return m
}

// Close releases the programs and cached meshes. Targets and quad meshes are
// released by their owners.
func (d *Device) Close() {
	for _, m := range d.meshes {
		gl.DeleteVertexArrays(1, &m.vao)
		gl.DeleteBuffers(1, &m.vbo)
		gl.DeleteBuffers(1, &m.ebo)
	}
	d.meshes = map[*impostor.Mesh]*sceneMesh{}
	d.scene.Delete()
	d.impostor.Delete()
}

// QuadMesh is a batch's dynamic vertex buffers.
type QuadMesh struct {
	vao, positions, uvs, ebo uint32
	maxQuads                 int
	count                    int32
	texture                  impostor.RenderTarget
	transform                mgl32.Mat4
	params                   impostor.MaterialParams
	visible                  bool
}

func (q *QuadMesh) Upload(vertices []mgl32.Vec3, uvs []mgl32.Vec2, indices []uint32) error {
	if q.vao == 0 {
		return errors.New("glrender: upload to released quad mesh")
	}
	if len(vertices) > q.maxQuads*4 || len(uvs) != len(vertices) {
		return fmt.Errorf("glrender: %d vertices / %d uvs for %d quads", len(vertices), len(uvs), q.maxQuads)
	}
	if len(vertices) == 0 {
		q.count = 0
		return nil
	}
	gl.BindVertexArray(q.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, q.positions)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*3*4, gl.Ptr(vertices))
	gl.BindBuffer(gl.ARRAY_BUFFER, q.uvs)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(uvs)*2*4, gl.Ptr(uvs))
	if indices != nil {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, q.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}
	gl.BindVertexArray(0)
	q.count = int32(len(vertices) / 4 * 6)
	return nil
}

func (q *QuadMesh) SetTexture(t impostor.RenderTarget)  { q.texture = t }
func (q *QuadMesh) SetTransform(m mgl32.Mat4)           { q.transform = m }
func (q *QuadMesh) SetParams(p impostor.MaterialParams) { q.params = p }
func (q *QuadMesh) SetVisible(v bool)                   { q.visible = v }

func (q *QuadMesh) Release() {
	if q.vao == 0 {
		return
	}
	gl.DeleteVertexArrays(1, &q.vao)
	gl.DeleteBuffers(1, &q.positions)
	gl.DeleteBuffers(1, &q.uvs)
	gl.DeleteBuffers(1, &q.ebo)
	q.vao = 0
}
