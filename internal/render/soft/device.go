// Package soft is a CPU implementation of the impostor device. It rasterizes
// flat-shaded triangles into RGBA images and composites impostor quads with
// affine texture mapping, which is enough to inspect atlases and previews
// without a GPU.
package soft

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"impostor-lod/internal/camera"
	"impostor-lod/internal/geom"
	"impostor-lod/internal/impostor"
)

// ErrForeignTarget is returned when a target or mesh was not created by this device.
var ErrForeignTarget = errors.New("soft: resource belongs to another device")

var lightDir = mgl32.Vec3{0.4, 0.8, 0.45}.Normalize()

// Target is a render target backed by an RGBA image. Row 0 of the image is the
// top of the texture; pixel rectangles use a bottom-left origin.
type Target struct {
	id       int
	img      *image.RGBA
	released bool
}

func (t *Target) Size() (int, int)   { return t.img.Bounds().Dx(), t.img.Bounds().Dy() }
func (t *Target) Image() *image.RGBA { return t.img }
func (t *Target) Released() bool     { return t.released }
func (t *Target) Release()           { t.released = true }

// rect converts a bottom-left pixel rectangle into image coordinates.
func (t *Target) rect(r impostor.PixelRect) image.Rectangle {
	h := t.img.Bounds().Dy()
	return image.Rect(r.X, h-(r.Y+r.H), r.X+r.W, h-r.Y).Intersect(t.img.Bounds())
}

// Stats counts the work done by a device.
type Stats struct {
	Targets   int
	Passes    int
	Triangles int
	Copies    int
	Uploads   int
}

// Device renders impostor passes on the CPU. It is safe for use by one goroutine
// at a time; Stats may be read concurrently.
type Device struct {
	mu    sync.Mutex
	stats Stats
}

// New returns an empty device.
func New() *Device {
	return &Device{}
}

// Stats returns a copy of the device counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Device) count(fn func(s *Stats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

func (d *Device) NewRenderTarget(width, height int) (impostor.RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("soft: invalid target size %dx%d", width, height)
	}
	var id int
	d.count(func(s *Stats) { s.Targets++; id = s.Targets })
	return &Target{id: id, img: image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

// NewTarget is NewRenderTarget returning the concrete type.
func (d *Device) NewTarget(width, height int) (*Target, error) {
	t, err := d.NewRenderTarget(width, height)
	if err != nil {
		return nil, err
	}
	return t.(*Target), nil
}

func (d *Device) NewQuadMesh(maxQuads int, m impostor.Material) (impostor.QuadMesh, error) {
	if m.Shader == "" {
		return nil, impostor.ErrMissingMaterial
	}
	return &QuadMesh{dev: d, material: m, maxQuads: maxQuads, transform: mgl32.Ident4()}, nil
}

func (d *Device) Render(pass impostor.RenderPass) error {
	t, ok := pass.Target.(*Target)
	if !ok {
		return ErrForeignTarget
	}
	if t.released {
		return fmt.Errorf("soft: render into released target %d", t.id)
	}
	vp := t.rect(pass.Viewport)
	if vp.Empty() {
		return nil
	}
	if pass.Clear {
		xdraw.Draw(t.img, vp, image.NewUniform(toNRGBA(pass.ClearColor)), image.Point{}, xdraw.Src)
	}
	tris := collectTriangles(pass.View, pass.Projection, pass.Primitives, 0, false)
	drawTriangles(t.img, vp, tris)
	d.count(func(s *Stats) { s.Passes++; s.Triangles += len(tris) })
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
	sr := st.rect(r)
	xdraw.Copy(dt.img, dt.rect(r).Min, st.img, sr, xdraw.Src, nil)
	d.count(func(s *Stats) { s.Copies++ })
	return nil
}

// DrawView renders what the main viewer sees into t: every primitive visible
// under mask, plus the quads of every visible batch, sorted back to front.
func (d *Device) DrawView(t *Target, viewer *camera.Camera, prims []*impostor.Primitive, mask uint32, batches []*impostor.Batch, background impostor.Color) error {
	if t.released {
		return fmt.Errorf("soft: render into released target %d", t.id)
	}
	view := viewer.ViewMatrix()
	proj := viewer.ProjectionMatrix()
	vp := t.img.Bounds()
	xdraw.Draw(t.img, vp, image.NewUniform(toNRGBA(background)), image.Point{}, xdraw.Src)

	tris := collectTriangles(view, proj, prims, mask, true)
	quads, err := collectQuads(view, proj, vp, batches)
	if err != nil {
		return err
	}

	// Merge both lists by depth so near geometry covers far impostors.
	z := vector.NewRasterizer(vp.Dx(), vp.Dy())
	i, j := 0, 0
	for i < len(tris) || j < len(quads) {
		if j >= len(quads) || (i < len(tris) && tris[i].depth >= quads[j].depth) {
			fillTriangle(z, t.img, vp, tris[i])
			i++
			continue
		}
		quads[j].draw(t.img)
		j++
	}
	d.count(func(s *Stats) { s.Passes++; s.Triangles += len(tris) })
	return nil
}

// triangle is a screen-space triangle in NDC with its view depth.
type triangle struct {
	ndc   [3]mgl32.Vec2
	depth float32
	color color.NRGBA
}

// collectTriangles projects the primitives and returns their triangles sorted far
// to near. With useMask only enabled primitives on a layer in mask are kept.
func collectTriangles(view, proj mgl32.Mat4, prims []*impostor.Primitive, mask uint32, useMask bool) []triangle {
	clip := proj.Mul4(view)
	frustum := geom.NewFrustum(clip)
	var out []triangle
	for _, p := range prims {
		if p == nil || p.Mesh == nil {
			continue
		}
		if useMask && !p.Visible(mask) {
			continue
		}
		if !frustum.IntersectsAABB(p.WorldBounds()) {
			continue
		}
		mv := view.Mul4(p.World)
		normalWorld := p.World.Mat3()
		idx := p.Mesh.Indices
		for k := 0; k+2 < len(idx); k += 3 {
			var w [3]mgl32.Vec3
			var tri triangle
			visible := true
			for c := 0; c < 3; c++ {
				v := p.Mesh.Vertices[idx[k+c]]
				w[c] = p.World.Mul4x1(v.Vec4(1)).Vec3()
				eye := mv.Mul4x1(v.Vec4(1))
				cp := proj.Mul4x1(eye)
				if cp.W() <= 1e-6 {
					visible = false
					break
				}
				tri.ndc[c] = mgl32.Vec2{cp.X() / cp.W(), cp.Y() / cp.W()}
				tri.depth += -eye.Z() / 3
			}
			if !visible {
				continue
			}
			n := w[1].Sub(w[0]).Cross(w[2].Sub(w[0]))
			if n.Len() > 0 {
				n = n.Normalize()
			} else {
				n = normalWorld.Mul3x1(mgl32.Vec3{0, 1, 0})
			}
			tri.color = shade(p.Color, n)
			out = append(out, tri)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].depth > out[b].depth })
	return out
}

// shade applies two-sided lambert lighting with an ambient floor.
func shade(c impostor.Color, n mgl32.Vec3) color.NRGBA {
	l := n.Dot(lightDir)
	if l < 0 {
		l = -l
	}
	f := 0.45 + 0.55*l
	return toNRGBA(impostor.Color{c[0] * f, c[1] * f, c[2] * f, c[3]})
}

func drawTriangles(dst *image.RGBA, vp image.Rectangle, tris []triangle) {
	if len(tris) == 0 {
		return
	}
	z := vector.NewRasterizer(vp.Dx(), vp.Dy())
	for _, tri := range tris {
		fillTriangle(z, dst, vp, tri)
	}
}

func fillTriangle(z *vector.Rasterizer, dst *image.RGBA, vp image.Rectangle, tri triangle) {
	w, h := float32(vp.Dx()), float32(vp.Dy())
	z.Reset(vp.Dx(), vp.Dy())
	for c, p := range tri.ndc {
		x := (p.X() + 1) / 2 * w
		y := (1 - p.Y()) / 2 * h
		if c == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
	z.Draw(dst, vp, image.NewUniform(tri.color), image.Point{})
}

// screenQuad is one impostor quad mapped onto the destination image.
type screenQuad struct {
	src   *image.RGBA
	sr    image.Rectangle
	s2d   f64.Aff3
	depth float32
}

func (q screenQuad) draw(dst *image.RGBA) {
	xdraw.ApproxBiLinear.Transform(dst, q.s2d, q.src, q.sr, xdraw.Over, nil)
}

// collectQuads maps every non-collapsed quad of the visible batches onto vp,
// sorted far to near.
func collectQuads(view, proj mgl32.Mat4, vp image.Rectangle, batches []*impostor.Batch) ([]screenQuad, error) {
	var out []screenQuad
	for _, b := range batches {
		if !b.Visible() || b.Texture() == nil {
			continue
		}
		tex, ok := b.Texture().(*Target)
		if !ok {
			return nil, ErrForeignTarget
		}
		model := b.Transform()
		for slot := 0; slot < b.Reserved(); slot++ {
			q := b.Quad(slot)
			if q.Corners[0] == q.Corners[2] {
				continue
			}
			sq, ok := mapQuad(view, proj, model, vp, tex, q)
			if ok {
				out = append(out, sq)
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].depth > out[b].depth })
	return out, nil
}

// mapQuad builds the affine map from the quad's texture region to the screen.
// Quads face the camera that framed them, so the map is exact for that pose and
// close for nearby ones.
func mapQuad(view, proj, model mgl32.Mat4, vp image.Rectangle, tex *Target, q impostor.Quad) (screenQuad, bool) {
	var scr [4]mgl32.Vec2
	var depth float32
	for i, c := range q.Corners {
		eye := view.Mul4(model).Mul4x1(c.Vec4(1))
		cp := proj.Mul4x1(eye)
		if cp.W() <= 1e-6 {
			return screenQuad{}, false
		}
		scr[i] = mgl32.Vec2{
			float32(vp.Min.X) + (cp.X()/cp.W()+1)/2*float32(vp.Dx()),
			float32(vp.Min.Y) + (1-cp.Y()/cp.W())/2*float32(vp.Dy()),
		}
		depth += -eye.Z() / 4
	}

	tw, th := tex.Size()
	// Corner 0 carries uv.Max, corner 1 (uv.Max.X, uv.Min.Y), corner 3 (uv.Min.X, uv.Max.Y).
	x0 := float64(q.UVs[2].X()) * float64(tw)
	x1 := float64(q.UVs[0].X()) * float64(tw)
	yTop := (1 - float64(q.UVs[0].Y())) * float64(th)
	yBot := (1 - float64(q.UVs[2].Y())) * float64(th)
	if x1-x0 < 1 || yBot-yTop < 1 {
		return screenQuad{}, false
	}

	q0, q1, q3 := scr[0], scr[1], scr[3]
	a00 := float64(q0.X()-q3.X()) / (x1 - x0)
	a10 := float64(q0.Y()-q3.Y()) / (x1 - x0)
	a01 := float64(q1.X()-q0.X()) / (yBot - yTop)
	a11 := float64(q1.Y()-q0.Y()) / (yBot - yTop)
	tx := float64(q3.X()) - a00*x0 - a01*yTop
	ty := float64(q3.Y()) - a10*x0 - a11*yTop

	sr := image.Rect(int(x0), int(yTop), int(x1+0.5), int(yBot+0.5)).Intersect(tex.img.Bounds())
	return screenQuad{
		src:   tex.img,
		sr:    sr,
		s2d:   f64.Aff3{a00, a01, tx, a10, a11, ty},
		depth: depth,
	}, true
}

func toNRGBA(c impostor.Color) color.NRGBA {
	u8 := func(v float32) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.NRGBA{R: u8(c[0]), G: u8(c[1]), B: u8(c[2]), A: u8(c[3])}
}

// QuadMesh keeps the uploaded quad data on the CPU.
type QuadMesh struct {
	dev       *Device
	material  impostor.Material
	maxQuads  int
	vertices  []mgl32.Vec3
	uvs       []mgl32.Vec2
	indices   []uint32
	texture   impostor.RenderTarget
	transform mgl32.Mat4
	params    impostor.MaterialParams
	visible   bool
	uploads   int
	released  bool
}

func (m *QuadMesh) Upload(vertices []mgl32.Vec3, uvs []mgl32.Vec2, indices []uint32) error {
	if m.released {
		return errors.New("soft: upload to released quad mesh")
	}
	if len(vertices) > m.maxQuads*4 {
		return fmt.Errorf("soft: %d vertices exceed %d quads", len(vertices), m.maxQuads)
	}
	m.vertices = append(m.vertices[:0], vertices...)
	m.uvs = append(m.uvs[:0], uvs...)
	if indices != nil {
		m.indices = append(m.indices[:0], indices...)
	}
	m.uploads++
	m.dev.count(func(s *Stats) { s.Uploads++ })
	return nil
}

func (m *QuadMesh) SetTexture(t impostor.RenderTarget)  { m.texture = t }
func (m *QuadMesh) SetTransform(t mgl32.Mat4)           { m.transform = t }
func (m *QuadMesh) SetParams(p impostor.MaterialParams) { m.params = p }
func (m *QuadMesh) SetVisible(v bool)                   { m.visible = v }
func (m *QuadMesh) Release()                            { m.released = true }

func (m *QuadMesh) Uploads() int                    { return m.uploads }
func (m *QuadMesh) Indices() []uint32               { return m.indices }
func (m *QuadMesh) Params() impostor.MaterialParams { return m.params }
func (m *QuadMesh) Visible() bool                   { return m.visible }
