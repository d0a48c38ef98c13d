package impostor

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/config"
)

// AtlasPage is one atlas texture pair (front and back buffer) and the batch that draws it.
type AtlasPage struct {
	Index int

	front, back RenderTarget
	batch       *Batch
	surfaces    int
	shared      bool
}

func (p *AtlasPage) Front() RenderTarget { return p.front }
func (p *AtlasPage) Back() RenderTarget  { return p.back }
func (p *AtlasPage) Batch() *Batch       { return p.batch }

// Surfaces is the number of surfaces reserved on this page.
func (p *AtlasPage) Surfaces() int { return p.surfaces }

func (p *AtlasPage) swap() {
	p.front, p.back = p.back, p.front
	p.batch.SetTexture(p.front)
}

func (p *AtlasPage) release() {
	if p.front != nil {
		p.front.Release()
	}
	if p.back != nil {
		p.back.Release()
	}
	p.batch.Release()
}

// Allocator partitions atlas pages into a divisions x divisions grid of surfaces.
// Surfaces are handed out in order and never freed individually; Reset drops everything.
type Allocator struct {
	dev      Device
	settings *config.Settings
	material Material
	logger   *slog.Logger

	width, height int
	divisions     int
	maxQuads      int
	maxPages      int
	cells         []Rect

	pages    []*AtlasPage
	surfaces []*Surface
}

// NewAllocator creates an empty allocator. Texture size and grid are read from settings
// now and on every Reset.
func NewAllocator(dev Device, settings *config.Settings, material Material, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Allocator{dev: dev, settings: settings, material: material, logger: logger}
	a.loadSettings()
	return a
}

func (a *Allocator) loadSettings() {
	a.width, a.height = a.settings.TextureSize()
	a.divisions = a.settings.Divisions()
	a.maxQuads = a.settings.MaxQuads()
	a.maxPages = a.settings.MaxAtlasPages()

	d := a.divisions
	size := 1 / float32(d)
	a.cells = make([]Rect, d*d)
	for x := 0; x < d; x++ {
		for y := 0; y < d; y++ {
			lo := mgl32.Vec2{float32(x) * size, float32(y) * size}
			a.cells[y*d+x] = Rect{Min: lo, Max: lo.Add(mgl32.Vec2{size, size})}
		}
	}
}

// Cell returns the UV rectangle of grid cell index (index = y*divisions + x).
func (a *Allocator) Cell(index int) Rect { return a.cells[index] }

func (a *Allocator) Divisions() int { return a.divisions }

// ReserveSurface hands out the next surface, creating a page at every page boundary.
func (a *Allocator) ReserveSurface() (*Surface, error) {
	perPage := a.divisions * a.divisions
	n := len(a.surfaces)
	pageIndex, cell := n/perPage, n%perPage

	if pageIndex >= len(a.pages) {
		if len(a.pages) >= a.maxPages {
			a.logger.Warn("impostor atlas page budget exhausted",
				"pages", len(a.pages), "max_pages", a.maxPages)
			return nil, ErrAtlasBudget
		}
		page, err := a.newPage(pageIndex)
		if err != nil {
			return nil, err
		}
		a.pages = append(a.pages, page)
	}

	page := a.pages[pageIndex]
	slot, err := page.batch.ReserveQuadSlot()
	if err != nil {
		return nil, fmt.Errorf("could not reserve quad on atlas page %d: %w", pageIndex, err)
	}
	page.surfaces++
	page.shared = perPage > 1

	s := &Surface{
		index: n,
		cell:  cell,
		page:  page,
		slot:  slot,
	}
	s.SetUV(a.cells[cell])
	a.surfaces = append(a.surfaces, s)
	return s, nil
}

func (a *Allocator) newPage(index int) (*AtlasPage, error) {
	front, err := a.dev.NewRenderTarget(a.width, a.height)
	if err != nil {
		return nil, fmt.Errorf("could not create atlas front buffer: %w", err)
	}
	back, err := a.dev.NewRenderTarget(a.width, a.height)
	if err != nil {
		front.Release()
		return nil, fmt.Errorf("could not create atlas back buffer: %w", err)
	}
	batch, err := NewBatch(a.dev, a.material, a.maxQuads, a.logger)
	if err != nil {
		front.Release()
		back.Release()
		return nil, err
	}
	page := &AtlasPage{Index: index, front: front, back: back, batch: batch}
	batch.SetTexture(front)
	a.logger.Debug("impostor atlas page created", "page", index, "width", a.width, "height", a.height)
	return page, nil
}

// Reset releases every page and surface and re-reads the settings.
func (a *Allocator) Reset() {
	for _, p := range a.pages {
		p.release()
	}
	a.pages = nil
	a.surfaces = nil
	a.loadSettings()
}

func (a *Allocator) Pages() []*AtlasPage { return a.pages }

func (a *Allocator) Surfaces() []*Surface { return a.surfaces }

// Batches returns the batch of every page in page order.
func (a *Allocator) Batches() []*Batch {
	out := make([]*Batch, len(a.pages))
	for i, p := range a.pages {
		out[i] = p.batch
	}
	return out
}

// Textures returns every atlas render target, front and back per page.
func (a *Allocator) Textures() []RenderTarget {
	out := make([]RenderTarget, 0, len(a.pages)*2)
	for _, p := range a.pages {
		out = append(out, p.front, p.back)
	}
	return out
}
