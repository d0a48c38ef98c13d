package impostor

import "github.com/go-gl/mathgl/mgl32"

// Surface is one grid cell of an atlas page plus the batch quad that displays it.
type Surface struct {
	index int
	cell  int
	page  *AtlasPage
	slot  int

	uv     Rect
	pixels PixelRect
}

// Index is the reservation order of this surface across the whole atlas.
func (s *Surface) Index() int { return s.index }

// Cell is the grid cell within the page.
func (s *Surface) Cell() int { return s.cell }

func (s *Surface) Page() *AtlasPage { return s.page }

func (s *Surface) Batch() *Batch { return s.page.batch }

func (s *Surface) Slot() int { return s.slot }

func (s *Surface) UV() Rect { return s.uv }

// Pixels is always the UV rectangle rounded onto the page texture.
func (s *Surface) Pixels() PixelRect { return s.pixels }

// SetUV moves the surface and recomputes its pixel rectangle.
func (s *Surface) SetUV(uv Rect) {
	s.uv = uv
	s.refreshPixels()
}

func (s *Surface) refreshPixels() {
	if s.page == nil || s.page.front == nil {
		s.pixels = PixelRect{}
		return
	}
	w, h := s.page.front.Size()
	s.pixels = PixelsOf(s.uv, w, h)
}

// Front is the texture currently displayed by the batch.
func (s *Surface) Front() RenderTarget { return s.page.front }

// Back is the texture renders accumulate into.
func (s *Surface) Back() RenderTarget { return s.page.back }

// Present makes the back buffer's content visible. A page owned by one surface swaps
// its buffers; a shared page copies only this surface's region so neighbours keep
// their last completed frame.
func (s *Surface) Present(dev Device) error {
	if !s.page.shared {
		s.page.swap()
		s.refreshPixels()
		return nil
	}
	return dev.CopyRegion(s.page.front, s.page.back, s.pixels)
}

// PlaceQuad positions this surface's billboard.
func (s *Surface) PlaceQuad(center, up, right mgl32.Vec3) {
	s.page.batch.SetQuad(s.slot, center, up, right, s.uv)
}

// HideQuad removes this surface's billboard from view.
func (s *Surface) HideQuad() {
	s.page.batch.HideQuad(s.slot)
}
