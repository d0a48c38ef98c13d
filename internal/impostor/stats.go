package impostor

import (
	"fmt"
	"strings"
	"time"
)

// LayerStats is the read-only telemetry of one layer.
type LayerStats struct {
	Index      int
	MinRadius  float32
	MaxRadius  float32
	UpdateRate float64

	HasSurface bool
	Page       int
	Slot       int
	Pixels     PixelRect

	Active      int
	Pending     int
	Cursor      int
	Refreshes   int
	Skipped     int
	LastRefresh time.Duration
}

// Stats is a snapshot for debug overlays and reports.
type Stats struct {
	Frame       uint64
	Time        float64
	Enabled     bool
	Frozen      bool
	Pages       int
	Textures    int
	Surfaces    int
	Trackables  int
	Impostored  int
	CullingMask uint32
	Layers      []LayerStats
}

// Stats returns a snapshot of the current state. It never mutates the manager.
func (m *Manager) Stats() Stats {
	st := Stats{
		Frame:       m.frame,
		Time:        m.now,
		Enabled:     m.enabled,
		Frozen:      m.settings.Frozen(),
		Pages:       len(m.atlas.Pages()),
		Textures:    len(m.atlas.Pages()) * 2,
		Surfaces:    len(m.atlas.Surfaces()),
		Trackables:  len(m.trackables),
		CullingMask: m.MainCullingMask(),
		Layers:      make([]LayerStats, 0, len(m.layers)),
	}
	for _, t := range m.trackables {
		if t.impostor {
			st.Impostored++
		}
	}
	for _, l := range m.layers {
		ls := LayerStats{
			Index:       l.index,
			MinRadius:   l.Def.MinRadius,
			MaxRadius:   l.Def.MaxRadius,
			UpdateRate:  l.Def.UpdateRate,
			Active:      len(l.active),
			Pending:     len(l.pending),
			Cursor:      l.cursor,
			Refreshes:   l.refreshes,
			Skipped:     l.skipped,
			LastRefresh: l.lastRefresh,
		}
		if l.surface != nil {
			ls.HasSurface = true
			ls.Page = l.surface.page.Index
			ls.Slot = l.surface.slot
			ls.Pixels = l.surface.pixels
		}
		st.Layers = append(st.Layers, ls)
	}
	return st
}

// String formats the snapshot as a small multi-line table.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frame %d t=%.2fs enabled=%v frozen=%v pages=%d textures=%d surfaces=%d impostored=%d/%d\n",
		s.Frame, s.Time, s.Enabled, s.Frozen, s.Pages, s.Textures, s.Surfaces, s.Impostored, s.Trackables)
	for _, l := range s.Layers {
		surface := "none"
		if l.HasSurface {
			surface = fmt.Sprintf("page %d slot %d %dx%d@%d,%d", l.Page, l.Slot, l.Pixels.W, l.Pixels.H, l.Pixels.X, l.Pixels.Y)
		}
		fmt.Fprintf(&b, "  layer %d [%g,%g) %gHz: active=%d pending=%d cursor=%d refreshes=%d skipped=%d last=%v surface=%s\n",
			l.Index, l.MinRadius, l.MaxRadius, l.UpdateRate, l.Active, l.Pending, l.Cursor,
			l.Refreshes, l.Skipped, l.LastRefresh, surface)
	}
	return b.String()
}
