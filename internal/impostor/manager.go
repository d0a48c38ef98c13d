package impostor

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"impostor-lod/internal/camera"
	"impostor-lod/internal/config"
	"impostor-lod/internal/profiling"
)

// Manager owns the atlas, the layers and the registered trackables, and decides once
// per frame which layers refresh. It is not safe for concurrent use; call everything
// from the frame loop.
type Manager struct {
	dev         Device
	settings    *config.Settings
	viewer      Viewer
	logger      *slog.Logger
	material    Material
	materialSet bool
	prof        *profiling.Profiler
	onState     func(int, LayerState)

	atlas      *Allocator
	trackables []*Trackable
	layers     []*Layer
	cfg        config.Configuration

	now, prev float64
	frame     uint64
	epoch     uint64
	enabled   bool
	closed    bool
}

// New creates a manager with no layers. The impostor material defaults to the shader
// named in settings; an empty shader name is ErrMissingMaterial.
func New(dev Device, settings *config.Settings, viewer Viewer, opts ...Option) (*Manager, error) {
	if settings == nil {
		settings = config.Default()
	}
	m := &Manager{
		dev:      dev,
		settings: settings,
		viewer:   viewer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.materialSet {
		m.material = DefaultMaterial(settings.ImpostorShader())
	}
	if m.material.Shader == "" {
		m.logger.Error("impostor material is missing, impostors disabled")
		return nil, ErrMissingMaterial
	}

	m.atlas = NewAllocator(dev, settings, m.material, m.logger)
	m.enabled = settings.Enabled()
	return m, nil
}

// Register adds trackables. Registration order fixes each trackable's progressive group.
func (m *Manager) Register(ts ...*Trackable) {
	for _, t := range ts {
		t.seq = len(m.trackables)
		m.trackables = append(m.trackables, t)
	}
}

func (m *Manager) Trackables() []*Trackable { return m.trackables }

func (m *Manager) Layers() []*Layer { return m.layers }

func (m *Manager) Atlas() *Allocator { return m.atlas }

func (m *Manager) Settings() *config.Settings { return m.settings }

// Configuration returns the configuration currently applied.
func (m *Manager) Configuration() config.Configuration { return m.cfg }

// Batches returns the impostor batches the host should draw after the scene.
func (m *Manager) Batches() []*Batch { return m.atlas.Batches() }

// Now is the accumulated simulation time in seconds.
func (m *Manager) Now() float64 { return m.now }

// SetConfiguration tears down every layer, surface and atlas page and rebuilds them
// from cfg. All real geometry is restored first. Layers that cannot get a surface stay
// without impostors; their errors are returned joined, but the configuration is applied.
func (m *Manager) SetConfiguration(cfg config.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	for _, l := range m.layers {
		m.releaseLayer(l)
	}
	m.resetAtlas()

	m.cfg = cfg.Clone()
	m.layers = make([]*Layer, 0, len(m.cfg.Layers))

	var errs []error
	for i, def := range m.cfg.Layers {
		l := newLayer(i, def)
		m.layers = append(m.layers, l)
		if m.cfg.PerTrackable() {
			continue
		}
		s, err := m.atlas.ReserveSurface()
		if err != nil {
			errs = append(errs, fmt.Errorf("layer %d: %w", i, err))
			continue
		}
		l.surface = s
		s.HideQuad()
	}

	m.settings.SetFPSLimit(m.cfg.FPSCap)
	m.settings.SetMainCameraRendering(m.cfg.EnableMainCameraRendering)
	for _, b := range m.atlas.Batches() {
		b.SetVisible(m.enabled)
	}

	m.logger.Info("impostor configuration applied",
		"name", m.cfg.Name,
		"per_trackable", m.cfg.PerTrackable(),
		"layers", len(m.layers),
		"pages", len(m.atlas.Pages()),
		"fps_cap", m.cfg.FPSCap)
	return errors.Join(errs...)
}

// SetEnabled switches impostors on or off. Switching off restores every real primitive
// and hides the batches immediately.
func (m *Manager) SetEnabled(v bool) {
	m.settings.SetEnabled(v)
	if v != m.enabled {
		m.applyEnabled(v)
	}
}

func (m *Manager) Enabled() bool { return m.enabled }

// SetFrozen stops or resumes layer refreshes. Displayed impostors stay as they are.
func (m *Manager) SetFrozen(v bool) { m.settings.SetFrozen(v) }

func (m *Manager) applyEnabled(v bool) {
	m.enabled = v
	if !v {
		for _, l := range m.layers {
			m.releaseLayer(l)
		}
	}
	for _, b := range m.atlas.Batches() {
		b.SetVisible(v)
	}
	m.logger.Info("impostors toggled", "enabled", v)
}

// impostorMask covers every render layer used by progressive groups.
func (m *Manager) impostorMask() uint32 {
	base := m.settings.RenderLayer()
	var mask uint32
	for g := 0; g < m.settings.ProgressiveGroups(); g++ {
		mask |= 1 << uint(base+g)
	}
	return mask
}

// MainCullingMask is the mask the main viewer should draw the scene with.
func (m *Manager) MainCullingMask() uint32 {
	if !m.enabled || len(m.layers) == 0 {
		return ^uint32(0)
	}
	if !m.settings.MainCameraRendering() {
		return 0
	}
	return ^m.impostorMask()
}

// Tick advances the clock by dt seconds and runs one frame: layer decisions, then
// continuous camera passes and presents, then the batch flush.
func (m *Manager) Tick(dt float64) error {
	if m.closed {
		return nil
	}
	defer m.prof.Track("impostor.Tick")()

	m.prev = m.now
	m.now += dt
	m.frame++

	if v := m.settings.Enabled(); v != m.enabled {
		m.applyEnabled(v)
	}

	var errs []error
	if m.enabled && len(m.layers) > 0 {
		viewer := m.viewer.Snapshot()
		continuous := m.settings.ActivateCamera()

		if !m.settings.Frozen() {
			stop := m.prof.Track("impostor.layers")
			for _, l := range m.layers {
				if err := m.refreshLayer(l, &viewer, continuous); err != nil {
					errs = append(errs, fmt.Errorf("layer %d: %w", l.index, err))
				}
			}
			stop()
		} else if continuous {
			for _, l := range m.layers {
				l.camera.Idle()
			}
		}

		if continuous {
			stop := m.prof.Track("impostor.cameras")
			for _, l := range m.layers {
				if _, err := l.camera.RenderActive(m.dev); err != nil {
					l.presentDue = false
					l.cursor = 0
					errs = append(errs, fmt.Errorf("layer %d: %w", l.index, err))
				}
			}
			stop()
		}

		for _, l := range m.layers {
			if !l.presentDue {
				continue
			}
			if err := m.present(l); err != nil {
				errs = append(errs, fmt.Errorf("layer %d: %w", l.index, err))
			}
		}
		m.updateParams(&viewer)
	}

	stop := m.prof.Track("impostor.flush")
	for _, b := range m.atlas.Batches() {
		if err := b.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	stop()
	return errors.Join(errs...)
}

func (m *Manager) setState(l *Layer, s LayerState) {
	l.state = s
	if m.onState != nil {
		m.onState(l.index, s)
	}
}

func (m *Manager) refreshLayer(l *Layer, viewer *camera.Camera, continuous bool) error {
	if !IsDue(m.now, m.prev, l.Def.UpdateRate) {
		if continuous {
			l.camera.Idle()
		}
		return nil
	}
	if l.surface == nil && !m.cfg.PerTrackable() {
		return nil
	}

	var bench profiling.Benchmark
	bench.Start()
	defer func() { l.lastRefresh = bench.Stop() }()

	m.setState(l, DueForRefresh)
	groups := m.settings.ProgressiveGroups()
	if l.cursor >= groups {
		l.cursor = 0
	}

	var (
		started bool
		err     error
	)
	if m.cfg.PerTrackable() {
		started, err = m.renderTrackables(l, viewer, groups)
	} else {
		started, err = m.renderLayer(l, viewer, groups, continuous)
	}
	if err != nil {
		l.cursor = 0
		l.pending = l.pending[:0]
		m.setState(l, Idle)
		return err
	}
	if !started {
		m.setState(l, Idle)
		return nil
	}

	l.cursor = (l.cursor + 1) % groups
	if l.cursor == 0 {
		l.presentDue = true
	}
	m.setState(l, Idle)
	return nil
}

// renderLayer draws the current progressive group into the layer's surface. It
// reports false when the cycle was dropped because the band is empty or cannot be
// framed.
func (m *Manager) renderLayer(l *Layer, viewer *camera.Camera, groups int, continuous bool) (bool, error) {
	if l.cursor == 0 {
		box := l.collect(m.trackables, viewer)
		if len(l.pending) == 0 {
			m.releaseLayer(l)
			l.skipped++
			return false, nil
		}
		if l.Def.FrameFrustum {
			l.frame = l.camera.FrameLayer(max(l.placementDepth(), viewer.NearPlane), viewer)
		} else {
			frame, err := l.camera.FrameArea(box.Min, box.Max, viewer)
			if errors.Is(err, ErrDegenerateFrame) {
				m.logger.Debug("impostor layer skipped, bounds behind viewer", "layer", l.index)
				l.pending = l.pending[:0]
				l.skipped++
				return false, nil
			}
			if err != nil {
				return false, err
			}
			l.frame = frame.AtDepth(viewer.Position, l.placementDepth())
		}
	}

	m.setState(l, Rendering)
	g := l.cursor
	prims := l.group(g, groups)
	clear := g == 0

	if continuous {
		mask := uint32(1) << uint(m.settings.RenderLayer()+g)
		l.camera.SetTargetSurface(l.surface, clear, l.clearColor(), mask)
		l.camera.Queue(prims)
		return true, nil
	}
	if clear || len(prims) > 0 {
		return true, l.camera.RenderToSurface(m.dev, l.surface, clear, l.clearColor(), prims)
	}
	return true, nil
}

// renderTrackables frames every trackable of the current progressive group on its
// own bounds and renders it into its own surface. Trackables the atlas has no room
// for stay real geometry. Passes are always immediate since each needs its own
// projection.
func (m *Manager) renderTrackables(l *Layer, viewer *camera.Camera, groups int) (bool, error) {
	if l.cursor == 0 {
		l.collect(m.trackables, viewer)
		l.pending = slices.DeleteFunc(l.pending, func(t *Trackable) bool {
			t.framed = false
			return !m.ensureSurface(t)
		})
		if len(l.pending) == 0 {
			m.releaseLayer(l)
			l.skipped++
			return false, nil
		}
	}

	m.setState(l, Rendering)
	g := l.cursor
	for _, t := range l.pending {
		if t.Subgroup(groups) != g {
			continue
		}
		frame, err := l.camera.FrameArea(t.bounds.Min, t.bounds.Max, viewer)
		if errors.Is(err, ErrDegenerateFrame) {
			t.framed = false
			continue
		}
		if err != nil {
			return false, err
		}
		if err := l.camera.RenderToSurface(m.dev, t.surface, true, l.clearColor(), t.prims); err != nil {
			return false, err
		}
		t.frame = frame
		t.framed = true
	}
	return true, nil
}

// ensureSurface reserves t's own surface on first use. A trackable the atlas
// refused is not retried until the next configuration.
func (m *Manager) ensureSurface(t *Trackable) bool {
	if t.surface != nil {
		return true
	}
	if t.noSurface {
		return false
	}
	s, err := m.atlas.ReserveSurface()
	if err != nil {
		t.noSurface = true
		m.logger.Warn("no impostor surface left, trackable keeps its geometry",
			"trackable", t.Name, "err", err)
		return false
	}
	s.HideQuad()
	s.Batch().SetVisible(m.enabled)
	t.surface = s
	return true
}

// present shows the completed cycle: swap the surface, move the billboard and hand
// visibility from the real geometry to the impostor in the same step.
func (m *Manager) present(l *Layer) error {
	l.presentDue = false
	var errs []error
	if m.cfg.PerTrackable() {
		shown := l.pending[:0]
		for _, t := range l.pending {
			if !t.framed {
				continue
			}
			if err := t.surface.Present(m.dev); err != nil {
				errs = append(errs, fmt.Errorf("trackable %s: %w", t.Name, err))
				continue
			}
			t.surface.PlaceQuad(t.frame.Center, t.frame.Up, t.frame.Right)
			shown = append(shown, t)
		}
		l.pending = shown
	} else {
		if err := l.surface.Present(m.dev); err != nil {
			return err
		}
		l.surface.PlaceQuad(l.frame.Center, l.frame.Up, l.frame.Right)
	}

	m.epoch++
	for _, t := range l.pending {
		t.mark = m.epoch
	}
	for _, t := range l.active {
		if t.mark != m.epoch && t.owner == l {
			release(t)
		}
	}

	base, groups := m.settings.RenderLayer(), m.settings.ProgressiveGroups()
	for _, t := range l.pending {
		t.owner = l
		t.SetRenderLayer(base + t.Subgroup(groups))
		t.SetImpostorVisible(true)
	}

	l.active, l.pending = l.pending, l.active[:0]
	l.displayed = true
	l.refreshes++
	return errors.Join(errs...)
}

// releaseLayer gives every trackable the layer owns its real geometry back and hides
// the layer's billboard.
func (m *Manager) releaseLayer(l *Layer) {
	for _, t := range l.active {
		if t.owner == l {
			release(t)
		}
	}
	l.active = l.active[:0]
	if l.surface != nil && l.displayed {
		l.surface.HideQuad()
	}
	l.displayed = false
	l.reset()
}

func release(t *Trackable) {
	t.owner = nil
	t.ResetRenderLayer()
	t.SetImpostorVisible(false)
	if t.surface != nil {
		t.surface.HideQuad()
	}
}

// resetAtlas drops every page and the per-trackable surfaces that pointed into them.
func (m *Manager) resetAtlas() {
	m.atlas.Reset()
	for _, t := range m.trackables {
		t.dropSurface()
	}
}

// updateParams pushes the viewer clip range and the farthest placement depth of each
// page's layers into the batch material.
func (m *Manager) updateParams(viewer *camera.Camera) {
	for _, p := range m.atlas.Pages() {
		var dist float32
		for _, l := range m.layers {
			if m.cfg.PerTrackable() || (l.surface != nil && l.surface.page == p) {
				dist = max(dist, l.Def.RenderDistance)
			}
		}
		p.batch.SetParams(MaterialParams{
			Cutoff:         m.material.Params.Cutoff,
			DepthNear:      viewer.NearPlane,
			DepthFar:       viewer.FarPlane,
			RenderDistance: dist,
		})
	}
}

// Close restores all real geometry and releases every GPU resource.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	for _, l := range m.layers {
		m.releaseLayer(l)
	}
	m.layers = nil
	m.resetAtlas()
	m.closed = true
}
