package impostor

import (
	"log/slog"

	"impostor-lod/internal/profiling"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for capacity warnings and configuration changes.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMaterial overrides the impostor material. An empty shader makes New fail.
func WithMaterial(mat Material) Option {
	return func(m *Manager) {
		m.material = mat
		m.materialSet = true
	}
}

// WithProfiler records per-phase timings into p.
func WithProfiler(p *profiling.Profiler) Option {
	return func(m *Manager) { m.prof = p }
}

// WithStateHook is called on every layer state transition.
func WithStateHook(fn func(layer int, state LayerState)) Option {
	return func(m *Manager) { m.onState = fn }
}
