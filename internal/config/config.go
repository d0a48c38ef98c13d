package config

import "sync"

const (
	// DefaultImpostorShader is the material the impostor batches are drawn with.
	DefaultImpostorShader = "impostor"

	minTextureSize = 64
	maxTextureSize = 8192
	maxDivisions   = 16
	maxRenderLayer = 31
)

// Settings holds the global impostor toggles. Every field is guarded so the debug
// overlay can read while the host loop writes.
type Settings struct {
	mu sync.RWMutex

	textureWidth  int
	textureHeight int
	divisions     int
	maxQuads      int
	maxPages      int

	renderLayer       int
	progressiveGroups int

	enabled            bool
	frozen             bool
	activateCamera     bool
	mainCameraRender   bool
	fpsLimit           int
	impostorShaderName string
}

// Default returns the settings the prototype shipped with.
func Default() *Settings {
	return &Settings{
		textureWidth:       1024,
		textureHeight:      1024,
		divisions:          1,
		maxQuads:           32,
		maxPages:           16,
		renderLayer:        30,
		progressiveGroups:  1,
		enabled:            true,
		mainCameraRender:   true,
		impostorShaderName: DefaultImpostorShader,
	}
}

// TextureSize returns the pixel size of every atlas texture.
func (s *Settings) TextureSize() (width, height int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.textureWidth, s.textureHeight
}

// SetTextureSize sets the atlas texture size. Takes effect on the next atlas reset.
func (s *Settings) SetTextureSize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textureWidth = clamp(width, minTextureSize, maxTextureSize)
	s.textureHeight = clamp(height, minTextureSize, maxTextureSize)
}

// Divisions is the number of surfaces per atlas side (2 means a 2x2 split).
func (s *Settings) Divisions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.divisions
}

func (s *Settings) SetDivisions(d int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.divisions = clamp(d, 1, maxDivisions)
}

// MaxQuads is the quad capacity of each impostor batch.
func (s *Settings) MaxQuads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxQuads
}

func (s *Settings) SetMaxQuads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 {
		n = 1
	}
	s.maxQuads = n
}

// MaxAtlasPages caps how many atlas pages (front+back texture pairs) may exist.
func (s *Settings) MaxAtlasPages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxPages
}

func (s *Settings) SetMaxAtlasPages(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 {
		n = 1
	}
	s.maxPages = n
}

// RenderLayer is the first render layer reserved for impostor geometry.
func (s *Settings) RenderLayer() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderLayer
}

// ProgressiveGroups is how many sub-groups a layer refresh is spread over.
func (s *Settings) ProgressiveGroups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progressiveGroups
}

// SetRenderLayers sets the first impostor render layer and the progressive group count.
// The groups occupy layers [layer, layer+groups) and must fit below 32.
func (s *Settings) SetRenderLayers(layer, groups int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if groups < 1 {
		groups = 1
	}
	if groups > maxRenderLayer {
		groups = maxRenderLayer
	}
	layer = clamp(layer, 1, maxRenderLayer)
	if layer+groups-1 > maxRenderLayer {
		layer = maxRenderLayer - groups + 1
	}
	s.renderLayer = layer
	s.progressiveGroups = groups
}

func (s *Settings) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

func (s *Settings) SetEnabled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = v
}

// Frozen stops all layer refreshes while keeping the current impostors on screen.
func (s *Settings) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

func (s *Settings) SetFrozen(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = v
}

// ActivateCamera selects continuous impostor cameras over one-shot renders.
func (s *Settings) ActivateCamera() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activateCamera
}

func (s *Settings) SetActivateCamera(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activateCamera = v
}

// MainCameraRendering reports whether the main camera still draws geometry outside the layers.
func (s *Settings) MainCameraRendering() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mainCameraRender
}

func (s *Settings) SetMainCameraRendering(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mainCameraRender = v
}

// GetFPSLimit returns the frame cap; 0 means unlimited.
func (s *Settings) GetFPSLimit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fpsLimit
}

func (s *Settings) SetFPSLimit(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}
	s.fpsLimit = limit
}

// ImpostorShader names the material used for impostor batches. Empty means missing.
func (s *Settings) ImpostorShader() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.impostorShaderName
}

func (s *Settings) SetImpostorShader(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.impostorShaderName = name
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
