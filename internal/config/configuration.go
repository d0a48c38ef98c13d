package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// LayerDefinition describes one distance band of impostors.
type LayerDefinition struct {
	// UpdateRate is the refresh frequency in Hz.
	UpdateRate float64 `json:"updateRate"`
	// MinRadius and MaxRadius bound the band [MinRadius, MaxRadius) along the viewer's forward axis.
	MinRadius float32 `json:"minRadius"`
	MaxRadius float32 `json:"maxRadius"`
	// RenderDistance is passed to the impostor material as the far fade distance.
	RenderDistance float32 `json:"renderDistance"`
	// DebugFill clears the surface with this colour instead of transparent black when set.
	DebugFill *[4]float32 `json:"debugFill,omitempty"`
	// FrameFrustum renders the whole view frustum into the surface and places the
	// billboard as a window at the placement depth, instead of fitting the band's bounds.
	FrameFrustum bool `json:"frameFrustum,omitempty"`
}

// SurfaceMode selects how atlas surfaces are handed out.
type SurfaceMode string

const (
	// ModePerLayer gives each layer one surface showing all of its trackables.
	ModePerLayer SurfaceMode = "perLayer"
	// ModePerTrackable gives each trackable in a band its own surface and billboard.
	ModePerTrackable SurfaceMode = "perTrackable"
)

// Configuration is a named, ordered set of layers plus global toggles.
type Configuration struct {
	Name                      string            `json:"name"`
	Mode                      SurfaceMode       `json:"mode,omitempty"`
	Layers                    []LayerDefinition `json:"layers"`
	EnableMainCameraRendering bool              `json:"enableMainCameraRendering"`
	FPSCap                    int               `json:"fpsCap"`
}

// PerTrackable reports whether surfaces are assigned per trackable. An empty mode
// is per layer.
func (c *Configuration) PerTrackable() bool { return c.Mode == ModePerTrackable }

// ValidationError reports the first invalid field of a configuration.
type ValidationError struct {
	Config string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	name := e.Config
	if name == "" {
		name = "<unnamed>"
	}
	return "config: invalid configuration " + strconv.Quote(name) + "." + e.Field + ": " + e.Reason
}

// Validate checks the layer bands and rates.
func (c *Configuration) Validate() error {
	if c.FPSCap < 0 {
		return &ValidationError{Config: c.Name, Field: "FPSCap", Reason: "must be non-negative"}
	}
	switch c.Mode {
	case "", ModePerLayer, ModePerTrackable:
	default:
		return &ValidationError{Config: c.Name, Field: "Mode", Reason: fmt.Sprintf("unknown surface mode %q", c.Mode)}
	}
	for i, l := range c.Layers {
		field := func(name string) string { return fmt.Sprintf("Layers[%d].%s", i, name) }
		if l.UpdateRate <= 0 {
			return &ValidationError{Config: c.Name, Field: field("UpdateRate"), Reason: "must be positive"}
		}
		if l.MinRadius < 0 {
			return &ValidationError{Config: c.Name, Field: field("MinRadius"), Reason: "must be non-negative"}
		}
		if l.MaxRadius <= l.MinRadius {
			return &ValidationError{Config: c.Name, Field: field("MaxRadius"), Reason: "must be greater than MinRadius"}
		}
		if l.RenderDistance < 0 {
			return &ValidationError{Config: c.Name, Field: field("RenderDistance"), Reason: "must be non-negative"}
		}
	}
	return nil
}

// Clone returns a deep copy so the caller may mutate the layers freely.
func (c Configuration) Clone() Configuration {
	out := c
	out.Layers = make([]LayerDefinition, len(c.Layers))
	for i, l := range c.Layers {
		if l.DebugFill != nil {
			fill := *l.DebugFill
			l.DebugFill = &fill
		}
		out.Layers[i] = l
	}
	return out
}

// Configurations is a preset list as stored on disk.
type Configurations []Configuration

// LoadConfigurations reads a JSON array of configurations and validates every entry.
func LoadConfigurations(path string) (Configurations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read configuration file: %w", err)
	}

	var cfgs Configurations
	if err := json.Unmarshal(data, &cfgs); err != nil {
		return nil, fmt.Errorf("could not unmarshal configuration json: %w", err)
	}

	for i := range cfgs {
		if err := cfgs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return cfgs, nil
}

// Find returns the configuration with the given name.
func (cs Configurations) Find(name string) (Configuration, bool) {
	for _, c := range cs {
		if c.Name == name {
			return c, true
		}
	}
	return Configuration{}, false
}
