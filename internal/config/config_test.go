package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSettingsClamp(t *testing.T) {
	s := Default()

	s.SetTextureSize(10, 100000)
	if w, h := s.TextureSize(); w != minTextureSize || h != maxTextureSize {
		t.Fatalf("texture size not clamped: %dx%d", w, h)
	}

	s.SetDivisions(0)
	if s.Divisions() != 1 {
		t.Errorf("divisions = %d, want 1", s.Divisions())
	}

	s.SetFPSLimit(-5)
	if s.GetFPSLimit() != 0 {
		t.Errorf("fps limit = %d, want 0", s.GetFPSLimit())
	}

	s.SetRenderLayers(30, 4)
	if s.RenderLayer() != 28 || s.ProgressiveGroups() != 4 {
		t.Errorf("render layers = %d/%d, want 28/4", s.RenderLayer(), s.ProgressiveGroups())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Configuration
		field string
	}{
		{"ok", Configuration{Name: "a", Layers: []LayerDefinition{{UpdateRate: 1, MinRadius: 10, MaxRadius: 50}}}, ""},
		{"zero rate", Configuration{Name: "b", Layers: []LayerDefinition{{MinRadius: 10, MaxRadius: 50}}}, "Layers[0].UpdateRate"},
		{"inverted band", Configuration{Name: "c", Layers: []LayerDefinition{
			{UpdateRate: 1, MinRadius: 0, MaxRadius: 10},
			{UpdateRate: 1, MinRadius: 20, MaxRadius: 20},
		}}, "Layers[1].MaxRadius"},
		{"negative fps", Configuration{Name: "d", FPSCap: -1}, "FPSCap"},
		{"per trackable", Configuration{Name: "e", Mode: ModePerTrackable}, ""},
		{"unknown mode", Configuration{Name: "f", Mode: "perPixel"}, "Mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	fill := [4]float32{1, 0, 0, 1}
	c := Configuration{Name: "x", Layers: []LayerDefinition{{UpdateRate: 1, MaxRadius: 5, DebugFill: &fill}}}
	d := c.Clone()
	d.Layers[0].MaxRadius = 99
	d.Layers[0].DebugFill[0] = 0

	if c.Layers[0].MaxRadius != 5 {
		t.Errorf("clone shares layer slice")
	}
	if c.Layers[0].DebugFill[0] != 1 {
		t.Errorf("clone shares debug fill")
	}
}

func TestLoadConfigurations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "configurations.json")
	data := `[
		{"name": "near", "layers": [{"updateRate": 2, "minRadius": 10, "maxRadius": 50, "renderDistance": 200}], "fpsCap": 60},
		{"name": "far", "layers": [{"updateRate": 1, "minRadius": 50, "maxRadius": 400}], "enableMainCameraRendering": true}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgs, err := LoadConfigurations(path)
	if err != nil {
		t.Fatalf("LoadConfigurations: %v", err)
	}
	if len(cfgs) != 2 {
		t.Fatalf("got %d configurations, want 2", len(cfgs))
	}

	near, ok := cfgs.Find("near")
	if !ok {
		t.Fatal("near not found")
	}
	if near.FPSCap != 60 || near.Layers[0].UpdateRate != 2 || near.Layers[0].RenderDistance != 200 {
		t.Errorf("unexpected near config: %+v", near)
	}
	if _, ok := cfgs.Find("missing"); ok {
		t.Error("found a configuration that does not exist")
	}
}

func TestLoadConfigurationsRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`[{"name":"bad","layers":[{"updateRate":0,"maxRadius":1}]}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfigurations(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestShippedPresetsLoad(t *testing.T) {
	cfgs, err := LoadConfigurations(filepath.Join("..", "..", "assets", "configurations.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"baseline", "single", "three-bands", "debug-fill", "per-object", "window"} {
		if _, ok := cfgs.Find(name); !ok {
			t.Errorf("preset %q missing", name)
		}
	}
	if c, _ := cfgs.Find("debug-fill"); c.Layers[0].DebugFill == nil {
		t.Error("debug-fill preset has no fill colour")
	}
	if c, _ := cfgs.Find("per-object"); !c.PerTrackable() {
		t.Errorf("per-object mode = %q, want %q", c.Mode, ModePerTrackable)
	}
	if c, _ := cfgs.Find("window"); !c.Layers[0].FrameFrustum {
		t.Error("window preset does not frame the frustum")
	}
}
