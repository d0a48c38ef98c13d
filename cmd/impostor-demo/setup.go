package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/camera"
	"impostor-lod/internal/config"
	"impostor-lod/internal/fps"
	"impostor-lod/internal/impostor"
	"impostor-lod/internal/profiling"
	"impostor-lod/internal/render/glrender"
	"impostor-lod/internal/scene"
)

func setupWindow(width, height int) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(width, height, "impostor-demo", nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return nil, err
	}

	// The frame cap comes from the active configuration.
	glfw.SwapInterval(0)
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	return window, nil
}

type appOptions struct {
	configPath string
	preset     string
	shaderDir  string
	rows, cols int
}

// app holds everything the demo loop drives.
type app struct {
	window   *glfw.Window
	dev      *glrender.Device
	settings *config.Settings
	manager  *impostor.Manager
	viewer   *camera.Camera
	prims    []*impostor.Primitive
	configs  config.Configurations
	current  int

	profiler *profiling.Profiler
	limiter  *fps.Limiter
	sampler  *fps.Sampler

	yaw, pitch   float64
	lastX, lastY float64
	firstMouse   bool
}

func newApp(window *glfw.Window, opts appOptions) (*app, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	configs, err := config.LoadConfigurations(opts.configPath)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%s holds no configurations", opts.configPath)
	}

	dev, err := glrender.NewDevice(opts.shaderDir, logger)
	if err != nil {
		return nil, err
	}

	width, height := window.GetFramebufferSize()
	viewer := camera.NewCamera(width, height)
	viewer.Position = mgl32.Vec3{0, 6, 10}

	settings := config.Default()
	profiler := profiling.New()
	m, err := impostor.New(dev, settings, viewer,
		impostor.WithLogger(logger),
		impostor.WithProfiler(profiler),
	)
	if err != nil {
		dev.Close()
		return nil, err
	}

	genOpts := scene.DefaultGenerateOptions()
	genOpts.Rows, genOpts.Cols = opts.rows, opts.cols
	trackables := scene.Collect(scene.Generate(genOpts))
	if err := scene.RefreshBounds(context.Background(), trackables, 0); err != nil {
		dev.Close()
		return nil, err
	}
	m.Register(trackables...)

	a := &app{
		window:     window,
		dev:        dev,
		settings:   settings,
		manager:    m,
		viewer:     viewer,
		configs:    configs,
		profiler:   profiler,
		limiter:    fps.NewLimiter(settings),
		sampler:    fps.NewSampler(10),
		yaw:        -90,
		firstMouse: true,
	}
	for _, t := range trackables {
		a.prims = append(a.prims, t.Primitives()...)
	}
	a.viewer.SetYawPitch(a.yaw, a.pitch)

	start := 0
	for i, c := range configs {
		if c.Name == opts.preset {
			start = i
		}
	}
	a.applyConfiguration(start)
	log.Printf("scene: %d trackables, %d primitives", len(trackables), len(a.prims))
	return a, nil
}

func (a *app) applyConfiguration(i int) {
	a.current = i % len(a.configs)
	cfg := a.configs[a.current]
	if err := a.manager.SetConfiguration(cfg); err != nil {
		log.Printf("configuration %q: %v", cfg.Name, err)
	}
	a.sampler.Reset()
	log.Printf("configuration %q: %d layers, fps cap %d", cfg.Name, len(cfg.Layers), a.settings.GetFPSLimit())
}

func (a *app) Close() {
	a.manager.Close()
	a.dev.Close()
}
