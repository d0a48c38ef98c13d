package main

import (
	"flag"
	"log"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"

	"impostor-lod/internal/render/glrender"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "assets/configurations.json", "layer configuration presets")
	preset := flag.String("preset", "three-bands", "preset to start with")
	shaders := flag.String("shaders", glrender.ShadersDir, "directory holding the impostor shaders")
	rows := flag.Int("rows", 24, "scene rows")
	cols := flag.Int("cols", 24, "scene columns")
	flag.Parse()

	defer closer.Close()

	if err := glfw.Init(); err != nil {
		log.Fatalf("glfw init: %v", err)
	}
	closer.Bind(glfw.Terminate)

	window, err := setupWindow(1280, 720)
	if err != nil {
		log.Fatalf("window: %v", err)
	}

	a, err := newApp(window, appOptions{
		configPath: *configPath,
		preset:     *preset,
		shaderDir:  *shaders,
		rows:       *rows,
		cols:       *cols,
	})
	if err != nil {
		log.Fatalf("setup: %v", err)
	}
	closer.Bind(a.Close)

	setupInputHandlers(window, a)
	a.run()
}
