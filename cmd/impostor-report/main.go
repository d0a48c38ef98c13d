// Command impostor-report flies a scripted camera through a generated scene on the
// software device and prints layer, timing and frame-rate statistics.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/camera"
	"impostor-lod/internal/config"
	"impostor-lod/internal/fps"
	"impostor-lod/internal/impostor"
	"impostor-lod/internal/profiling"
	"impostor-lod/internal/render/soft"
	"impostor-lod/internal/scene"
)

type options struct {
	configPath  string
	preset      string
	frames      int
	dt          float64
	rows, cols  int
	width       int
	height      int
	textureSize int
	divisions   int
	groups      int
	atlasPNG    string
	viewPNG     string
	previewSize int
	top         int
	verbose     bool
	copy        bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("impostor-report", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "assets/configurations.json", "layer configuration presets")
	fs.StringVar(&o.preset, "preset", "three-bands", "preset to run")
	fs.IntVar(&o.frames, "frames", 600, "frames to simulate")
	fs.Float64Var(&o.dt, "dt", 1.0/60, "simulated seconds per frame")
	fs.IntVar(&o.rows, "rows", 12, "scene rows")
	fs.IntVar(&o.cols, "cols", 12, "scene columns")
	fs.IntVar(&o.width, "width", 320, "viewer width in pixels")
	fs.IntVar(&o.height, "height", 180, "viewer height in pixels")
	fs.IntVar(&o.textureSize, "texture", 512, "atlas page size in pixels")
	fs.IntVar(&o.divisions, "divisions", 2, "atlas cells per side")
	fs.IntVar(&o.groups, "groups", 1, "progressive refresh groups")
	fs.StringVar(&o.atlasPNG, "atlas-png", "", "write the first atlas page to this PNG")
	fs.StringVar(&o.viewPNG, "view-png", "", "write the final composited view to this PNG")
	fs.IntVar(&o.previewSize, "preview", 0, "scale PNG output to fit this size")
	fs.IntVar(&o.top, "top", 6, "profiling entries to print")
	fs.BoolVar(&o.verbose, "v", false, "log impostor debug output")
	fs.BoolVar(&o.copy, "copy", false, "copy the report to the clipboard")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.frames <= 0 || o.dt <= 0 {
		return o, errors.New("frames and dt must be positive")
	}
	return o, nil
}

// viewerAt is the scripted camera path: a slow forward drift with a gentle sway.
func viewerAt(c *camera.Camera, t float64) {
	sway := float32(math.Sin(t * 0.4))
	c.Position = mgl32.Vec3{sway * 15, 8, 20 - float32(t)*6}
	c.LookAt(c.Position.Add(mgl32.Vec3{sway * 0.3, -0.12, -1}))
}

func run(o options, out io.Writer) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	configs, err := config.LoadConfigurations(o.configPath)
	if err != nil {
		return err
	}
	cfg, ok := configs.Find(o.preset)
	if !ok {
		return fmt.Errorf("no configuration named %q in %s", o.preset, o.configPath)
	}

	settings := config.Default()
	settings.SetTextureSize(o.textureSize, o.textureSize)
	settings.SetDivisions(o.divisions)
	settings.SetRenderLayers(settings.RenderLayer(), o.groups)

	dev := soft.New()
	viewer := camera.NewCamera(o.width, o.height)
	viewerAt(viewer, 0)

	profiler := profiling.New()
	m, err := impostor.New(dev, settings, viewer,
		impostor.WithLogger(logger),
		impostor.WithProfiler(profiler),
	)
	if err != nil {
		return err
	}
	defer m.Close()

	genOpts := scene.DefaultGenerateOptions()
	genOpts.Rows, genOpts.Cols = o.rows, o.cols
	trackables := scene.Collect(scene.Generate(genOpts))
	if err := scene.RefreshBounds(context.Background(), trackables, 0); err != nil {
		return err
	}
	m.Register(trackables...)
	var prims []*impostor.Primitive
	for _, t := range trackables {
		prims = append(prims, t.Primitives()...)
	}

	if err := m.SetConfiguration(cfg); err != nil {
		return err
	}

	sampler := fps.NewSampler(0)
	tickErrs := tickFrames(m, viewer, profiler, sampler, o, logger)

	view, err := dev.NewTarget(o.width, o.height)
	if err != nil {
		return err
	}
	func() {
		defer profiler.Track("render.View")()
		err = dev.DrawView(view, viewer, prims, m.MainCullingMask(), m.Batches(), impostor.Color{0.55, 0.72, 0.9, 1})
	}()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "configuration %q: %d layers, %d frames of %.4fs, %d trackables\n",
		cfg.Name, len(cfg.Layers), o.frames, o.dt, len(trackables))
	fmt.Fprint(out, m.Stats())
	ds := dev.Stats()
	fmt.Fprintf(out, "device: passes=%d triangles=%d copies=%d uploads=%d targets=%d\n",
		ds.Passes, ds.Triangles, ds.Copies, ds.Uploads, ds.Targets)
	fmt.Fprintf(out, "tick rate: avg %.0f fps, 1%% low %.0f fps, 5%% low %.0f fps (%d samples, %d failed ticks)\n",
		sampler.Average(), sampler.Percentile(1), sampler.Percentile(5), sampler.Len(), tickErrs)
	fmt.Fprintf(out, "profiling: %s\n", profiler.TopN(o.top))

	if o.atlasPNG != "" {
		pages := m.Atlas().Pages()
		if len(pages) == 0 {
			return errors.New("no atlas page to write")
		}
		if err := writeImage(pages[0].Front().(*soft.Target), o.atlasPNG, o.previewSize); err != nil {
			return err
		}
		fmt.Fprintf(out, "atlas written to %s\n", o.atlasPNG)
	}
	if o.viewPNG != "" {
		if err := writeImage(view, o.viewPNG, o.previewSize); err != nil {
			return err
		}
		fmt.Fprintf(out, "view written to %s\n", o.viewPNG)
	}
	return nil
}

// tickFrames moves the viewer along its path and ticks the manager once per frame,
// returning the number of ticks that reported an error.
func tickFrames(m *impostor.Manager, viewer *camera.Camera, profiler *profiling.Profiler, sampler *fps.Sampler, o options, logger *slog.Logger) int {
	var failed int
	for i := 0; i < o.frames; i++ {
		viewerAt(viewer, float64(i)*o.dt)
		start := time.Now()
		stop := profiler.Track("frame.Tick")
		if err := m.Tick(o.dt); err != nil {
			failed++
			logger.Debug("tick failed", "frame", i, "err", err)
		}
		stop()
		sampler.Add(time.Since(start))
	}
	return failed
}

func writeImage(t *soft.Target, path string, size int) error {
	if size > 0 {
		return soft.WritePNG(soft.Preview(t.Image(), size), path)
	}
	return soft.WritePNG(t.Image(), path)
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	var buf bytes.Buffer
	if err := run(o, io.MultiWriter(os.Stdout, &buf)); err != nil {
		log.Fatal(err)
	}
	if o.copy {
		if err := clipboard.WriteAll(buf.String()); err != nil {
			log.Printf("copy to clipboard: %v", err)
			return
		}
		log.Printf("report copied to clipboard")
	}
}
