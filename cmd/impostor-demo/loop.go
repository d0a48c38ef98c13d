package main

import (
	"fmt"
	"log"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var skyColor = [4]float32{0.55, 0.72, 0.9, 1}

func (a *app) run() {
	frames := 0
	lastFPSCheckTime := time.Now()
	lastTime := time.Now()

	for !a.window.ShouldClose() {
		a.profiler.ResetFrame()
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		func() { defer a.profiler.Track("input.Move")(); a.move(dt.Seconds()) }()

		func() {
			defer a.profiler.Track("frame.Tick")()
			if err := a.manager.Tick(dt.Seconds()); err != nil {
				log.Printf("tick: %v", err)
			}
		}()

		func() {
			defer a.profiler.Track("render.Frame")()
			a.render()
		}()

		func() {
			defer a.profiler.Track("glfw.SwapBuffers")()
			a.window.SwapBuffers()
		}()
		func() {
			defer a.profiler.Track("glfw.PollEvents")()
			glfw.PollEvents()
		}()

		a.sampler.Add(dt)
		frames++
		if time.Since(lastFPSCheckTime) >= time.Second {
			st := a.manager.Stats()
			a.window.SetTitle(fmt.Sprintf("impostor-demo | %s | %d fps | %d/%d impostored | frozen=%v enabled=%v",
				a.configs[a.current].Name, frames, st.Impostored, st.Trackables, st.Frozen, st.Enabled))
			frames = 0
			lastFPSCheckTime = time.Now()
		}

		a.limiter.Wait()
	}

	log.Printf("average %.1f fps, 1%% low %.1f fps over %d samples",
		a.sampler.Average(), a.sampler.Percentile(1), a.sampler.Len())
}

func (a *app) render() {
	width, height := a.window.GetFramebufferSize()
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(skyColor[0], skyColor[1], skyColor[2], skyColor[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	func() {
		defer a.profiler.Track("render.Scene")()
		a.dev.DrawScene(a.viewer, a.prims, a.manager.MainCullingMask())
	}()
	func() {
		defer a.profiler.Track("render.Impostors")()
		a.dev.DrawImpostors(a.viewer)
	}()
}
