package main

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	mouseSensitivity = 0.1
	moveSpeed        = 20.0
)

func setupInputHandlers(window *glfw.Window, a *app) {
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if a.firstMouse {
			a.lastX, a.lastY = xpos, ypos
			a.firstMouse = false
			return
		}
		a.yaw += (xpos - a.lastX) * mouseSensitivity
		a.pitch += (a.lastY - ypos) * mouseSensitivity
		a.pitch = max(-89, min(89, a.pitch))
		a.lastX, a.lastY = xpos, ypos
		a.viewer.SetYawPitch(a.yaw, a.pitch)
	})

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		a.viewer.SetViewport(width, height)
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeySpace:
			a.manager.SetEnabled(!a.manager.Enabled())
		case glfw.KeyF:
			a.settings.SetFrozen(!a.settings.Frozen())
		case glfw.KeyC:
			a.applyConfiguration(a.current + 1)
		case glfw.KeyP:
			fmt.Println(a.manager.Stats())
			fmt.Println(a.profiler.TopN(8))
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		}
	})
}

// move applies WASD/QE fly movement for this frame.
func (a *app) move(dt float64) {
	step := float32(moveSpeed * dt)
	if a.window.GetKey(glfw.KeyLeftShift) == glfw.Press {
		step *= 4
	}
	var dir mgl32.Vec3
	if a.window.GetKey(glfw.KeyW) == glfw.Press {
		dir = dir.Add(a.viewer.Forward())
	}
	if a.window.GetKey(glfw.KeyS) == glfw.Press {
		dir = dir.Sub(a.viewer.Forward())
	}
	if a.window.GetKey(glfw.KeyD) == glfw.Press {
		dir = dir.Add(a.viewer.Right())
	}
	if a.window.GetKey(glfw.KeyA) == glfw.Press {
		dir = dir.Sub(a.viewer.Right())
	}
	if a.window.GetKey(glfw.KeyE) == glfw.Press {
		dir = dir.Add(mgl32.Vec3{0, 1, 0})
	}
	if a.window.GetKey(glfw.KeyQ) == glfw.Press {
		dir = dir.Sub(mgl32.Vec3{0, 1, 0})
	}
	if dir.Len() > 0 {
		a.viewer.Position = a.viewer.Position.Add(dir.Normalize().Mul(step))
	}
}
