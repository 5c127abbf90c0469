// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Gargantua renders a gravitationally lensed black hole in real time.
// A compute shader raytraces each frame into an offscreen storage
// image, which is blitted to the window's swapchain and presented.
//
// Controls: WASD = pan, Q/E = zoom, R = reset.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"goki.dev/mat32/v2"

	"github.com/hir0-pixel/Gargantua/render"
	"github.com/hir0-pixel/Gargantua/window"
)

func init() {
	// glfw event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Camera is the interactively controlled view state pushed to the
// shader each frame.
type Camera struct {
	Pan  mat32.Vec2
	Zoom float32
}

const (
	panSpeed   = 5000
	zoomFactor = 1.1
)

// KeyCallback returns the glfw key handler mutating this camera.
func (cm *Camera) KeyCallback() glfw.KeyCallback {
	return func(gw *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		switch key {
		case glfw.KeyW:
			cm.Pan.Y += panSpeed
		case glfw.KeyS:
			cm.Pan.Y -= panSpeed
		case glfw.KeyA:
			cm.Pan.X -= panSpeed
		case glfw.KeyD:
			cm.Pan.X += panSpeed
		case glfw.KeyQ:
			cm.Zoom *= zoomFactor
		case glfw.KeyE:
			cm.Zoom /= zoomFactor
		case glfw.KeyR:
			cm.Pan = mat32.Vec2{}
			cm.Zoom = 1
		}
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("gargantua", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "gargantua.toml", "path to TOML config file")
	flag.Parse()

	var cfg Config
	if err := cfg.Load(*cfgPath); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	fmt.Println("Gargantua - Black Hole Raytracer")
	fmt.Println("=================================")
	fmt.Println("Controls: WASD=Pan, Q/E=Zoom, R=Reset")
	fmt.Println()

	if err := window.Init(); err != nil {
		return err
	}
	defer window.Terminate()

	win, err := window.New(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		return err
	}
	defer win.Destroy()

	gp := render.NewGPU()
	gp.Debug = cfg.Validation
	gp.AddInstanceExt(win.RequiredExts()...)
	if err := gp.Config("gargantua"); err != nil {
		return err
	}
	defer gp.Destroy()

	vs, err := win.CreateSurface(gp.Instance)
	if err != nil {
		return err
	}

	var dv render.Device
	if err := dv.Config(gp, vs); err != nil {
		return err
	}
	defer dv.Destroy()

	var sf render.Surface
	if err := sf.Init(gp, &dv, vs, win); err != nil {
		return err
	}
	defer sf.Destroy()

	var sched render.FrameScheduler
	if err := sched.Config(gp, &dv, &sf, cfg.Shader, cfg.Frames); err != nil {
		return err
	}
	defer sched.Destroy()

	var sems render.FrameSync
	sems.Config(dv.Device, cfg.Frames)
	defer sems.Destroy()

	defer dv.WaitIdle()

	camera := Camera{Zoom: 1}
	win.Glw.SetKeyCallback(camera.KeyCallback())

	gen := sf.Generation
	fpsTimer := 0.0
	frames := 0

	for !win.ShouldClose() {
		win.PollEvents()
		fpsTimer += win.DeltaTime()
		frames++

		if win.WasResized() {
			sf.ReInit()
			win.ResetResized()
		}
		if gen != sf.Generation {
			if err := sched.Recreate(); err != nil {
				return err
			}
			gen = sf.Generation
		}

		// the slot's fence must retire before acquisition re-signals
		// its ImageAvailable semaphore: the prior frame's compute
		// submission may still hold a pending wait on it until then
		slot := sched.Slot()
		if err := sched.WaitSlot(); err != nil {
			return err
		}
		idx, err := sf.AcquireNextImage(sems.ImageAvailable[slot])
		if err != nil {
			return err
		}
		if gen != sf.Generation {
			// chain was rebuilt during acquisition; the target must
			// follow before anything is recorded against it
			if err := sched.Recreate(); err != nil {
				return err
			}
			gen = sf.Generation
		}

		pay := render.Payload{
			Pan:  camera.Pan,
			Zoom: camera.Zoom,
			Time: float32(glfw.GetTime()),
		}
		if err := sched.Dispatch(idx, sems.ImageAvailable[slot], sems.RenderFinished[slot], pay); err != nil {
			return err
		}
		if err := sf.Present(idx, sems.RenderFinished[slot]); err != nil {
			return err
		}

		if fpsTimer >= 1 {
			slog.Info("frame stats", "fps", frames,
				"pan", camera.Pan, "zoom", camera.Zoom)
			fpsTimer -= 1
			frames = 0
		}
	}
	return nil
}
