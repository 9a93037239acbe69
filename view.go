//go:build !noview

package main

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"k8s.io/klog"

	"github.com/quillaja/semigrid/semigrid"
)

// viewer steps the simulation once per ebiten tick and draws the density
// image. Space pauses, R restarts from the config.
type viewer struct {
	fc     *fileConfig
	sim    *semigrid.Simulation
	size   int
	film   *image.RGBA
	frame  int
	paused bool
}

func newViewer(fc *fileConfig) (*viewer, error) {
	v := &viewer{
		fc:   fc,
		size: fc.Output.PNGSize,
		film: image.NewRGBA(image.Rect(0, 0, fc.Output.PNGSize, fc.Output.PNGSize)),
	}
	return v, v.restart()
}

func (v *viewer) restart() error {
	sim, err := v.fc.newSimulation()
	if err != nil {
		return err
	}
	v.sim = sim
	v.frame = 0
	return nil
}

// Update is called each tick by ebiten.
func (v *viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		v.paused = !v.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := v.restart(); err != nil {
			return err
		}
	}
	if v.paused {
		return nil
	}

	v.sim.Step()
	v.frame++
	if klog.V(1) {
		st := v.sim.Stats()
		klog.Infof("frame %d: %d active, grid %dx%d", v.frame, st.Active, st.GridX, st.GridY)
	}
	return nil
}

// Draw is called each frame by ebiten.
func (v *viewer) Draw(screen *ebiten.Image) {
	densityImage(v.film, snapshot(v.sim, v.frame), v.sim.MaxBoundary())
	screen.WritePixels(v.film.Pix)

	st := v.sim.Stats()
	status := fmt.Sprintf("frame %d  active %d/%d  grid %dx%d  %.0f tps",
		v.frame, st.Active, st.Particles, st.GridX, st.GridY, ebiten.ActualTPS())
	if v.paused {
		status += "  (paused)"
	}
	ebitenutil.DebugPrint(screen, status)
}

// Layout keeps the screen the size of the density image.
func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.size, v.size
}

func runViewer(fc *fileConfig) error {
	v, err := newViewer(fc)
	if err != nil {
		return err
	}
	ebiten.SetWindowSize(v.size, v.size)
	ebiten.SetWindowTitle("semigrid")
	return ebiten.RunGame(v)
}
