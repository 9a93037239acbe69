package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/quillaja/semigrid/semigrid"
)

/*

frame snapshots and image output section

*/

// renderbody is the part of a particle the recorders keep.
type renderbody struct {
	X, Y float32
	Mass float32
}

type frameJob struct {
	Frame    int
	Tick     int
	Boundary [4]float64 // grid boundary min x, min y, max x, max y
	IDs      []uint32   // particle index of each body
	Bodies   []renderbody
}

// recorder consumes frames on its own goroutine.
type recorder interface {
	record(job *frameJob) error
	Close() error
}

// snapshot copies the active particles of sim.
func snapshot(sim *semigrid.Simulation, frame int) *frameJob {
	ps := sim.Particles()
	b := sim.Boundary()
	job := &frameJob{
		Frame:    frame,
		Tick:     sim.Stats().Tick,
		Boundary: [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]},
		IDs:      make([]uint32, 0, len(ps)),
		Bodies:   make([]renderbody, 0, len(ps)),
	}
	for i := range ps {
		if !ps[i].Active {
			continue
		}
		job.IDs = append(job.IDs, uint32(i))
		job.Bodies = append(job.Bodies, renderbody{
			X:    float32(ps[i].Pos[0]),
			Y:    float32(ps[i].Pos[1]),
			Mass: float32(ps[i].Mass),
		})
	}
	return job
}

// drain records every job from ch, then closes rec. After the first error
// the remaining jobs are discarded so the producer never blocks.
func drain(rec recorder, ch <-chan *frameJob) error {
	var err error
	for job := range ch {
		if err != nil {
			continue
		}
		if err = rec.record(job); err != nil {
			err = fmt.Errorf("frame %d: %w", job.Frame, err)
		}
	}
	if cerr := rec.Close(); err == nil {
		err = cerr
	}
	return err
}

type stat struct {
	avg, min, max float64
}

// calculateStats finds the mass weighted mean and the extent of the bodies
// along x and y.
func calculateStats(bodies []renderbody) (stats [2]stat) {
	n := len(bodies)
	stats[0].min = math.Inf(1)
	stats[0].max = math.Inf(-1)
	stats[1].min = math.Inf(1)
	stats[1].max = math.Inf(-1)

	summass := 0.0
	for i := 0; i < n; i++ {
		summass += float64(bodies[i].Mass)
	}
	if summass == 0 {
		return [2]stat{}
	}

	for i := 0; i < n; i++ {
		x, y, m := float64(bodies[i].X), float64(bodies[i].Y), float64(bodies[i].Mass)
		stats[0].avg += x * m
		stats[1].avg += y * m

		stats[0].min = math.Min(stats[0].min, x)
		stats[0].max = math.Max(stats[0].max, x)
		stats[1].min = math.Min(stats[1].min, y)
		stats[1].max = math.Max(stats[1].max, y)
	}

	stats[0].avg /= summass
	stats[1].avg /= summass

	return
}

// mass per pixel at which the colour ramp saturates.
const saturationMass = 75.0

var (
	gray      = color.RGBA{128, 128, 128, 255}
	rampLow   = color.RGBA{0, 0, 0, 255}
	rampMid   = color.RGBA{192, 64, 0, 255}
	rampHigh  = color.RGBA{255, 255, 0, 255}
	rampSteps = 256
	ramp      = makeRamp(rampSteps)
)

// lerpColor mixes c1 and c2, t in [0,1].
func lerpColor(c1, c2 color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8((1-t)*float64(c1.R) + t*float64(c2.R)),
		G: uint8((1-t)*float64(c1.G) + t*float64(c2.G)),
		B: uint8((1-t)*float64(c1.B) + t*float64(c2.B)),
		A: 255,
	}
}

// makeRamp precomputes black -> orange -> yellow in n steps.
func makeRamp(n int) []color.RGBA {
	r := make([]color.RGBA, n)
	for i := range r {
		t := float64(i) / float64(n-1)
		if t < 0.5 {
			r[i] = lerpColor(rampLow, rampMid, 2*t)
		} else {
			r[i] = lerpColor(rampMid, rampHigh, 2*(t-0.5))
		}
	}
	return r
}

// c maps the mass in a pixel to a colour on the ramp.
func c(m float64) color.RGBA {
	frac := math.Sqrt(m / saturationMass)
	if frac > 1 {
		frac = 1
	}
	return ramp[int(frac*float64(len(ramp)-1))]
}

// densityImage paints the mass per pixel of the bodies in view onto img,
// which covers view exactly. The grid boundary is outlined in gray.
func densityImage(img *image.RGBA, job *frameJob, view semigrid.Rect) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	size := view.Size()
	sx, sy := float64(w)/size[0], float64(h)/size[1]
	toPixel := func(x, y float64) (int, int) {
		return int(math.Floor((x - view.Min[0]) * sx)), int(math.Floor((y - view.Min[1]) * sy))
	}

	mass := make([]float64, w*h)
	for _, b := range job.Bodies {
		px, py := toPixel(float64(b.X), float64(b.Y))
		if px < 0 || py < 0 || px >= w || py >= h {
			continue
		}
		mass[py*w+px] += float64(b.Mass)
	}

	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			img.SetRGBA(px, py, c(mass[py*w+px]))
		}
	}

	// grid boundary, clipped to the view. chunked frames carry none.
	grid := semigrid.R(job.Boundary[0], job.Boundary[1], job.Boundary[2], job.Boundary[3]).Intersect(view)
	if grid.Empty() {
		return
	}
	x0, y0 := toPixel(grid.Min[0], grid.Min[1])
	x1, y1 := toPixel(grid.Max[0], grid.Max[1])
	x1, y1 = min(x1, w-1), min(y1, h-1)
	corners := [4]image.Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
	for i := range corners {
		a, b := corners[i], corners[(i+1)%4]
		plotline(img, gray, a.X, a.Y, b.X, b.Y)
	}
}

// imageRecorder writes a density png per frame.
type imageRecorder struct {
	dir  string
	view semigrid.Rect
	film *image.RGBA
}

func newImageRecorder(dir string, size int, view semigrid.Rect) (*imageRecorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &imageRecorder{
		dir:  dir,
		view: view,
		film: image.NewRGBA(image.Rect(0, 0, size, size)),
	}, nil
}

func (r *imageRecorder) record(job *frameJob) error {
	densityImage(r.film, job, r.view)

	file, err := os.Create(fmt.Sprintf("%s/%010d.png", r.dir, job.Frame))
	if err != nil {
		return err
	}
	if err := png.Encode(file, r.film); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (r *imageRecorder) Close() error { return nil }

// plotline draws a simple line on img from (x0,y0) to (x1,y1).
//
// This is basically a copy of a version of Bresenham's line algorithm
// from https://en.wikipedia.org/wiki/Bresenham%27s_line_algorithm.
func plotline(img draw.Image, c color.Color, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// abs cuz no integer abs function in the Go standard library.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
