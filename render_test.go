package main

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillaja/semigrid/semigrid"
)

func testSim(t *testing.T) *semigrid.Simulation {
	t.Helper()
	sim, err := semigrid.New(semigrid.DefaultConfig())
	require.NoError(t, err)
	return sim
}

func TestSnapshot(t *testing.T) {
	sim := testSim(t)
	sim.AddParticle(semigrid.NewParticle(mgl64.Vec2{10, 20}))
	sim.AddParticle(semigrid.NewParticle(mgl64.Vec2{500, 500})) // leaves the domain
	heavy := semigrid.NewParticle(mgl64.Vec2{30, 40})
	heavy.Mass = 4
	sim.AddParticle(heavy)
	sim.Step()

	job := snapshot(sim, 7)
	assert.Equal(t, 7, job.Frame)
	assert.Equal(t, 1, job.Tick)
	assert.Equal(t, []uint32{0, 2}, job.IDs, "tombstones are left out")
	require.Len(t, job.Bodies, 2)
	assert.Equal(t, float32(4), job.Bodies[1].Mass)
	b := sim.Boundary()
	assert.Equal(t, [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}, job.Boundary)
}

func TestCalculateStats(t *testing.T) {
	stats := calculateStats([]renderbody{
		{X: 0, Y: 0, Mass: 1},
		{X: 4, Y: 2, Mass: 3},
	})
	assert.InDelta(t, 3, stats[0].avg, 1e-9)
	assert.InDelta(t, 1.5, stats[1].avg, 1e-9)
	assert.Equal(t, 0.0, stats[0].min)
	assert.Equal(t, 4.0, stats[0].max)
	assert.Equal(t, 2.0, stats[1].max)

	assert.Equal(t, [2]stat{}, calculateStats(nil))
}

func TestColorRamp(t *testing.T) {
	assert.Equal(t, rampLow, c(0))
	assert.Equal(t, rampHigh, c(saturationMass))
	assert.Equal(t, rampHigh, c(10*saturationMass), "saturates")
	mid := c(saturationMass / 4) // sqrt -> halfway along the ramp
	assert.Equal(t, ramp[127], mid)
	assert.InDelta(t, float64(rampMid.R), float64(mid.R), 2)
	assert.InDelta(t, float64(rampMid.G), float64(mid.G), 2)

	assert.Equal(t, color.RGBA{50, 100, 125, 255}, lerpColor(color.RGBA{0, 0, 0, 0}, color.RGBA{100, 200, 250, 0}, 0.5))
}

func TestDensityImage(t *testing.T) {
	job := &frameJob{
		Boundary: [4]float64{1, 1, 9, 9},
		Bodies: []renderbody{
			{X: 0.5, Y: 0.5, Mass: 75},
			{X: 5.2, Y: 5.7, Mass: 10},
			{X: 5.9, Y: 5.1, Mass: 65},
			{X: -3, Y: 2, Mass: 75}, // off image
		},
	}
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	densityImage(img, job, semigrid.R(0, 0, 10, 10))

	assert.Equal(t, rampHigh, img.RGBAAt(0, 0))
	assert.Equal(t, rampHigh, img.RGBAAt(5, 5), "masses in a pixel add up")
	assert.Equal(t, rampLow, img.RGBAAt(3, 4))
	assert.Equal(t, gray, img.RGBAAt(1, 1), "boundary outline")
	assert.Equal(t, gray, img.RGBAAt(9, 4))
	assert.Equal(t, gray, img.RGBAAt(4, 9))

	// outline clipped to the view edge
	job.Boundary = [4]float64{5, -4, 14, 7}
	densityImage(img, job, semigrid.R(0, 0, 10, 10))
	assert.Equal(t, gray, img.RGBAAt(5, 0))
	assert.Equal(t, gray, img.RGBAAt(9, 3))
	assert.Equal(t, gray, img.RGBAAt(7, 7))
	assert.Equal(t, rampLow, img.RGBAAt(1, 1))

	// no boundary, no outline
	job.Boundary = [4]float64{}
	densityImage(img, job, semigrid.R(0, 0, 10, 10))
	assert.Equal(t, rampLow, img.RGBAAt(9, 4))
	assert.Equal(t, rampLow, img.RGBAAt(0, 9))
}

type failingRecorder struct {
	seen   int
	closed bool
}

func (r *failingRecorder) record(job *frameJob) error {
	r.seen++
	if job.Frame == 1 {
		return errors.New("disk full")
	}
	return nil
}

func (r *failingRecorder) Close() error { r.closed = true; return nil }

func TestDrainKeepsConsuming(t *testing.T) {
	rec := &failingRecorder{}
	ch := make(chan *frameJob, 5)
	for i := 0; i < 5; i++ {
		ch <- &frameJob{Frame: i}
	}
	close(ch)

	err := drain(rec, ch)
	assert.EqualError(t, err, "frame 1: disk full")
	assert.Equal(t, 2, rec.seen, "frames after the error are discarded")
	assert.True(t, rec.closed)
	assert.Empty(t, ch)
}
