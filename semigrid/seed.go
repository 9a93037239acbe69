package semigrid

import (
	"errors"
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"
)

/*

scene seeding helpers. all draw from the simulation's own random source, so
a given seed reproduces a given scene.

*/

// ErrSparseNoise is returned by FillNoise when too few samples pass the
// noise threshold.
var ErrSparseNoise = errors.New("noise threshold rejects almost every sample")

// uniformly sample a point in r.
func (s *Simulation) uniform(r Rect) mgl64.Vec2 {
	size := r.Size()
	return mgl64.Vec2{
		r.Min[0] + s.rng.Float64()*size[0],
		r.Min[1] + s.rng.Float64()*size[1],
	}
}

// FillArea adds count unit-mass particles at rest, uniformly distributed
// over the current boundary. It returns the index of the first one added.
func (s *Simulation) FillArea(count int) int {
	first := len(s.particles)
	for i := 0; i < count; i++ {
		s.particles = append(s.particles, NewParticle(s.uniform(s.boundary)))
	}
	return first
}

// FillCircle adds count unit-mass particles at rest, uniformly distributed
// over the disk at center with the given radius. Samples are drawn from the
// disk's bounding square and rejected if outside the disk.
func (s *Simulation) FillCircle(count int, center mgl64.Vec2, radius float64) (int, error) {
	if !(radius > 0) {
		return 0, fmt.Errorf("circle radius must be positive, got %g", radius)
	}
	first := len(s.particles)
	square := Rect{Min: center, Max: center}.Expand(radius)
	for i := 0; i < count; i++ {
		pos := s.uniform(square)
		for pos.Sub(center).Len() > radius {
			pos = s.uniform(square)
		}
		s.particles = append(s.particles, NewParticle(pos))
	}
	return first, nil
}

// FillNoise adds count unit-mass particles at rest inside the current
// boundary, keeping only samples where 2D perlin noise sampled at pos*scale
// exceeds threshold. This gives a clumpy, filamentary start.
func (s *Simulation) FillNoise(count int, scale, threshold float64) (int, error) {
	const maxTriesPerParticle = 1000
	if !(scale > 0) {
		return 0, fmt.Errorf("noise scale must be positive, got %g", scale)
	}

	noise := perlin.NewPerlin(2, 2, 3, s.rng.Int63())
	first := len(s.particles)
	tries := 0
	for added := 0; added < count; {
		if tries >= maxTriesPerParticle*count {
			s.particles = s.particles[:first]
			return 0, fmt.Errorf("%w: %d of %d placed with threshold %g", ErrSparseNoise, added, count, threshold)
		}
		tries++
		pos := s.uniform(s.boundary)
		if noise.Noise2D(pos[0]*scale, pos[1]*scale) <= threshold {
			continue
		}
		s.particles = append(s.particles, NewParticle(pos))
		added++
	}
	return first, nil
}

// Spin sets the velocity of particles [from,to) to circle center
// counter-clockwise with speed k*d^1.5 at distance d.
func (s *Simulation) Spin(from, to int, center mgl64.Vec2, k float64) {
	if to > len(s.particles) {
		to = len(s.particles)
	}
	for i := from; i < to; i++ {
		p := &s.particles[i]
		axis := p.Pos.Sub(center)
		d := axis.Len()
		dir := normalize(axis)
		v := k * math.Sqrt(d) * d
		p.Vel = mgl64.Vec2{-dir[1] * v, dir[0] * v}
	}
}
