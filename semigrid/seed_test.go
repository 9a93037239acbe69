package semigrid

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillArea(t *testing.T) {
	s := newSim(t, DefaultConfig())
	s.AddParticle(NewParticle(mgl64.Vec2{1, 1}))

	first := s.FillArea(1000)
	assert.Equal(t, 1, first)
	require.Len(t, s.Particles(), 1001)
	for _, p := range s.Particles()[first:] {
		assert.True(t, s.Boundary().Contains(p.Pos))
		assert.Equal(t, 1.0, p.Mass)
		assert.Equal(t, mgl64.Vec2{}, p.Vel)
		assert.True(t, p.Active)
	}
}

func TestFillCircle(t *testing.T) {
	s := newSim(t, DefaultConfig())
	center := mgl64.Vec2{50, 50}

	first, err := s.FillCircle(2000, center, 15)
	require.NoError(t, err)
	assert.Equal(t, 0, first)
	require.Len(t, s.Particles(), 2000)

	var mean mgl64.Vec2
	for _, p := range s.Particles() {
		assert.LessOrEqual(t, p.Pos.Sub(center).Len(), 15.0)
		assert.Equal(t, 1.0, p.Mass)
		assert.Equal(t, mgl64.Vec2{}, p.Vel)
		mean = mean.Add(p.Pos.Mul(1.0 / 2000))
	}
	assert.InDelta(t, 50, mean[0], 1)
	assert.InDelta(t, 50, mean[1], 1)

	// circles may reach outside the boundary
	_, err = s.FillCircle(10, mgl64.Vec2{500, 500}, 1)
	assert.NoError(t, err)

	_, err = s.FillCircle(10, center, 0)
	assert.Error(t, err)
}

func TestFillNoise(t *testing.T) {
	s := newSim(t, DefaultConfig())

	first, err := s.FillNoise(500, 0.05, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0, first)
	require.Len(t, s.Particles(), 500)
	for _, p := range s.Particles() {
		assert.True(t, s.Boundary().Contains(p.Pos))
	}

	_, err = s.FillNoise(10, 0.05, 10)
	assert.True(t, errors.Is(err, ErrSparseNoise), "got %v", err)
	assert.Len(t, s.Particles(), 500, "nothing added on failure")

	_, err = s.FillNoise(10, 0, 0)
	assert.Error(t, err)
}

func TestSeedReproducible(t *testing.T) {
	a := newSim(t, DefaultConfig())
	b := newSim(t, DefaultConfig())
	a.FillArea(100)
	b.FillArea(100)
	assert.Equal(t, a.Particles(), b.Particles())

	cfg := DefaultConfig()
	cfg.Seed = 11
	c := newSim(t, cfg)
	c.FillArea(100)
	assert.NotEqual(t, a.Particles(), c.Particles())
}

func TestSpin(t *testing.T) {
	s := newSim(t, DefaultConfig())
	center := mgl64.Vec2{50, 50}
	s.AddParticle(NewParticle(mgl64.Vec2{51, 50}))
	s.AddParticle(NewParticle(mgl64.Vec2{50, 54}))
	s.AddParticle(NewParticle(center))
	s.AddParticle(NewParticle(mgl64.Vec2{0, 0}))

	s.Spin(0, 3, center, 0.5)

	ps := s.Particles()
	assert.InDelta(t, 0, ps[0].Vel[0], 1e-12)
	assert.InDelta(t, 0.5, ps[0].Vel[1], 1e-12)
	assert.InDelta(t, -0.5*8, ps[1].Vel[0], 1e-12, "speed grows as d^1.5")
	assert.InDelta(t, 0, ps[1].Vel[1], 1e-12)
	assert.Equal(t, mgl64.Vec2{}, ps[2].Vel, "no direction at the center")
	assert.Equal(t, mgl64.Vec2{}, ps[3].Vel, "outside the range")
}
