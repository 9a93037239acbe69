package semigrid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Timestep scales the accumulated acceleration applied each tick. It is a
// stability knob rather than physical time: velocity changes by Acc*Timestep².
const Timestep = 0.01

// Particle is a point mass. Inactive particles have left the domain and are
// kept in place so indices stay stable.
type Particle struct {
	Pos    mgl64.Vec2
	Vel    mgl64.Vec2
	Acc    mgl64.Vec2 // accumulated acceleration, cleared by update
	Mass   float64
	Active bool
}

// NewParticle makes an active unit-mass particle at rest at pos.
func NewParticle(pos mgl64.Vec2) Particle {
	return Particle{Pos: pos, Mass: 1, Active: true}
}

// update particle velocity and position, reset accumulated acceleration.
func (p *Particle) update(dt float64) {
	if !p.Active {
		return
	}
	p.Vel = p.Vel.Add(p.Acc.Mul(dt * dt))
	p.Pos = p.Pos.Add(p.Vel)
	p.Acc = mgl64.Vec2{}
}

func (p Particle) String() string {
	return fmt.Sprintf("m: %.4f\np: [%.2f, %.2f]\nv: [%.2f, %.2f]\nactive: %t\n",
		p.Mass, p.Pos[0], p.Pos[1], p.Vel[0], p.Vel[1], p.Active)
}
