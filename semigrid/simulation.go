// Package semigrid approximates 2D inverse-square gravity for very large
// particle counts by binning particles into a grid of cells and evaluating
// the field per cell with a Barnes-Hut walk over an aggregate tree of cells.
package semigrid

import (
	"math"
	"math/rand"

	"github.com/dgravesa/go-parallel/parallel"
	"github.com/go-gl/mathgl/mgl64"
)

// Simulation owns the particles, the cell grid and the aggregate tree. It is
// not safe for concurrent use; Step parallelizes internally.
type Simulation struct {
	particles   []Particle
	boundary    Rect
	maxBoundary Rect
	cellSize    float64
	gravity     float64
	ratio       float64
	workers     int
	rng         *rand.Rand

	gridOffset mgl64.Vec2 // per tick jitter, in cells
	gridSize   [2]int     // cells spanned by boundary
	grid       Grid
	tree       Tree
	tick       int
}

// New validates cfg and returns an empty simulation.
func New(cfg Config) (*Simulation, error) {
	s := &Simulation{}
	if err := s.Reconfigure(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reconfigure replaces the whole configuration, including the random source.
// Particles are kept. On error the simulation is unchanged.
func (s *Simulation) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.boundary = cfg.Boundary
	s.maxBoundary = cfg.MaxBoundary
	s.cellSize = cfg.CellSize
	s.gravity = cfg.Gravity
	s.ratio = cfg.Ratio
	s.workers = cfg.workers()
	s.rng = rand.New(rand.NewSource(cfg.Seed))
	return nil
}

// Step advances the simulation by one tick.
func (s *Simulation) Step() {
	s.gridOffset = mgl64.Vec2{s.rng.Float64(), s.rng.Float64()}
	s.UpdateGridSize()
	s.updateCellMasses()
	s.makeTree()
	s.updateCellForces()
	s.updateParticles()
	s.tick++
}

// UpdateGridSize fits the boundary around the active particles, pads it by a
// cell on every side and resizes (and clears) the grid to match.
func (s *Simulation) UpdateGridSize() {
	c := s.boundary.Center()
	bound := Rect{Min: c, Max: c}
	for i := range s.particles {
		if !s.particles[i].Active {
			continue
		}
		bound = bound.Union(s.particles[i].Pos)
	}
	s.boundary = bound.Expand(s.cellSize)

	size := s.boundary.Size()
	s.gridSize[0] = 1 + int(size[0]/s.cellSize)
	s.gridSize[1] = 1 + int(size[1]/s.cellSize)
	// one extra row and column for positions pushed past the edge by the
	// jitter
	s.grid.reset(s.gridSize[0]+1, s.gridSize[1]+1)
}

// locate maps a world position to (possibly out of bounds) grid coordinates.
// gridOffset is in cells, added after scaling to the grid.
func (s *Simulation) locate(pos mgl64.Vec2) (x, y int) {
	offset := pos.Sub(s.boundary.Min)
	size := s.boundary.Size()
	fx := offset[0]/size[0]*float64(s.gridSize[0]) + s.gridOffset[0]
	fy := offset[1]/size[1]*float64(s.gridSize[1]) + s.gridOffset[1]
	return int(math.Floor(fx)), int(math.Floor(fy))
}

// GridPos returns the cell pos falls in this tick, and whether that cell is
// part of the grid.
func (s *Simulation) GridPos(pos mgl64.Vec2) (x, y int, ok bool) {
	x, y = s.locate(pos)
	return x, y, s.grid.InBounds(x, y)
}

func (s *Simulation) updateCellMasses() {
	s.grid.bin(s.particles, s.locate, s.workers)
}

func (s *Simulation) makeTree() {
	s.tree.build(&s.grid, s.workers)
}

func (s *Simulation) updateCellForces() {
	cells := s.grid.cells
	parallel.WithNumGoroutines(s.workers).For(len(cells), func(i, _ int) {
		cell := &cells[i]
		if cell.Count == 0 {
			return
		}
		cell.Acc = s.tree.force(cell.Center, s.cellSize, s.ratio).Mul(s.gravity)
	})
}

func (s *Simulation) updateParticles() {
	parallel.WithNumGoroutines(s.workers).For(len(s.particles), func(i, _ int) {
		p := &s.particles[i]
		if !p.Active {
			return
		}

		// outside the grid: no field this tick, but keep moving
		if x, y, ok := s.GridPos(p.Pos); ok {
			p.Acc = p.Acc.Add(s.grid.At(x, y).Acc)
		}
		p.update(Timestep)

		if !s.maxBoundary.Contains(p.Pos) {
			p.Active = false
		}
	})
}

// AddParticle appends p and returns its index.
func (s *Simulation) AddParticle(p Particle) int {
	s.particles = append(s.particles, p)
	return len(s.particles) - 1
}

// Particles is every particle ever added, active or not, in insertion order.
// The slice is only valid until the next Step and must not be modified.
func (s *Simulation) Particles() []Particle { return s.particles }

// Cells is the row-major cell grid from the last Step. See GridSize.
func (s *Simulation) Cells() []Cell { return s.grid.cells }

// GridSize is the dimensions of the array returned by Cells.
func (s *Simulation) GridSize() (x, y int) { return s.grid.X, s.grid.Y }

// Cell returns a copy of cell (x,y), or the zero Cell if out of bounds.
func (s *Simulation) Cell(x, y int) Cell {
	if !s.grid.InBounds(x, y) {
		return Cell{}
	}
	return *s.grid.At(x, y)
}

// Boundary is the padded extent of the active particles as of the last Step,
// or the configured boundary before the first one.
func (s *Simulation) Boundary() Rect { return s.boundary }

// MaxBoundary is the fixed domain limit.
func (s *Simulation) MaxBoundary() Rect { return s.maxBoundary }

// Tree is the aggregate tree from the last Step.
func (s *Simulation) Tree() *Tree { return &s.tree }

// Stats summarizes the simulation state.
type Stats struct {
	Tick         int
	Particles    int
	Active       int
	Mass         float64 // total mass of active particles
	GridX, GridY int
	Nodes        int
	Binned       int // particles binned into a cell last tick
}

// Stats counts the current state. It walks every particle.
func (s *Simulation) Stats() Stats {
	st := Stats{
		Tick:      s.tick,
		Particles: len(s.particles),
		GridX:     s.grid.X,
		GridY:     s.grid.Y,
		Nodes:     s.tree.Len(),
	}
	for i := range s.grid.cells {
		st.Binned += s.grid.cells[i].Count
	}
	for i := range s.particles {
		if s.particles[i].Active {
			st.Active++
			st.Mass += s.particles[i].Mass
		}
	}
	return st
}
