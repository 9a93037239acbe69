package semigrid

import (
	"slices"
	"sync/atomic"

	"github.com/dgravesa/go-parallel/parallel"
	"github.com/go-gl/mathgl/mgl64"
)

// Cell holds the aggregate of the active particles binned into one grid
// square during the current tick.
type Cell struct {
	Mass   float64
	Center mgl64.Vec2 // mass-weighted mean position, zero when Count == 0
	Acc    mgl64.Vec2 // field at Center, already scaled by gravity strength
	Count  int
}

// Grid is a dense row-major array of cells, rebuilt every tick.
//
// Binning is lock free: particles are counted per cell with atomic
// increments, counts are prefix-summed into bucket offsets, particle indices
// are scattered into their buckets, and finally each cell reduces its own
// bucket. The scratch slices are kept between ticks.
type Grid struct {
	X, Y  int
	cells []Cell

	cellOf []int32 // per particle: cell index, or -1 if not binned
	counts []int32 // per cell
	starts []int32 // bucket offsets into order, len(cells)+1
	cursor []int32 // per cell scatter position
	order  []int32 // particle indices grouped by cell
}

// reset resizes the grid to x by y and zeroes every cell.
func (g *Grid) reset(x, y int) {
	g.X, g.Y = x, y
	n := x * y
	if cap(g.cells) < n {
		g.cells = make([]Cell, n)
		g.counts = make([]int32, n)
		g.cursor = make([]int32, n)
		g.starts = make([]int32, n+1)
	} else {
		g.cells = g.cells[:n]
		g.counts = g.counts[:n]
		g.cursor = g.cursor[:n]
		g.starts = g.starts[:n+1]
		for i := range g.cells {
			g.cells[i] = Cell{}
			g.counts[i] = 0
		}
	}
}

// Index of cell (x,y) in Cells.
func (g *Grid) Index(x, y int) int {
	return y*g.X + x
}

// InBounds reports whether (x,y) is a cell of the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.X && y < g.Y
}

// At returns the cell at (x,y). It panics if (x,y) is out of bounds.
func (g *Grid) At(x, y int) *Cell {
	return &g.cells[g.Index(x, y)]
}

// Cells is the row-major cell array. Valid until the next tick.
func (g *Grid) Cells() []Cell {
	return g.cells
}

// TotalMass sums the mass of every cell.
func (g *Grid) TotalMass() (m float64) {
	for i := range g.cells {
		m += g.cells[i].Mass
	}
	return
}

// bin aggregates the active particles into the cells. locate maps a position
// to grid coordinates; particles that map outside the grid are skipped.
func (g *Grid) bin(particles []Particle, locate func(mgl64.Vec2) (int, int), workers int) {
	n := len(particles)
	if cap(g.cellOf) < n {
		g.cellOf = make([]int32, n)
	}
	g.cellOf = g.cellOf[:n]

	// 1) find each particle's cell and count cell occupancy
	parallel.WithNumGoroutines(workers).For(n, func(i, _ int) {
		g.cellOf[i] = -1
		if !particles[i].Active {
			return
		}
		x, y := locate(particles[i].Pos)
		if !g.InBounds(x, y) {
			return
		}
		c := g.Index(x, y)
		g.cellOf[i] = int32(c)
		atomic.AddInt32(&g.counts[c], 1)
	})

	// 2) size the buckets
	g.starts[0] = 0
	for c := range g.counts {
		g.starts[c+1] = g.starts[c] + g.counts[c]
		g.cursor[c] = g.starts[c]
	}
	binned := int(g.starts[len(g.counts)])
	if cap(g.order) < binned {
		g.order = make([]int32, binned)
	}
	g.order = g.order[:binned]

	// 3) scatter particle indices into their buckets
	parallel.WithNumGoroutines(workers).For(n, func(i, _ int) {
		c := g.cellOf[i]
		if c < 0 {
			return
		}
		slot := atomic.AddInt32(&g.cursor[c], 1) - 1
		g.order[slot] = int32(i)
	})

	// 4) reduce each bucket into its cell. buckets are sorted so the sum
	// order does not depend on scheduling.
	parallel.WithNumGoroutines(workers).For(len(g.cells), func(c, _ int) {
		bucket := g.order[g.starts[c]:g.starts[c+1]]
		if len(bucket) == 0 {
			return
		}
		slices.Sort(bucket)
		cell := &g.cells[c]
		for _, i := range bucket {
			p := &particles[i]
			cell.Mass += p.Mass
			cell.Center = cell.Center.Add(p.Pos.Mul(p.Mass))
		}
		cell.Count = len(bucket)
		if cell.Mass > 0 {
			cell.Center = cell.Center.Mul(1 / cell.Mass)
		} else {
			cell.Center = mgl64.Vec2{}
		}
	})
}
