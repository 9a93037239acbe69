package semigrid

import (
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"
)

/*

aggregate tree over the cell grid.
Barnes-Hut, except the "bodies" are grid cells and the tree shape depends
only on the grid dimensions.
https://en.wikipedia.org/wiki/Barnes%E2%80%93Hut_simulation

*/

// subtrees covering fewer cells than this are built on the calling goroutine.
const minParallelCells = 256

type node struct {
	origin   [2]int // first cell covered
	extent   [2]int // cells covered along x and y
	span     float64
	mass     float64
	center   mgl64.Vec2
	active   bool
	first    int32 // arena index of the first child; children are contiguous
	children uint8 // 0 (leaf), 2 or 4
}

func (n *node) leaf() bool { return n.children == 0 }

// Tree is a flat arena of nodes rebuilt every tick. Index 0 is the root.
type Tree struct {
	nodes []node
	dims  [2]int // grid dimensions the current layout was made for
	sem   chan struct{}
}

// Len is the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Mass of the root node.
func (t *Tree) Mass() float64 {
	if len(t.nodes) == 0 {
		return 0
	}
	return t.nodes[0].mass
}

// Center of mass of the root node.
func (t *Tree) Center() mgl64.Vec2 {
	if len(t.nodes) == 0 {
		return mgl64.Vec2{}
	}
	return t.nodes[0].center
}

// split computes the child ranges of a node covering extent cells from
// origin. Halves are floor-divided; the second half takes the remainder.
func split(origin, extent [2]int) (kids [4][2][2]int, n int) {
	w, h := extent[0], extent[1]
	hw, hh := w/2, h/2
	switch {
	case w > 1 && h > 1:
		kids[0] = [2][2]int{origin, {hw, hh}}
		kids[1] = [2][2]int{{origin[0] + hw, origin[1]}, {w - hw, hh}}
		kids[2] = [2][2]int{{origin[0], origin[1] + hh}, {hw, h - hh}}
		kids[3] = [2][2]int{{origin[0] + hw, origin[1] + hh}, {w - hw, h - hh}}
		return kids, 4
	case w > 1:
		kids[0] = [2][2]int{origin, {hw, h}}
		kids[1] = [2][2]int{{origin[0] + hw, origin[1]}, {w - hw, h}}
		return kids, 2
	case h > 1:
		kids[0] = [2][2]int{origin, {w, hh}}
		kids[1] = [2][2]int{{origin[0], origin[1] + hh}, {w, h - hh}}
		return kids, 2
	}
	return kids, 0
}

// layout lays out the node ranges for an x by y grid in breadth-first order.
// The arena's backing storage is reused.
func (t *Tree) layout(x, y int) {
	if cap(t.nodes) < 2*x*y {
		t.nodes = make([]node, 0, 2*x*y)
	}
	t.nodes = append(t.nodes[:0], node{extent: [2]int{x, y}})
	for i := 0; i < len(t.nodes); i++ {
		kids, n := split(t.nodes[i].origin, t.nodes[i].extent)
		t.nodes[i].first = int32(len(t.nodes))
		t.nodes[i].children = uint8(n)
		for k := 0; k < n; k++ {
			t.nodes = append(t.nodes, node{origin: kids[k][0], extent: kids[k][1]})
		}
	}
	for i := range t.nodes {
		t.nodes[i].span = mgl64.Vec2{float64(t.nodes[i].extent[0]), float64(t.nodes[i].extent[1])}.Len()
	}
	t.dims = [2]int{x, y}
}

// build recomputes every node's aggregate from the grid, bottom-up. Up to
// workers goroutines build independent subtrees at once.
func (t *Tree) build(grid *Grid, workers int) {
	if grid.X < 1 || grid.Y < 1 {
		t.nodes = t.nodes[:0]
		t.dims = [2]int{}
		return
	}
	if t.dims != [2]int{grid.X, grid.Y} || len(t.nodes) == 0 {
		t.layout(grid.X, grid.Y)
	}
	if cap(t.sem) != workers {
		t.sem = make(chan struct{}, workers)
	}
	t.aggregate(grid, 0)
}

// aggregate fills in node i once all of its children are done.
func (t *Tree) aggregate(grid *Grid, i int32) {
	n := &t.nodes[i]

	if n.leaf() {
		cell := grid.At(n.origin[0], n.origin[1])
		n.mass = cell.Mass
		n.center = cell.Center
		n.active = true
		if n.mass < Epsilon {
			n.mass = 0
			n.center = mgl64.Vec2{}
			n.active = false
		}
		return
	}

	// children may be built concurrently when a worker slot is free
	var g errgroup.Group
	for c := n.first; c < n.first+int32(n.children); c++ {
		c := c
		cells := t.nodes[c].extent[0] * t.nodes[c].extent[1]
		if cells >= minParallelCells {
			select {
			case t.sem <- struct{}{}:
				g.Go(func() error {
					defer func() { <-t.sem }()
					t.aggregate(grid, c)
					return nil
				})
				continue
			default:
			}
		}
		t.aggregate(grid, c)
	}
	g.Wait()

	n.mass = 0
	n.center = mgl64.Vec2{}
	for c := n.first; c < n.first+int32(n.children); c++ {
		child := &t.nodes[c]
		if child.mass == 0 {
			continue
		}
		n.mass += child.mass
		n.center = n.center.Add(child.center.Mul(child.mass))
	}
	n.active = n.mass >= Epsilon
	if n.active {
		n.center = n.center.Mul(1 / n.mass)
	} else {
		n.mass = 0
		n.center = mgl64.Vec2{}
	}
}

// force walks the tree, adding to acc the field at point p from every node
// that is a leaf or subtends less than ratio as seen from p. Nodes that are
// too close are opened and their active children visited instead.
func (t *Tree) force(p mgl64.Vec2, cellSize, ratio float64) (acc mgl64.Vec2) {
	if len(t.nodes) == 0 || !t.nodes[0].active {
		return
	}
	t.walk(0, p, cellSize, ratio, &acc)
	return
}

func (t *Tree) walk(i int32, p mgl64.Vec2, cellSize, ratio float64, acc *mgl64.Vec2) {
	n := &t.nodes[i]
	axis := n.center.Sub(p)
	dist := axis.Len()

	if n.leaf() || n.span*cellSize/dist < ratio {
		// the node is far enough away (or cannot be opened) to act as a
		// single point mass.
		if dist <= Epsilon {
			return // p is at the node's center, e.g. a cell acting on itself
		}
		*acc = acc.Add(axis.Mul(n.mass / (dist * dist * dist)))
		return
	}

	for c := n.first; c < n.first+int32(n.children); c++ {
		if t.nodes[c].active {
			t.walk(c, p, cellSize, ratio, acc)
		}
	}
}
