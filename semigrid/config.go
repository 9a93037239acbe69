package semigrid

import (
	"errors"
	"fmt"
	"math"
	"runtime"
)

// Configuration errors. Validate wraps these with the offending values.
var (
	ErrCellSize = errors.New("invalid cell size")
	ErrBoundary = errors.New("invalid boundary")
	ErrRatio    = errors.New("invalid opening ratio")
	ErrWorkers  = errors.New("invalid worker count")
)

// Config holds everything a Simulation needs before its first Step.
type Config struct {
	Boundary    Rect    // initial extent, recomputed every tick afterwards
	MaxBoundary Rect    // particles leaving this rect are deactivated
	CellSize    float64 // world units per grid cell
	Gravity     float64 // field strength multiplier
	Ratio       float64 // opening-angle threshold
	Seed        int64
	Workers     int // 0 means runtime.GOMAXPROCS(0)
}

// DefaultConfig is a 100x100 domain that particles may drift 25 units out of.
func DefaultConfig() Config {
	return Config{
		Boundary:    R(0, 0, 100, 100),
		MaxBoundary: R(-25, -25, 125, 125),
		CellSize:    1,
		Gravity:     0.5,
		Ratio:       1,
		Seed:        10,
	}
}

// Validate reports the first problem with c, if any.
func (c Config) Validate() error {
	if !(c.CellSize > 0) || math.IsInf(c.CellSize, 0) {
		return fmt.Errorf("%w: cell size must be positive, got %g", ErrCellSize, c.CellSize)
	}
	if c.Boundary.Empty() {
		return fmt.Errorf("%w: boundary %v has no area", ErrBoundary, c.Boundary)
	}
	if c.MaxBoundary.Empty() {
		return fmt.Errorf("%w: max boundary %v has no area", ErrBoundary, c.MaxBoundary)
	}
	if !(c.Ratio > 0) {
		return fmt.Errorf("%w: opening ratio must be positive, got %g", ErrRatio, c.Ratio)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrWorkers, c.Workers)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}
