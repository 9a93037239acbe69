package main

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/gcfg.v1"

	"github.com/quillaja/semigrid/semigrid"
)

/*

run configuration, read from an ini style file:

	[simulation]
	cellsize = 1
	gravity = 0.5
	ratio = 1
	seed = 10
	minx = 0
	miny = 0
	maxx = 100
	maxy = 100
	limitminx = -25
	limitminy = -25
	limitmaxx = 125
	limitmaxy = 125

	[circle "disc"]
	count = 100000
	x = 50
	y = 50
	radius = 15
	spin = 0.045

	[area "dust"]
	count = 1000

	[noise "clouds"]
	count = 5000
	scale = 0.05
	threshold = 0.1

	[output]
	frames = 600
	db = frames.sqlite
	chunks = chunks
	chunkframes = 48
	png = img
	pngsize = 800

*/

type simulationSection struct {
	CellSize float64
	Gravity  float64
	Ratio    float64
	Seed     int64
	Workers  int

	MinX, MinY, MaxX, MaxY                     float64 // initial boundary
	LimitMinX, LimitMinY, LimitMaxX, LimitMaxY float64 // max boundary
}

type areaSection struct {
	Count int
}

type circleSection struct {
	Count  int
	X, Y   float64
	Radius float64
	Spin   float64
}

type noiseSection struct {
	Count     int
	Scale     float64
	Threshold float64
}

type outputSection struct {
	Frames      int
	DB          string
	Chunks      string
	ChunkFrames int
	PNG         string
	PNGSize     int
}

type fileConfig struct {
	Simulation simulationSection
	Area       map[string]*areaSection
	Circle     map[string]*circleSection
	Noise      map[string]*noiseSection
	Output     outputSection
}

// defaultFileConfig mirrors semigrid.DefaultConfig, with no scenes and no
// outputs.
func defaultFileConfig() *fileConfig {
	d := semigrid.DefaultConfig()
	return &fileConfig{
		Simulation: simulationSection{
			CellSize:  d.CellSize,
			Gravity:   d.Gravity,
			Ratio:     d.Ratio,
			Seed:      d.Seed,
			Workers:   d.Workers,
			MinX:      d.Boundary.Min[0],
			MinY:      d.Boundary.Min[1],
			MaxX:      d.Boundary.Max[0],
			MaxY:      d.Boundary.Max[1],
			LimitMinX: d.MaxBoundary.Min[0],
			LimitMinY: d.MaxBoundary.Min[1],
			LimitMaxX: d.MaxBoundary.Max[0],
			LimitMaxY: d.MaxBoundary.Max[1],
		},
		Output: outputSection{
			Frames:      600,
			ChunkFrames: 48,
			PNGSize:     800,
		},
	}
}

// readConfig loads filename over the defaults. An empty filename gives the
// defaults. If no scene is configured, the spinning disc is used.
func readConfig(filename string) (*fileConfig, error) {
	fc := defaultFileConfig()
	if filename != "" {
		if err := gcfg.ReadFileInto(fc, filename); err != nil {
			return nil, fmt.Errorf("reading %s: %w", filename, err)
		}
	}
	if len(fc.Area)+len(fc.Circle)+len(fc.Noise) == 0 {
		fc.Circle = map[string]*circleSection{
			"disc": {Count: 100000, X: 50, Y: 50, Radius: 15, Spin: 0.045},
		}
	}
	if err := fc.check(); err != nil {
		return nil, err
	}
	return fc, nil
}

// check validates everything except the simulation section, which
// semigrid.Config.Validate covers.
func (fc *fileConfig) check() error {
	if err := fc.simulation().Validate(); err != nil {
		return err
	}
	for name, a := range fc.Area {
		if a.Count < 0 {
			return fmt.Errorf("area '%s' has a negative count, %d", name, a.Count)
		}
	}
	for name, c := range fc.Circle {
		if c.Count < 0 {
			return fmt.Errorf("circle '%s' has a negative count, %d", name, c.Count)
		} else if c.Radius <= 0 {
			return fmt.Errorf("need to specify a positive radius for circle '%s'", name)
		}
	}
	for name, n := range fc.Noise {
		if n.Count < 0 {
			return fmt.Errorf("noise '%s' has a negative count, %d", name, n.Count)
		} else if n.Scale <= 0 {
			return fmt.Errorf("need to specify a positive scale for noise '%s'", name)
		}
	}
	if fc.Output.Frames < 0 {
		return fmt.Errorf("output frames must not be negative, got %d", fc.Output.Frames)
	} else if fc.Output.ChunkFrames <= 0 {
		return fmt.Errorf("output chunkframes must be positive, got %d", fc.Output.ChunkFrames)
	} else if fc.Output.PNGSize <= 0 {
		return fmt.Errorf("output pngsize must be positive, got %d", fc.Output.PNGSize)
	}
	return nil
}

func (fc *fileConfig) simulation() semigrid.Config {
	s := fc.Simulation
	return semigrid.Config{
		Boundary:    semigrid.R(s.MinX, s.MinY, s.MaxX, s.MaxY),
		MaxBoundary: semigrid.R(s.LimitMinX, s.LimitMinY, s.LimitMaxX, s.LimitMaxY),
		CellSize:    s.CellSize,
		Gravity:     s.Gravity,
		Ratio:       s.Ratio,
		Seed:        s.Seed,
		Workers:     s.Workers,
	}
}

// newSimulation builds a simulation and seeds every scene. Scenes are seeded
// areas first, then circles, then noise, each kind in name order, so a seed
// always gives the same particles.
func (fc *fileConfig) newSimulation() (*semigrid.Simulation, error) {
	sim, err := semigrid.New(fc.simulation())
	if err != nil {
		return nil, err
	}

	for _, name := range sortedKeys(fc.Area) {
		sim.FillArea(fc.Area[name].Count)
	}
	for _, name := range sortedKeys(fc.Circle) {
		c := fc.Circle[name]
		center := mgl64.Vec2{c.X, c.Y}
		first, err := sim.FillCircle(c.Count, center, c.Radius)
		if err != nil {
			return nil, fmt.Errorf("circle '%s': %w", name, err)
		}
		if c.Spin != 0 {
			sim.Spin(first, len(sim.Particles()), center, c.Spin)
		}
	}
	for _, name := range sortedKeys(fc.Noise) {
		n := fc.Noise[name]
		if _, err := sim.FillNoise(n.Count, n.Scale, n.Threshold); err != nil {
			return nil, fmt.Errorf("noise '%s': %w", name, err)
		}
	}
	return sim, nil
}

func sortedKeys[T any](m map[string]*T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
