package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillaja/semigrid/semigrid"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "sim.ini")
	require.NoError(t, os.WriteFile(filename, []byte(text), 0644))
	return filename
}

func TestReadConfigDefaults(t *testing.T) {
	fc, err := readConfig("")
	require.NoError(t, err)

	assert.Equal(t, semigrid.DefaultConfig(), fc.simulation())
	require.Contains(t, fc.Circle, "disc")
	assert.Equal(t, 100000, fc.Circle["disc"].Count)
	assert.Equal(t, 600, fc.Output.Frames)
	assert.Equal(t, "", fc.Output.DB, "no outputs unless asked for")
}

func TestReadConfigFile(t *testing.T) {
	fc, err := readConfig(writeConfig(t, `
[simulation]
cellsize = 2
gravity = 1.5
ratio = 0.5
seed = 99
workers = 3
minx = -10
maxx = 10
miny = -20
maxy = 20

[area "dust"]
count = 10

[circle "a"]
count = 20
x = 1
y = 2
radius = 3

[circle "b"]
count = 5
radius = 1
spin = 0.1

[output]
frames = 12
db = out.sqlite
chunkframes = 4
`))
	require.NoError(t, err)

	cfg := fc.simulation()
	assert.Equal(t, 2.0, cfg.CellSize)
	assert.Equal(t, 1.5, cfg.Gravity)
	assert.Equal(t, 0.5, cfg.Ratio)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, semigrid.R(-10, -20, 10, 20), cfg.Boundary)
	assert.Equal(t, semigrid.DefaultConfig().MaxBoundary, cfg.MaxBoundary, "untouched values keep their defaults")

	assert.NotContains(t, fc.Circle, "disc", "explicit scenes replace the default")
	assert.Len(t, fc.Circle, 2)
	assert.Equal(t, 10, fc.Area["dust"].Count)
	assert.Equal(t, 12, fc.Output.Frames)
	assert.Equal(t, "out.sqlite", fc.Output.DB)
	assert.Equal(t, 4, fc.Output.ChunkFrames)

	sim, err := fc.newSimulation()
	require.NoError(t, err)
	assert.Len(t, sim.Particles(), 35)

	// circle "b" comes after "a" and is the only one spinning
	ps := sim.Particles()
	assert.Equal(t, 0.0, ps[10].Vel.Len())
	assert.NotEqual(t, 0.0, ps[34].Vel.Len())
}

func TestReadConfigErrors(t *testing.T) {
	for name, text := range map[string]string{
		"zero cell size":    "[simulation]\ncellsize = 0\n",
		"flat boundary":     "[simulation]\nminx = 5\nmaxx = 5\n",
		"zero ratio":        "[simulation]\nratio = 0\n",
		"circle radius":     "[circle \"c\"]\ncount = 3\n",
		"negative count":    "[area \"a\"]\ncount = -1\n",
		"noise scale":       "[noise \"n\"]\ncount = 3\n",
		"chunk frames":      "[output]\nchunkframes = 0\n",
		"unknown variable":  "[simulation]\nbogus = 1\n",
		"not a number":      "[simulation]\ngravity = lots\n",
		"negative frames":   "[output]\nframes = -3\n",
		"png size":          "[output]\npngsize = 0\n",
		"unknown section":   "[physics]\ng = 1\n",
		"noise bad count":   "[noise \"n\"]\ncount = -2\nscale = 1\n",
		"circle bad count":  "[circle \"c\"]\ncount = -2\nradius = 1\n",
		"negative workers":  "[simulation]\nworkers = -1\n",
		"inverted boundary": "[simulation]\nminy = 50\nmaxy = 10\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := readConfig(writeConfig(t, text))
			assert.Error(t, err)
		})
	}

	_, err := readConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestNewSimulationReproducible(t *testing.T) {
	text := `
[noise "n"]
count = 50
scale = 0.05
threshold = 0.05

[circle "z"]
count = 50
x = 50
y = 50
radius = 10

[area "a"]
count = 50
`
	a, err := readConfig(writeConfig(t, text))
	require.NoError(t, err)
	b, err := readConfig(writeConfig(t, text))
	require.NoError(t, err)

	sa, err := a.newSimulation()
	require.NoError(t, err)
	sb, err := b.newSimulation()
	require.NoError(t, err)
	assert.Equal(t, sa.Particles(), sb.Particles())
}
