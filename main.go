// semigrid runs a grid-accelerated 2D gravity simulation, either headless
// while recording frames, or live in a window.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog"

	"github.com/quillaja/semigrid/semigrid"
)

type options struct {
	config  string
	workers int

	frames      int
	db          string
	chunks      string
	chunkFrames int
	png         string
	pngSize     int
}

func main() {
	defer klog.Flush()
	if err := newRootCommand().Execute(); err != nil {
		klog.Flush()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "semigrid",
		Short:        "Grid accelerated 2D gravity simulation",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "simulation config file (ini)")
	root.PersistentFlags().IntVar(&opts.workers, "workers", -1, "parallel workers, 0 for one per CPU (overrides config)")

	gofs := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(gofs)
	root.PersistentFlags().AddGoFlagSet(gofs)

	run := &cobra.Command{
		Use:   "run",
		Short: "Run headless and record frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runHeadless(fc)
		},
	}
	run.Flags().IntVarP(&opts.frames, "frames", "n", 0, "number of frames to simulate (overrides config)")
	run.Flags().StringVar(&opts.db, "db", "", "record frames to this new sqlite database")
	run.Flags().StringVar(&opts.chunks, "chunks", "", "record frames as compressed gob chunks in this directory")
	run.Flags().IntVar(&opts.chunkFrames, "chunk-frames", 0, "frames per gob chunk (overrides config)")
	run.Flags().StringVar(&opts.png, "png", "", "write density images to this directory")
	run.Flags().IntVar(&opts.pngSize, "png-size", 0, "density image width and height in pixels (overrides config)")

	view := &cobra.Command{
		Use:   "view",
		Short: "Run live in a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runViewer(fc)
		},
	}
	view.Flags().IntVar(&opts.pngSize, "size", 0, "window width and height in pixels (overrides config)")

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the config and print the resolved parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := opts.load(cmd)
			if err != nil {
				return err
			}
			printParameters(cmd.OutOrStdout(), fc)
			return nil
		},
	}

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Render density images from a recorded database or chunk directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := opts.load(cmd)
			if err != nil {
				return err
			}
			_, err = replay(fc.Output, fc.simulation().MaxBoundary)
			return err
		},
	}
	replayCmd.Flags().StringVar(&opts.db, "db", "", "read frames from this sqlite database")
	replayCmd.Flags().StringVar(&opts.chunks, "chunks", "", "read frames from the gob chunks in this directory")
	replayCmd.Flags().StringVar(&opts.png, "png", "", "write density images to this directory")
	replayCmd.Flags().IntVar(&opts.pngSize, "png-size", 0, "density image width and height in pixels (overrides config)")

	root.AddCommand(run, view, check, replayCmd)
	return root
}

// load reads the config file and applies any flags that were set.
func (o *options) load(cmd *cobra.Command) (*fileConfig, error) {
	fc, err := readConfig(o.config)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if o.workers >= 0 {
		fc.Simulation.Workers = o.workers
	}
	if flags.Changed("frames") {
		fc.Output.Frames = o.frames
	}
	if flags.Changed("db") {
		fc.Output.DB = o.db
	}
	if flags.Changed("chunks") {
		fc.Output.Chunks = o.chunks
	}
	if flags.Changed("chunk-frames") {
		fc.Output.ChunkFrames = o.chunkFrames
	}
	if flags.Changed("png") {
		fc.Output.PNG = o.png
	}
	if flags.Changed("png-size") || flags.Changed("size") {
		fc.Output.PNGSize = o.pngSize
	}
	if err := fc.check(); err != nil {
		return nil, err
	}
	return fc, nil
}

func printParameters(w io.Writer, fc *fileConfig) {
	cfg := fc.simulation()
	fmt.Fprintf(w, "boundary: %v\nmax boundary: %v\ncell size: %g\ngravity: %g\nratio: %g\nseed: %d\nworkers: %d\n",
		cfg.Boundary, cfg.MaxBoundary, cfg.CellSize, cfg.Gravity, cfg.Ratio, cfg.Seed, cfg.Workers)
	for _, name := range sortedKeys(fc.Area) {
		fmt.Fprintf(w, "area %q: %d particles\n", name, fc.Area[name].Count)
	}
	for _, name := range sortedKeys(fc.Circle) {
		c := fc.Circle[name]
		fmt.Fprintf(w, "circle %q: %d particles at (%g, %g) r=%g spin=%g\n", name, c.Count, c.X, c.Y, c.Radius, c.Spin)
	}
	for _, name := range sortedKeys(fc.Noise) {
		n := fc.Noise[name]
		fmt.Fprintf(w, "noise %q: %d particles scale=%g threshold=%g\n", name, n.Count, n.Scale, n.Threshold)
	}
	fmt.Fprintf(w, "frames: %d\ndb: %q\nchunks: %q (%d frames each)\npng: %q (%dpx)\n",
		fc.Output.Frames, fc.Output.DB, fc.Output.Chunks, fc.Output.ChunkFrames, fc.Output.PNG, fc.Output.PNGSize)
}

// openRecorders opens every recorder the output section asks for.
func openRecorders(out outputSection, bounds semigrid.Rect) (recs []recorder, err error) {
	defer func() {
		if err != nil {
			for _, r := range recs {
				r.Close()
			}
			recs = nil
		}
	}()

	if out.DB != "" {
		db, err := opendb(out.DB)
		if err != nil {
			return recs, err
		}
		recs = append(recs, db)
	}
	if out.Chunks != "" {
		ch, err := newChunkRecorder(out.Chunks, out.ChunkFrames)
		if err != nil {
			return recs, err
		}
		recs = append(recs, ch)
	}
	if out.PNG != "" {
		img, err := newImageRecorder(out.PNG, out.PNGSize, bounds)
		if err != nil {
			return recs, err
		}
		recs = append(recs, img)
	}
	return recs, nil
}

// runHeadless steps the simulation for the configured number of frames,
// handing a snapshot of every frame to each recorder on its own goroutine.
func runHeadless(fc *fileConfig) error {
	sim, err := fc.newSimulation()
	if err != nil {
		return err
	}
	recs, err := openRecorders(fc.Output, sim.MaxBoundary())
	if err != nil {
		return err
	}

	st := sim.Stats()
	klog.Infof("particles: %d, frames: %d, recorders: %d, workers: %d",
		st.Particles, fc.Output.Frames, len(recs), fc.simulation().Workers)

	// one queue and worker per recorder; a slow recorder only backs up its
	// own queue
	g := errgroup.Group{}
	queues := make([]chan *frameJob, len(recs))
	for i := range recs {
		queues[i] = make(chan *frameJob, 32)
		rec, ch := recs[i], queues[i]
		g.Go(func() error { return drain(rec, ch) })
	}

	start := time.Now()
	frames := fc.Output.Frames
	for frame := 0; frame <= frames; frame++ {
		if len(recs) > 0 {
			job := snapshot(sim, frame)
			for _, q := range queues {
				q <- job
			}
		}
		if frame == frames {
			break
		}

		sim.Step()

		if klog.V(1) {
			st := sim.Stats()
			avgTimePerFrame := time.Since(start) / time.Duration(frame+1)
			klog.Infof("%.1f%%, %d active, grid %dx%d, %s/frame, %s remaining",
				100*float64(frame+1)/float64(frames),
				st.Active, st.GridX, st.GridY,
				avgTimePerFrame.Truncate(time.Microsecond),
				(avgTimePerFrame * time.Duration(frames-frame-1)).Truncate(time.Second))
		}
	}
	for _, q := range queues {
		close(q)
	}

	err = g.Wait()
	st = sim.Stats()
	klog.Infof("done: %d ticks in %s, %d of %d particles active",
		st.Tick, time.Since(start).Truncate(time.Millisecond), st.Active, st.Particles)
	return err
}
