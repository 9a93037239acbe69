package main

import (
	"database/sql"
	"errors"
	"path/filepath"
	"sort"

	"k8s.io/klog"

	"github.com/quillaja/semigrid/semigrid"
)

/*

replay renders density images from a recorded run instead of simulating.

*/

const queryFrames = `SELECT frame, tick, minx, miny, maxx, maxy FROM frames ORDER BY frame ASC;`

// replay writes one png per recorded frame of out.DB or out.Chunks (exactly
// one must be set) into out.PNG, over view. It returns the frame count.
func replay(out outputSection, view semigrid.Rect) (int, error) {
	if (out.DB == "") == (out.Chunks == "") {
		return 0, errors.New("replay needs exactly one of a database or a chunk directory")
	}
	if out.PNG == "" {
		return 0, errors.New("replay needs a png output directory")
	}
	rec, err := newImageRecorder(out.PNG, out.PNGSize, view)
	if err != nil {
		return 0, err
	}

	n := 0
	emit := func(job *frameJob) error {
		n++
		return rec.record(job)
	}
	if out.DB != "" {
		err = replayDB(out.DB, emit)
	} else {
		err = replayChunks(out.Chunks, emit)
	}
	if cerr := rec.Close(); err == nil {
		err = cerr
	}
	klog.Infof("replayed %d frames to %s", n, out.PNG)
	return n, err
}

func replayDB(filename string, emit func(*frameJob) error) error {
	db, err := sql.Open("sqlite3", "file:"+filename+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()

	// collect the frame list before querying any particles
	rows, err := db.Query(queryFrames)
	if err != nil {
		return err
	}
	var jobs []*frameJob
	for rows.Next() {
		job := &frameJob{}
		b := &job.Boundary
		if err := rows.Scan(&job.Frame, &job.Tick, &b[0], &b[1], &b[2], &b[3]); err != nil {
			rows.Close()
			return err
		}
		jobs = append(jobs, job)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, job := range jobs {
		if job.IDs, job.Bodies, err = readFrame(db, job.Frame); err != nil {
			return err
		}
		if err := emit(job); err != nil {
			return err
		}
	}
	return nil
}

func replayChunks(dir string, emit func(*frameJob) error) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.chunk"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no chunks in " + dir)
	}

	// names are zero padded, so Glob's order is frame order
	for _, name := range files {
		chunk, err := readChunk(name)
		if err != nil {
			return err
		}
		frames := make([]uint32, 0, len(chunk))
		for f := range chunk {
			frames = append(frames, f)
		}
		sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })

		for _, f := range frames {
			bodies := chunk[f]
			// chunks keep no tick; headless runs record one frame per tick
			job := &frameJob{Frame: int(f), Tick: int(f)}
			for id := range bodies {
				job.IDs = append(job.IDs, id)
			}
			sort.Slice(job.IDs, func(i, j int) bool { return job.IDs[i] < job.IDs[j] })
			job.Bodies = make([]renderbody, len(job.IDs))
			for i, id := range job.IDs {
				job.Bodies[i] = bodies[id]
			}
			if err := emit(job); err != nil {
				return err
			}
		}
	}
	return nil
}
