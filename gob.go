package main

import (
	"compress/zlib"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"k8s.io/klog"
)

/*
frames are kept in memory in buckets of framesPerChunk and each full bucket
is written as one zlib compressed gob, named after its last frame. gob
doesn't write zero-value fields, and 12 bytes per body is about as small as
it gets before compression.
*/

// renderindex maps frame number -> particle index -> body.
type renderindex map[uint32]map[uint32]renderbody

type chunkRecorder struct {
	dir            string
	framesPerChunk int
	bucket         renderindex
	last           uint32
}

func newChunkRecorder(dir string, framesPerChunk int) (*chunkRecorder, error) {
	if framesPerChunk <= 0 {
		return nil, fmt.Errorf("frames per chunk must be positive, got %d", framesPerChunk)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &chunkRecorder{
		dir:            dir,
		framesPerChunk: framesPerChunk,
		bucket:         make(renderindex, framesPerChunk),
	}, nil
}

func (r *chunkRecorder) record(job *frameJob) error {
	frame := uint32(job.Frame)
	frameData := make(map[uint32]renderbody, len(job.Bodies))
	for i, b := range job.Bodies {
		frameData[job.IDs[i]] = b
	}
	r.bucket[frame] = frameData
	r.last = frame

	if len(r.bucket) < r.framesPerChunk {
		return nil
	}
	return r.dump()
}

// dump writes the bucket to disk and starts a new one.
func (r *chunkRecorder) dump() error {
	if len(r.bucket) == 0 {
		return nil
	}
	start := time.Now()
	filename := chunkName(r.dir, r.last)
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	zw, err := zlib.NewWriterLevel(file, zlib.DefaultCompression)
	if err != nil {
		file.Close()
		return err
	}
	enc := gob.NewEncoder(zw)
	if err := enc.Encode(r.bucket); err != nil {
		zw.Close()
		file.Close()
		os.Remove(filename)
		return err
	}
	if err := zw.Close(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	klog.V(2).Infof("%s to dump %d frames to %s", time.Since(start), len(r.bucket), filename)
	r.bucket = make(renderindex, r.framesPerChunk)
	return nil
}

// Close writes any partial bucket.
func (r *chunkRecorder) Close() error {
	return r.dump()
}

func chunkName(dir string, lastFrame uint32) string {
	return filepath.Join(dir, fmt.Sprintf("%010d.chunk", lastFrame))
}

// readChunk decodes a chunk written by chunkRecorder.
func readChunk(filename string) (renderindex, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	zr, err := zlib.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var chunk renderindex
	if err := gob.NewDecoder(zr).Decode(&chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}
