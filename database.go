package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

/*
one row per active particle per frame, plus a summary row per frame.
sqlite allows only 1 writer at a time, so there is a single recorder
goroutine and every frame is one transaction.
*/

const schema = `
CREATE TABLE frames (
	frame 	INTEGER PRIMARY KEY,
	tick 	INTEGER,
	active 	INTEGER, -- active particle count
	mass 	REAL,    -- total active mass
	comx 	REAL,    -- center of mass
	comy 	REAL,
	minx 	REAL,    -- grid boundary
	miny 	REAL,
	maxx 	REAL,
	maxy 	REAL,
	lox 	REAL,    -- extent of the active particles
	loy 	REAL,
	hix 	REAL,
	hiy 	REAL);

CREATE TABLE particles (
	frame 	INTEGER,
	id 		INTEGER, -- particle index
	x 		REAL,
	y 		REAL,
	mass 	REAL);
`

const indices = `
CREATE INDEX idx_frame ON particles (frame, id);
CREATE INDEX idx_id ON particles (id);
`

const insertFrame = `INSERT INTO frames VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
const insert = `INSERT INTO particles VALUES (?, ?, ?, ?, ?);`
const queryFrame = `SELECT id, x, y, mass FROM particles WHERE frame = ? ORDER BY id ASC;`

type dbRecorder struct {
	db          *sql.DB
	stmt, frame *sql.Stmt
}

// opens and initializes a new db in filename. an existing file is an error.
func opendb(filename string) (*dbRecorder, error) {
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("%s exists", filename)
	}
	db, err := sql.Open("sqlite3", "file:"+filename+"?_journal_mode=OFF&_synchronous=OFF")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	r := &dbRecorder{db: db}
	if r.stmt, err = db.Prepare(insert); err != nil {
		db.Close()
		return nil, err
	}
	if r.frame, err = db.Prepare(insertFrame); err != nil {
		r.stmt.Close()
		db.Close()
		return nil, err
	}
	return r, nil
}

// outputs a frame to the database in a single transaction.
func (r *dbRecorder) record(job *frameJob) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stats := calculateStats(job.Bodies)
	mass := 0.0
	for _, b := range job.Bodies {
		mass += float64(b.Mass)
	}
	_, err = tx.Stmt(r.frame).Exec(
		job.Frame, job.Tick, len(job.Bodies), mass,
		stats[0].avg, stats[1].avg,
		job.Boundary[0], job.Boundary[1], job.Boundary[2], job.Boundary[3],
		stats[0].min, stats[1].min, stats[0].max, stats[1].max)

	stmt := tx.Stmt(r.stmt)
	for i := 0; err == nil && i < len(job.Bodies); i++ {
		b := job.Bodies[i]
		_, err = stmt.Exec(job.Frame, job.IDs[i], b.X, b.Y, b.Mass)
	}

	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close creates the indices and closes the database.
func (r *dbRecorder) Close() error {
	r.stmt.Close()
	r.frame.Close()
	_, err := r.db.Exec(indices)
	if cerr := r.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// readFrame loads the particles of one recorded frame.
func readFrame(db *sql.DB, frame int) (ids []uint32, bodies []renderbody, err error) {
	rows, err := db.Query(queryFrame, frame)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uint32
		var b renderbody
		if err := rows.Scan(&id, &b.X, &b.Y, &b.Mass); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		bodies = append(bodies, b)
	}
	return ids, bodies, rows.Err()
}
