// sqlite.go - Annotation sink backed by an SQLite database
package emit

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id  TEXT PRIMARY KEY,
	created TEXT NOT NULL,
	path    TEXT NOT NULL,
	options TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS blocks (
	run_id  TEXT NOT NULL,
	block   INTEGER NOT NULL,
	file_offset INTEGER NOT NULL,
	length  INTEGER NOT NULL,
	digest  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS annotations (
	run_id       TEXT NOT NULL,
	id           INTEGER NOT NULL,
	block        INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	label        TEXT NOT NULL,
	font_colour  TEXT NOT NULL,
	note_colour  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS annotations_range ON annotations (run_id, start_offset);
`

// SQLiteSink writes each block in its own transaction.
type SQLiteSink struct {
	db    *sql.DB
	runID string
	tx    *sql.Tx
	stmt  *sql.Stmt
}

// OpenSQLite creates (or reuses) the database at path and records the run.
func OpenSQLite(path, input string, p Preamble) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO runs (run_id, created, path, options) VALUES (?, ?, ?, ?)`,
		p.RunID, p.Created.Format(time.RFC3339), input, p.Options); err != nil {
		db.Close()
		return nil, fmt.Errorf("record run: %w", err)
	}
	return &SQLiteSink{db: db, runID: p.RunID}, nil
}

func (s *SQLiteSink) BeginBlock(info BlockInfo) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO blocks (run_id, block, file_offset, length, digest) VALUES (?, ?, ?, ?, ?)`,
		s.runID, info.Number, info.Offset, info.Length, fmt.Sprintf("%016x", info.Digest)); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO annotations
		(run_id, id, block, start_offset, end_offset, label, font_colour, note_colour)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	s.tx, s.stmt = tx, stmt
	return nil
}

func (s *SQLiteSink) Write(a Annotation) error {
	if s.stmt == nil {
		return fmt.Errorf("sqlite sink: write outside a block")
	}
	_, err := s.stmt.Exec(s.runID, a.ID, a.Block, a.Start, a.End, a.Label, string(a.Font), string(a.Note))
	return err
}

func (s *SQLiteSink) EndBlock() error {
	if s.tx == nil {
		return nil
	}
	s.stmt.Close()
	err := s.tx.Commit()
	s.tx, s.stmt = nil, nil
	return err
}

func (s *SQLiteSink) Close() error {
	if s.tx != nil {
		s.tx.Rollback()
	}
	return s.db.Close()
}
