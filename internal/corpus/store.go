// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists the passage collection in SQLite. The store holds
// the authoritative passage records (id, text, entity mentions); the
// retrieval index is built from it and resolves hits back through it.
package corpus

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/support-engine/pkg/types"
)

const dbFile = "passages.db"

// Store manages the passage corpus SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the corpus database at dir/passages.db, creating
// the schema if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating corpus directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening corpus database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS passages (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			mentions TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			source TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the passage with the given id. ok is false when the id is not
// in the corpus; that is an absence, not an error.
func (s *Store) Get(ctx context.Context, id string) (types.Passage, bool, error) {
	var p types.Passage
	var mentionsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, mentions FROM passages WHERE id = ?`, id,
	).Scan(&p.ID, &p.Text, &mentionsJSON)
	if err == sql.ErrNoRows {
		return types.Passage{}, false, nil
	}
	if err != nil {
		return types.Passage{}, false, fmt.Errorf("looking up passage %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(mentionsJSON), &p.Mentions); err != nil {
		return types.Passage{}, false, fmt.Errorf("decoding mentions for %s: %w", id, err)
	}
	return p, true, nil
}

// Count returns the number of passages in the corpus.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}

// ForEach invokes fn for every passage in id order. Used by the index
// builder; fn returning an error stops the scan.
func (s *Store) ForEach(ctx context.Context, fn func(types.Passage) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, mentions FROM passages ORDER BY id`)
	if err != nil {
		return fmt.Errorf("scanning passages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p types.Passage
		var mentionsJSON string
		if err := rows.Scan(&p.ID, &p.Text, &mentionsJSON); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(mentionsJSON), &p.Mentions); err != nil {
			return fmt.Errorf("decoding mentions for %s: %w", p.ID, err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// put upserts a batch of passages inside one transaction.
func (s *Store) put(ctx context.Context, passages []types.Passage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO passages (id, text, mentions) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		mentionsJSON, err := json.Marshal(p.Mentions)
		if err != nil {
			return fmt.Errorf("encoding mentions for %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Text, string(mentionsJSON)); err != nil {
			return fmt.Errorf("inserting passage %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// IngestSummary holds counts from a corpus ingest run.
type IngestSummary struct {
	Stored    int
	Malformed int
	Skipped   bool
}

// passageRecord is one line of a corpus JSONL file. A record may carry full
// mentions with anchors, or just a flat entity list when the source has no
// surface forms.
type passageRecord struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Entities []string        `json:"entities,omitempty"`
	Mentions []types.Mention `json:"mentions,omitempty"`
}

const ingestBatchSize = 500

// IngestJSONL reads passage records from r, one JSON object per line, and
// upserts them into the store. Malformed lines and records without an id
// are reported to diag and skipped; the rest of the file is still ingested.
func (s *Store) IngestJSONL(ctx context.Context, r io.Reader, diag io.Writer) (IngestSummary, error) {
	var summary IngestSummary
	var batch []types.Passage

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		var rec passageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			fmt.Fprintf(diag, "warning: line %d: parse error: %v\n", line, err)
			summary.Malformed++
			continue
		}
		if rec.ID == "" {
			fmt.Fprintf(diag, "warning: line %d: record has no id\n", line)
			summary.Malformed++
			continue
		}

		mentions := rec.Mentions
		if len(mentions) == 0 {
			mentions = make([]types.Mention, len(rec.Entities))
			for i, e := range rec.Entities {
				mentions[i] = types.Mention{Entity: e}
			}
		}

		batch = append(batch, types.Passage{ID: rec.ID, Text: rec.Text, Mentions: mentions})
		if len(batch) >= ingestBatchSize {
			if err := s.put(ctx, batch); err != nil {
				return summary, err
			}
			summary.Stored += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("reading corpus: %w", err)
	}

	if len(batch) > 0 {
		if err := s.put(ctx, batch); err != nil {
			return summary, err
		}
		summary.Stored += len(batch)
	}
	return summary, nil
}

// SourceUnchanged reports whether the corpus file at path matches the
// modification time recorded by the last ingest, so repeat builds can skip
// re-reading an unchanged corpus.
func (s *Store) SourceUnchanged(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

	var stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM ingest_status WHERE source = ?`, path,
	).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking ingest status: %w", err)
	}
	return stored == modTime, nil
}

// RecordSource stores the corpus file's modification time after a
// successful ingest.
func (s *Store) RecordSource(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ingest_status (source, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		path, modTime,
	)
	if err != nil {
		return fmt.Errorf("recording ingest status: %w", err)
	}
	return nil
}
