package vectordb

import (
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Persisted state is two co-located artifacts: a gob snapshot of the
// vectors and a SQLite table of chunk content and metadata. Both are
// required together; one without the other is treated as absent state.
const (
	vectorsFile  = "vectors.gob"
	metadataFile = "meta.db"
)

// vectorSnapshot is the gob wire format for the vector side of the index.
type vectorSnapshot struct {
	Dimension int
	NextPos   uint64
	Positions []uint64
	Vectors   [][]float32
}

const metadataSchema = `
CREATE TABLE IF NOT EXISTS chunks (
    position INTEGER PRIMARY KEY,
    document_id TEXT NOT NULL,
    filename TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    content TEXT NOT NULL,
    start_pos INTEGER NOT NULL DEFAULT 0,
    end_pos INTEGER NOT NULL DEFAULT 0
);
`

func (s *MemoryStore) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	s.mu.RLock()
	snap := vectorSnapshot{
		Dimension: s.dims,
		NextPos:   s.nextPos,
		Positions: make([]uint64, len(s.records)),
		Vectors:   make([][]float32, len(s.records)),
	}
	recs := make([]record, len(s.records))
	copy(recs, s.records)
	for i, rec := range recs {
		snap.Positions[i] = rec.pos
		snap.Vectors[i] = rec.vector
	}
	s.mu.RUnlock()

	f, err := os.Create(filepath.Join(dir, vectorsFile))
	if err != nil {
		return fmt.Errorf("creating vectors file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("encoding vectors: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing vectors file: %w", err)
	}

	// The metadata table is rewritten as a fresh snapshot each time.
	metaPath := filepath.Join(dir, metadataFile)
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale metadata: %w", err)
	}

	db, err := sql.Open("sqlite", metaPath)
	if err != nil {
		return fmt.Errorf("opening metadata database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, metadataSchema); err != nil {
		return fmt.Errorf("creating metadata schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning metadata transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (position, document_id, filename, chunk_index, content, start_pos, end_pos)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing metadata insert: %w", err)
	}
	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, rec.pos, rec.meta.DocumentID, rec.meta.Filename,
			rec.meta.ChunkIndex, rec.content, rec.meta.StartPos, rec.meta.EndPos); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("inserting chunk metadata: %w", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing metadata: %w", err)
	}
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, dir string) error {
	vecPath := filepath.Join(dir, vectorsFile)
	metaPath := filepath.Join(dir, metadataFile)

	_, vecErr := os.Stat(vecPath)
	_, metaErr := os.Stat(metaPath)
	if vecErr != nil || metaErr != nil {
		s.reset()
		if vecErr != nil && metaErr != nil {
			return fmt.Errorf("%w: %s", ErrNoPersistedState, dir)
		}
		return fmt.Errorf("%w: incomplete artifacts in %s", ErrNoPersistedState, dir)
	}

	f, err := os.Open(vecPath)
	if err != nil {
		s.reset()
		return fmt.Errorf("opening vectors file: %w", err)
	}
	defer f.Close()

	var snap vectorSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		s.reset()
		return fmt.Errorf("decoding vectors (corrupt index?): %w", err)
	}
	if snap.Dimension != s.dims {
		s.reset()
		return fmt.Errorf("%w: persisted index has dimension %d, store has %d", ErrDimensionMismatch, snap.Dimension, s.dims)
	}
	if len(snap.Positions) != len(snap.Vectors) {
		s.reset()
		return fmt.Errorf("corrupt vector snapshot: %d positions, %d vectors", len(snap.Positions), len(snap.Vectors))
	}

	db, err := sql.Open("sqlite", metaPath)
	if err != nil {
		s.reset()
		return fmt.Errorf("opening metadata database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT position, document_id, filename, chunk_index, content, start_pos, end_pos FROM chunks`)
	if err != nil {
		s.reset()
		return fmt.Errorf("reading chunk metadata (corrupt index?): %w", err)
	}
	defer rows.Close()

	type metaRow struct {
		content string
		meta    Metadata
	}
	byPos := make(map[uint64]metaRow)
	for rows.Next() {
		var pos uint64
		var r metaRow
		if err := rows.Scan(&pos, &r.meta.DocumentID, &r.meta.Filename, &r.meta.ChunkIndex,
			&r.content, &r.meta.StartPos, &r.meta.EndPos); err != nil {
			s.reset()
			return fmt.Errorf("scanning chunk metadata: %w", err)
		}
		byPos[pos] = r
	}
	if err := rows.Err(); err != nil {
		s.reset()
		return fmt.Errorf("iterating chunk metadata: %w", err)
	}

	records := make([]record, 0, len(snap.Positions))
	for i, pos := range snap.Positions {
		row, ok := byPos[pos]
		if !ok {
			s.reset()
			return fmt.Errorf("corrupt index: vector at position %d has no metadata row", pos)
		}
		if len(snap.Vectors[i]) != s.dims {
			s.reset()
			return fmt.Errorf("%w: persisted vector %d has %d components", ErrDimensionMismatch, i, len(snap.Vectors[i]))
		}
		records = append(records, record{
			pos:     pos,
			content: row.content,
			meta:    row.meta,
			vector:  snap.Vectors[i],
		})
	}

	s.mu.Lock()
	s.records = records
	if snap.NextPos > s.nextPos {
		s.nextPos = snap.NextPos
	}
	s.mu.Unlock()
	return nil
}

// reset drops all records but keeps the dimension and position counter,
// so a failed load never leaves a partially populated index.
func (s *MemoryStore) reset() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}
