// Vector-intern mirror over SQLite: an optional, additive cache
// letting a Session resume with previously-interned identifier
// vectors already on disk instead of recomputing them from scratch.
// Adapted from the teacher's internal/storage/sqlite.go (database/sql
// + modernc.org/sqlite, one schema migration function, prepared
// statements for the hot path).
package persistence

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"unified-thinking/internal/types"
)

// SQLiteVectorMirror persists interned identifier vectors keyed by
// name, so a Session can skip re-deriving them from the FNV-1a seed on
// every process restart.
type SQLiteVectorMirror struct {
	db            *sql.DB
	stmtUpsert    *sql.Stmt
	stmtGetByName *sql.Stmt
}

// OpenSQLiteVectorMirror opens (creating if absent) a SQLite database
// at path and prepares its schema.
func OpenSQLiteVectorMirror(path string) (*SQLiteVectorMirror, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector mirror: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vectors (
			name TEXT PRIMARY KEY,
			dims BLOB NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate vector mirror schema: %w", err)
	}

	stmtUpsert, err := db.Prepare(`INSERT INTO vectors (name, dims) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET dims = excluded.dims`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare upsert statement: %w", err)
	}
	stmtGetByName, err := db.Prepare(`SELECT dims FROM vectors WHERE name = ?`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare lookup statement: %w", err)
	}

	return &SQLiteVectorMirror{db: db, stmtUpsert: stmtUpsert, stmtGetByName: stmtGetByName}, nil
}

// Close releases the underlying database handle.
func (m *SQLiteVectorMirror) Close() error {
	return m.db.Close()
}

// Put persists name's vector, overwriting any prior entry.
func (m *SQLiteVectorMirror) Put(name types.Identifier, v types.OpaqueVector) error {
	_, err := m.stmtUpsert.Exec(string(name), encodeDims(v.Dims))
	if err != nil {
		return fmt.Errorf("failed to persist vector for %q: %w", name, err)
	}
	return nil
}

// Get retrieves a previously-persisted vector for name.
func (m *SQLiteVectorMirror) Get(name types.Identifier) (types.OpaqueVector, bool, error) {
	var blob []byte
	err := m.stmtGetByName.QueryRow(string(name)).Scan(&blob)
	if err == sql.ErrNoRows {
		return types.OpaqueVector{}, false, nil
	}
	if err != nil {
		return types.OpaqueVector{}, false, fmt.Errorf("failed to read vector for %q: %w", name, err)
	}
	return types.OpaqueVector{Dims: decodeDims(blob)}, true, nil
}

func encodeDims(dims []float32) []byte {
	buf := make([]byte, 4*len(dims))
	for i, d := range dims {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(d))
	}
	return buf
}

func decodeDims(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
