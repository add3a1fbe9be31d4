package serialization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/born-ml/linen/internal/core"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS checkpoints(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		model_type TEXT NOT NULL,
		created_at TEXT NOT NULL,
		tensors INTEGER NOT NULL,
		data BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS checkpoints_name ON checkpoints(name, id)`,
}

// Entry describes a stored checkpoint.
type Entry struct {
	ID        int64
	Name      string
	ModelType string
	CreatedAt time.Time
	Tensors   int
	Bytes     int
}

// SQLiteStore keeps .born encoded checkpoints in a SQLite database. Saving
// under an existing name adds a new revision; reads return the latest one.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path. Use
// ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// An in-memory database lives as long as its connection.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put stores vars under name and returns the revision id.
func (s *SQLiteStore) Put(ctx context.Context, name string, vars core.Variables, modelType string, metadata map[string]string) (int64, error) {
	data, err := Marshal(vars, modelType, metadata)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO checkpoints(name, model_type, created_at, tensors, data) VALUES(?,?,?,?,?)",
		name, modelType, time.Now().UTC().Format(time.RFC3339Nano), len(core.Flatten(vars)), data)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", name, err)
	}
	return res.LastInsertId()
}

// Get returns the latest revision stored under name.
func (s *SQLiteStore) Get(ctx context.Context, name string) (*Checkpoint, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM checkpoints WHERE name = ? ORDER BY id DESC LIMIT 1", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", name, err)
	}
	return Unmarshal(data)
}

// GetRevision returns the checkpoint with the given id.
func (s *SQLiteStore) GetRevision(ctx context.Context, id int64) (*Checkpoint, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM checkpoints WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: revision %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select revision %d: %w", id, err)
	}
	return Unmarshal(data)
}

// List returns every stored revision, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, model_type, created_at, tensors, length(data) FROM checkpoints ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.ModelType, &created, &e.Tensors, &e.Bytes); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("checkpoint %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes every revision stored under name and reports how many were
// removed.
func (s *SQLiteStore) Delete(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE name = ?", name)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", name, err)
	}
	return res.RowsAffected()
}
