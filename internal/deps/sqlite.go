package deps

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists build state in a SQLite database so incremental
// builds work across separate process runs.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (and creates if needed) the state database.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS inputs (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS artifacts (
		key TEXT PRIMARY KEY,
		output_path TEXT NOT NULL,
		hash TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS artifact_inputs (
		artifact TEXT NOT NULL,
		path TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS artifact_views (
		artifact TEXT NOT NULL,
		view TEXT NOT NULL,
		fingerprint TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS artifact_params (
		artifact TEXT NOT NULL,
		param TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS static_files (
		target TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		hash TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifact_inputs_path ON artifact_inputs(path);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads the saved state. It returns nil when nothing was saved yet.
func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := NewState()
	meta := map[string]*string{
		"config_hash": &st.ConfigHash,
		"layout_set":  &st.LayoutSet,
		"data_set":    &st.DataSet,
		"revision":    &st.Revision,
	}
	found := false
	if err := s.each(ctx, "SELECT key, value FROM meta", func(rows *sql.Rows) error {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		if dst, ok := meta[k]; ok {
			*dst = v
			found = true
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil //nolint:nilnil // nil state means no build has been saved yet.
	}

	steps := []struct {
		query string
		scan  func(*sql.Rows) error
	}{
		{"SELECT path, hash FROM inputs", func(rows *sql.Rows) error {
			var p, h string
			if err := rows.Scan(&p, &h); err != nil {
				return err
			}
			st.Inputs[p] = h
			return nil
		}},
		{"SELECT key, output_path, hash FROM artifacts", func(rows *sql.Rows) error {
			r := &Record{Views: map[string]string{}}
			if err := rows.Scan(&r.Key, &r.OutputPath, &r.Hash); err != nil {
				return err
			}
			st.Artifacts[r.Key] = r
			return nil
		}},
		{"SELECT artifact, path FROM artifact_inputs ORDER BY artifact, path", func(rows *sql.Rows) error {
			var a, p string
			if err := rows.Scan(&a, &p); err != nil {
				return err
			}
			if r, ok := st.Artifacts[a]; ok {
				r.Inputs = append(r.Inputs, p)
			}
			return nil
		}},
		{"SELECT artifact, view, fingerprint FROM artifact_views", func(rows *sql.Rows) error {
			var a, v, fp string
			if err := rows.Scan(&a, &v, &fp); err != nil {
				return err
			}
			if r, ok := st.Artifacts[a]; ok {
				r.Views[v] = fp
			}
			return nil
		}},
		{"SELECT artifact, param FROM artifact_params ORDER BY artifact, param", func(rows *sql.Rows) error {
			var a, p string
			if err := rows.Scan(&a, &p); err != nil {
				return err
			}
			if r, ok := st.Artifacts[a]; ok {
				r.Params = append(r.Params, p)
			}
			return nil
		}},
		{"SELECT target, source, hash FROM static_files", func(rows *sql.Rows) error {
			var sr StaticRecord
			if err := rows.Scan(&sr.Target, &sr.Source, &sr.Hash); err != nil {
				return err
			}
			st.Static[sr.Target] = sr
			return nil
		}},
	}
	for _, step := range steps {
		if err := s.each(ctx, step.query, step.scan); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Save replaces the stored state in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"meta", "inputs", "artifacts", "artifact_inputs", "artifact_views", "artifact_params", "static_files"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	exec := func(query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
		return nil
	}
	for k, v := range map[string]string{
		"config_hash": st.ConfigHash,
		"layout_set":  st.LayoutSet,
		"data_set":    st.DataSet,
		"revision":    st.Revision,
	} {
		if err := exec("INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}
	for p, h := range st.Inputs {
		if err := exec("INSERT INTO inputs (path, hash) VALUES (?, ?)", p, h); err != nil {
			return err
		}
	}
	for _, r := range st.Artifacts {
		if err := exec("INSERT INTO artifacts (key, output_path, hash) VALUES (?, ?, ?)", r.Key, r.OutputPath, r.Hash); err != nil {
			return err
		}
		for _, p := range r.Inputs {
			if err := exec("INSERT INTO artifact_inputs (artifact, path) VALUES (?, ?)", r.Key, p); err != nil {
				return err
			}
		}
		for v, fp := range r.Views {
			if err := exec("INSERT INTO artifact_views (artifact, view, fingerprint) VALUES (?, ?, ?)", r.Key, v, fp); err != nil {
				return err
			}
		}
		for _, p := range r.Params {
			if err := exec("INSERT INTO artifact_params (artifact, param) VALUES (?, ?)", r.Key, p); err != nil {
				return err
			}
		}
	}
	for _, sr := range st.Static {
		if err := exec("INSERT INTO static_files (target, source, hash) VALUES (?, ?, ?)", sr.Target, sr.Source, sr.Hash); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) each(ctx context.Context, query string, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
	}
	return rows.Err()
}
