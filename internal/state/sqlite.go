package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapsource/internal/registry"
	"github.com/leapstack-labs/leapsource/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists compile history in SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens the database at path and applies migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path passed to Open.
func (s *SQLiteStore) Path() string {
	return s.path
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// RecordCompile stores one compile pass and its declarations in a single transaction.
func (s *SQLiteStore) RecordCompile(ctx context.Context, variant string, cfg core.ProjectConfig, reg *registry.SourceRegistry) (*Compile, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	decls := reg.All()
	c := &Compile{
		ID:             generateID(),
		Variant:        variant,
		Config:         cfg,
		SourceCount:    len(decls),
		DuplicateCount: len(reg.Duplicates()),
		CreatedAt:      time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO compiles (id, variant, source_project, source_dataset, source_count, duplicate_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Variant, cfg.SourceProject, cfg.SourceDataset, c.SourceCount, c.DuplicateCount,
		c.CreatedAt.Format(timeFormat),
	); err != nil {
		return nil, fmt.Errorf("failed to create compile: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO compile_sources (compile_id, position, database_name, schema_name, table_name, file)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare source insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range decls {
		if _, err := stmt.ExecContext(ctx, c.ID, d.Order, d.Ref.Database, d.Ref.Schema, d.Ref.Name, d.File); err != nil {
			return nil, fmt.Errorf("failed to record source %s: %w", d.Ref.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit compile: %w", err)
	}
	return c, nil
}

// GetCompile retrieves a compile by ID. Returns nil, nil if not found.
func (s *SQLiteStore) GetCompile(ctx context.Context, id string) (*Compile, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, variant, source_project, source_dataset, source_count, duplicate_count, created_at
		 FROM compiles WHERE id = ?`, id)

	c, err := scanCompile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get compile: %w", err)
	}
	return c, nil
}

// ListCompiles returns the most recent compiles, newest first.
// A limit <= 0 returns all compiles.
func (s *SQLiteStore) ListCompiles(ctx context.Context, limit int) ([]*Compile, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}

	// rowid breaks ties between compiles recorded within the same instant
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, variant, source_project, source_dataset, source_count, duplicate_count, created_at
		 FROM compiles ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list compiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var compiles []*Compile
	for rows.Next() {
		c, err := scanCompile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compile: %w", err)
		}
		compiles = append(compiles, c)
	}
	return compiles, rows.Err()
}

// GetCompileSources returns the sources recorded for a compile in declaration order.
func (s *SQLiteStore) GetCompileSources(ctx context.Context, compileID string) ([]CompileSource, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, database_name, schema_name, table_name, file
		 FROM compile_sources WHERE compile_id = ? ORDER BY position`, compileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get compile sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []CompileSource
	for rows.Next() {
		var cs CompileSource
		if err := rows.Scan(&cs.Position, &cs.Ref.Database, &cs.Ref.Schema, &cs.Ref.Name, &cs.File); err != nil {
			return nil, fmt.Errorf("failed to scan compile source: %w", err)
		}
		sources = append(sources, cs)
	}
	return sources, rows.Err()
}

// Diff compares the sources of two compiles.
func (s *SQLiteStore) Diff(ctx context.Context, fromID, toID string) (*SourceDiff, error) {
	from, err := s.GetCompileSources(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.GetCompileSources(ctx, toID)
	if err != nil {
		return nil, err
	}

	fromSet := make(map[string]struct{}, len(from))
	for _, cs := range from {
		fromSet[cs.Ref.Key()] = struct{}{}
	}
	toSet := make(map[string]struct{}, len(to))
	for _, cs := range to {
		toSet[cs.Ref.Key()] = struct{}{}
	}

	diff := &SourceDiff{From: fromID, To: toID}
	for _, cs := range to {
		if _, ok := fromSet[cs.Ref.Key()]; !ok {
			diff.Added = append(diff.Added, cs.Ref)
		}
	}
	for _, cs := range from {
		if _, ok := toSet[cs.Ref.Key()]; !ok {
			diff.Removed = append(diff.Removed, cs.Ref)
		}
	}
	return diff, nil
}

// DiffLatest compares the two most recent compiles.
// Returns nil, nil when fewer than two compiles are recorded.
func (s *SQLiteStore) DiffLatest(ctx context.Context) (*SourceDiff, error) {
	compiles, err := s.ListCompiles(ctx, 2)
	if err != nil {
		return nil, err
	}
	if len(compiles) < 2 {
		return nil, nil
	}
	return s.Diff(ctx, compiles[1].ID, compiles[0].ID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompile(r rowScanner) (*Compile, error) {
	var c Compile
	var createdAt string
	if err := r.Scan(&c.ID, &c.Variant, &c.Config.SourceProject, &c.Config.SourceDataset,
		&c.SourceCount, &c.DuplicateCount, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	c.CreatedAt = t
	return &c, nil
}
