// Package store persists routing datasets in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"parcel_router/pkg/dataset"
)

// ErrNotFound is returned when a named dataset does not exist.
var ErrNotFound = errors.New("dataset not found")

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath.
// It enables WAL mode and foreign keys, then migrates the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	// position columns keep declaration order, which fixes node indices.
	query := `
	CREATE TABLE IF NOT EXISTS datasets (
		name TEXT PRIMARY KEY,
		directed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS locations (
		dataset TEXT NOT NULL REFERENCES datasets(name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		lat REAL,
		lon REAL,
		PRIMARY KEY (dataset, name)
	);

	CREATE TABLE IF NOT EXISTS edges (
		dataset TEXT NOT NULL REFERENCES datasets(name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		from_name TEXT NOT NULL,
		to_name TEXT NOT NULL,
		cost REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS estimates (
		dataset TEXT NOT NULL REFERENCES datasets(name) ON DELETE CASCADE,
		goal TEXT NOT NULL,
		location TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (dataset, goal, location)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_dataset ON edges(dataset, position);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// SaveDataset stores ds under ds.Name, replacing any dataset of that name.
func (s *Store) SaveDataset(ctx context.Context, ds *dataset.Dataset) error {
	if ds.Name == "" {
		return errors.New("dataset name is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := deleteDataset(ctx, tx, ds.Name); err != nil {
		return fmt.Errorf("failed to replace dataset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO datasets (name, directed) VALUES (?, ?)`, ds.Name, ds.Directed); err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	locStmt, err := tx.PrepareContext(ctx, `INSERT INTO locations (dataset, position, name, lat, lon) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare location insert: %w", err)
	}
	defer locStmt.Close()
	for i, l := range ds.Locations {
		var lat, lon sql.NullFloat64
		if l.Coord != nil {
			lat = sql.NullFloat64{Float64: l.Coord.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: l.Coord.Lon, Valid: true}
		}
		if _, err := locStmt.ExecContext(ctx, ds.Name, i, l.Name, lat, lon); err != nil {
			return fmt.Errorf("failed to insert location %q: %w", l.Name, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (dataset, position, from_name, to_name, cost) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for i, e := range ds.Edges {
		if _, err := edgeStmt.ExecContext(ctx, ds.Name, i, e.From, e.To, e.Cost); err != nil {
			return fmt.Errorf("failed to insert edge %s->%s: %w", e.From, e.To, err)
		}
	}

	estStmt, err := tx.PrepareContext(ctx, `INSERT INTO estimates (dataset, goal, location, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare estimate insert: %w", err)
	}
	defer estStmt.Close()
	for goal, row := range ds.Estimates {
		for loc, v := range row {
			if _, err := estStmt.ExecContext(ctx, ds.Name, goal, loc, v); err != nil {
				return fmt.Errorf("failed to insert estimate %s->%s: %w", loc, goal, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	return nil
}

// LoadDataset reads the named dataset back in declaration order.
func (s *Store) LoadDataset(ctx context.Context, name string) (*dataset.Dataset, error) {
	ds := &dataset.Dataset{Name: name}

	err := s.db.QueryRowContext(ctx, `SELECT directed FROM datasets WHERE name = ?`, name).Scan(&ds.Directed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}

	if err := s.loadLocations(ctx, ds); err != nil {
		return nil, err
	}
	if err := s.loadEdges(ctx, ds); err != nil {
		return nil, err
	}
	if err := s.loadEstimates(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *Store) loadLocations(ctx context.Context, ds *dataset.Dataset) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name, lat, lon FROM locations WHERE dataset = ? ORDER BY position`, ds.Name)
	if err != nil {
		return fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l dataset.Location
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&l.Name, &lat, &lon); err != nil {
			return fmt.Errorf("failed to scan location: %w", err)
		}
		if lat.Valid && lon.Valid {
			l.Coord = &dataset.Coord{Lat: lat.Float64, Lon: lon.Float64}
		}
		ds.Locations = append(ds.Locations, l)
	}
	return rows.Err()
}

func (s *Store) loadEdges(ctx context.Context, ds *dataset.Dataset) error {
	rows, err := s.db.QueryContext(ctx, `SELECT from_name, to_name, cost FROM edges WHERE dataset = ? ORDER BY position`, ds.Name)
	if err != nil {
		return fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e dataset.Edge
		if err := rows.Scan(&e.From, &e.To, &e.Cost); err != nil {
			return fmt.Errorf("failed to scan edge: %w", err)
		}
		ds.Edges = append(ds.Edges, e)
	}
	return rows.Err()
}

func (s *Store) loadEstimates(ctx context.Context, ds *dataset.Dataset) error {
	rows, err := s.db.QueryContext(ctx, `SELECT goal, location, value FROM estimates WHERE dataset = ?`, ds.Name)
	if err != nil {
		return fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var goal, loc string
		var v float64
		if err := rows.Scan(&goal, &loc, &v); err != nil {
			return fmt.Errorf("failed to scan estimate: %w", err)
		}
		if ds.Estimates == nil {
			ds.Estimates = make(map[string]map[string]float64)
		}
		row := ds.Estimates[goal]
		if row == nil {
			row = make(map[string]float64)
			ds.Estimates[goal] = row
		}
		row[loc] = v
	}
	return rows.Err()
}

// ListDatasets returns the stored dataset names in alphabetical order.
func (s *Store) ListDatasets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan dataset name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// DeleteDataset removes the named dataset and everything that belongs to it.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := deleteDataset(ctx, tx, name)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return tx.Commit()
}

// deleteDataset removes child rows explicitly: PRAGMA foreign_keys only
// applies to the pooled connection it ran on, so cascades are not relied on.
func deleteDataset(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	for _, table := range []string{"estimates", "edges", "locations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE dataset = ?", name); err != nil {
			return 0, err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
