// Package inventory stores life cycle inventory databases in SQLite, one
// JSON encoded activity per row.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	premise "github.com/polca/premise-sub000"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var ErrEmpty = errors.New("database has no activities")

type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// scenario databases are clones of their baseline and share its codes
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS activities (
		database TEXT NOT NULL,
		code TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (database, code)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create activities table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Databases lists the names of the databases held by the store.
func (s *Store) Databases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT database FROM activities ORDER BY database`)
	if err != nil {
		return nil, fmt.Errorf("select databases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Load reads every activity of the named database, in insertion order.
func (s *Store) Load(ctx context.Context, name string) (*premise.Database, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM activities WHERE database = ? ORDER BY rowid`, name)
	if err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	activities := make([]*premise.Activity, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		a := new(premise.Activity)
		if err := json.Unmarshal(payload, a); err != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrEmpty, name, s.path)
	}

	slog.Debug("database loaded", "database", name, "path", s.path, "activities", len(activities))
	return premise.NewDatabase(name, activities), nil
}

// Save replaces the named database content with db in a single
// transaction. Activities are stored under db.Name; other databases are
// left untouched, even when they share activity codes.
func (s *Store) Save(ctx context.Context, db *premise.Database) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE database = ?`, db.Name); err != nil {
		return fmt.Errorf("clear %s: %w", db.Name, err)
	}
	for _, a := range db.Activities() {
		a.Database = db.Name
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode %s: %w", a.Key(), err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO activities(database,code,payload) VALUES(?,?,?)`, db.Name, a.Code, payload); err != nil {
			return fmt.Errorf("insert %s: %w", a.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Debug("database saved", "database", db.Name, "path", s.path, "activities", db.Len())
	return nil
}
