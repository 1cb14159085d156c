package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/shellform/shellform/pkg/value"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrResourceNotFound is returned when a resource name is not tracked.
var ErrResourceNotFound = errors.New("resource not found")

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// State files are touched by a single CLI process; keep the pool small.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveResource inserts or replaces the record for rec.Name.
func (s *SQLiteStore) SaveResource(ctx context.Context, rec *ResourceRecord) error {
	inputs, err := encodeValues(rec.Inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}
	outputs, err := encodeValues(rec.Outputs)
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}

	var version sql.NullInt64
	if rec.Version != nil {
		version = sql.NullInt64{Int64: *rec.Version, Valid: true}
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO resources (name, resource_id, inputs, outputs, version, declaration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			resource_id = excluded.resource_id,
			inputs = excluded.inputs,
			outputs = excluded.outputs,
			version = excluded.version,
			declaration = excluded.declaration,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.Name,
		rec.ID,
		inputs,
		outputs,
		version,
		[]byte(rec.Declaration),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save resource: %w", err)
	}
	return nil
}

// GetResource retrieves a record by resource name.
func (s *SQLiteStore) GetResource(ctx context.Context, name string) (*ResourceRecord, error) {
	query := `
		SELECT name, resource_id, inputs, outputs, version, declaration, created_at, updated_at
		FROM resources
		WHERE name = ?
	`
	rec, err := scanResource(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return rec, nil
}

// DeleteResource removes a record; deleting an unknown name is an error.
func (s *SQLiteStore) DeleteResource(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	if n == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// ListResources returns every tracked record ordered by name.
func (s *SQLiteStore) ListResources(ctx context.Context) ([]*ResourceRecord, error) {
	query := `
		SELECT name, resource_id, inputs, outputs, version, declaration, created_at, updated_at
		FROM resources
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var recs []*ResourceRecord
	for rows.Next() {
		rec, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list resources: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*ResourceRecord, error) {
	rec := &ResourceRecord{}
	var inputs, outputs, declaration []byte
	var version sql.NullInt64

	if err := row.Scan(&rec.Name, &rec.ID, &inputs, &outputs, &version, &declaration, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Declaration = declaration

	var err error
	if rec.Inputs, err = decodeValues(inputs); err != nil {
		return nil, fmt.Errorf("failed to decode inputs: %w", err)
	}
	if rec.Outputs, err = decodeValues(outputs); err != nil {
		return nil, fmt.Errorf("failed to decode outputs: %w", err)
	}
	if version.Valid {
		rec.Version = &version.Int64
	}
	return rec, nil
}

// encodeValues serializes a tri-state string map as JSON. Known values
// become strings and Null values become JSON null. Unknown values never
// reach the store: persistence only happens after a completed step.
func encodeValues(m map[string]value.String) ([]byte, error) {
	out := make(map[string]*string, len(m))
	for k, v := range m {
		if v.IsUnknown() {
			return nil, fmt.Errorf("value for %q is unresolved", k)
		}
		if s, ok := v.Get(); ok {
			out[k] = &s
		} else {
			out[k] = nil
		}
	}
	return json.Marshal(out)
}

func decodeValues(data []byte) (map[string]value.String, error) {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]value.String, len(raw))
	for k, v := range raw {
		if v == nil {
			out[k] = value.Null[string]()
		} else {
			out[k] = value.Known(*v)
		}
	}
	return out, nil
}
