/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the document store (generic.DocStore) and the employee directory
  (loan.EmployeeDirectory) using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  generic.DocStore:       Path-addressed loan documents
  loan.EmployeeDirectory: Read-only employee lookup for the engine

KEY TABLES:
  documents:  One row per loan document (path → JSON blob)
  employees:  Employee master records (seeded externally, read-only to the core)

TRANSACTION PRIMITIVE:
  DocStore.Transaction maps to one SQL transaction: SELECT the current
  document, apply the caller's function, UPDATE the row, COMMIT. The
  connection is opened with _txlock=immediate and calls are additionally
  serialized with a mutex, so two racing transactions on the same path are
  strictly ordered - the second observes the first's terminal status and its
  callback fails with ConflictError before anything is written.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/loans.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := loan.NewLedger(store, store, loan.DefaultCeiling)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - generic/docstore.go: Interface definition
  - generic/docstore/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/loan-engine/generic"
	"github.com/warp/loan-engine/loan"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var (
	_ generic.DocStore       = (*Store)(nil)
	_ loan.EmployeeDirectory = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: writes are mutex-serialized anyway, and the pool
	// opening extra connections would split an in-memory database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Loan documents (path-addressed JSON blobs)
	CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Employee master (seeded externally, read-only to the engine)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		employee_code TEXT,
		name TEXT NOT NULL,
		department TEXT,
		gross_monthly TEXT NOT NULL,
		joining_date TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCSTORE - generic.DocStore implementation
// =============================================================================

func (s *Store) Create(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (path, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		path, string(data), now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, path).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, generic.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *Store) Update(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE path = ?`,
		string(data), now, path,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

// Transaction atomically applies fn to the document at path.
// One SQL transaction covers the read, the callback, and the write; if fn
// fails the transaction rolls back and the error propagates unchanged.
func (s *Store) Transaction(ctx context.Context, path string, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, path).Scan(&data)
	if err == sql.ErrNoRows {
		return generic.ErrNotFound
	}
	if err != nil {
		return err
	}

	next, err := fn([]byte(data))
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE path = ?`,
		string(next), now, path,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, data FROM documents WHERE path LIKE ? || '%'`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var path, data string
		if err := rows.Scan(&path, &data); err != nil {
			return nil, err
		}
		result[path] = []byte(data)
	}
	return result, rows.Err()
}

// =============================================================================
// EMPLOYEE DIRECTORY - loan.EmployeeDirectory + seeding helpers
// =============================================================================

// SaveEmployee upserts an employee master record. The engine itself never
// writes employees; this exists for the seeding/demo surface.
func (s *Store) SaveEmployee(ctx context.Context, emp loan.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, employee_code, name, department, gross_monthly, joining_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_code = excluded.employee_code,
			name = excluded.name,
			department = excluded.department,
			gross_monthly = excluded.gross_monthly,
			joining_date = excluded.joining_date,
			status = excluded.status`,
		string(emp.ID), emp.EmployeeID, emp.Name, emp.Department,
		emp.Salary.GrossMonthly.String(),
		emp.JoiningDate.UTC().Format(time.RFC3339),
		emp.Status,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee returns the employee, or generic.ErrNotFound.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (*loan.Employee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_code, name, department, gross_monthly, joining_date, status
		FROM employees WHERE id = ?`, string(id))
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, generic.ErrNotFound
	}
	return emp, err
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]loan.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_code, name, department, gross_monthly, joining_date, status
		FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []loan.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*loan.Employee, error) {
	var emp loan.Employee
	var id, gross, joining string
	if err := row.Scan(&id, &emp.EmployeeID, &emp.Name, &emp.Department, &gross, &joining, &emp.Status); err != nil {
		return nil, err
	}
	emp.ID = generic.EmployeeID(id)

	g, err := decimal.NewFromString(gross)
	if err != nil {
		return nil, fmt.Errorf("employee %s: invalid gross_monthly %q: %w", id, gross, err)
	}
	emp.Salary = loan.Salary{GrossMonthly: g}

	if joining != "" {
		t, err := time.Parse(time.RFC3339, joining)
		if err != nil {
			return nil, fmt.Errorf("employee %s: invalid joining_date %q: %w", id, joining, err)
		}
		emp.JoiningDate = t
	}
	return &emp, nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all data. Only used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"documents", "employees"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
