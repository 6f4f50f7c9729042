/*
Package sqlite provides a SQLite-backed implementation of the timeline stores.

PURPOSE:
  Implements timeline.Store and timeline.ProjectStore using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  timeline.Store:        GetProject, List, BatchUpdate
  timeline.ProjectStore: SaveProject, ListProjects, DeleteProject

BATCH SEMANTICS:
  BatchUpdate runs in one SQL transaction:
  - Rows for ids missing from the batch are deleted
  - Rows with empty or temporary ids are inserted with a new UUID
  - Known rows are updated in place
  A phase id owned by another project aborts the whole batch.

KEY TABLES:
  projects: Timeline bounds and currency
  phases:   One row per active phase; budgets stored as decimal strings

INDEXES:
  - idx_phases_project_start: Sorted load of a project's timeline (hot path)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/timeline.db", sqlite.WithLogger(logger))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - timeline/store.go: Interface definitions
  - timeline/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/warp/timeline-engine/generic"
	"github.com/warp/timeline-engine/timeline"
)

// Store implements the timeline storage interfaces using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store.logger.Debug("sqlite store ready", zap.String("path", dbPath))
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS phases (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		capital_budget TEXT NOT NULL DEFAULT '0',
		expense_budget TEXT NOT NULL DEFAULT '0',
		total_budget TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_phases_project_start
		ON phases(project_id, start_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PROJECT STORE
// =============================================================================

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(ctx context.Context, p timeline.Project) error {
	if !p.Period().IsValid() {
		return generic.ErrInvalidPeriod
	}
	if p.Currency == "" {
		p.Currency = generic.DefaultCurrency
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO projects (id, name, start_date, end_date, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			currency = excluded.currency,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.StartDate.String(), p.EndDate.String(), p.Currency, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id generic.ProjectID) (*timeline.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProject(ctx, s.db, id)
}

func (s *Store) getProject(ctx context.Context, q querier, id generic.ProjectID) (*timeline.Project, error) {
	var (
		p          timeline.Project
		start, end string
		currency   string
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, name, start_date, end_date, currency FROM projects WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &start, &end, &currency)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "project", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p.Currency = generic.Currency(currency)
	if p.StartDate, err = generic.ParseTimePoint(start); err != nil {
		return nil, err
	}
	if p.EndDate, err = generic.ParseTimePoint(end); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all projects.
func (s *Store) ListProjects(ctx context.Context) ([]timeline.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, start_date, end_date, currency FROM projects ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []timeline.Project
	for rows.Next() {
		var (
			p          timeline.Project
			start, end string
			currency   string
		)
		if err := rows.Scan(&p.ID, &p.Name, &start, &end, &currency); err != nil {
			return nil, err
		}
		p.Currency = generic.Currency(currency)
		p.StartDate, _ = generic.ParseTimePoint(start)
		p.EndDate, _ = generic.ParseTimePoint(end)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and, by cascade, its phases.
func (s *Store) DeleteProject(ctx context.Context, id generic.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

// =============================================================================
// PHASE STORE (timeline.Store interface)
// =============================================================================

// List returns a project's phases sorted by start date.
func (s *Store) List(ctx context.Context, projectID generic.ProjectID) (timeline.PhaseSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, err := s.getProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	return s.listPhases(ctx, s.db, *project)
}

func (s *Store) listPhases(ctx context.Context, q querier, project timeline.Project) (timeline.PhaseSet, error) {
	query := `
		SELECT id, project_id, name, description, start_date, end_date,
		       capital_budget, expense_budget, total_budget
		FROM phases
		WHERE project_id = ?
		ORDER BY start_date ASC, id ASC
	`

	rows, err := q.QueryContext(ctx, query, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query phases: %w", err)
	}
	defer rows.Close()

	phases := timeline.PhaseSet{}
	for rows.Next() {
		p, err := scanPhase(rows, project.Currency)
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

func scanPhase(rows *sql.Rows, currency generic.Currency) (timeline.Phase, error) {
	var (
		p                       timeline.Phase
		description             sql.NullString
		start, end              string
		capital, expense, total string
	)

	err := rows.Scan(
		&p.ID, &p.ProjectID, &p.Name, &description, &start, &end,
		&capital, &expense, &total,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan phase: %w", err)
	}

	p.Description = description.String
	if p.StartDate, err = generic.ParseTimePoint(start); err != nil {
		return p, err
	}
	if p.EndDate, err = generic.ParseTimePoint(end); err != nil {
		return p, err
	}
	if p.CapitalBudget, err = generic.ParseAmount(capital, currency); err != nil {
		return p, err
	}
	if p.ExpenseBudget, err = generic.ParseAmount(expense, currency); err != nil {
		return p, err
	}
	if p.TotalBudget, err = generic.ParseAmount(total, currency); err != nil {
		return p, err
	}
	return p, nil
}

// BatchUpdate atomically replaces a project's phases.
func (s *Store) BatchUpdate(ctx context.Context, projectID generic.ProjectID, phases timeline.PhaseSet) (timeline.PhaseSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	project, err := s.getProject(ctx, sqlTx, projectID)
	if err != nil {
		return nil, err
	}

	keep := make([]any, 0, len(phases))
	for _, p := range phases {
		if p.IsTemporary() || p.Deleted {
			continue
		}
		var owner generic.ProjectID
		err := sqlTx.QueryRowContext(ctx, "SELECT project_id FROM phases WHERE id = ?", p.ID).Scan(&owner)
		if err == nil && owner != projectID {
			return nil, fmt.Errorf("phase %s: %w", p.ID, generic.ErrForeignPhase)
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check phase owner: %w", err)
		}
		keep = append(keep, p.ID)
	}

	if err := deleteMissing(ctx, sqlTx, projectID, keep); err != nil {
		return nil, err
	}

	created := 0
	for _, p := range phases {
		if p.Deleted {
			continue
		}
		if p.IsTemporary() {
			p.ID = generic.PhaseID(uuid.NewString())
			created++
		}
		p.ProjectID = projectID
		if err := upsertPhase(ctx, sqlTx, p); err != nil {
			return nil, err
		}
	}

	saved, err := s.listPhases(ctx, sqlTx, *project)
	if err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	s.logger.Info("phases saved",
		zap.String("project_id", string(projectID)),
		zap.Int("phases", len(saved)),
		zap.Int("created", created),
	)
	return saved, nil
}

func deleteMissing(ctx context.Context, db execer, projectID generic.ProjectID, keep []any) error {
	query := "DELETE FROM phases WHERE project_id = ?"
	args := []any{projectID}
	if len(keep) > 0 {
		query += " AND id NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
		args = append(args, keep...)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete removed phases: %w", err)
	}
	return nil
}

func upsertPhase(ctx context.Context, db execer, p timeline.Phase) error {
	query := `
		INSERT INTO phases
		(id, project_id, name, description, start_date, end_date,
		 capital_budget, expense_budget, total_budget, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			capital_budget = excluded.capital_budget,
			expense_budget = excluded.expense_budget,
			total_budget = excluded.total_budget,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, query,
		p.ID,
		p.ProjectID,
		p.Name,
		nullString(p.Description),
		p.StartDate.String(),
		p.EndDate.String(),
		p.CapitalBudget.Value.String(),
		p.ExpenseBudget.Value.String(),
		p.TotalBudget.Value.String(),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save phase %s: %w", p.ID, err)
	}
	return nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"phases", "projects"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ timeline.ProjectStore = (*Store)(nil)
