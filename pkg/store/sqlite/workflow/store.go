package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/vision-audit/pkg/models/store"
	"github.com/de-tools/vision-audit/pkg/store/sqlite"
)

var ErrNotFound = errors.New("workflow not found")

// Store keeps the durable half of the periodic re-assessment state:
// which profiles have a workflow, when each last completed, and the
// last error if the most recent attempt failed.
type Store interface {
	CreateWorkflow(ctx context.Context, workflow *store.Workflow) error
	GetWorkflow(ctx context.Context, profile string) (*store.Workflow, error)
	ListWorkflows(ctx context.Context) ([]*store.Workflow, error)
	ProgressWorkflow(ctx context.Context, profile, runID string, processedAt time.Time) error
	RecordError(ctx context.Context, profile string, cause string) error
}

type defaultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{db: db}, nil
}

func (s *defaultStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx := sqlite.GetTransaction(ctx); tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

// CreateWorkflow registers a profile; registering the same profile again
// is a no-op.
func (s *defaultStore) CreateWorkflow(ctx context.Context, workflow *store.Workflow) error {
	_, err := s.exec(ctx, `
		INSERT INTO workflow_state (profile, created_at, last_processed_at, last_run_id, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (profile) DO NOTHING`,
		workflow.Profile, workflow.CreatedAt, workflow.LastProcessedAt, workflow.LastRunID, workflow.Error,
	)
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}
	return nil
}

func (s *defaultStore) GetWorkflow(ctx context.Context, profile string) (*store.Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT profile, created_at, last_processed_at, last_run_id, error
		FROM workflow_state WHERE profile = ?`, profile)
	wf, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow %s: %w", profile, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return wf, nil
}

func (s *defaultStore) ListWorkflows(ctx context.Context) ([]*store.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile, created_at, last_processed_at, last_run_id, error
		FROM workflow_state ORDER BY profile`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	workflows := make([]*store.Workflow, 0)
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

func (s *defaultStore) ProgressWorkflow(ctx context.Context, profile, runID string, processedAt time.Time) error {
	res, err := s.exec(ctx, `
		UPDATE workflow_state
		SET last_processed_at = ?, last_run_id = ?, error = NULL
		WHERE profile = ?`,
		processedAt, runID, profile,
	)
	if err != nil {
		return fmt.Errorf("progress workflow: %w", err)
	}
	return requireRow(res, profile)
}

func (s *defaultStore) RecordError(ctx context.Context, profile string, cause string) error {
	res, err := s.exec(ctx, `UPDATE workflow_state SET error = ? WHERE profile = ?`, cause, profile)
	if err != nil {
		return fmt.Errorf("record workflow error: %w", err)
	}
	return requireRow(res, profile)
}

func requireRow(res sql.Result, profile string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("workflow %s: %w", profile, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*store.Workflow, error) {
	var (
		wf          store.Workflow
		processedAt sql.NullTime
		runID       sql.NullString
		cause       sql.NullString
	)
	if err := row.Scan(&wf.Profile, &wf.CreatedAt, &processedAt, &runID, &cause); err != nil {
		return nil, err
	}
	if processedAt.Valid {
		t := processedAt.Time
		wf.LastProcessedAt = &t
	}
	if runID.Valid {
		id := runID.String
		wf.LastRunID = &id
	}
	if cause.Valid {
		c := cause.String
		wf.Error = &c
	}
	return &wf, nil
}
