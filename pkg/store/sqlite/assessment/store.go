package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/vision-audit/pkg/models/store"
	"github.com/de-tools/vision-audit/pkg/store/sqlite"
)

// ErrNotFound is returned when no stored result matches the query.
var ErrNotFound = errors.New("assessment not found")

// Store persists pipeline runs and their quality results. Writes go
// through the transaction bound to the context when one is present.
type Store interface {
	SaveRun(ctx context.Context, run store.AssessmentRun, stages []store.StageRecord) error
	SaveResult(ctx context.Context, result store.AssessmentResult) error
	GetRun(ctx context.Context, runID string) (store.AssessmentRun, error)
	GetStages(ctx context.Context, runID string) ([]store.StageRecord, error)
	GetResult(ctx context.Context, runID string) (store.AssessmentResult, error)
	LatestResult(ctx context.Context, dataset string) (store.AssessmentResult, error)
	ListResults(ctx context.Context, dataset string, limit int) ([]store.AssessmentResult, error)
	ResultHistory(ctx context.Context, dataset string, limit int) ([]store.HistoryPoint, error)
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

func (s *defaultStore) execContext(ctx context.Context, query string, args ...any) error {
	if tx := sqlite.GetTransaction(ctx); tx != nil {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *defaultStore) SaveRun(ctx context.Context, run store.AssessmentRun, stages []store.StageRecord) error {
	err := s.execContext(ctx, `
		INSERT INTO assessment_runs (id, dataset, mode, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dataset, run.Mode, run.Status, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, stage := range stages {
		err := s.execContext(ctx, `
			INSERT INTO assessment_stages (run_id, seq, name, status, started_at, duration_ms, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			stage.RunID, stage.Seq, stage.Name, stage.Status, stage.StartedAt, stage.DurationMs, stage.Error,
		)
		if err != nil {
			return fmt.Errorf("insert stage %s: %w", stage.Name, err)
		}
	}
	return nil
}

func (s *defaultStore) SaveResult(ctx context.Context, result store.AssessmentResult) error {
	err := s.execContext(ctx, `
		INSERT INTO assessment_results (run_id, dataset, generated_at, overall_score, grade, status, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Dataset, result.GeneratedAt, result.OverallScore,
		result.Grade, result.Status, string(result.Details),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *defaultStore) GetRun(ctx context.Context, runID string) (store.AssessmentRun, error) {
	var run store.AssessmentRun
	err := s.db.QueryRowContext(ctx, `
		SELECT id, dataset, mode, status, started_at, finished_at
		FROM assessment_runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.Dataset, &run.Mode, &run.Status, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AssessmentRun{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return store.AssessmentRun{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *defaultStore) GetStages(ctx context.Context, runID string) ([]store.StageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, name, status, started_at, duration_ms, error
		FROM assessment_stages WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	records := make([]store.StageRecord, 0)
	for rows.Next() {
		var rec store.StageRecord
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Name, &rec.Status, &rec.StartedAt, &rec.DurationMs, &rec.Error); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const resultColumns = `run_id, dataset, generated_at, overall_score, grade, status, details`

func (s *defaultStore) GetResult(ctx context.Context, runID string) (store.AssessmentResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM assessment_results WHERE run_id = ?`, runID)
	rec, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AssessmentResult{}, fmt.Errorf("result for run %s: %w", runID, ErrNotFound)
	}
	return rec, err
}

func (s *defaultStore) LatestResult(ctx context.Context, dataset string) (store.AssessmentResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+` FROM assessment_results
		WHERE dataset = ? ORDER BY generated_at DESC, run_id DESC LIMIT 1`, dataset)
	rec, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AssessmentResult{}, fmt.Errorf("no results for dataset %s: %w", dataset, ErrNotFound)
	}
	return rec, err
}

func (s *defaultStore) ListResults(ctx context.Context, dataset string, limit int) ([]store.AssessmentResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+resultColumns+` FROM assessment_results
		WHERE dataset = ? ORDER BY generated_at DESC, run_id DESC LIMIT ?`, dataset, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	records := make([]store.AssessmentResult, 0)
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ResultHistory returns the last limit runs of a dataset in chronological
// order, oldest first, the shape trend analysis expects.
func (s *defaultStore) ResultHistory(ctx context.Context, dataset string, limit int) ([]store.HistoryPoint, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, generated_at, overall_score FROM assessment_results
		WHERE dataset = ? ORDER BY generated_at DESC, run_id DESC LIMIT ?`, dataset, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	points := make([]store.HistoryPoint, 0)
	for rows.Next() {
		var p store.HistoryPoint
		if err := rows.Scan(&p.RunID, &p.GeneratedAt, &p.OverallScore); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (store.AssessmentResult, error) {
	var (
		rec     store.AssessmentResult
		details string
		genAt   time.Time
	)
	err := row.Scan(&rec.RunID, &rec.Dataset, &genAt, &rec.OverallScore, &rec.Grade, &rec.Status, &details)
	if err != nil {
		return store.AssessmentResult{}, err
	}
	rec.GeneratedAt = genAt
	rec.Details = []byte(details)
	return rec, nil
}
