package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const RunsSchema = `
	CREATE TABLE IF NOT EXISTS assessment_runs (
		id TEXT PRIMARY KEY,
		dataset TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);
`

const StagesSchema = `
	CREATE TABLE IF NOT EXISTS assessment_stages (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, seq)
	);
`

const ResultsSchema = `
	CREATE TABLE IF NOT EXISTS assessment_results (
		run_id TEXT PRIMARY KEY,
		dataset TEXT NOT NULL,
		generated_at TIMESTAMP NOT NULL,
		overall_score INTEGER NOT NULL,
		grade TEXT NOT NULL,
		status TEXT NOT NULL,
		details TEXT NOT NULL
	);
`

const ResultsIndex = `
	CREATE INDEX IF NOT EXISTS idx_results_dataset_time
	ON assessment_results (dataset, generated_at);
`

const WorkflowSchema = `
	CREATE TABLE IF NOT EXISTS workflow_state (
		profile TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		last_processed_at TIMESTAMP NULL,
		last_run_id TEXT NULL,
		error TEXT NULL
	);
`

var bootQueries = []string{
	RunsSchema,
	StagesSchema,
	ResultsSchema,
	ResultsIndex,
	WorkflowSchema,
}

type Settings struct {
	DbPath string
}

// NewDB opens (creating if needed) the assessment database and applies
// the boot schema.
func NewDB(settings Settings) (*sql.DB, error) {
	if settings.DbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite", settings.DbPath)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA busy_timeout = 5000;`,
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}
	for _, query := range bootQueries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("boot schema: %w", err)
		}
	}
	return db, nil
}
