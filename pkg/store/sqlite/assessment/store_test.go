package assessment

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/vision-audit/pkg/models/store"
	"github.com/de-tools/vision-audit/pkg/store/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.NewDB(sqlite.Settings{
		DbPath: filepath.Join(t.TempDir(), "audit.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func resultAt(runID, dataset string, score int, at time.Time) store.AssessmentResult {
	return store.AssessmentResult{
		RunID:        runID,
		Dataset:      dataset,
		GeneratedAt:  at,
		OverallScore: score,
		Grade:        "B",
		Status:       "succeeded",
		Details:      []byte(`{"dimensions":[],"issues":[],"recommendations":[]}`),
	}
}

func TestStore_SaveAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(newTestDB(t))
	require.NoError(t, err)

	started := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	run := store.AssessmentRun{
		ID:         "run-1",
		Dataset:    "traffic-signs",
		Mode:       "comprehensive",
		Status:     "succeeded",
		StartedAt:  started,
		FinishedAt: started.Add(12 * time.Second),
	}
	stages := []store.StageRecord{
		{RunID: "run-1", Seq: 0, Name: "data-loading", Status: "succeeded", StartedAt: started, DurationMs: 900},
		{RunID: "run-1", Seq: 1, Name: "image-analysis", Status: "failed", StartedAt: started.Add(time.Second), DurationMs: 4000, Error: "decode failures"},
	}
	require.NoError(t, s.SaveRun(ctx, run, stages))
	require.NoError(t, s.SaveResult(ctx, resultAt("run-1", "traffic-signs", 81, started.Add(12*time.Second))))

	gotRun, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, gotRun.ID)
	assert.Equal(t, run.Mode, gotRun.Mode)
	assert.WithinDuration(t, run.StartedAt, gotRun.StartedAt, time.Second)

	gotStages, err := s.GetStages(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, gotStages, 2)
	assert.Equal(t, "data-loading", gotStages[0].Name)
	assert.Equal(t, int64(4000), gotStages[1].DurationMs)
	assert.Equal(t, "decode failures", gotStages[1].Error)

	gotResult, err := s.GetResult(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 81, gotResult.OverallScore)
	assert.Equal(t, "B", gotResult.Grade)
	assert.JSONEq(t, `{"dimensions":[],"issues":[],"recommendations":[]}`, string(gotResult.Details))
}

func TestStore_LatestListAndHistory(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(newTestDB(t))
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveResult(ctx, resultAt("run-1", "traffic-signs", 62, base)))
	require.NoError(t, s.SaveResult(ctx, resultAt("run-2", "traffic-signs", 70, base.AddDate(0, 0, 1))))
	require.NoError(t, s.SaveResult(ctx, resultAt("run-3", "traffic-signs", 77, base.AddDate(0, 0, 2))))
	require.NoError(t, s.SaveResult(ctx, resultAt("run-x", "aerial", 90, base)))

	latest, err := s.LatestResult(ctx, "traffic-signs")
	require.NoError(t, err)
	assert.Equal(t, "run-3", latest.RunID)

	listed, err := s.ListResults(ctx, "traffic-signs", 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "run-3", listed[0].RunID)
	assert.Equal(t, "run-2", listed[1].RunID)

	history, err := s.ResultHistory(ctx, "traffic-signs", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-2", history[0].RunID)
	assert.Equal(t, "run-3", history[1].RunID)
	assert.Equal(t, 77, history[1].OverallScore)

	full, err := s.ResultHistory(ctx, "traffic-signs", 0)
	require.NoError(t, err)
	require.Len(t, full, 3)
	assert.Equal(t, "run-1", full[0].RunID)
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(newTestDB(t))
	require.NoError(t, err)

	_, err = s.GetRun(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetResult(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LatestResult(ctx, "ghost-dataset")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_WritesRespectBoundTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s, err := NewStore(db)
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	txCtx := sqlite.WithTransaction(ctx, tx)

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveResult(txCtx, resultAt("run-tx", "traffic-signs", 55, at)))
	require.NoError(t, tx.Rollback())

	_, err = s.GetResult(ctx, "run-tx")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_QueryErrorPropagates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM assessment_results").
		WillReturnError(errors.New("disk I/O error"))

	s, err := NewStore(db)
	require.NoError(t, err)

	_, err = s.ListResults(context.Background(), "traffic-signs", 10)
	assert.ErrorContains(t, err, "query results")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStore_NilDB(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}
