package workflow

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

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

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(newTestDB(t))
	require.NoError(t, err)

	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateWorkflow(ctx, &store.Workflow{Profile: "traffic-signs", CreatedAt: created}))

	wf, err := s.GetWorkflow(ctx, "traffic-signs")
	require.NoError(t, err)
	assert.Equal(t, "traffic-signs", wf.Profile)
	assert.Nil(t, wf.LastProcessedAt)
	assert.Nil(t, wf.LastRunID)
	assert.Nil(t, wf.Error)

	// Registering the same profile again keeps the original row.
	require.NoError(t, s.CreateWorkflow(ctx, &store.Workflow{Profile: "traffic-signs", CreatedAt: created.Add(time.Hour)}))
	again, err := s.GetWorkflow(ctx, "traffic-signs")
	require.NoError(t, err)
	assert.WithinDuration(t, created, again.CreatedAt, time.Second)
}

func TestStore_ProgressAndError(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(newTestDB(t))
	require.NoError(t, err)

	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateWorkflow(ctx, &store.Workflow{Profile: "aerial", CreatedAt: created}))

	require.NoError(t, s.RecordError(ctx, "aerial", "dataset path vanished"))
	wf, err := s.GetWorkflow(ctx, "aerial")
	require.NoError(t, err)
	require.NotNil(t, wf.Error)
	assert.Equal(t, "dataset path vanished", *wf.Error)

	processed := created.Add(30 * time.Minute)
	require.NoError(t, s.ProgressWorkflow(ctx, "aerial", "run-9", processed))
	wf, err = s.GetWorkflow(ctx, "aerial")
	require.NoError(t, err)
	require.NotNil(t, wf.LastRunID)
	assert.Equal(t, "run-9", *wf.LastRunID)
	require.NotNil(t, wf.LastProcessedAt)
	assert.WithinDuration(t, processed, *wf.LastProcessedAt, time.Second)
	assert.Nil(t, wf.Error, "a successful pass clears the stored error")
}

func TestStore_MissingProfile(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(newTestDB(t))
	require.NoError(t, err)

	_, err = s.GetWorkflow(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.ProgressWorkflow(ctx, "ghost", "run-1", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.RecordError(ctx, "ghost", "boom")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListOrdered(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(newTestDB(t))
	require.NoError(t, err)

	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for _, profile := range []string{"zebra", "aerial", "traffic-signs"} {
		require.NoError(t, s.CreateWorkflow(ctx, &store.Workflow{Profile: profile, CreatedAt: created}))
	}

	workflows, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 3)
	assert.Equal(t, "aerial", workflows[0].Profile)
	assert.Equal(t, "zebra", workflows[2].Profile)
}
