package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"facility-backend/apperrors"
	"facility-backend/models"
	"facility-backend/services"
	"facility-backend/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sp(s string) *string { return &s }

func newTestRunner(t *testing.T) (*Runner, *store.MemoryStore, *Metrics) {
	t.Helper()
	s := store.NewMemoryStore()
	s.SeedProjector(
		models.ProjectorRoom{DepartmentName: "Хирургия", RoomName: "Операционная 1", EquipmentName: sp("Стол")},
		models.ProjectorRoom{DepartmentName: "Хирургия", RoomName: "Операционная 2"},
	)
	s.SeedTurar(models.TurarRoom{Department: "Surgery", Room: "OR-1"})

	log := zap.NewNop()
	mappings := services.NewMappingService(s, log)
	_, err := mappings.Create(context.Background(), "Хирургия", "Surgery")
	require.NoError(t, err)

	metrics := NewMetrics(prometheus.NewRegistry())
	r := NewRunner(
		mappings,
		services.NewStagingService(s, log),
		services.NewReconcileService(s, log, services.EngineOptions{}),
		NewLocalLocker(),
		metrics,
		log,
		time.Minute,
	)
	return r, s, metrics
}

func TestRunner_LinkThenDiscover(t *testing.T) {
	r, _, metrics := newTestRunner(t)
	ctx := context.Background()

	rep := r.Run(ctx, KindLink, Options{})
	require.Equal(t, StatusSucceeded, rep.Status, rep.Error)
	link := rep.Summary.(*LinkAllSummary)
	assert.Equal(t, 1, link.ProcessedMappings)
	assert.EqualValues(t, 2, link.RowsA)
	assert.EqualValues(t, 1, link.RowsB)

	rep = r.Run(ctx, KindDiscover, Options{Limit: 10})
	require.Equal(t, StatusSucceeded, rep.Status, rep.Error)
	sum := rep.Summary.(*services.DiscoverySummary)
	assert.Equal(t, 1, sum.Created)
	assert.NotEmpty(t, rep.ID)
	assert.False(t, rep.FinishedAt.Before(rep.StartedAt))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("discover", "succeeded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.running.WithLabelValues("discover")))
}

func TestRunner_MaterializeWithClear(t *testing.T) {
	r, s, _ := newTestRunner(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rep := r.Run(ctx, KindMaterialize, Options{ClearStaging: true})
		require.Equal(t, StatusSucceeded, rep.Status, rep.Error)
		sum := rep.Summary.(*services.MaterializeAllSummary)
		assert.Equal(t, 1, sum.ProcessedMappings)
		assert.EqualValues(t, 2, sum.TotalARows)
		assert.EqualValues(t, 1, sum.TotalBRows)
	}

	rows, err := s.ListStaging(ctx, models.SideA, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRunner_EngineFailureBecomesFailedStatus(t *testing.T) {
	r, s, metrics := newTestRunner(t)
	s.InjectFault("ListConnections", errors.New("db down"))

	rep := r.Run(context.Background(), KindDiscover, Options{})

	assert.Equal(t, StatusFailed, rep.Status)
	assert.Contains(t, rep.Error, "db down")
	assert.True(t, apperrors.IsPersistence(rep.Err()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("discover", "failed")))

	// the lock was released
	rep = r.Run(context.Background(), KindLink, Options{})
	assert.Equal(t, StatusSucceeded, rep.Status)
}

func TestRunner_BusyWhileLockHeld(t *testing.T) {
	r, _, metrics := newTestRunner(t)
	ctx := context.Background()
	lease, err := r.Lock.Acquire(ctx, LockKey, time.Minute)
	require.NoError(t, err)

	rep := r.Run(ctx, KindMaterialize, Options{})
	assert.Equal(t, StatusBusy, rep.Status)
	assert.ErrorIs(t, rep.Err(), apperrors.ErrBusy)
	assert.Nil(t, rep.Summary)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("materialize", "busy")))

	require.NoError(t, lease.Release(ctx))
	rep = r.Run(ctx, KindMaterialize, Options{})
	assert.Equal(t, StatusSucceeded, rep.Status)
}

func TestRunner_UnknownKind(t *testing.T) {
	r, _, _ := newTestRunner(t)

	rep := r.Run(context.Background(), Kind("compact"), Options{})
	assert.Equal(t, StatusFailed, rep.Status)
	assert.True(t, apperrors.IsValidation(rep.Err()))
}

func TestReport_JobRun(t *testing.T) {
	r, _, _ := newTestRunner(t)

	rep := r.Run(context.Background(), KindLink, Options{})
	run, err := rep.JobRun()
	require.NoError(t, err)
	assert.Equal(t, rep.ID, run.ID)
	assert.Equal(t, "link", run.Kind)
	assert.Equal(t, "succeeded", run.Status)

	var sum LinkAllSummary
	require.NoError(t, json.Unmarshal(run.Summary, &sum))
	assert.Equal(t, 1, sum.ProcessedMappings)

	failed := &Report{ID: "x", Kind: KindMaterialize, Status: StatusFailed, Summary: (*services.MaterializeAllSummary)(nil)}
	run, err = failed.JobRun()
	require.NoError(t, err)
	assert.Nil(t, run.Summary)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind(" Discover ")
	assert.True(t, ok)
	assert.Equal(t, KindDiscover, k)

	_, ok = ParseKind("reset")
	assert.False(t, ok)
}
