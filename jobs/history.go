package jobs

import (
	"context"

	"facility-backend/models"
	"facility-backend/store"

	"go.uber.org/zap"
)

// DefaultHistoryLimit is how many runs History returns when asked for none.
const DefaultHistoryLimit = 50

// History keeps the outcome of every job run.
type History struct {
	Store store.JobStore
	Log   *zap.Logger
}

func NewHistory(s store.JobStore, log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{Store: s, Log: log}
}

// Record stores rep. A failure is logged and returned; the run itself already
// happened and its report stays valid.
func (h *History) Record(ctx context.Context, rep *Report) error {
	run, err := rep.JobRun()
	if err == nil {
		err = h.Store.RecordJob(ctx, run)
	}
	if err != nil {
		h.Log.Error("failed to record job run", zap.String("job_id", rep.ID), zap.Error(err))
	}
	return err
}

// Recent lists the latest runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]models.JobRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return h.Store.ListJobs(ctx, limit)
}
