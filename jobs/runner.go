// Package jobs runs the long reconciliation batches outside the request path
// and reports their outcome. It holds no state between runs.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"facility-backend/apperrors"
	"facility-backend/models"
	"facility-backend/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindMaterialize Kind = "materialize"
	KindLink        Kind = "link"
	KindDiscover    Kind = "discover"
)

func ParseKind(raw string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindMaterialize, KindLink, KindDiscover:
		return k, true
	}
	return "", false
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusBusy      Status = "busy"
)

// LockKey guards every job kind: at most one bulk job runs at a time.
const LockKey = "facility:jobs:lock"

const DefaultLockTTL = 10 * time.Minute

type Options struct {
	// Limit caps the connections a discovery run creates (0 = engine default).
	Limit int
	// ClearStaging deletes each mapping's staging rows before materializing.
	ClearStaging bool
}

// Report is what a job run hands back to its caller.
type Report struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Summary    any       `json:"summary,omitempty"`
	Error      string    `json:"error,omitempty"`

	err error
}

// Err is the failure behind a failed or busy report.
func (r *Report) Err() error {
	return r.err
}

// JobRun converts the report into its history row.
func (r *Report) JobRun() (*models.JobRun, error) {
	run := &models.JobRun{
		ID:         r.ID,
		Kind:       string(r.Kind),
		Status:     string(r.Status),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Error:      r.Error,
	}
	if r.Summary != nil {
		raw, err := json.Marshal(r.Summary)
		if err != nil {
			return nil, fmt.Errorf("encode job summary: %w", err)
		}
		if string(raw) != "null" {
			run.Summary = datatypes.JSON(raw)
		}
	}
	return run, nil
}

type LinkAllSummary struct {
	ProcessedMappings int    `json:"processedMappings"`
	RowsA             int64  `json:"rowsA"`
	RowsB             int64  `json:"rowsB"`
	FailedMappings    []uint `json:"failedMappings,omitempty"`
}

type Runner struct {
	Mappings *services.MappingService
	Staging  *services.StagingService
	Engine   *services.ReconcileService
	Lock     Locker
	Metrics  *Metrics
	Log      *zap.Logger
	LockTTL  time.Duration

	now func() time.Time
}

func NewRunner(
	mappings *services.MappingService,
	staging *services.StagingService,
	engine *services.ReconcileService,
	lock Locker,
	metrics *Metrics,
	log *zap.Logger,
	lockTTL time.Duration,
) *Runner {
	if lock == nil {
		lock = NewLocalLocker()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &Runner{
		Mappings: mappings,
		Staging:  staging,
		Engine:   engine,
		Lock:     lock,
		Metrics:  metrics,
		Log:      log,
		LockTTL:  lockTTL,
		now:      time.Now,
	}
}

// Run executes one job synchronously. Engine failures end up in the report
// as StatusFailed; a held lock gives StatusBusy without running anything.
func (r *Runner) Run(ctx context.Context, kind Kind, opts Options) *Report {
	rep := &Report{ID: uuid.NewString(), Kind: kind, StartedAt: r.now()}
	log := r.Log.With(zap.String("job_id", rep.ID), zap.String("kind", string(kind)))

	lease, err := r.Lock.Acquire(ctx, LockKey, r.LockTTL)
	if err != nil {
		rep.FinishedAt = r.now()
		rep.err = err
		rep.Error = err.Error()
		rep.Status = StatusFailed
		if errors.Is(err, apperrors.ErrBusy) {
			rep.Status = StatusBusy
		}
		r.Metrics.notStarted(kind, rep.Status)
		log.Warn("job not started", zap.String("status", string(rep.Status)), zap.Error(err))
		return rep
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Error("failed to release job lock", zap.Error(err))
		}
	}()

	r.Metrics.started(kind)
	log.Info("job started")

	rep.Summary, rep.err = r.execute(ctx, kind, opts)

	rep.FinishedAt = r.now()
	took := rep.FinishedAt.Sub(rep.StartedAt)
	if rep.err != nil {
		rep.Status = StatusFailed
		rep.Error = rep.err.Error()
		log.Error("job failed", zap.Duration("took", took), zap.Error(rep.err))
	} else {
		rep.Status = StatusSucceeded
		log.Info("job finished", zap.Duration("took", took))
	}
	r.Metrics.finished(kind, rep.Status, took)
	return rep
}

func (r *Runner) execute(ctx context.Context, kind Kind, opts Options) (any, error) {
	switch kind {
	case KindMaterialize:
		if opts.ClearStaging {
			if err := r.clearStaging(ctx); err != nil {
				return nil, err
			}
		}
		return r.Staging.MaterializeAll(ctx)
	case KindLink:
		return r.LinkAllDepartments(ctx)
	case KindDiscover:
		return r.Engine.AutoDiscoverConnections(ctx, opts.Limit)
	}
	return nil, apperrors.NewValidationError("kind", fmt.Sprintf("unknown job kind %q", kind))
}

func (r *Runner) clearStaging(ctx context.Context) error {
	mappings, err := r.Mappings.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range mappings {
		if _, err := r.Staging.Clear(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// LinkAllDepartments applies the department link of every mapping, skipping
// mappings whose link fails.
func (r *Runner) LinkAllDepartments(ctx context.Context) (*LinkAllSummary, error) {
	mappings, err := r.Mappings.List(ctx)
	if err != nil {
		return nil, err
	}
	sum := &LinkAllSummary{}
	for _, m := range mappings {
		res, err := r.Engine.LinkDepartments(ctx, m.ID)
		if res != nil {
			sum.RowsA += res.RowsA
			sum.RowsB += res.RowsB
		}
		if err != nil {
			r.Log.Error("skipping mapping link", zap.Uint("mapping_id", m.ID), zap.Error(err))
			sum.FailedMappings = append(sum.FailedMappings, m.ID)
			continue
		}
		sum.ProcessedMappings++
	}
	return sum, nil
}
