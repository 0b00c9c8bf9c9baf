package services

import (
	"context"

	"facility-backend/models"
	"facility-backend/store"

	"go.uber.org/zap"
)

// stagingStore is what the materializer needs from storage.
type stagingStore interface {
	Inventory(side models.Side) store.InventoryStore
	store.MappingStore
	store.StagingStore
}

// StagingService copies the inventory rows a mapping covers into the staging
// tables for reporting.
type StagingService struct {
	Store stagingStore
	Log   *zap.Logger
}

func NewStagingService(s stagingStore, log *zap.Logger) *StagingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &StagingService{Store: s, Log: log}
}

type MaterializeResult struct {
	MappingID     uint  `json:"mappingId"`
	ARowsInserted int64 `json:"aRowsInserted"`
	BRowsInserted int64 `json:"bRowsInserted"`
	Steps         Steps `json:"steps"`
}

type MaterializeAllSummary struct {
	ProcessedMappings int    `json:"processedMappings"`
	TotalARows        int64  `json:"totalARows"`
	TotalBRows        int64  `json:"totalBRows"`
	FailedMappings    []uint `json:"failedMappings,omitempty"`
}

type ClearStagingResult struct {
	MappingID    uint  `json:"mappingId"`
	ARowsDeleted int64 `json:"aRowsDeleted"`
	BRowsDeleted int64 `json:"bRowsDeleted"`
	Steps        Steps `json:"steps"`
}

// Materialize inserts staging copies of every A row whose department contains
// the mapping's A department (case-insensitive), then likewise for B. The two
// inserts are independent: a failing B insert leaves the A rows in place.
// Running it twice without Clear duplicates the rows.
func (s *StagingService) Materialize(ctx context.Context, mapping models.DepartmentMapping) (*MaterializeResult, error) {
	res := &MaterializeResult{MappingID: mapping.ID}

	fetched := map[models.Side][]models.StagingRow{}
	for _, side := range []models.Side{models.SideA, models.SideB} {
		recs, err := s.Store.Inventory(side).FindByDepartmentContains(ctx, mapping.DepartmentFor(side))
		if err != nil {
			res.Steps.Record("fetch "+string(side)+" rows", 0, err)
			continue
		}
		rows := make([]models.StagingRow, len(recs))
		for i, rec := range recs {
			rows[i] = models.NewStagingRow(mapping.ID, rec)
		}
		fetched[side] = rows
	}

	for _, side := range []models.Side{models.SideA, models.SideB} {
		rows, ok := fetched[side]
		if !ok {
			continue
		}
		step := "insert " + string(side) + " staging rows"
		if len(rows) == 0 {
			res.Steps.Skip(step)
			continue
		}
		n, err := s.Store.InsertStaging(ctx, side, rows)
		n = res.Steps.Record(step, n, err)
		if side == models.SideA {
			res.ARowsInserted = n
		} else {
			res.BRowsInserted = n
		}
	}

	log := s.Log.With(zap.Uint("mapping_id", mapping.ID))
	if err := res.Steps.Err("materialize mapping"); err != nil {
		log.Warn("materialize incomplete",
			zap.Int64("a_rows", res.ARowsInserted),
			zap.Int64("b_rows", res.BRowsInserted),
			zap.Strings("failed_steps", res.Steps.Failed()),
			zap.Error(err))
		return res, err
	}
	log.Info("mapping materialized",
		zap.Int64("a_rows", res.ARowsInserted),
		zap.Int64("b_rows", res.BRowsInserted))
	return res, nil
}

// MaterializeAll materializes every mapping in registry order. A failing
// mapping is logged and skipped; rows it did insert still count in the totals.
// Only a failure to list the mappings fails the whole call.
func (s *StagingService) MaterializeAll(ctx context.Context) (*MaterializeAllSummary, error) {
	mappings, err := s.Store.ListMappings(ctx)
	if err != nil {
		return nil, err
	}

	sum := &MaterializeAllSummary{}
	for _, m := range mappings {
		res, err := s.Materialize(ctx, m)
		if res != nil {
			sum.TotalARows += res.ARowsInserted
			sum.TotalBRows += res.BRowsInserted
		}
		if err != nil {
			s.Log.Error("skipping mapping", zap.Uint("mapping_id", m.ID), zap.Error(err))
			sum.FailedMappings = append(sum.FailedMappings, m.ID)
			continue
		}
		sum.ProcessedMappings++
	}

	s.Log.Info("materialize all finished",
		zap.Int("mappings", len(mappings)),
		zap.Int("processed", sum.ProcessedMappings),
		zap.Int64("total_a_rows", sum.TotalARows),
		zap.Int64("total_b_rows", sum.TotalBRows))
	return sum, nil
}

// Clear deletes the staging rows of a mapping on both sides.
func (s *StagingService) Clear(ctx context.Context, mappingID uint) (*ClearStagingResult, error) {
	res := &ClearStagingResult{MappingID: mappingID}
	n, err := s.Store.ClearStaging(ctx, models.SideA, mappingID)
	res.ARowsDeleted = res.Steps.Record("clear projector staging rows", n, err)
	n, err = s.Store.ClearStaging(ctx, models.SideB, mappingID)
	res.BRowsDeleted = res.Steps.Record("clear turar staging rows", n, err)

	if err := res.Steps.Err("clear staging"); err != nil {
		return res, err
	}
	s.Log.Info("staging cleared",
		zap.Uint("mapping_id", mappingID),
		zap.Int64("a_rows", res.ARowsDeleted),
		zap.Int64("b_rows", res.BRowsDeleted))
	return res, nil
}

// StagingRows are the staging copies of one mapping, per inventory.
type StagingRows struct {
	Mapping models.DepartmentMapping `json:"mapping"`
	A       []models.StagingRow      `json:"a"`
	B       []models.StagingRow      `json:"b"`
}

// Rows returns the staging rows of an existing mapping.
func (s *StagingService) Rows(ctx context.Context, mappingID uint) (*StagingRows, error) {
	m, err := s.Store.GetMapping(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	a, err := s.Store.ListStaging(ctx, models.SideA, mappingID)
	if err != nil {
		return nil, err
	}
	b, err := s.Store.ListStaging(ctx, models.SideB, mappingID)
	if err != nil {
		return nil, err
	}
	return &StagingRows{Mapping: *m, A: a, B: b}, nil
}
