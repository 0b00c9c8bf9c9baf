package services

import (
	"context"
	"testing"

	"facility-backend/models"
	"facility-backend/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sp(s string) *string { return &s }
func up(u uint) *uint { return &u }
func fp(f float64) *float64 { return &f }

type fixture struct {
	store     *store.MemoryStore
	mappings  *MappingService
	staging   *StagingService
	reconcile *ReconcileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	log := zap.NewNop()
	return &fixture{
		store:     s,
		mappings:  NewMappingService(s, log),
		staging:   NewStagingService(s, log),
		reconcile: NewReconcileService(s, log, EngineOptions{}),
	}
}

func (f *fixture) mapping(t *testing.T, aDept, bDept string) *models.DepartmentMapping {
	t.Helper()
	m, err := f.mappings.Create(context.Background(), aDept, bDept)
	require.NoError(t, err)
	return m
}

func (f *fixture) get(t *testing.T, side models.Side, id uint) models.InventoryRecord {
	t.Helper()
	rec, err := f.store.Inventory(side).Get(context.Background(), id)
	require.NoError(t, err)
	return rec
}

// surgeryFixture seeds two operating rooms on A and one on B.
func surgeryFixture(t *testing.T) (*fixture, *models.DepartmentMapping) {
	t.Helper()
	f := newFixture(t)
	f.store.SeedProjector(
		models.ProjectorRoom{DepartmentName: "Хирургия", RoomName: "Операционная 1", EquipmentName: sp("Стол операционный")},
		models.ProjectorRoom{DepartmentName: "Хирургия", RoomName: "Операционная 1", EquipmentName: sp("Лампа")},
		models.ProjectorRoom{DepartmentName: "Хирургия", RoomName: "Операционная 2", EquipmentName: sp("Стол операционный")},
	)
	f.store.SeedTurar(
		models.TurarRoom{Department: "Surgery", Room: "OR-1", ItemName: sp("Operating table")},
	)
	return f, f.mapping(t, "Хирургия", "Surgery")
}
