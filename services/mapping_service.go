package services

import (
	"context"
	"strings"

	"facility-backend/apperrors"
	"facility-backend/models"
	"facility-backend/store"

	"go.uber.org/zap"
)

// MappingService is the department mapping registry.
type MappingService struct {
	Store store.MappingStore
	Log   *zap.Logger
}

func NewMappingService(s store.MappingStore, log *zap.Logger) *MappingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MappingService{Store: s, Log: log}
}

// Create records that aDept and bDept name the same place. Identical pairs
// may be registered more than once.
func (s *MappingService) Create(ctx context.Context, aDept, bDept string) (*models.DepartmentMapping, error) {
	aDept = strings.TrimSpace(aDept)
	bDept = strings.TrimSpace(bDept)
	if aDept == "" {
		return nil, apperrors.NewValidationError("aDepartmentName", "is required")
	}
	if bDept == "" {
		return nil, apperrors.NewValidationError("bDepartmentName", "is required")
	}

	m := &models.DepartmentMapping{ADepartmentName: aDept, BDepartmentName: bDept}
	if err := s.Store.CreateMapping(ctx, m); err != nil {
		return nil, err
	}
	s.Log.Info("department mapping created",
		zap.Uint("mapping_id", m.ID),
		zap.String("a_department", aDept),
		zap.String("b_department", bDept))
	return m, nil
}

func (s *MappingService) List(ctx context.Context) ([]models.DepartmentMapping, error) {
	return s.Store.ListMappings(ctx)
}

func (s *MappingService) Get(ctx context.Context, id uint) (*models.DepartmentMapping, error) {
	return s.Store.GetMapping(ctx, id)
}

// Delete removes the mapping row only. Connections, staging rows and peer
// fields derived from it stay in place.
func (s *MappingService) Delete(ctx context.Context, id uint) error {
	n, err := s.Store.DeleteMapping(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError("department mapping", id)
	}
	s.Log.Info("department mapping deleted", zap.Uint("mapping_id", id))
	return nil
}
