package store

import (
	"context"
	"errors"

	"facility-backend/apperrors"
	"facility-backend/models"

	"gorm.io/gorm"
)

// GormStore implements Store on any gorm dialect.
type GormStore struct {
	DB *gorm.DB

	projector InventoryStore
	turar     InventoryStore
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		DB:        db,
		projector: newGormInventory[models.ProjectorRoom](db, models.SideA),
		turar:     newGormInventory[models.TurarRoom](db, models.SideB),
	}
}

// AutoMigrate creates or updates every table the core reads or writes.
func (s *GormStore) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.ProjectorRoom{},
		&models.TurarRoom{},
		&models.DepartmentMapping{},
		&models.RoomConnection{},
		&models.StagingProjectorRow{},
		&models.StagingTurarRow{},
		&models.JobRun{},
	)
}

func (s *GormStore) Inventory(side models.Side) InventoryStore {
	if side == models.SideB {
		return s.turar
	}
	return s.projector
}

// ---------------- mappings ----------------

func (s *GormStore) CreateMapping(ctx context.Context, m *models.DepartmentMapping) error {
	return apperrors.NewPersistenceError("create mapping", s.DB.WithContext(ctx).Create(m).Error)
}

func (s *GormStore) ListMappings(ctx context.Context) ([]models.DepartmentMapping, error) {
	var out []models.DepartmentMapping
	err := s.DB.WithContext(ctx).
		Order("projector_department").
		Order("turar_department").
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, apperrors.NewPersistenceError("list mappings", err)
	}
	return out, nil
}

func (s *GormStore) GetMapping(ctx context.Context, id uint) (*models.DepartmentMapping, error) {
	var m models.DepartmentMapping
	err := s.DB.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("department mapping", id)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("get mapping", err)
	}
	return &m, nil
}

func (s *GormStore) DeleteMapping(ctx context.Context, id uint) (int64, error) {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.DepartmentMapping{})
	if res.Error != nil {
		return 0, apperrors.NewPersistenceError("delete mapping", res.Error)
	}
	return res.RowsAffected, nil
}

// ---------------- connections ----------------

func (s *GormStore) CreateConnection(ctx context.Context, c *models.RoomConnection) error {
	return apperrors.NewPersistenceError("create connection", s.DB.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) CreateConnections(ctx context.Context, cs []models.RoomConnection) error {
	if len(cs) == 0 {
		return nil
	}
	return apperrors.NewPersistenceError("create connections", s.DB.WithContext(ctx).Create(&cs).Error)
}

func (s *GormStore) ListConnections(ctx context.Context) ([]models.RoomConnection, error) {
	var out []models.RoomConnection
	if err := s.DB.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, apperrors.NewPersistenceError("list connections", err)
	}
	return out, nil
}

func (s *GormStore) GetConnection(ctx context.Context, id uint) (*models.RoomConnection, error) {
	var c models.RoomConnection
	err := s.DB.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("room connection", id)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("get connection", err)
	}
	return &c, nil
}

func (s *GormStore) DeleteConnection(ctx context.Context, id uint) (int64, error) {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.RoomConnection{})
	if res.Error != nil {
		return 0, apperrors.NewPersistenceError("delete connection", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) DeleteAllConnections(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.RoomConnection{})
	if res.Error != nil {
		return 0, apperrors.NewPersistenceError("delete all connections", res.Error)
	}
	return res.RowsAffected, nil
}

// ---------------- staging ----------------

func (s *GormStore) InsertStaging(ctx context.Context, side models.Side, rows []models.StagingRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	op := "insert " + string(side) + " staging rows"
	var res *gorm.DB
	if side == models.SideB {
		batch := make([]models.StagingTurarRow, len(rows))
		for i := range rows {
			batch[i] = models.StagingTurarRow{StagingRow: rows[i]}
		}
		res = s.DB.WithContext(ctx).CreateInBatches(&batch, stagingBatchSize)
	} else {
		batch := make([]models.StagingProjectorRow, len(rows))
		for i := range rows {
			batch[i] = models.StagingProjectorRow{StagingRow: rows[i]}
		}
		res = s.DB.WithContext(ctx).CreateInBatches(&batch, stagingBatchSize)
	}
	if res.Error != nil {
		return 0, apperrors.NewPersistenceError(op, res.Error)
	}
	return res.RowsAffected, nil
}

// stagingBatchSize keeps a single INSERT under the placeholder limits of
// every supported dialect.
const stagingBatchSize = 500

func (s *GormStore) ListStaging(ctx context.Context, side models.Side, mappingID uint) ([]models.StagingRow, error) {
	op := "list " + string(side) + " staging rows"
	tx := s.DB.WithContext(ctx).Where("mapping_id = ?", mappingID).Order("id")
	if side == models.SideB {
		var rows []models.StagingTurarRow
		if err := tx.Find(&rows).Error; err != nil {
			return nil, apperrors.NewPersistenceError(op, err)
		}
		out := make([]models.StagingRow, len(rows))
		for i := range rows {
			out[i] = rows[i].StagingRow
		}
		return out, nil
	}
	var rows []models.StagingProjectorRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, apperrors.NewPersistenceError(op, err)
	}
	out := make([]models.StagingRow, len(rows))
	for i := range rows {
		out[i] = rows[i].StagingRow
	}
	return out, nil
}

func (s *GormStore) ClearStaging(ctx context.Context, side models.Side, mappingID uint) (int64, error) {
	var target any = &models.StagingProjectorRow{}
	if side == models.SideB {
		target = &models.StagingTurarRow{}
	}
	res := s.DB.WithContext(ctx).Where("mapping_id = ?", mappingID).Delete(target)
	if res.Error != nil {
		return 0, apperrors.NewPersistenceError("clear "+string(side)+" staging rows", res.Error)
	}
	return res.RowsAffected, nil
}

// ---------------- jobs ----------------

func (s *GormStore) RecordJob(ctx context.Context, run *models.JobRun) error {
	return apperrors.NewPersistenceError("record job", s.DB.WithContext(ctx).Create(run).Error)
}

func (s *GormStore) ListJobs(ctx context.Context, limit int) ([]models.JobRun, error) {
	var out []models.JobRun
	tx := s.DB.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&out).Error; err != nil {
		return nil, apperrors.NewPersistenceError("list jobs", err)
	}
	return out, nil
}
