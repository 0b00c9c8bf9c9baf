package store

import (
	"context"
	"errors"
	"strings"

	"facility-backend/apperrors"
	"facility-backend/models"

	"gorm.io/gorm"
)

// inventoryRow constrains P to a pointer to an inventory table row.
type inventoryRow[T any] interface {
	*T
	models.InventoryRecord
}

// gormInventory implements InventoryStore for one inventory table; the column
// layout in cols is what differs between the two tables.
type gormInventory[T any, P inventoryRow[T]] struct {
	db   *gorm.DB
	side models.Side
	cols models.InventoryColumns
}

func newGormInventory[T any, P inventoryRow[T]](db *gorm.DB, side models.Side) *gormInventory[T, P] {
	return &gormInventory[T, P]{db: db, side: side, cols: models.ColumnsFor(side)}
}

func (g *gormInventory[T, P]) Side() models.Side {
	return g.side
}

func (g *gormInventory[T, P]) op(name string) string {
	return string(g.side) + " inventory: " + name
}

func (g *gormInventory[T, P]) model(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx).Model(new(T))
}

func (g *gormInventory[T, P]) ordered(tx *gorm.DB) *gorm.DB {
	return tx.Order(g.cols.Department).Order(g.cols.Room).Order("id")
}

func (g *gormInventory[T, P]) find(tx *gorm.DB, op string) ([]models.InventoryRecord, error) {
	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, apperrors.NewPersistenceError(g.op(op), err)
	}
	out := make([]models.InventoryRecord, len(rows))
	for i := range rows {
		out[i] = P(&rows[i])
	}
	return out, nil
}

func (g *gormInventory[T, P]) Get(ctx context.Context, id uint) (models.InventoryRecord, error) {
	var row T
	err := g.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError(g.cols.Table, id)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(g.op("get"), err)
	}
	return P(&row), nil
}

func (g *gormInventory[T, P]) List(ctx context.Context) ([]models.InventoryRecord, error) {
	return g.find(g.ordered(g.model(ctx)), "list")
}

// FindByDepartmentContains narrows in SQL only on mysql, whose utf8mb4
// collations fold non-ASCII case. sqlite's LOWER and a C-locale postgres
// leave Cyrillic untouched, so the match itself always runs in Go.
func (g *gormInventory[T, P]) FindByDepartmentContains(ctx context.Context, fragment string) ([]models.InventoryRecord, error) {
	tx := g.model(ctx)
	if g.db.Dialector.Name() == "mysql" {
		pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"
		tx = tx.Where("LOWER("+g.cols.Department+") LIKE ? ESCAPE '!'", pattern)
	}
	recs, err := g.find(g.ordered(tx), "find by department")
	if err != nil {
		return nil, err
	}
	match := departmentMatcher(fragment)
	out := recs[:0]
	for _, rec := range recs {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// connectedClause matches rows whose room is named by a connection.
func (g *gormInventory[T, P]) connectedClause() string {
	return "EXISTS (SELECT 1 FROM room_connections rc WHERE rc." + g.cols.LedgerDepartment + " = " +
		g.cols.Table + "." + g.cols.Department + " AND rc." + g.cols.LedgerRoom + " = " +
		g.cols.Table + "." + g.cols.Room + ")"
}

func (g *gormInventory[T, P]) ListWithPeerDepartment(ctx context.Context, limit int) ([]models.InventoryRecord, error) {
	tx := g.model(ctx).
		Where(g.cols.PeerDepartment + " IS NOT NULL").
		Where("NOT " + g.connectedClause())
	tx = g.ordered(tx)
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	return g.find(tx, "list linked")
}

func (g *gormInventory[T, P]) CountConnectedWithPeerDepartment(ctx context.Context) (int, error) {
	rooms := g.model(ctx).
		Distinct(g.cols.Department, g.cols.Room).
		Where(g.cols.PeerDepartment + " IS NOT NULL").
		Where(g.connectedClause())
	var n int64
	if err := g.db.WithContext(ctx).Table("(?) AS linked", rooms).Count(&n).Error; err != nil {
		return 0, apperrors.NewPersistenceError(g.op("count connected"), err)
	}
	return int(n), nil
}

func (g *gormInventory[T, P]) ListDepartments(ctx context.Context) ([]string, error) {
	var names []string
	err := g.model(ctx).Distinct(g.cols.Department).Order(g.cols.Department).Pluck(g.cols.Department, &names).Error
	if err != nil {
		return nil, apperrors.NewPersistenceError(g.op("list departments"), err)
	}
	return names, nil
}

func (g *gormInventory[T, P]) peerValues(peer models.PeerRef) map[string]any {
	return map[string]any{
		g.cols.PeerRoomID:     peer.RoomID,
		g.cols.PeerDepartment: peer.Department,
		g.cols.PeerRoom:       peer.Room,
	}
}

func (g *gormInventory[T, P]) update(tx *gorm.DB, values map[string]any, op string) (int64, error) {
	res := tx.Updates(values)
	if res.Error != nil {
		return 0, apperrors.NewPersistenceError(g.op(op), res.Error)
	}
	return res.RowsAffected, nil
}

func (g *gormInventory[T, P]) SetPeerByID(ctx context.Context, id uint, peer models.PeerRef) (int64, error) {
	return g.update(g.model(ctx).Where("id = ?", id), g.peerValues(peer), "set peer by id")
}

func (g *gormInventory[T, P]) ClearPeerByID(ctx context.Context, id uint, peerRoomID uint) (int64, error) {
	tx := g.model(ctx).Where("id = ? AND "+g.cols.PeerRoomID+" = ?", id, peerRoomID)
	return g.update(tx, g.peerValues(models.PeerRef{}), "clear peer by id")
}

func (g *gormInventory[T, P]) SetPeerByRoom(ctx context.Context, room models.RoomKey, peer models.PeerRef) (int64, error) {
	values := map[string]any{
		g.cols.PeerDepartment: peer.Department,
		g.cols.PeerRoom:       peer.Room,
	}
	if peer.RoomID != nil {
		values[g.cols.PeerRoomID] = peer.RoomID
	}
	tx := g.model(ctx).Where(g.cols.Department+" = ? AND "+g.cols.Room+" = ?", room.Department, room.Room)
	return g.update(tx, values, "set peer by room")
}

func (g *gormInventory[T, P]) ClearPeerByRoom(ctx context.Context, room models.RoomKey, peer models.RoomKey) (int64, error) {
	tx := g.model(ctx).Where(
		g.cols.Department+" = ? AND "+g.cols.Room+" = ? AND "+g.cols.PeerDepartment+" = ? AND "+g.cols.PeerRoom+" = ?",
		room.Department, room.Room, peer.Department, peer.Room,
	)
	return g.update(tx, g.peerValues(models.PeerRef{}), "clear peer by room")
}

func (g *gormInventory[T, P]) LinkDepartment(ctx context.Context, department, peerDepartment string) (int64, error) {
	tx := g.model(ctx).Where(
		g.cols.Department+" = ? AND "+g.cols.PeerRoomID+" IS NULL AND "+g.cols.PeerRoom+" IS NULL",
		department,
	)
	return g.update(tx, map[string]any{g.cols.PeerDepartment: peerDepartment}, "link department")
}

func (g *gormInventory[T, P]) UnlinkDepartment(ctx context.Context, department, peerDepartment string) (int64, error) {
	tx := g.model(ctx).Where(
		g.cols.Department+" = ? AND "+g.cols.PeerDepartment+" = ? AND "+g.cols.PeerRoomID+" IS NULL AND "+g.cols.PeerRoom+" IS NULL",
		department, peerDepartment,
	)
	return g.update(tx, map[string]any{g.cols.PeerDepartment: nil}, "unlink department")
}

func (g *gormInventory[T, P]) ClearAllPeers(ctx context.Context) (int64, error) {
	tx := g.model(ctx).Where(
		g.cols.PeerRoomID+" IS NOT NULL OR "+g.cols.PeerDepartment+" IS NOT NULL OR "+g.cols.PeerRoom+" IS NOT NULL",
	)
	return g.update(tx, g.peerValues(models.PeerRef{}), "clear all peers")
}
