package services

import (
	"context"
	"slices"

	"facility-backend/apperrors"
	"facility-backend/models"
	"facility-backend/store"
)

// Room link states as shown to clients.
const (
	LinkNone       = "unlinked"
	LinkDepartment = "department"
	LinkRoom       = "room"
)

type inventoryStore interface {
	Inventory(side models.Side) store.InventoryStore
	store.ConnectionStore
}

// InventoryService is the read side of both inventories.
type InventoryService struct {
	Store inventoryStore
}

func NewInventoryService(s inventoryStore) *InventoryService {
	return &InventoryService{Store: s}
}

// RoomView is one inventory row together with its link state.
type RoomView struct {
	models.RecordView
	// Link is unlinked, department or room.
	Link string `json:"link"`
	// ConnectionIDs lists the ledger entries naming this room.
	ConnectionIDs []uint `json:"connectionIds,omitempty"`
}

// Rooms lists one inventory, optionally narrowed to departments containing
// department, and marks each row with the connections that name its room.
// A connection carrying a row id on this side also names that row's room,
// so every equipment line of the room lists it once.
func (s *InventoryService) Rooms(ctx context.Context, side models.Side, department string) ([]RoomView, error) {
	if !side.Valid() {
		return nil, apperrors.NewValidationError("side", "must be projector or turar")
	}
	inv := s.Store.Inventory(side)

	var (
		recs []models.InventoryRecord
		err  error
	)
	if department != "" {
		recs, err = inv.FindByDepartmentContains(ctx, department)
	} else {
		recs, err = inv.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	conns, err := s.Store.ListConnections(ctx)
	if err != nil {
		return nil, err
	}
	rowRoom := make(map[uint]models.RoomKey, len(recs))
	for _, rec := range recs {
		rowRoom[rec.RecordID()] = rec.Key()
	}
	byRoom := make(map[models.RoomKey][]uint)
	for _, c := range conns {
		k := c.RoomOn(side)
		if id := c.RoomIDOn(side); id != nil {
			if rk, ok := rowRoom[*id]; ok {
				k = rk
			}
		}
		byRoom[k] = append(byRoom[k], c.ID)
	}

	out := make([]RoomView, 0, len(recs))
	for _, rec := range recs {
		v := RoomView{
			RecordView:    models.ViewOf(rec),
			Link:          LinkNone,
			ConnectionIDs: slices.Clone(byRoom[rec.Key()]),
		}
		switch {
		case v.Connected:
			v.Link = LinkRoom
		case v.PeerRef.Department != nil:
			v.Link = LinkDepartment
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *InventoryService) Departments(ctx context.Context, side models.Side) ([]string, error) {
	if !side.Valid() {
		return nil, apperrors.NewValidationError("side", "must be projector or turar")
	}
	return s.Store.Inventory(side).ListDepartments(ctx)
}
