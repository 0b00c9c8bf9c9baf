package services

import (
	"facility-backend/models"
)

// ConnectionIndex is a point-in-time snapshot of the ledger used by one
// discovery pass. It is built once and never refreshed during the pass.
type ConnectionIndex struct {
	keys    map[models.ConnectionKey]struct{}
	aRooms  map[models.RoomKey]struct{}
	claimed map[models.RoomKey]struct{}
}

// NewConnectionIndex snapshots the given connections.
func NewConnectionIndex(conns []models.RoomConnection) *ConnectionIndex {
	idx := &ConnectionIndex{
		keys:    make(map[models.ConnectionKey]struct{}, len(conns)),
		aRooms:  make(map[models.RoomKey]struct{}, len(conns)),
		claimed: make(map[models.RoomKey]struct{}, len(conns)),
	}
	for _, c := range conns {
		idx.add(c.Key())
	}
	return idx
}

func (idx *ConnectionIndex) add(k models.ConnectionKey) {
	idx.keys[k] = struct{}{}
	idx.aRooms[k.A] = struct{}{}
	idx.claimed[k.B] = struct{}{}
}

func (idx *ConnectionIndex) Has(k models.ConnectionKey) bool {
	_, ok := idx.keys[k]
	return ok
}

// Connected reports whether an A-room already takes part in a connection.
func (idx *ConnectionIndex) Connected(a models.RoomKey) bool {
	_, ok := idx.aRooms[a]
	return ok
}

// Claimed reports whether a B-room already takes part in a connection.
func (idx *ConnectionIndex) Claimed(b models.RoomKey) bool {
	_, ok := idx.claimed[b]
	return ok
}

func (idx *ConnectionIndex) Len() int {
	return len(idx.keys)
}

// DiscoveryPlan is the outcome of planning one discovery pass.
type DiscoveryPlan struct {
	Connections           []models.RoomConnection
	SkippedExisting       int
	Unmatched             int
	TotalARoomsConsidered int
	TotalBRoomsAvailable  int
}

// representatives collapses equipment lines to one record per room. recs must
// be ordered by department, room, id so the lowest id represents its room.
func representatives(recs []models.InventoryRecord) []models.InventoryRecord {
	seen := make(map[models.RoomKey]struct{}, len(recs))
	out := make([]models.InventoryRecord, 0, len(recs))
	for _, rec := range recs {
		k := rec.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// PlanDiscovery pairs linked A-rooms with B-rooms of their peer department.
//
// Both inputs must be ordered by department, room, id. An A-room is paired
// with the first B-room (by room name) of the department named in its peer
// department field that no connection holds yet, so each B-room is used at
// most once: a B-room already held by any connection is never offered again,
// even to a different A-room. An A-room that takes part in any connection is
// skipped as a whole and counts once in SkippedExisting, whichever B-room it
// would have been paired with. A-rooms without a free candidate count as
// unmatched. Planning stops once limit connections are queued.
func PlanDiscovery(idx *ConnectionIndex, aRecs, bRecs []models.InventoryRecord, limit int) DiscoveryPlan {
	aRooms := representatives(aRecs)
	bRooms := representatives(bRecs)

	byDept := map[string][]models.InventoryRecord{}
	for _, b := range bRooms {
		dept := b.Key().Department
		byDept[dept] = append(byDept[dept], b)
	}

	plan := DiscoveryPlan{
		TotalARoomsConsidered: len(aRooms),
		TotalBRoomsAvailable:  len(bRooms),
	}
	taken := map[models.RoomKey]struct{}{}

	for _, a := range aRooms {
		if limit > 0 && len(plan.Connections) >= limit {
			break
		}
		aKey := a.Key()
		if idx.Connected(aKey) {
			plan.SkippedExisting++
			continue
		}
		peerDept := a.Peer().Department
		if peerDept == nil {
			plan.Unmatched++
			continue
		}

		var match models.InventoryRecord
		for _, b := range byDept[*peerDept] {
			bKey := b.Key()
			if _, ok := taken[bKey]; ok || idx.Claimed(bKey) {
				continue
			}
			match = b
			break
		}
		if match == nil {
			plan.Unmatched++
			continue
		}

		bKey := match.Key()
		taken[bKey] = struct{}{}
		aID, bID := a.RecordID(), match.RecordID()
		plan.Connections = append(plan.Connections, models.RoomConnection{
			ADepartmentName: aKey.Department,
			ARoomName:       aKey.Room,
			BDepartmentName: bKey.Department,
			BRoomName:       bKey.Room,
			ARoomID:         &aID,
			BRoomID:         &bID,
			Source:          models.SourceAuto,
		})
	}
	return plan
}
