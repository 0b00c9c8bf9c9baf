package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"facility-backend/apperrors"
	"facility-backend/models"
)

// MemoryStore is an in-process Store for tests and DB_DRIVER=memory runs.
// - ids are sequential per table
// - department matching uses Unicode case folding
// - InjectFault makes a named operation fail, to exercise partial failures
type MemoryStore struct {
	mu sync.RWMutex

	projector *memInventory[models.ProjectorRoom, *models.ProjectorRoom]
	turar     *memInventory[models.TurarRoom, *models.TurarRoom]

	mappings    map[uint]models.DepartmentMapping
	connections map[uint]models.RoomConnection
	staging     map[models.Side][]models.StagingRow
	jobs        []models.JobRun

	nextMappingID    uint
	nextConnectionID uint
	nextStagingID    uint

	faults map[string]error
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		mappings:    map[uint]models.DepartmentMapping{},
		connections: map[uint]models.RoomConnection{},
		staging:     map[models.Side][]models.StagingRow{},
		faults:      map[string]error{},
	}
	s.projector = &memInventory[models.ProjectorRoom, *models.ProjectorRoom]{parent: s, side: models.SideA, rows: map[uint]models.ProjectorRoom{}}
	s.turar = &memInventory[models.TurarRoom, *models.TurarRoom]{parent: s, side: models.SideB, rows: map[uint]models.TurarRoom{}}
	return s
}

// InjectFault makes every later call of op fail with err; a nil err removes
// the fault. Inventory ops are named "<side>.<Method>" (e.g.
// "projector.ClearAllPeers"), the rest by method name.
func (s *MemoryStore) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// fault must be called with s.mu held.
func (s *MemoryStore) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		return apperrors.NewPersistenceError(op, err)
	}
	return nil
}

// SeedProjector inserts inventory A rows and returns their ids.
func (s *MemoryStore) SeedProjector(rows ...models.ProjectorRoom) []uint {
	return s.projector.seed(rows)
}

// SeedTurar inserts inventory B rows and returns their ids.
func (s *MemoryStore) SeedTurar(rows ...models.TurarRoom) []uint {
	return s.turar.seed(rows)
}

func (s *MemoryStore) Inventory(side models.Side) InventoryStore {
	if side == models.SideB {
		return s.turar
	}
	return s.projector
}

// ---------------- mappings ----------------

func (s *MemoryStore) CreateMapping(_ context.Context, m *models.DepartmentMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("CreateMapping"); err != nil {
		return err
	}
	s.nextMappingID++
	now := time.Now()
	m.ID = s.nextMappingID
	m.CreatedAt, m.UpdatedAt = now, now
	s.mappings[m.ID] = *m
	return nil
}

func (s *MemoryStore) ListMappings(_ context.Context) ([]models.DepartmentMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListMappings"); err != nil {
		return nil, err
	}
	out := make([]models.DepartmentMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ADepartmentName != out[j].ADepartmentName {
			return out[i].ADepartmentName < out[j].ADepartmentName
		}
		if out[i].BDepartmentName != out[j].BDepartmentName {
			return out[i].BDepartmentName < out[j].BDepartmentName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetMapping(_ context.Context, id uint) (*models.DepartmentMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("GetMapping"); err != nil {
		return nil, err
	}
	m, ok := s.mappings[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("department mapping", id)
	}
	return &m, nil
}

func (s *MemoryStore) DeleteMapping(_ context.Context, id uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("DeleteMapping"); err != nil {
		return 0, err
	}
	if _, ok := s.mappings[id]; !ok {
		return 0, nil
	}
	delete(s.mappings, id)
	return 1, nil
}

// ---------------- connections ----------------

func (s *MemoryStore) insertConnection(c *models.RoomConnection, now time.Time) {
	s.nextConnectionID++
	c.ID = s.nextConnectionID
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Source == "" {
		c.Source = models.SourceManual
	}
	s.connections[c.ID] = *c
}

func (s *MemoryStore) CreateConnection(_ context.Context, c *models.RoomConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("CreateConnection"); err != nil {
		return err
	}
	s.insertConnection(c, time.Now())
	return nil
}

func (s *MemoryStore) CreateConnections(_ context.Context, cs []models.RoomConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("CreateConnections"); err != nil {
		return err
	}
	now := time.Now()
	for i := range cs {
		s.insertConnection(&cs[i], now)
	}
	return nil
}

func (s *MemoryStore) ListConnections(_ context.Context) ([]models.RoomConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListConnections"); err != nil {
		return nil, err
	}
	out := make([]models.RoomConnection, 0, len(s.connections))
	for _, c := range s.connections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetConnection(_ context.Context, id uint) (*models.RoomConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("GetConnection"); err != nil {
		return nil, err
	}
	c, ok := s.connections[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("room connection", id)
	}
	return &c, nil
}

func (s *MemoryStore) DeleteConnection(_ context.Context, id uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("DeleteConnection"); err != nil {
		return 0, err
	}
	if _, ok := s.connections[id]; !ok {
		return 0, nil
	}
	delete(s.connections, id)
	return 1, nil
}

func (s *MemoryStore) DeleteAllConnections(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("DeleteAllConnections"); err != nil {
		return 0, err
	}
	n := int64(len(s.connections))
	s.connections = map[uint]models.RoomConnection{}
	return n, nil
}

// ---------------- staging ----------------

func (s *MemoryStore) InsertStaging(_ context.Context, side models.Side, rows []models.StagingRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(string(side) + ".InsertStaging"); err != nil {
		return 0, err
	}
	now := time.Now()
	for _, r := range rows {
		s.nextStagingID++
		r.ID = s.nextStagingID
		r.CreatedAt = now
		s.staging[side] = append(s.staging[side], r)
	}
	return int64(len(rows)), nil
}

func (s *MemoryStore) ListStaging(_ context.Context, side models.Side, mappingID uint) ([]models.StagingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault(string(side) + ".ListStaging"); err != nil {
		return nil, err
	}
	var out []models.StagingRow
	for _, r := range s.staging[side] {
		if r.MappingID == mappingID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) ClearStaging(_ context.Context, side models.Side, mappingID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(string(side) + ".ClearStaging"); err != nil {
		return 0, err
	}
	kept := s.staging[side][:0]
	var n int64
	for _, r := range s.staging[side] {
		if r.MappingID == mappingID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.staging[side] = kept
	return n, nil
}

// ---------------- jobs ----------------

func (s *MemoryStore) RecordJob(_ context.Context, run *models.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("RecordJob"); err != nil {
		return err
	}
	s.jobs = append(s.jobs, *run)
	return nil
}

func (s *MemoryStore) ListJobs(_ context.Context, limit int) ([]models.JobRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ListJobs"); err != nil {
		return nil, err
	}
	out := make([]models.JobRun, len(s.jobs))
	copy(out, s.jobs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------------- inventory ----------------

type peerSetter[T any] interface {
	inventoryRow[T]
	SetPeer(models.PeerRef)
}

// memInventory shares the parent's lock.
type memInventory[T any, P peerSetter[T]] struct {
	parent *MemoryStore
	side   models.Side
	rows   map[uint]T
	nextID uint
}

func (m *memInventory[T, P]) Side() models.Side {
	return m.side
}

func (m *memInventory[T, P]) fault(method string) error {
	return m.parent.fault(string(m.side) + "." + method)
}

func (m *memInventory[T, P]) seed(rows []T) []uint {
	m.parent.mu.Lock()
	defer m.parent.mu.Unlock()
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		m.nextID++
		setRecordID(P(&row), m.nextID)
		m.rows[m.nextID] = row
		ids = append(ids, m.nextID)
	}
	return ids
}

func setRecordID(rec models.InventoryRecord, id uint) {
	switch r := rec.(type) {
	case *models.ProjectorRoom:
		r.ID = id
	case *models.TurarRoom:
		r.ID = id
	}
}

// collect copies matching rows out in department, room, id order.
func (m *memInventory[T, P]) collect(match func(models.InventoryRecord) bool) []models.InventoryRecord {
	out := make([]models.InventoryRecord, 0, len(m.rows))
	for _, row := range m.rows {
		rec := P(&row)
		if match == nil || match(rec) {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out
}

func sortRecords(recs []models.InventoryRecord) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].Key(), recs[j].Key()
		if a.Department != b.Department {
			return a.Department < b.Department
		}
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		return recs[i].RecordID() < recs[j].RecordID()
	})
}

// mutate applies fn to every matching row and returns how many it touched.
func (m *memInventory[T, P]) mutate(match func(models.InventoryRecord) bool, fn func(P)) int64 {
	var n int64
	for id, row := range m.rows {
		rec := P(&row)
		if !match(rec) {
			continue
		}
		fn(rec)
		m.rows[id] = row
		n++
	}
	return n
}

func (m *memInventory[T, P]) Get(_ context.Context, id uint) (models.InventoryRecord, error) {
	m.parent.mu.RLock()
	defer m.parent.mu.RUnlock()
	if err := m.fault("Get"); err != nil {
		return nil, err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(models.ColumnsFor(m.side).Table, id)
	}
	return P(&row), nil
}

func (m *memInventory[T, P]) List(_ context.Context) ([]models.InventoryRecord, error) {
	m.parent.mu.RLock()
	defer m.parent.mu.RUnlock()
	if err := m.fault("List"); err != nil {
		return nil, err
	}
	return m.collect(nil), nil
}

func (m *memInventory[T, P]) FindByDepartmentContains(_ context.Context, fragment string) ([]models.InventoryRecord, error) {
	m.parent.mu.RLock()
	defer m.parent.mu.RUnlock()
	if err := m.fault("FindByDepartmentContains"); err != nil {
		return nil, err
	}
	return m.collect(departmentMatcher(fragment)), nil
}

// connectedRooms returns the rooms of this side named by a connection.
// Callers hold the parent lock.
func (m *memInventory[T, P]) connectedRooms() map[models.RoomKey]bool {
	out := make(map[models.RoomKey]bool, len(m.parent.connections))
	for _, c := range m.parent.connections {
		out[c.RoomOn(m.side)] = true
	}
	return out
}

func (m *memInventory[T, P]) ListWithPeerDepartment(_ context.Context, limit int) ([]models.InventoryRecord, error) {
	m.parent.mu.RLock()
	defer m.parent.mu.RUnlock()
	if err := m.fault("ListWithPeerDepartment"); err != nil {
		return nil, err
	}
	connected := m.connectedRooms()
	out := m.collect(func(rec models.InventoryRecord) bool {
		return rec.Peer().Department != nil && !connected[rec.Key()]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memInventory[T, P]) CountConnectedWithPeerDepartment(_ context.Context) (int, error) {
	m.parent.mu.RLock()
	defer m.parent.mu.RUnlock()
	if err := m.fault("CountConnectedWithPeerDepartment"); err != nil {
		return 0, err
	}
	connected := m.connectedRooms()
	rooms := map[models.RoomKey]bool{}
	for _, row := range m.rows {
		rec := P(&row)
		if rec.Peer().Department != nil && connected[rec.Key()] {
			rooms[rec.Key()] = true
		}
	}
	return len(rooms), nil
}

func (m *memInventory[T, P]) ListDepartments(_ context.Context) ([]string, error) {
	m.parent.mu.RLock()
	defer m.parent.mu.RUnlock()
	if err := m.fault("ListDepartments"); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, row := range m.rows {
		dept := P(&row).Key().Department
		if !seen[dept] {
			seen[dept] = true
			out = append(out, dept)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memInventory[T, P]) SetPeerByID(_ context.Context, id uint, peer models.PeerRef) (int64, error) {
	m.parent.mu.Lock()
	defer m.parent.mu.Unlock()
	if err := m.fault("SetPeerByID"); err != nil {
		return 0, err
	}
	return m.mutate(
		func(rec models.InventoryRecord) bool { return rec.RecordID() == id },
		func(p P) { p.SetPeer(clonePeer(peer)) },
	), nil
}

func (m *memInventory[T, P]) ClearPeerByID(_ context.Context, id uint, peerRoomID uint) (int64, error) {
	m.parent.mu.Lock()
	defer m.parent.mu.Unlock()
	if err := m.fault("ClearPeerByID"); err != nil {
		return 0, err
	}
	return m.mutate(
		func(rec models.InventoryRecord) bool {
			pid := rec.Peer().RoomID
			return rec.RecordID() == id && pid != nil && *pid == peerRoomID
		},
		func(p P) { p.SetPeer(models.PeerRef{}) },
	), nil
}

func (m *memInventory[T, P]) SetPeerByRoom(_ context.Context, room models.RoomKey, peer models.PeerRef) (int64, error) {
	m.parent.mu.Lock()
	defer m.parent.mu.Unlock()
	if err := m.fault("SetPeerByRoom"); err != nil {
		return 0, err
	}
	return m.mutate(
		func(rec models.InventoryRecord) bool { return rec.Key() == room },
		func(p P) {
			next := clonePeer(peer)
			if next.RoomID == nil {
				next.RoomID = p.Peer().RoomID
			}
			p.SetPeer(next)
		},
	), nil
}

func (m *memInventory[T, P]) ClearPeerByRoom(_ context.Context, room models.RoomKey, peer models.RoomKey) (int64, error) {
	m.parent.mu.Lock()
	defer m.parent.mu.Unlock()
	if err := m.fault("ClearPeerByRoom"); err != nil {
		return 0, err
	}
	return m.mutate(
		func(rec models.InventoryRecord) bool {
			cur := rec.Peer()
			return rec.Key() == room &&
				cur.Department != nil && *cur.Department == peer.Department &&
				cur.Room != nil && *cur.Room == peer.Room
		},
		func(p P) { p.SetPeer(models.PeerRef{}) },
	), nil
}

func (m *memInventory[T, P]) LinkDepartment(_ context.Context, department, peerDepartment string) (int64, error) {
	m.parent.mu.Lock()
	defer m.parent.mu.Unlock()
	if err := m.fault("LinkDepartment"); err != nil {
		return 0, err
	}
	return m.mutate(
		func(rec models.InventoryRecord) bool {
			cur := rec.Peer()
			return rec.Key().Department == department && cur.RoomID == nil && cur.Room == nil
		},
		func(p P) { p.SetPeer(models.PeerRef{Department: strPtr(peerDepartment)}) },
	), nil
}

func (m *memInventory[T, P]) UnlinkDepartment(_ context.Context, department, peerDepartment string) (int64, error) {
	m.parent.mu.Lock()
	defer m.parent.mu.Unlock()
	if err := m.fault("UnlinkDepartment"); err != nil {
		return 0, err
	}
	return m.mutate(
		func(rec models.InventoryRecord) bool {
			cur := rec.Peer()
			return rec.Key().Department == department &&
				cur.Department != nil && *cur.Department == peerDepartment &&
				cur.RoomID == nil && cur.Room == nil
		},
		func(p P) { p.SetPeer(models.PeerRef{}) },
	), nil
}

func (m *memInventory[T, P]) ClearAllPeers(_ context.Context) (int64, error) {
	m.parent.mu.Lock()
	defer m.parent.mu.Unlock()
	if err := m.fault("ClearAllPeers"); err != nil {
		return 0, err
	}
	return m.mutate(
		func(rec models.InventoryRecord) bool { return !rec.Peer().IsZero() },
		func(p P) { p.SetPeer(models.PeerRef{}) },
	), nil
}

func strPtr(s string) *string {
	return &s
}

func clonePeer(p models.PeerRef) models.PeerRef {
	var out models.PeerRef
	if p.RoomID != nil {
		id := *p.RoomID
		out.RoomID = &id
	}
	if p.Department != nil {
		out.Department = strPtr(*p.Department)
	}
	if p.Room != nil {
		out.Room = strPtr(*p.Room)
	}
	return out
}
