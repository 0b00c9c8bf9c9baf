package models

import "time"

// Connection sources.
const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

// RoomConnection links exactly one room of inventory A to one room of
// inventory B. ARoomID/BRoomID are authoritative when set; the name fields
// serve legacy rows that carry no ids.
type RoomConnection struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ADepartmentName string    `gorm:"column:projector_department;type:varchar(255);not null;index:idx_conn_a" json:"aDepartmentName"`
	ARoomName       string    `gorm:"column:projector_room;type:varchar(255);not null;index:idx_conn_a" json:"aRoomName"`
	BDepartmentName string    `gorm:"column:turar_department;type:varchar(255);not null;index:idx_conn_b" json:"bDepartmentName"`
	BRoomName       string    `gorm:"column:turar_room;type:varchar(255);not null;index:idx_conn_b" json:"bRoomName"`
	ARoomID         *uint     `gorm:"column:projector_room_id" json:"aRoomId,omitempty"`
	BRoomID         *uint     `gorm:"column:turar_room_id" json:"bRoomId,omitempty"`
	Source          string    `gorm:"column:source;type:varchar(16);default:manual" json:"source"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (RoomConnection) TableName() string {
	return "room_connections"
}

// ConnectionKey is the natural identity of a connection by names.
type ConnectionKey struct {
	A RoomKey
	B RoomKey
}

func (c RoomConnection) Key() ConnectionKey {
	return ConnectionKey{
		A: RoomKey{Department: c.ADepartmentName, Room: c.ARoomName},
		B: RoomKey{Department: c.BDepartmentName, Room: c.BRoomName},
	}
}

// RoomOn returns the connection's room key on the given side.
func (c RoomConnection) RoomOn(side Side) RoomKey {
	if side == SideB {
		return RoomKey{Department: c.BDepartmentName, Room: c.BRoomName}
	}
	return RoomKey{Department: c.ADepartmentName, Room: c.ARoomName}
}

// RoomIDOn returns the connection's room id on the given side, if recorded.
func (c RoomConnection) RoomIDOn(side Side) *uint {
	if side == SideB {
		return c.BRoomID
	}
	return c.ARoomID
}

// HasRoomIDs reports whether both room ids were recorded.
func (c RoomConnection) HasRoomIDs() bool {
	return c.ARoomID != nil && c.BRoomID != nil
}
