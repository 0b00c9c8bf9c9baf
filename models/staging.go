package models

import "time"

// StagingRow is a mapping-tagged, flattened copy of an inventory row used for
// reporting. Rows are never updated in place.
type StagingRow struct {
	ID               uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	MappingID        uint     `gorm:"column:mapping_id;not null;index" json:"mappingId"`
	OriginalRecordID uint     `gorm:"column:original_record_id;not null" json:"originalRecordId"`
	DepartmentName   string   `gorm:"column:department_name;type:varchar(255)" json:"departmentName"`
	RoomName         string   `gorm:"column:room_name;type:varchar(255)" json:"roomName"`
	RoomCode         *string  `gorm:"column:room_code;type:varchar(100)" json:"roomCode,omitempty"`
	Area             *float64 `gorm:"column:area" json:"area,omitempty"`
	EquipmentCode    *string  `gorm:"column:equipment_code;type:varchar(100)" json:"equipmentCode,omitempty"`
	EquipmentName    *string  `gorm:"column:equipment_name;type:varchar(500)" json:"equipmentName,omitempty"`
	Quantity         *float64 `gorm:"column:quantity" json:"quantity,omitempty"`
	Unit             *string  `gorm:"column:unit;type:varchar(50)" json:"unit,omitempty"`
	Notes            *string  `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// StagingProjectorRow is a staging copy of an inventory A row.
type StagingProjectorRow struct {
	StagingRow
}

func (StagingProjectorRow) TableName() string {
	return "staging_projector_rows"
}

// StagingTurarRow is a staging copy of an inventory B row.
type StagingTurarRow struct {
	StagingRow
}

func (StagingTurarRow) TableName() string {
	return "staging_turar_rows"
}

// NewStagingRow flattens rec into a staging row tagged with mappingID.
func NewStagingRow(mappingID uint, rec InventoryRecord) StagingRow {
	key := rec.Key()
	line := rec.Line()
	return StagingRow{
		MappingID:        mappingID,
		OriginalRecordID: rec.RecordID(),
		DepartmentName:   key.Department,
		RoomName:         key.Room,
		RoomCode:         line.RoomCode,
		Area:             line.Area,
		EquipmentCode:    line.EquipmentCode,
		EquipmentName:    line.EquipmentName,
		Quantity:         line.Quantity,
		Unit:             line.Unit,
		Notes:            line.Notes,
	}
}
