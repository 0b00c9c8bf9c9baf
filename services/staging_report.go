package services

import (
	"bytes"
	"fmt"

	"facility-backend/models"

	"github.com/xuri/excelize/v2"
)

var stagingHeaders = []string{
	"Original ID", "Department", "Room", "Room Code", "Area",
	"Equipment Code", "Equipment Name", "Quantity", "Unit", "Notes",
}

var stagingColumnWidths = []float64{12, 30, 25, 14, 10, 18, 40, 10, 10, 40}

// StagingWorkbook renders the staging rows of a mapping as an xlsx workbook
// with one sheet per inventory.
func StagingWorkbook(rows *StagingRows) ([]byte, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []struct {
		name string
		dept string
		rows []models.StagingRow
	}{
		{"Projector", rows.Mapping.ADepartmentName, rows.A},
		{"Turar", rows.Mapping.BDepartmentName, rows.B},
	}
	for i, sh := range sheets {
		if err := writeStagingSheet(f, sh.name, sh.rows, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s (%s): %w", sh.name, sh.dept, err)
		}
		if i == 0 {
			idx, err := f.GetSheetIndex(sh.name)
			if err == nil {
				f.SetActiveSheet(idx)
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeStagingSheet(f *excelize.File, sheet string, rows []models.StagingRow, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := make([]any, len(stagingHeaders))
	for i, h := range stagingHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(stagingHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, w := range stagingColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.OriginalRecordID, r.DepartmentName, r.RoomName,
			str(r.RoomCode), num(r.Area), str(r.EquipmentCode), str(r.EquipmentName),
			num(r.Quantity), str(r.Unit), str(r.Notes),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// str and num leave empty cells for missing values.
func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func num(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
