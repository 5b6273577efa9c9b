package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/smarttransit/internal/model"
)

// SheetName is the worksheet holding the exported history.
const SheetName = "Отчеты"

var exportHeadings = []string{"Дата", "Тип отчета", "Название", "Размер", "Статус", "ID"}

// ExportXLSX writes the report history as a spreadsheet.
func ExportXLSX(reports []model.Report, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, h := range exportHeadings {
		if err := setCell(f, col+1, 1, h); err != nil {
			return err
		}
	}

	for i, r := range reports {
		row := i + 2
		values := []any{
			r.CreatedAt.Format("02.01.2006 15:04"),
			r.Type,
			r.Name,
			r.Size,
			string(r.Status),
			r.ID,
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("invalid cell %d:%d: %w", col, row, err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell, err)
	}
	return nil
}
