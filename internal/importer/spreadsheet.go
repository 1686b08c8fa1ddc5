package importer

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/starford/dataforge/internal/apperr"
	"github.com/starford/dataforge/internal/models"
)

// parseSpreadsheet reads the first sheet of a workbook. Other sheets are
// ignored. The first row is the header; missing cells are null and fully
// blank rows are skipped.
func parseSpreadsheet(_ context.Context, f File) (*table, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(f.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", apperr.ErrParseFailure, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return &table{}, nil
	}
	sheet := sheets[0]

	raw, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", apperr.ErrParseFailure, sheet, err)
	}
	if len(raw) == 0 {
		return &table{}, nil
	}

	width := 0
	for _, r := range raw {
		width = max(width, len(r))
	}
	header := make([]string, width)
	copy(header, raw[0])
	columns := uniqueHeaders(header)

	var rows []models.Row
	for i, r := range raw[1:] {
		rowNum := i + 2 // 1-based, after the header
		row := make(models.Row, width)
		blank := true
		for col := 0; col < width; col++ {
			v := models.Null
			if col < len(r) && r[col] != "" {
				v, err = spreadsheetCell(wb, sheet, col+1, rowNum, r[col])
				if err != nil {
					return nil, err
				}
				blank = false
			}
			row[columns[col]] = v
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}

	return &table{columns: columns, rows: rows}, nil
}

// spreadsheetCell types a raw cell value from its stored cell type. Dates
// stay serial numbers.
func spreadsheetCell(wb *excelize.File, sheet string, col, row int, raw string) (models.Value, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return models.Null, fmt.Errorf("%w: %v", apperr.ErrParseFailure, err)
	}
	typ, err := wb.GetCellType(sheet, name)
	if err != nil {
		return models.Null, fmt.Errorf("%w: cell %s: %v", apperr.ErrParseFailure, name, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return models.Bool(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError, excelize.CellTypeFormula:
		return models.Str(raw), nil
	default:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return models.Num(n), nil
		}
		return models.Str(raw), nil
	}
}
