package labels

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the label workbook
const (
	SheetLocations = "Locations"
	SheetTotems    = "Totems"
)

// ContentType is the MIME type of the workbooks written here
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var locationHeader = []interface{}{"Barcode", "Code", "Aisle", "Bay", "Level", "Type", "Forklift"}

var totemHeader = []interface{}{"Aisle", "Bay", "Level", "Barcode", "Forklift"}

// WriteSheet writes the location labels and bay totems of locs as an XLSX
// workbook to w.
func WriteSheet(w io.Writer, locs []*repository.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetLocations); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetTotems); err != nil {
		return err
	}

	if err := setRow(f, SheetLocations, 1, locationHeader); err != nil {
		return err
	}
	for i, label := range ForLocations(locs) {
		row := []interface{}{label.Barcode, label.Code, label.Aisle, label.Bay, label.Level, label.LocationType, yesNo(label.ForkliftRequired)}
		if err := setRow(f, SheetLocations, i+2, row); err != nil {
			return err
		}
	}

	if err := setRow(f, SheetTotems, 1, totemHeader); err != nil {
		return err
	}
	rowNum := 2
	for _, totem := range Totems(locs) {
		for _, level := range totem.Levels {
			row := []interface{}{totem.Aisle, totem.Bay, level.Level, level.Barcode, yesNo(level.ForkliftRequired)}
			if err := setRow(f, SheetTotems, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
	}

	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ImportRow is one location parsed from an import workbook.
type ImportRow struct {
	Row              int    `json:"row"`
	Aisle            string `json:"aisle"`
	Bay              string `json:"bay"`
	Level            string `json:"level"`
	LocationType     string `json:"location_type"`
	ForkliftRequired bool   `json:"forklift_required"`
	CapacityCases    *int   `json:"capacity_cases,omitempty"`
}

// RowError reports why a workbook row was skipped. Row is 1-based as shown
// in a spreadsheet; row 0 means the workbook itself.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

var importColumns = []string{"aisle", "bay", "level", "type", "forklift", "capacity"}

// ReadLocations reads the first sheet of an XLSX workbook. The first row is a
// header naming the columns aisle, bay, level, type, forklift and capacity in
// any order; forklift and capacity are optional. Rows that cannot be parsed
// are reported and skipped.
func ReadLocations(r io.Reader) ([]ImportRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, []RowError{{Row: 0, Message: "workbook contains no sheets"}}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, []RowError{{Row: 0, Message: "workbook must contain a header row and at least one data row"}}, nil
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range importColumns[:4] {
		if _, ok := cols[required]; !ok {
			return nil, []RowError{{Row: 1, Message: "missing column " + required}}, nil
		}
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var parsed []ImportRow
	var rowErrors []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}

		out := ImportRow{
			Row:          rowNum,
			Aisle:        cell(row, "aisle"),
			Bay:          cell(row, "bay"),
			Level:        cell(row, "level"),
			LocationType: strings.ToLower(cell(row, "type")),
		}

		switch strings.ToLower(cell(row, "forklift")) {
		case "", "no", "n", "false", "0":
		case "yes", "y", "true", "1":
			out.ForkliftRequired = true
		default:
			rowErrors = append(rowErrors, RowError{Row: rowNum, Message: "forklift must be yes or no"})
			continue
		}

		if raw := cell(row, "capacity"); raw != "" {
			capacity, err := strconv.Atoi(raw)
			if err != nil || capacity < 1 {
				rowErrors = append(rowErrors, RowError{Row: rowNum, Message: "capacity must be a positive whole number"})
				continue
			}
			out.CapacityCases = &capacity
		}

		parsed = append(parsed, out)
	}

	return parsed, rowErrors, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
