package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Layout of the generated results sheet, in table coordinates (the title
// line above the table is not counted).
const (
	SheetDateRow    = 2
	SheetHeaderRow  = 6
	SheetDataRow    = SheetHeaderRow + 3
	SheetLabelCol   = 1
	SheetCountCol   = 14
	SheetTitleValue = "Бюллетень по итогам торгов"
)

// ResultRow is one data row of a trading results table. Numeric columns are
// strings so tests can place malformed values.
type ResultRow struct {
	ProductID   string
	ProductName string
	BasisName   string
	Volume      string
	Total       string
	Count       string
}

// ResultsSheet builds a trading results workbook cell by cell.
type ResultsSheet struct {
	cells map[[2]int]any
}

// NewResultsSheet returns an empty sheet with the title line set.
func NewResultsSheet() *ResultsSheet {
	return &ResultsSheet{cells: make(map[[2]int]any)}
}

// Set places v at table row/col (both zero based).
func (s *ResultsSheet) Set(row, col int, v any) *ResultsSheet {
	s.cells[[2]int{row, col}] = v
	return s
}

// StandardResultsSheet lays out a complete table: document date, header
// marker, the given rows and a closing total marker.
func StandardResultsSheet(dateCell, headerMarker, totalMarker string, rows []ResultRow) *ResultsSheet {
	s := NewResultsSheet()
	s.Set(SheetDateRow, SheetLabelCol, dateCell)
	s.Set(SheetHeaderRow-2, SheetLabelCol, "Секция Биржи: «Нефтепродукты» АО «СПбМТСБ»")
	s.Set(SheetHeaderRow, SheetLabelCol, headerMarker)
	s.Set(SheetHeaderRow+1, SheetLabelCol, "Код Инструмента")
	s.Set(SheetHeaderRow+1, SheetCountCol, "Количество Договоров, шт.")

	r := SheetDataRow
	for _, row := range rows {
		s.Set(r, 1, row.ProductID)
		s.Set(r, 2, row.ProductName)
		s.Set(r, 3, row.BasisName)
		s.Set(r, 4, row.Volume)
		s.Set(r, 5, row.Total)
		s.Set(r, SheetCountCol, row.Count)
		r++
	}
	s.Set(r, SheetLabelCol, totalMarker)
	return s
}

// SaveXLSX writes the sheet to dir/name and returns the path.
func (s *ResultsSheet) SaveXLSX(t *testing.T, dir, name string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	title, err := excelize.CoordinatesToCellName(1, 1)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(sheet, title, SheetTitleValue))

	for pos, v := range s.cells {
		// table row r is sheet row r+2 in excel's 1-based numbering
		cell, err := excelize.CoordinatesToCellName(pos[1]+1, pos[0]+2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}
