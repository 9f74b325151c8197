package dataprocessing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither .xls nor .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// RowReader returns the cell text of the first sheet of a workbook.
//
// Rows are returned in table coordinates: the sheet's first line is a
// title and is dropped, so row 0 is the second sheet line. At most limit
// table rows are read when limit is positive.
type RowReader interface {
	ReadRows(path string, limit int) ([][]string, error)
}

// ReaderFor picks a RowReader by file extension.
func ReaderFor(path string) (RowReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return XLSXReader{}, nil
	case ".xls":
		return XLSReader{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// XLSXReader reads Office Open XML workbooks with excelize.
type XLSXReader struct{}

// ReadRows implements RowReader.
func (XLSXReader) ReadRows(path string, limit int) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		if limit > 0 && len(out) > limit {
			break
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		out = append(out, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return dropTitle(out), nil
}

// firstCustomFormat is the lowest BIFF number format index a workbook may
// define itself.
const firstCustomFormat = 164

// XLSReader reads legacy BIFF workbooks, the format the exchange publishes.
type XLSReader struct{}

// ReadRows implements RowReader.
func (XLSReader) ReadRows(path string, limit int) (out [][]string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	// The BIFF decoder panics on some malformed records.
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("decode workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	// The decoder renders RK numbers under a user-defined format as RFC 3339
	// timestamps. Results tables hold no date-valued numbers, so those
	// formats are dropped and the cells read as plain numbers.
	for idx := range wb.Formats {
		if idx >= firstCustomFormat {
			delete(wb.Formats, idx)
		}
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	n := int(sheet.MaxRow) + 1
	if limit > 0 && n > limit+1 {
		n = limit + 1
	}
	// ReadAllCells spills into later sheets once the first is exhausted, so
	// it is asked for exactly the first sheet's rows.
	all := wb.ReadAllCells(n)
	if len(all) > n {
		all = all[:n]
	}
	return dropTitle(all), nil
}

func dropTitle(rows [][]string) [][]string {
	if len(rows) == 0 {
		return nil
	}
	return rows[1:]
}
