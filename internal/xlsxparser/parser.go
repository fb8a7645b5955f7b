// =============================================================================
// Spond Attendance Pipeline - XLSX Export Reader
// =============================================================================
//
// This module reads one Spond attendance workbook into the generic
// RawExport table the rest of the pipeline works with. The reader is
// deliberately dumb: it takes the first sheet, treats the first spreadsheet
// row as headers, and returns every following row padded to header width.
// All interpretation (which columns are sessions, which rows are members)
// happens in the converter.
//
// EXPORT LAYOUT:
//   | Name    | <filler> | 2025-04-09 18:45:00 | 2025-04-12 09:00:00 | ...
//   |         |          | Club Swim*          | Saturday Run        |   <- row 0
//   | Alice A |          | 1                   |                     |
//   | Bob B   |          |                     | 1                   |
//   | *Attendance is registered ...                                  |   <- footer
//
// =============================================================================

package xlsxparser

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/stvtri/spond-attendance/internal/types"
)

// Read opens the workbook at path and returns its first sheet as a
// RawExport. The sheet must contain at least a header row.
func Read(path string) (*types.RawExport, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q from %s: %w", sheetName, path, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s is empty", path)
	}

	headers := rows[0]

	// excelize trims trailing empty cells per row; pad so every row indexes
	// safely against the header width.
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		padded := make([]string, len(headers))
		copy(padded, row)
		data = append(data, padded)
	}

	return &types.RawExport{
		SourceFile: path,
		Headers:    headers,
		Rows:       data,
	}, nil
}
