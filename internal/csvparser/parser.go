// =============================================================================
// Spond Attendance Pipeline - Detail Table Parser
// =============================================================================
//
// This module reads a previously materialized detail table (spond.csv) back
// into attendance records. It exists for the incremental path: on a run
// that only processes new files, the accumulated table is re-read here and
// merged with the new data, with the accumulated side winning every
// conflict.
//
// The parser is strict about the schema. The detail table is this
// pipeline's own output, so a header or row that does not match the
// documented pipe-delimited layout means the file was edited or corrupted,
// and the run should stop rather than merge against bad history.
//
// =============================================================================

package csvparser

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/stvtri/spond-attendance/internal/types"
)

// expectedHeader is the detail table's documented header row.
var expectedHeader = []string{"name", "session_name", "session_date", "session_day_of_week", "attended"}

// ParseDetail reads the pipe-delimited detail table at path.
func ParseDetail(path string) ([]types.AttendanceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detail table %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '|'

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail table %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("detail table %s is empty", path)
	}

	if err := checkHeader(rows[0]); err != nil {
		return nil, fmt.Errorf("detail table %s: %w", path, err)
	}

	records := make([]types.AttendanceRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("detail table %s row %d: %w", path, i+2, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func checkHeader(header []string) error {
	if len(header) != len(expectedHeader) {
		return fmt.Errorf("unexpected header with %d column(s)", len(header))
	}
	for i, h := range header {
		if h != expectedHeader[i] {
			return fmt.Errorf("unexpected header column %q (want %q)", h, expectedHeader[i])
		}
	}
	return nil
}

func parseRow(row []string) (types.AttendanceRecord, error) {
	date, err := time.Parse("2006-01-02", row[2])
	if err != nil {
		return types.AttendanceRecord{}, fmt.Errorf("invalid session_date %q: %w", row[2], err)
	}

	attended, err := strconv.Atoi(row[4])
	if err != nil {
		return types.AttendanceRecord{}, fmt.Errorf("invalid attended value %q: %w", row[4], err)
	}

	return types.AttendanceRecord{
		Name:             row[0],
		SessionName:      row[1],
		SessionDate:      date,
		SessionDayOfWeek: row[3],
		Attended:         attended,
	}, nil
}
