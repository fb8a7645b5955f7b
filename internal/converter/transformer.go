// =============================================================================
// Spond Attendance Pipeline - Wide-to-Long Transformer
// =============================================================================
//
// This module turns one raw wide export into long-form attendance records.
// It has two parts:
//
//   1. Session-header parsing: a column whose header parses as a timestamp
//      is a session column; its date comes from the header and its display
//      name from row 0. Everything else (the Name column, filler columns)
//      is ignored.
//
//   2. Melting: every member row crossed with every session column yields
//      exactly one record. A blank cell is real data (the member did not
//      attend), not missing data.
//
// ROW FILTERING:
//   Row 0 carries session names, not attendance, and is always skipped.
//   Rows with an empty Name are skipped. Rows whose Name starts with the
//   disclaimer prefix are footer text injected by the export tool, also
//   skipped.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stvtri/spond-attendance/internal/types"
)

// DefaultDisclaimerPrefix marks the footer rows the Spond export tool
// appends below the member list. The match is a case-sensitive literal.
const DefaultDisclaimerPrefix = "*Attendance"

// ErrNoSessionColumns is returned when an export contains no column whose
// header parses as a session timestamp. This is fatal for the file.
var ErrNoSessionColumns = errors.New("no session columns found in file")

// duplicateSuffix matches the ".<digits>" suffix appended upstream when an
// export contains two sessions with identical timestamps (e.g.
// "2025-04-09 18:45:00.1"). It is stripped before header parsing.
var duplicateSuffix = regexp.MustCompile(`\.\d+$`)

// sessionHeaderLayouts are the timestamp forms a session column header may
// take, tried in order. Workbook date cells arrive as display text, so both
// ISO and common spreadsheet renderings are accepted.
var sessionHeaderLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/06 15:04",
	"01-02-06 15:04",
}

// ParseSessionHeader tries to interpret a column header as a session
// timestamp. The ok result is false for plain-text headers; that is not an
// error, it just means the column is not a session column.
func ParseSessionHeader(header string) (time.Time, bool) {
	cleaned := duplicateSuffix.ReplaceAllString(strings.TrimSpace(header), "")
	for _, layout := range sessionHeaderLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseSessionColumns builds the column-index -> session info mapping for
// every session column in raw. The column header is the authoritative date
// source; row 0 of the column is the authoritative name source.
//
// Returns ErrNoSessionColumns (wrapped with the source file) if no column
// header parses as a timestamp.
func ParseSessionColumns(raw *types.RawExport) (map[int]types.SessionColumnInfo, error) {
	info := make(map[int]types.SessionColumnInfo)

	for i, header := range raw.Headers {
		dt, ok := ParseSessionHeader(header)
		if !ok {
			continue
		}

		name := ""
		if len(raw.Rows) > 0 && i < len(raw.Rows[0]) {
			name = raw.Rows[0][i]
		}
		name = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(name), "*"))

		info[i] = types.SessionColumnInfo{
			Name: name,
			Date: time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC),
		}
	}

	if len(info) == 0 {
		return nil, fmt.Errorf("%s: %w", raw.SourceFile, ErrNoSessionColumns)
	}
	return info, nil
}

// CoerceAttended maps a raw cell value to the binary attendance signal.
// The mapping is total: a numeric value of exactly 1 is attendance, and
// every other input (other numbers, text, empty cells) is non-attendance.
func CoerceAttended(cell string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0
	}
	if v == 1 {
		return 1
	}
	return 0
}

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer reshapes raw exports into attendance records.
type Transformer struct {
	// DisclaimerPrefix identifies footer rows by their Name value.
	DisclaimerPrefix string
}

// NewTransformer creates a Transformer with the default disclaimer prefix.
func NewTransformer() *Transformer {
	return &Transformer{DisclaimerPrefix: DefaultDisclaimerPrefix}
}

// Transform converts one validated export into long-form records: one per
// (member row, session column) pair. Output order follows the input (rows
// outer, session columns by position); the deduplicator re-sorts, so this
// order carries no contract.
func (t *Transformer) Transform(raw *types.RawExport) ([]types.AttendanceRecord, error) {
	sessions, err := ParseSessionColumns(raw)
	if err != nil {
		return nil, err
	}

	nameIdx := identityIndex(raw.Headers)
	if nameIdx < 0 {
		return nil, fmt.Errorf("export %s has no %q column", raw.SourceFile, types.IdentityColumn)
	}

	// Stable column order for deterministic output.
	cols := make([]int, 0, len(sessions))
	for i := range sessions {
		cols = append(cols, i)
	}
	sort.Ints(cols)

	var records []types.AttendanceRecord

	// Row 0 is the session-name carrier, never a member.
	for _, row := range raw.Rows[1:] {
		name := row[nameIdx]
		if name == "" || strings.HasPrefix(name, t.DisclaimerPrefix) {
			continue
		}

		for _, col := range cols {
			session := sessions[col]
			records = append(records, types.AttendanceRecord{
				Name:             name,
				SessionName:      session.Name,
				SessionDate:      session.Date,
				SessionDayOfWeek: session.Date.Weekday().String(),
				Attended:         CoerceAttended(row[col]),
			})
		}
	}

	return records, nil
}

func identityIndex(headers []string) int {
	for i, h := range headers {
		if h == types.IdentityColumn {
			return i
		}
	}
	return -1
}
