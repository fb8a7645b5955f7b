// =============================================================================
// Spond Attendance Pipeline - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - converter
//   - csvparser
//   - csvwriter
//   - validation
//   - xlsxparser
//
// =============================================================================

package types

import "time"

// IdentityColumn is the header of the member-name column in every Spond
// export. Columns other than this one are either session columns (headered
// by a timestamp) or filler columns.
const IdentityColumn = "Name"

// RawExport is one input workbook's raw tabular content.
//
// Row 0 of Rows is reserved: for every session column it holds that
// session's display name, and for non-session columns it is empty. This is
// a positional convention of the Spond export tool, validated once by the
// validation package and trusted afterwards.
type RawExport struct {
	// SourceFile is the path the export was read from, for error messages.
	SourceFile string

	// Headers is the ordered sequence of column headers. A session column's
	// header is its session timestamp rendered as text.
	Headers []string

	// Rows holds the cell values, one slice per row, each padded to
	// len(Headers).
	Rows [][]string
}

// SessionColumnInfo describes one session column derived from a RawExport.
type SessionColumnInfo struct {
	// Name is the session display name from row 0, trimmed and with any
	// trailing asterisks stripped.
	Name string

	// Date is the session's calendar date, taken from the column header.
	Date time.Time
}

// AttendanceRecord is the long-form unit: one row per (member, session)
// pair. After deduplication at most one record exists per
// (Name, SessionName, SessionDate) triple.
type AttendanceRecord struct {
	// Name is the member's name as it appears in the export.
	Name string

	// SessionName is the session display name (after name mapping, the
	// canonical name).
	SessionName string

	// SessionDate is the session's calendar date.
	SessionDate time.Time

	// SessionDayOfWeek is the English weekday name derived from SessionDate.
	SessionDayOfWeek string

	// Attended is 1 only if the source cell coerced to the numeric value 1;
	// anything else (other numbers, text, empty cells) is 0.
	Attended int
}

// SessionRollup is one row of the session-level aggregate: total attendance
// for a single session instance.
type SessionRollup struct {
	SessionName      string
	SessionDate      time.Time
	SessionDayOfWeek string
	Attended         int
}

// DateKey returns the record's session date in ISO-8601 form, the form used
// both in the output files and as part of the deduplication key.
func (r AttendanceRecord) DateKey() string {
	return r.SessionDate.Format("2006-01-02")
}
