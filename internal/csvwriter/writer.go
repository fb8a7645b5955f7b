// =============================================================================
// Spond Attendance Pipeline - Output Materializer
// =============================================================================
//
// This module writes the pipeline's two pipe-delimited output tables:
//
//   spond.csv               one row per attendance record
//     name|session_name|session_date|session_day_of_week|attended
//
//   session_attendance.csv  one row per distinct session instance, with
//                           the summed attendance count
//     session_name|session_date|session_day_of_week|attended
//
// Dates are ISO-8601. Both files arrive already sorted: the detail table
// keeps the deduplicator's (session_date, session_name, name) order, the
// rollup is sorted by (session_date, session_name). Downstream consumers
// rely on those orders and do not re-sort.
//
// Files are replaced atomically (temp file + rename) so a failed run never
// leaves a truncated table behind.
//
// =============================================================================

package csvwriter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/stvtri/spond-attendance/internal/types"
	"github.com/stvtri/spond-attendance/pkg/utils"
)

// Output filenames within the output directory.
const (
	DetailFilename = "spond.csv"
	RollupFilename = "session_attendance.csv"
)

// Delimiter is the field separator of both output tables.
const Delimiter = '|'

// DetailHeader is the exact header row of the detail table.
var DetailHeader = []string{"name", "session_name", "session_date", "session_day_of_week", "attended"}

// RollupHeader is the exact header row of the rollup table.
var RollupHeader = []string{"session_name", "session_date", "session_day_of_week", "attended"}

// BuildRollup aggregates the detail table into one row per distinct
// (session_name, session_date, session_day_of_week), summing attended,
// sorted ascending by (session_date, session_name).
func BuildRollup(records []types.AttendanceRecord) []types.SessionRollup {
	type key struct {
		name string
		date string
		day  string
	}

	totals := make(map[key]int)
	order := make([]key, 0)

	for _, r := range records {
		k := key{r.SessionName, r.DateKey(), r.SessionDayOfWeek}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] += r.Attended
	}

	rollup := make([]types.SessionRollup, 0, len(order))
	for _, k := range order {
		// The date round-trips through its ISO key, so every record of the
		// group contributes the same date value.
		rollup = append(rollup, types.SessionRollup{
			SessionName:      k.name,
			SessionDate:      mustParseISO(k.date),
			SessionDayOfWeek: k.day,
			Attended:         totals[k],
		})
	}

	sort.Slice(rollup, func(i, j int) bool {
		a, b := rollup[i], rollup[j]
		if !a.SessionDate.Equal(b.SessionDate) {
			return a.SessionDate.Before(b.SessionDate)
		}
		return a.SessionName < b.SessionName
	})

	return rollup
}

// WriteOutputs persists the detail table and its session rollup to
// outputDir, creating the directory if absent. It returns the paths of the
// two written files.
func WriteOutputs(records []types.AttendanceRecord, outputDir string) (string, string, error) {
	if err := utils.EnsureDir(outputDir); err != nil {
		return "", "", err
	}

	detailPath := filepath.Join(outputDir, DetailFilename)
	if err := writeTable(detailPath, DetailHeader, detailRows(records)); err != nil {
		return "", "", fmt.Errorf("failed to write detail table: %w", err)
	}

	rollupPath := filepath.Join(outputDir, RollupFilename)
	if err := writeTable(rollupPath, RollupHeader, rollupRows(BuildRollup(records))); err != nil {
		return "", "", fmt.Errorf("failed to write session rollup: %w", err)
	}

	return detailPath, rollupPath, nil
}

func detailRows(records []types.AttendanceRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Name,
			r.SessionName,
			r.DateKey(),
			r.SessionDayOfWeek,
			strconv.Itoa(r.Attended),
		})
	}
	return rows
}

func rollupRows(rollup []types.SessionRollup) [][]string {
	rows := make([][]string, 0, len(rollup))
	for _, r := range rollup {
		rows = append(rows, []string{
			r.SessionName,
			r.SessionDate.Format("2006-01-02"),
			r.SessionDayOfWeek,
			strconv.Itoa(r.Attended),
		})
	}
	return rows
}

func writeTable(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = Delimiter

	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return utils.ReplaceFile(path, buf.Bytes())
}

func mustParseISO(s string) (t time.Time) {
	t, _ = time.Parse("2006-01-02", s)
	return t
}
