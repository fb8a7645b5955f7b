// =============================================================================
// Spond Attendance Pipeline - Deduplicator / Merger
// =============================================================================
//
// This module resolves conflicts between records of the same
// (name, session_name, session_date) key arriving from different sources.
//
// PRIORITY RULE:
//   Sources carry a rank equal to their position in the oldest-first file
//   ordering, and the lowest rank wins. Members who leave the club are
//   dropped from later exports, so the oldest export is the more complete
//   historical record; an attendance value recorded by an older export is
//   never overwritten by a later export's view of the same session.
//
// INCREMENTAL MERGE:
//   When combining previously materialized output with newly transformed
//   data, the existing table is always rank 0 and the new data rank 1,
//   regardless of calendar file dates. Committed history is authoritative.
//   This two-tier rule is intentionally separate from the N-file batch
//   rule; do not unify them.
//
// TEMPORAL FILTER:
//   Spond pre-creates future sessions as placeholder columns. Any record
//   whose session date is not strictly before the processing date is
//   dropped after conflict resolution.
//
// =============================================================================

package converter

import (
	"sort"
	"time"

	"github.com/stvtri/spond-attendance/internal/types"
)

// RankedRecord pairs an attendance record with its source priority rank.
type RankedRecord struct {
	Record types.AttendanceRecord
	Rank   int
}

// RankRecords tags every record in recs with the given rank.
func RankRecords(recs []types.AttendanceRecord, rank int) []RankedRecord {
	ranked := make([]RankedRecord, 0, len(recs))
	for _, r := range recs {
		ranked = append(ranked, RankedRecord{Record: r, Rank: rank})
	}
	return ranked
}

// Deduplicate resolves conflicts in ranked and returns a conflict-free long
// table: for each (name, session_name, session_date) key the record with
// the lowest rank survives (ties keep the earlier record), records dated
// today or later are dropped, and the result is sorted ascending by
// (session_date, session_name, name). Consumers rely on that order.
func Deduplicate(ranked []RankedRecord, today time.Time) []types.AttendanceRecord {
	type key struct {
		name    string
		session string
		date    string
	}

	best := make(map[key]RankedRecord)
	order := make([]key, 0, len(ranked))

	for _, rr := range ranked {
		k := key{rr.Record.Name, rr.Record.SessionName, rr.Record.DateKey()}
		if existing, ok := best[k]; ok {
			if rr.Rank < existing.Rank {
				best[k] = rr
			}
			continue
		}
		best[k] = rr
		order = append(order, k)
	}

	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	result := make([]types.AttendanceRecord, 0, len(order))
	for _, k := range order {
		rec := best[k].Record
		if !rec.SessionDate.Before(today) {
			continue
		}
		result = append(result, rec)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.SessionDate.Equal(b.SessionDate) {
			return a.SessionDate.Before(b.SessionDate)
		}
		if a.SessionName != b.SessionName {
			return a.SessionName < b.SessionName
		}
		return a.Name < b.Name
	})

	return result
}

// MergeWithExisting combines previously materialized output with newly
// transformed data. Existing records win every conflict.
func MergeWithExisting(existing, new []types.AttendanceRecord, today time.Time) []types.AttendanceRecord {
	ranked := RankRecords(existing, 0)
	ranked = append(ranked, RankRecords(new, 1)...)
	return Deduplicate(ranked, today)
}
