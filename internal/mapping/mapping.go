// =============================================================================
// Spond Attendance Pipeline - Session Name Mapping
// =============================================================================
//
// This module manages the two human-curated lookup tables kept next to the
// pipeline output:
//
//   session_name_mappings.csv   raw_session_name,parsed_session_name
//     Maps raw/variant session names from exports to canonical names. The
//     reserved value __SKIP__ marks a name the curator explicitly left
//     unmapped; the pipeline keeps such names unchanged.
//
//   session_types.csv           session_name,category
//     Assigns a category to each canonical session name. The pipeline core
//     never consults categories; they exist for downstream consumers and
//     are written only through the enrichment workflow.
//
// Both files are optional: a missing file is the first-run bootstrap case
// and loads as empty. Entries are added only through the enrichment
// workflow; the pipeline itself only reads and applies mappings.
//
// =============================================================================

package mapping

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/stvtri/spond-attendance/internal/types"
	"github.com/stvtri/spond-attendance/pkg/utils"
)

// SkipSentinel is the reserved mapping value for "explicitly left
// unmapped". Names mapped to it keep their raw form.
const SkipSentinel = "__SKIP__"

// Lookup filenames within the output directory.
const (
	MappingsFilename = "session_name_mappings.csv"
	TypesFilename    = "session_types.csv"
)

// LoadNameMappings loads the raw -> parsed session-name mapping from path.
// A missing file yields an empty map.
func LoadNameMappings(path string) (map[string]string, error) {
	return loadTwoColumn(path, "raw_session_name", "parsed_session_name")
}

// SaveNameMappings writes mappings to path, sorted by raw name, replacing
// any prior content.
func SaveNameMappings(path string, mappings map[string]string) error {
	return saveTwoColumn(path, "raw_session_name", "parsed_session_name", mappings)
}

// LoadSessionTypes loads the canonical-name -> category mapping from path.
// A missing file yields an empty map.
func LoadSessionTypes(path string) (map[string]string, error) {
	return loadTwoColumn(path, "session_name", "category")
}

// SaveSessionTypes writes types to path, sorted by name, replacing any
// prior content.
func SaveSessionTypes(path string, types map[string]string) error {
	return saveTwoColumn(path, "session_name", "category", types)
}

// LoadCanonicalNames returns the set of canonical session names known to
// the types table at path.
func LoadCanonicalNames(path string) (map[string]bool, error) {
	sessionTypes, err := LoadSessionTypes(path)
	if err != nil {
		return nil, err
	}
	canonical := make(map[string]bool, len(sessionTypes))
	for name := range sessionTypes {
		canonical[name] = true
	}
	return canonical, nil
}

// FindUnmappedNames returns the session names that have no mapping entry
// and are not already canonical.
func FindUnmappedNames(names map[string]bool, mappings map[string]string, canonical map[string]bool) []string {
	var unmapped []string
	for name := range names {
		if _, ok := mappings[name]; ok {
			continue
		}
		if canonical[name] {
			continue
		}
		unmapped = append(unmapped, name)
	}
	sort.Strings(unmapped)
	return unmapped
}

// SessionNames collects the distinct session names appearing in records.
func SessionNames(records []types.AttendanceRecord) map[string]bool {
	names := make(map[string]bool)
	for _, r := range records {
		names[r.SessionName] = true
	}
	return names
}

// ApplyNameMappings rewrites every record's session name through the
// mapping table. Names without an entry, and names whose entry is the skip
// sentinel, are left unchanged.
func ApplyNameMappings(records []types.AttendanceRecord, mappings map[string]string) []types.AttendanceRecord {
	mapped := make([]types.AttendanceRecord, len(records))
	for i, r := range records {
		if parsed, ok := mappings[r.SessionName]; ok && parsed != SkipSentinel {
			r.SessionName = parsed
		}
		mapped[i] = r
	}
	return mapped
}

// =============================================================================
// TWO-COLUMN TABLE I/O
// =============================================================================

func loadTwoColumn(path, keyHeader, valueHeader string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return map[string]string{}, nil
	}

	if len(rows[0]) != 2 || rows[0][0] != keyHeader || rows[0][1] != valueHeader {
		return nil, fmt.Errorf("%s: unexpected header %v (want [%s %s])", path, rows[0], keyHeader, valueHeader)
	}

	table := make(map[string]string, len(rows)-1)
	for _, row := range rows[1:] {
		table[row[0]] = row[1]
	}
	return table, nil
}

func saveTwoColumn(path, keyHeader, valueHeader string, table map[string]string) error {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{keyHeader, valueHeader}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := w.Write([]string{k, table[k]}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return utils.ReplaceFile(path, buf.Bytes())
}
