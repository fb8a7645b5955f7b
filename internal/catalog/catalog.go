// =============================================================================
// Spond Attendance Pipeline - File Catalog
// =============================================================================
//
// This module is responsible for finding the attendance exports to process.
// It handles:
//   - Filename validation against the Spond export naming convention
//   - Extraction of the effective year/month encoded in each filename
//   - Oldest-first ordering of the input batch
//   - Incremental-run state (which files were already processed)
//
// NAMING CONVENTION:
//   spond_attendance_<month>_<yy>.xlsx
//
//   <month> is a case-insensitive English month abbreviation (jan..dec,
//   plus the four-letter "sept" variant) and <yy> is a two-digit year
//   interpreted as 2000+yy. Excel lock artifacts ("~$" prefix) are ignored.
//   Any other .xlsx file in the input directory is an error: the whole
//   batch is validated before any file is accepted.
//
// =============================================================================

package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stvtri/spond-attendance/pkg/utils"
)

// StateFilename is the name of the processed-file state record kept in the
// output directory.
const StateFilename = ".spond_state.json"

// lockFilePrefix marks Excel temp/lock artifacts, silently skipped during
// discovery.
const lockFilePrefix = "~$"

// filenamePattern matches the export naming convention and captures the
// month token and the two-digit year.
var filenamePattern = regexp.MustCompile(`(?i)spond_attendance_([a-z]+)_(\d{2})\.xlsx$`)

// =============================================================================
// ERROR TYPES
// =============================================================================

// BadFormatError reports a single filename that does not match the export
// naming convention.
type BadFormatError struct {
	Filename string
}

func (e *BadFormatError) Error() string {
	return fmt.Sprintf("filename does not match expected pattern spond_attendance_{month}_{yy}.xlsx: %s", e.Filename)
}

// UnexpectedFilesError aggregates every non-conforming candidate found
// during discovery. Discovery is all-or-nothing: one bad file fails the
// whole call, and the message enumerates all offenders.
type UnexpectedFilesError struct {
	Filenames []string
}

func (e *UnexpectedFilesError) Error() string {
	sorted := append([]string(nil), e.Filenames...)
	sort.Strings(sorted)
	return fmt.Sprintf("unexpected xlsx file(s) in directory: %s (expected format: spond_attendance_{month}_{yy}.xlsx)",
		strings.Join(sorted, ", "))
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog resolves filenames to dates and discovers input batches. The
// month table is injected so it stays immutable configuration rather than
// package state.
type Catalog struct {
	months map[string]time.Month
}

// DefaultMonths returns the month-abbreviation table used by the Spond
// export naming convention. "sep" and "sept" both map to September.
func DefaultMonths() map[string]time.Month {
	return map[string]time.Month{
		"jan":  time.January,
		"feb":  time.February,
		"mar":  time.March,
		"apr":  time.April,
		"may":  time.May,
		"jun":  time.June,
		"jul":  time.July,
		"aug":  time.August,
		"sep":  time.September,
		"sept": time.September,
		"oct":  time.October,
		"nov":  time.November,
		"dec":  time.December,
	}
}

// NewCatalog creates a Catalog with the default month table.
func NewCatalog() *Catalog {
	return &Catalog{months: DefaultMonths()}
}

// ParseFileDate extracts the effective date from an export filename.
// The returned date is the first of the encoded month, used purely as an
// ordering key for the batch.
func (c *Catalog) ParseFileDate(filename string) (time.Time, error) {
	match := filenamePattern.FindStringSubmatch(filepath.Base(filename))
	if match == nil {
		return time.Time{}, &BadFormatError{Filename: filepath.Base(filename)}
	}

	month, ok := c.months[strings.ToLower(match[1])]
	if !ok {
		return time.Time{}, &BadFormatError{Filename: filepath.Base(filename)}
	}

	yy, err := strconv.Atoi(match[2])
	if err != nil {
		// Unreachable given the \d{2} capture, but keep the error path total.
		return time.Time{}, &BadFormatError{Filename: filepath.Base(filename)}
	}

	return time.Date(2000+yy, month, 1, 0, 0, 0, 0, time.UTC), nil
}

// Discover finds all attendance exports in dir, sorted oldest-first by the
// date encoded in the filename (ties keep enumeration order).
//
// Lock artifacts (~$ prefix) are skipped. Every other .xlsx file must match
// the naming convention; otherwise the call fails with a single
// *UnexpectedFilesError listing every offender, and no file is accepted.
func (c *Catalog) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", dir, err)
	}

	var files []string
	var unexpected []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		if strings.HasPrefix(name, lockFilePrefix) {
			continue
		}
		if _, err := c.ParseFileDate(name); err != nil {
			unexpected = append(unexpected, name)
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}

	if len(unexpected) > 0 {
		return nil, &UnexpectedFilesError{Filenames: unexpected}
	}

	// Stable sort so files from the same month keep enumeration order.
	sort.SliceStable(files, func(i, j int) bool {
		di, _ := c.ParseFileDate(files[i])
		dj, _ := c.ParseFileDate(files[j])
		return di.Before(dj)
	})

	return files, nil
}

// SelectNew returns the files whose base names are not in the processed
// set, preserving the relative order of allFiles.
func SelectNew(allFiles []string, processed map[string]bool) []string {
	var selected []string
	for _, f := range allFiles {
		if !processed[filepath.Base(f)] {
			selected = append(selected, f)
		}
	}
	return selected
}

// =============================================================================
// PROCESSED-FILE STATE
// =============================================================================

// stateRecord is the on-disk shape of the processed-file state. The record
// is replaced wholesale on every save; RunID identifies the run that last
// rewrote it.
type stateRecord struct {
	RunID          string   `json:"run_id"`
	UpdatedAt      string   `json:"updated_at"`
	ProcessedFiles []string `json:"processed_files"`
}

// LoadState loads the set of previously processed filenames from the state
// record in outputDir. A missing state file is a first run, not an error:
// it yields an empty set.
func LoadState(outputDir string) (map[string]bool, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, StateFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var record stateRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	processed := make(map[string]bool, len(record.ProcessedFiles))
	for _, name := range record.ProcessedFiles {
		processed[name] = true
	}
	return processed, nil
}

// SaveState persists the processed-file set to outputDir, replacing any
// prior record. Filenames are stored sorted; the write goes through a temp
// file and rename so a crash never leaves a half-written state record.
func SaveState(outputDir string, processed map[string]bool) error {
	names := make([]string, 0, len(processed))
	for name := range processed {
		names = append(names, name)
	}
	sort.Strings(names)

	record := stateRecord{
		RunID:          uuid.NewString(),
		UpdatedAt:      time.Now().UTC().Format(time.RFC3339),
		ProcessedFiles: names,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	path := filepath.Join(outputDir, StateFilename)
	if err := utils.ReplaceFile(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
