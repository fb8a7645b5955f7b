// =============================================================================
// Spond Attendance Pipeline - Batch Converter
// =============================================================================
//
// This module orchestrates the per-file stages for one batch of exports:
//
//   1. Read each workbook into a RawExport (xlsxparser)
//   2. Check the structural preconditions once (validation)
//   3. Reshape wide to long (transformer)
//   4. Deduplicate across the batch, oldest file winning (dedup)
//
// The input file list must already be sorted oldest-first; each file's
// position in that list is its priority rank.
//
// ERROR HANDLING:
//   The batch is fail-fast. A structurally invalid file (unreadable, no
//   Name column, no session columns) aborts the whole run with no partial
//   output: the caller only persists results on success.
//
// =============================================================================

package converter

import (
	"fmt"
	"time"

	"github.com/stvtri/spond-attendance/internal/types"
	"github.com/stvtri/spond-attendance/internal/validation"
	"github.com/stvtri/spond-attendance/internal/xlsxparser"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of converting one batch of export files.
type Result struct {
	// Records is the deduplicated long table. Empty if the batch failed.
	Records []types.AttendanceRecord

	// Success indicates whether the whole batch converted.
	Success bool

	// Error is the failure cause when Success is false.
	Error error

	// Stats contains batch statistics.
	Stats BatchStats
}

// BatchStats contains statistics about a batch conversion.
type BatchStats struct {
	// FilesProcessed is the number of export files read.
	FilesProcessed int

	// RowsEmitted is the record count before deduplication.
	RowsEmitted int

	// ProcessingTime is the time taken to convert the batch.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER
// =============================================================================

// Converter converts one oldest-first batch of export files into a
// deduplicated long table.
type Converter struct {
	files       []string
	transformer *Transformer
	today       time.Time
	reader      func(path string) (*types.RawExport, error)
}

// New creates a Converter for files, which must be sorted oldest-first.
// today is the processing date used by the future-session filter.
func New(files []string, disclaimerPrefix string, today time.Time) *Converter {
	return &Converter{
		files:       files,
		transformer: &Transformer{DisclaimerPrefix: disclaimerPrefix},
		today:       today,
		reader:      xlsxparser.Read,
	}
}

// Run executes the batch conversion.
func (c *Converter) Run() Result {
	startTime := time.Now()
	result := Result{Success: false}

	var ranked []RankedRecord

	for rank, path := range c.files {
		raw, err := c.reader(path)
		if err != nil {
			result.Error = fmt.Errorf("failed to read %s: %w", path, err)
			return result
		}

		if err := validation.ValidateExport(raw); err != nil {
			result.Error = err
			return result
		}

		records, err := c.transformer.Transform(raw)
		if err != nil {
			result.Error = err
			return result
		}

		ranked = append(ranked, RankRecords(records, rank)...)
		result.Stats.FilesProcessed++
	}

	result.Stats.RowsEmitted = len(ranked)
	result.Records = Deduplicate(ranked, c.today)
	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)

	return result
}
