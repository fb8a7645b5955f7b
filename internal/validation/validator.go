// =============================================================================
// Spond Attendance Pipeline - Export Validation
// =============================================================================
//
// This module checks the structural preconditions the transformer relies
// on. The Spond export layout is a positional convention, so the checks run
// exactly once per file, before any transformation:
//   - The identity column ("Name") must be present in the header row.
//   - The session-name carrier row (row 0) must exist.
//
// ERROR HANDLING:
//   Violations are fatal for the file, and a batch containing an invalid
//   file is a hard stop for the run: the pipeline never persists partial
//   results.
//
// =============================================================================

package validation

import (
	"fmt"

	"github.com/stvtri/spond-attendance/internal/types"
)

// ValidateExport verifies that raw satisfies the structural conventions of
// a Spond attendance export.
func ValidateExport(raw *types.RawExport) error {
	if !hasIdentityColumn(raw.Headers) {
		return fmt.Errorf("export %s has no %q column", raw.SourceFile, types.IdentityColumn)
	}

	// Row 0 carries the session display names. Without it there is nothing
	// to name sessions from, even if session columns exist.
	if len(raw.Rows) == 0 {
		return fmt.Errorf("export %s has no session-name row", raw.SourceFile)
	}

	return nil
}

func hasIdentityColumn(headers []string) bool {
	for _, h := range headers {
		if h == types.IdentityColumn {
			return true
		}
	}
	return false
}
