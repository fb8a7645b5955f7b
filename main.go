// =============================================================================
// Spond Attendance Pipeline - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Spond attendance processing CLI.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   spond-attendance process <input-dir>  - Process attendance exports
//   spond-attendance version              - Display the application version
//
// ARCHITECTURE:
//   - cmd/        : CLI command definitions (Cobra)
//   - internal/   : Core pipeline logic (not for external import)
//   - pkg/        : Shared utilities
//
// =============================================================================

package main

import (
	"github.com/stvtri/spond-attendance/cmd"
)

func main() {
	cmd.Execute()
}
