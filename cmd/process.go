// =============================================================================
// Spond Attendance Pipeline - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main entry into the
// pipeline. It orchestrates:
//
//   1. Load configuration
//   2. Discover attendance exports (oldest-first, batch-validated)
//   3. Select the files not yet processed (unless --full-refresh)
//   4. Convert the batch: read, validate, transform, deduplicate
//   5. Merge with previously materialized output (existing data wins)
//   6. Apply curated session-name mappings; optionally gather LLM
//      suggestions for unmapped names and uncategorized sessions
//   7. Write the detail table and session rollup
//   8. Rewrite the processed-file state
//
// Outputs and state are only written after the whole batch converts: a
// failing run leaves the output directory untouched.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/stvtri/spond-attendance/internal/catalog"
	"github.com/stvtri/spond-attendance/internal/config"
	"github.com/stvtri/spond-attendance/internal/converter"
	"github.com/stvtri/spond-attendance/internal/csvparser"
	"github.com/stvtri/spond-attendance/internal/csvwriter"
	"github.com/stvtri/spond-attendance/internal/mapping"
	"github.com/stvtri/spond-attendance/internal/types"
	"github.com/stvtri/spond-attendance/pkg/utils"
)

// Command flags.
var (
	// outputDir overrides the configured output directory.
	outputDir string

	// fullRefresh reprocesses every discovered file, ignoring state.
	fullRefresh bool

	// noLLM suppresses the suggestion step for unmapped session names.
	noLLM bool

	// dryRun converts and reports but writes no outputs or state.
	dryRun bool
)

// Seams for tests: suggester construction and the approval input stream.
var (
	newSuggester = func(cfg *config.MainConfig) mapping.Suggester {
		return &mapping.CLISuggester{
			Command: cfg.SuggesterCommand,
			Timeout: cfg.SuggesterTimeout(),
		}
	}
	approvalInput io.Reader = os.Stdin
)

var processCmd = &cobra.Command{
	Use:   "process <input-dir>",
	Short: "Process Spond attendance exports into the output tables",
	Long: `The process command scans the input directory for
spond_attendance_{month}_{yy}.xlsx exports, transforms each from wide to
long form, deduplicates across files (oldest export wins), applies curated
session-name mappings, and writes the pipe-delimited detail table plus the
per-session attendance rollup.

Runs are incremental: a state record in the output directory tracks which
files were already processed, and previously written output is merged in
with priority over new data. Use --full-refresh to rebuild from scratch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(args[0])
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(
		&outputDir,
		"output-dir",
		"o",
		"",
		"Output directory for CSV files (default from config, else output_data)",
	)
	processCmd.Flags().BoolVar(
		&fullRefresh,
		"full-refresh",
		false,
		"Reprocess all files, ignoring state",
	)
	processCmd.Flags().BoolVar(
		&noLLM,
		"no-llm",
		false,
		"Skip LLM suggestions for unmapped session names",
	)
	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Convert and report without writing outputs or state",
	)
}

// runProcess executes the pipeline for one invocation.
func runProcess(inputDir string) error {
	// =========================================================================
	// STEP 1: CONFIGURATION
	// =========================================================================

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return err
	}

	outDir := outputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", inputDir)
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	cat := catalog.NewCatalog()
	allFiles, err := cat.Discover(inputDir)
	if err != nil {
		return err
	}
	if len(allFiles) == 0 {
		return fmt.Errorf("no spond_attendance_*.xlsx files found in %s", inputDir)
	}

	// =========================================================================
	// STEP 3: SELECT NEW FILES
	// =========================================================================

	filesToProcess := allFiles
	if !fullRefresh {
		processed, err := catalog.LoadState(outDir)
		if err != nil {
			return err
		}
		filesToProcess = catalog.SelectNew(allFiles, processed)
	}

	if len(filesToProcess) == 0 {
		fmt.Println("No new files to process.")
		return nil
	}

	fmt.Printf("Processing %d file(s):\n", len(filesToProcess))
	for _, f := range filesToProcess {
		fmt.Printf("  %s\n", filepath.Base(f))
	}

	// =========================================================================
	// STEP 4: CONVERT THE BATCH
	// =========================================================================

	today := time.Now()
	result := converter.New(filesToProcess, cfg.DisclaimerPrefix, today).Run()
	if !result.Success {
		return result.Error
	}
	records := result.Records

	// =========================================================================
	// STEP 5: MERGE WITH EXISTING OUTPUT
	// =========================================================================
	// On an incremental run the previously materialized table is
	// authoritative: committed history wins every conflict with new data.

	detailPath := filepath.Join(outDir, csvwriter.DetailFilename)
	if !fullRefresh && utils.FileExists(detailPath) {
		existing, err := csvparser.ParseDetail(detailPath)
		if err != nil {
			return err
		}
		records = converter.MergeWithExisting(existing, records, today)
	}

	// =========================================================================
	// STEP 6: SESSION NAME MAPPING AND ENRICHMENT
	// =========================================================================

	mappingsPath := filepath.Join(outDir, mapping.MappingsFilename)
	typesPath := filepath.Join(outDir, mapping.TypesFilename)

	mappings, err := mapping.LoadNameMappings(mappingsPath)
	if err != nil {
		return err
	}
	canonical, err := mapping.LoadCanonicalNames(typesPath)
	if err != nil {
		return err
	}

	unmapped := mapping.FindUnmappedNames(mapping.SessionNames(records), mappings, canonical)
	if len(unmapped) > 0 {
		fmt.Printf("\n%d unmapped session name(s) found:\n", len(unmapped))
		for _, name := range unmapped {
			fmt.Printf("  - %s\n", name)
		}

		if noLLM {
			fmt.Println("\n(Skipping LLM suggestions - run without --no-llm to get suggestions)")
		} else if err := enrichMappings(cfg, mappingsPath, mappings, unmapped, canonical); err != nil {
			// Recoverable: continue with whatever mappings exist and leave
			// the rest for manual follow-up.
			fmt.Fprintf(os.Stderr, "Warning: suggestion step failed: %v\n", err)
		}
	}

	records = mapping.ApplyNameMappings(records, mappings)

	if err := enrichCategories(cfg, typesPath, mappings, records, canonical); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: category suggestion step failed: %v\n", err)
	}

	// =========================================================================
	// STEP 7: WRITE OUTPUTS
	// =========================================================================

	if dryRun {
		fmt.Printf("\nDry run: %d record(s) would be written to %s\n", len(records), outDir)
		return nil
	}

	detail, rollup, err := csvwriter.WriteOutputs(records, outDir)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 8: UPDATE STATE
	// =========================================================================
	// Full refresh accounts for every discovered file; incremental runs
	// extend the prior set with the files just processed.

	processed := map[string]bool{}
	if !fullRefresh {
		if processed, err = catalog.LoadState(outDir); err != nil {
			return err
		}
		for _, f := range filesToProcess {
			processed[filepath.Base(f)] = true
		}
	} else {
		for _, f := range allFiles {
			processed[filepath.Base(f)] = true
		}
	}
	if err := catalog.SaveState(outDir, processed); err != nil {
		return err
	}

	// =========================================================================
	// SUMMARY
	// =========================================================================

	fmt.Printf("\nOutput written:\n")
	fmt.Printf("  %s  (%d rows)\n", detail, len(records))
	fmt.Printf("  %s  (%d sessions)\n", rollup, countSessions(records))

	return nil
}

// enrichMappings asks the suggester for canonical-name proposals, walks the
// user through approval, and persists the updated mapping table. Skipped
// names are recorded with the skip sentinel so they are not re-asked.
func enrichMappings(cfg *config.MainConfig, mappingsPath string, mappings map[string]string, unmapped []string, canonical map[string]bool) error {
	fmt.Println("\nAsking for mapping suggestions...")

	suggester := newSuggester(cfg)
	suggestions, err := suggester.SuggestMappings(context.Background(), unmapped, canonical)
	if err != nil {
		return err
	}

	fmt.Println()
	approved, skipped, err := mapping.PromptApproval(approvalInput, os.Stdout, suggestions)
	if err != nil {
		return err
	}
	if len(approved) == 0 && len(skipped) == 0 {
		return nil
	}

	for raw, parsed := range approved {
		mappings[raw] = parsed
	}
	for raw := range skipped {
		mappings[raw] = mapping.SkipSentinel
	}
	if err := mapping.SaveNameMappings(mappingsPath, mappings); err != nil {
		return err
	}

	saved := len(approved) + len(skipped)
	msg := fmt.Sprintf("\n%d mapping(s) saved to %s", saved, mappingsPath)
	if len(skipped) > 0 {
		msg += fmt.Sprintf(" (%d skipped)", len(skipped))
	}
	fmt.Println(msg)
	return nil
}

// enrichCategories finds canonical session names missing from the types
// table and, unless suppressed, gathers and persists approved category
// assignments. Names explicitly skipped during mapping are excluded.
func enrichCategories(cfg *config.MainConfig, typesPath string, mappings map[string]string, records []types.AttendanceRecord, canonical map[string]bool) error {
	skippedNames := make(map[string]bool)
	for raw, parsed := range mappings {
		if parsed == mapping.SkipSentinel {
			skippedNames[raw] = true
		}
	}

	var uncategorized []string
	for name := range mapping.SessionNames(records) {
		if !canonical[name] && !skippedNames[name] {
			uncategorized = append(uncategorized, name)
		}
	}
	if len(uncategorized) == 0 {
		return nil
	}
	sort.Strings(uncategorized)

	fmt.Printf("\n%d session name(s) missing from %s:\n", len(uncategorized), filepath.Base(typesPath))
	for _, name := range uncategorized {
		fmt.Printf("  - %s\n", name)
	}

	if noLLM {
		fmt.Printf("(Add these to %s to assign categories)\n", filepath.Base(typesPath))
		return nil
	}

	fmt.Println("\nAsking for category suggestions...")

	existingTypes, err := mapping.LoadSessionTypes(typesPath)
	if err != nil {
		return err
	}

	suggester := newSuggester(cfg)
	suggestions, err := suggester.SuggestCategories(context.Background(), uncategorized, existingTypes)
	if err != nil {
		return err
	}

	fmt.Println()
	approved, _, err := mapping.PromptApproval(approvalInput, os.Stdout, suggestions)
	if err != nil {
		return err
	}
	if len(approved) == 0 {
		return nil
	}

	for name, category := range approved {
		existingTypes[name] = category
	}
	if err := mapping.SaveSessionTypes(typesPath, existingTypes); err != nil {
		return err
	}
	fmt.Printf("\n%d category assignment(s) saved to %s\n", len(approved), typesPath)
	return nil
}

// countSessions returns the number of distinct (session_name, session_date)
// pairs in records.
func countSessions(records []types.AttendanceRecord) int {
	type key struct {
		name string
		date string
	}
	seen := make(map[key]bool)
	for _, r := range records {
		seen[key{r.SessionName, r.DateKey()}] = true
	}
	return len(seen)
}
