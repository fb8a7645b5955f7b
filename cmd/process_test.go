package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/stvtri/spond-attendance/internal/csvparser"
	"github.com/stvtri/spond-attendance/internal/types"
)

// writeExport fabricates a Spond attendance workbook: header row, session
// name carrier row, member rows, disclaimer footer.
func writeExport(t *testing.T, path string, headers []string, rows [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for c, h := range headers {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			t.Fatal(err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
}

// resetFlags puts the package-level command flags into a known state and
// points the config file at a nonexistent path so defaults apply.
func resetFlags(t *testing.T, outDir string) {
	t.Helper()
	outputDir = outDir
	fullRefresh = false
	noLLM = true
	dryRun = false
	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
}

// runCaptured runs runProcess and returns its stdout.
func runCaptured(t *testing.T, inputDir string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	runErr := runProcess(inputDir)

	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out), runErr
}

func TestProcessIncrementalScenario(t *testing.T) {
	inputDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "output_data")

	// January export: Training on Jan 10, Swim on Jan 12. Bob attends only
	// the swim. A disclaimer footer row is present.
	writeExport(t, filepath.Join(inputDir, "spond_attendance_jan_24.xlsx"),
		[]string{"Name", "2024-01-10 18:00:00", "2024-01-12 09:00:00"},
		[][]string{
			{"", "Training*", "Swim"},
			{"Alice A", "1", "1"},
			{"Bob B", "", "1"},
			{"*Attendance is registered by the organizer", "", ""},
		})

	// February export: overlaps the Jan 12 swim with a conflicting value
	// for Alice (and no Bob at all, as if he left the club).
	writeExport(t, filepath.Join(inputDir, "spond_attendance_feb_24.xlsx"),
		[]string{"Name", "2024-01-12 09:00:00", "2024-02-05 18:00:00"},
		[][]string{
			{"", "Swim", "Training"},
			{"Alice A", "", "1"},
		})

	// ------------------------------------------------------------------
	// Run 1: both files processed.
	// ------------------------------------------------------------------
	resetFlags(t, outDir)
	out, err := runCaptured(t, inputDir)
	if err != nil {
		t.Fatalf("first run: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "Processing 2 file(s):") {
		t.Errorf("first run output missing 'Processing 2 file(s):'\n%s", out)
	}

	detailPath := filepath.Join(outDir, "spond.csv")
	records, err := csvparser.ParseDetail(detailPath)
	if err != nil {
		t.Fatalf("reading detail output: %v", err)
	}

	// Jan file is older, so its view of the Jan 12 swim wins: Alice
	// attended. Bob keeps his record even though Feb dropped him.
	checkAttended(t, records, "Alice A", "Swim", "2024-01-12", 1)
	checkAttended(t, records, "Bob B", "Swim", "2024-01-12", 1)
	checkAttended(t, records, "Alice A", "Training", "2024-02-05", 1)

	if _, err := os.Stat(filepath.Join(outDir, "session_attendance.csv")); err != nil {
		t.Errorf("rollup output missing: %v", err)
	}

	// ------------------------------------------------------------------
	// Run 2: nothing new.
	// ------------------------------------------------------------------
	before, err := os.ReadFile(detailPath)
	if err != nil {
		t.Fatal(err)
	}

	resetFlags(t, outDir)
	out, err = runCaptured(t, inputDir)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(out, "No new files to process.") {
		t.Errorf("second run output missing 'No new files to process.'\n%s", out)
	}

	after, err := os.ReadFile(detailPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("second run modified the detail table")
	}

	// ------------------------------------------------------------------
	// Run 3: one more file; existing output beats its conflicting view.
	// ------------------------------------------------------------------
	writeExport(t, filepath.Join(inputDir, "spond_attendance_mar_24.xlsx"),
		[]string{"Name", "2024-01-12 09:00:00", "2024-03-02 10:00:00"},
		[][]string{
			{"", "Swim", "Long Ride"},
			{"Alice A", "", "1"},
		})

	resetFlags(t, outDir)
	out, err = runCaptured(t, inputDir)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if !strings.Contains(out, "Processing 1 file(s):") {
		t.Errorf("third run output missing 'Processing 1 file(s):'\n%s", out)
	}

	records, err = csvparser.ParseDetail(detailPath)
	if err != nil {
		t.Fatal(err)
	}
	checkAttended(t, records, "Alice A", "Swim", "2024-01-12", 1) // committed history retained
	checkAttended(t, records, "Alice A", "Long Ride", "2024-03-02", 1)
}

func TestProcessRejectsUnexpectedFiles(t *testing.T) {
	inputDir := t.TempDir()
	writeExport(t, filepath.Join(inputDir, "spond_attendance_jan_24.xlsx"),
		[]string{"Name", "2024-01-10 18:00:00"},
		[][]string{{"", "Training"}, {"Alice A", "1"}})
	if err := os.WriteFile(filepath.Join(inputDir, "random.xlsx"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	resetFlags(t, filepath.Join(t.TempDir(), "out"))
	_, err := runCaptured(t, inputDir)
	if err == nil || !strings.Contains(err.Error(), "random.xlsx") {
		t.Fatalf("error = %v; want unexpected-file error naming random.xlsx", err)
	}
}

func TestProcessMissingInputDir(t *testing.T) {
	resetFlags(t, filepath.Join(t.TempDir(), "out"))
	_, err := runCaptured(t, filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil || !strings.Contains(err.Error(), "is not a directory") {
		t.Fatalf("error = %v; want not-a-directory error", err)
	}
}

func TestProcessNoMatchingFiles(t *testing.T) {
	resetFlags(t, filepath.Join(t.TempDir(), "out"))
	_, err := runCaptured(t, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no spond_attendance_") {
		t.Fatalf("error = %v; want no-matching-files error", err)
	}
}

func TestProcessDryRunWritesNothing(t *testing.T) {
	inputDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	writeExport(t, filepath.Join(inputDir, "spond_attendance_jan_24.xlsx"),
		[]string{"Name", "2024-01-10 18:00:00"},
		[][]string{{"", "Training"}, {"Alice A", "1"}})

	resetFlags(t, outDir)
	dryRun = true
	out, err := runCaptured(t, inputDir)
	if err != nil {
		t.Fatalf("dry run: %v\n%s", err, out)
	}

	if _, err := os.Stat(filepath.Join(outDir, "spond.csv")); !os.IsNotExist(err) {
		t.Error("dry run wrote the detail table")
	}
	if _, err := os.Stat(filepath.Join(outDir, ".spond_state.json")); !os.IsNotExist(err) {
		t.Error("dry run wrote the state record")
	}
}

// checkAttended asserts that exactly one record exists for the given
// (name, session, date) key and that it carries the expected value.
func checkAttended(t *testing.T, records []types.AttendanceRecord, name, session, date string, want int) {
	t.Helper()

	found := 0
	for _, r := range records {
		if r.Name == name && r.SessionName == session && r.DateKey() == date {
			found++
			if r.Attended != want {
				t.Errorf("(%s, %s, %s) attended = %d; want %d", name, session, date, r.Attended, want)
			}
		}
	}
	if found != 1 {
		t.Errorf("(%s, %s, %s) appears %d time(s); want exactly 1", name, session, date, found)
	}
}
