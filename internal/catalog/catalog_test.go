package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseFileDate(t *testing.T) {
	cat := NewCatalog()

	tests := []struct {
		name     string
		filename string
		want     string
		wantErr  bool
	}{
		{"Lowercase month", "spond_attendance_jan_24.xlsx", "2024-01-01", false},
		{"Uppercase month", "spond_attendance_JAN_24.xlsx", "2024-01-01", false},
		{"Mixed case month", "spond_attendance_Sep_25.xlsx", "2025-09-01", false},
		{"Sept variant", "spond_attendance_sept_25.xlsx", "2025-09-01", false},
		{"Sep variant", "spond_attendance_sep_25.xlsx", "2025-09-01", false},
		{"December", "spond_attendance_dec_23.xlsx", "2023-12-01", false},
		{"With directory", "exports/spond_attendance_may_25.xlsx", "2025-05-01", false},
		{"Unknown month", "spond_attendance_foo_24.xlsx", "", true},
		{"One-digit year", "spond_attendance_jan_4.xlsx", "", true},
		{"Wrong prefix", "attendance_jan_24.xlsx", "", true},
		{"Wrong extension", "spond_attendance_jan_24.csv", "", true},
		{"Unrelated file", "notes.xlsx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cat.ParseFileDate(tt.filename)
			if tt.wantErr {
				var badFormat *BadFormatError
				if !errors.As(err, &badFormat) {
					t.Fatalf("ParseFileDate(%q) error = %v; want *BadFormatError", tt.filename, err)
				}
				if !strings.Contains(badFormat.Error(), filepath.Base(tt.filename)) {
					t.Errorf("error %q does not name the offending file", badFormat.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFileDate(%q): %v", tt.filename, err)
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("ParseFileDate(%q) = %s; want %s", tt.filename, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestParseFileDateDeterministic(t *testing.T) {
	cat := NewCatalog()
	first, err := cat.ParseFileDate("spond_attendance_mar_25.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := cat.ParseFileDate("spond_attendance_mar_25.xlsx")
		if err != nil || !again.Equal(first) {
			t.Fatalf("parse not deterministic: %v, %v", again, err)
		}
	}
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverSortsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "spond_attendance_may_25.xlsx")
	touch(t, dir, "spond_attendance_jan_25.xlsx")
	touch(t, dir, "spond_attendance_nov_24.xlsx")
	touch(t, dir, "notes.txt") // non-xlsx, ignored

	files, err := NewCatalog().Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	want := []string{
		"spond_attendance_nov_24.xlsx",
		"spond_attendance_jan_25.xlsx",
		"spond_attendance_may_25.xlsx",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Discover order = %v; want %v", names, want)
	}
}

func TestDiscoverIgnoresLockFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "spond_attendance_jan_25.xlsx")
	touch(t, dir, "~$spond_attendance_jan_25.xlsx")

	files, err := NewCatalog().Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files; want 1 (lock artifact must be skipped)", len(files))
	}
}

func TestDiscoverAggregatesUnexpectedFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "spond_attendance_jan_25.xlsx")
	touch(t, dir, "zzz_report.xlsx")
	touch(t, dir, "attendance_old.xlsx")

	_, err := NewCatalog().Discover(dir)
	var unexpected *UnexpectedFilesError
	if !errors.As(err, &unexpected) {
		t.Fatalf("Discover error = %v; want *UnexpectedFilesError", err)
	}
	if len(unexpected.Filenames) != 2 {
		t.Fatalf("error lists %d files; want 2", len(unexpected.Filenames))
	}
	msg := unexpected.Error()
	for _, name := range []string{"zzz_report.xlsx", "attendance_old.xlsx"} {
		if !strings.Contains(msg, name) {
			t.Errorf("error %q does not mention %s", msg, name)
		}
	}
}

func TestSelectNewPreservesOrder(t *testing.T) {
	all := []string{
		"in/spond_attendance_jan_25.xlsx",
		"in/spond_attendance_feb_25.xlsx",
		"in/spond_attendance_mar_25.xlsx",
	}
	processed := map[string]bool{"spond_attendance_feb_25.xlsx": true}

	got := SelectNew(all, processed)
	want := []string{
		"in/spond_attendance_jan_25.xlsx",
		"in/spond_attendance_mar_25.xlsx",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SelectNew = %v; want %v", got, want)
	}
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	set := map[string]bool{
		"spond_attendance_jan_25.xlsx": true,
		"spond_attendance_feb_25.xlsx": true,
	}
	if err := SaveState(dir, set); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err := LoadState(dir)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if !reflect.DeepEqual(got, set) {
		t.Errorf("LoadState = %v; want %v", got, set)
	}
}

func TestLoadStateMissingIsEmpty(t *testing.T) {
	got, err := LoadState(t.TempDir())
	if err != nil {
		t.Fatalf("LoadState on missing state: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("LoadState = %v; want empty set", got)
	}
}

func TestSaveStateReplacesWholesale(t *testing.T) {
	dir := t.TempDir()

	if err := SaveState(dir, map[string]bool{"a.xlsx": true, "b.xlsx": true}); err != nil {
		t.Fatal(err)
	}
	if err := SaveState(dir, map[string]bool{"c.xlsx": true}); err != nil {
		t.Fatal(err)
	}

	got, err := LoadState(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, map[string]bool{"c.xlsx": true}) {
		t.Errorf("LoadState = %v; want only c.xlsx (state is replaced, not merged)", got)
	}
}

func TestDefaultMonthsCoversYear(t *testing.T) {
	months := DefaultMonths()
	if months["sep"] != time.September || months["sept"] != time.September {
		t.Error("sep and sept must both map to September")
	}
	if len(months) != 13 {
		t.Errorf("got %d month entries; want 13 (12 months + sept)", len(months))
	}
}
