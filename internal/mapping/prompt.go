// =============================================================================
// Spond Attendance Pipeline - Interactive Approval Prompt
// =============================================================================
//
// Human-in-the-loop review of suggested mappings. For each suggestion the
// user can accept it (Enter), skip the name (s), or type an alternative.
// The reader and writer are injected so the prompt is testable without a
// terminal.
//
// =============================================================================

package mapping

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// PromptApproval walks the user through suggestions one by one and returns
// the approved raw -> parsed mappings plus the set of skipped raw names.
func PromptApproval(in io.Reader, out io.Writer, suggestions map[string]string) (map[string]string, map[string]bool, error) {
	approved := make(map[string]string)
	skipped := make(map[string]bool)

	raws := make([]string, 0, len(suggestions))
	for raw := range suggestions {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	scanner := bufio.NewScanner(in)
	total := len(raws)

	for i, raw := range raws {
		fmt.Fprintf(out, "  (%d/%d) %q -> %q [Enter=accept, s=skip, or type alternative]: ",
			i+1, total, raw, suggestions[raw])

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, nil, fmt.Errorf("failed to read approval input: %w", err)
			}
			// Input exhausted: leave the remaining suggestions undecided.
			break
		}

		response := strings.TrimSpace(scanner.Text())
		switch {
		case response == "":
			approved[raw] = suggestions[raw]
		case strings.EqualFold(response, "s"):
			skipped[raw] = true
		default:
			approved[raw] = response
		}
	}

	return approved, skipped, nil
}
