// =============================================================================
// Spond Attendance Pipeline - Name/Category Suggestions
// =============================================================================
//
// This module isolates the optional LLM-assisted enrichment step behind a
// narrow interface. The pipeline core never spawns processes or reads the
// terminal; it talks to a Suggester and an approval prompt with injected
// streams, so tests run against canned suggestions.
//
// The production Suggester shells out to the `claude` CLI with a bounded
// timeout. Its failure (timeout, non-zero exit, unparseable response) is a
// recoverable error: the caller continues without suggestions, leaving
// names and categories unmapped for manual follow-up.
//
// =============================================================================

package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DefaultSuggestTimeout bounds one suggester invocation.
const DefaultSuggestTimeout = 60 * time.Second

// Suggester proposes canonical names for unmapped raw session names and
// categories for uncategorized canonical names.
type Suggester interface {
	SuggestMappings(ctx context.Context, unmapped []string, canonical map[string]bool) (map[string]string, error)
	SuggestCategories(ctx context.Context, uncategorized []string, existingTypes map[string]string) (map[string]string, error)
}

// CLISuggester asks an LLM CLI for suggestions. The command is expected to
// print the answer to stdout as a JSON object (optionally inside a
// markdown fence).
type CLISuggester struct {
	// Command is the CLI binary to invoke. Default: "claude".
	Command string

	// Timeout bounds each invocation. Default: DefaultSuggestTimeout.
	Timeout time.Duration
}

// NewCLISuggester creates a CLISuggester with defaults.
func NewCLISuggester() *CLISuggester {
	return &CLISuggester{Command: "claude", Timeout: DefaultSuggestTimeout}
}

// SuggestMappings proposes a canonical name for each unmapped raw name.
func (s *CLISuggester) SuggestMappings(ctx context.Context, unmapped []string, canonical map[string]bool) (map[string]string, error) {
	canonicalList := sortedKeys(canonical)

	prompt := fmt.Sprintf(`You are helping normalize session names for a triathlon club's attendance tracking system.

Here are the known canonical session names:
%s

The following raw session names from Spond exports don't match any known canonical name.
For each one, suggest the most likely canonical name it should map to.
If a name is genuinely new (not a variant of any existing name), suggest a clean canonical name for it.

Raw session names to map:
%s

Respond with ONLY a JSON object mapping each raw name to its suggested canonical name. No other text.
Example: {"STV Swim!": "STV Swim", "New Session Type": "New Session Type"}`,
		mustJSON(canonicalList), mustJSON(unmapped))

	return s.run(ctx, prompt)
}

// SuggestCategories proposes a category for each uncategorized name,
// steering toward the categories already in use.
func (s *CLISuggester) SuggestCategories(ctx context.Context, uncategorized []string, existingTypes map[string]string) (map[string]string, error) {
	categories := make(map[string]bool)
	for _, cat := range existingTypes {
		categories[cat] = true
	}

	// A handful of existing assignments as examples.
	names := sortedKeys2(existingTypes)
	if len(names) > 15 {
		names = names[:15]
	}
	examples := make(map[string]string, len(names))
	for _, n := range names {
		examples[n] = existingTypes[n]
	}

	prompt := fmt.Sprintf(`You are helping categorize session names for a triathlon club's attendance tracking system.

The available categories are:
%s

Here are some examples of existing categorizations:
%s

Assign a category to each of the following session names.
Use one of the existing categories above. Use "Other" for social events, one-offs, or anything that doesn't fit.

Session names to categorize:
%s

Respond with ONLY a JSON object mapping each session name to its category. No other text.
Example: {"STV Swim": "Swim", "Christmas Party": "Other"}`,
		mustJSON(sortedKeys(categories)), mustJSON(examples), mustJSON(uncategorized))

	return s.run(ctx, prompt)
}

func (s *CLISuggester) run(ctx context.Context, prompt string) (map[string]string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSuggestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Command, "-p", prompt, "--output-format", "text")
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s timed out after %s", s.Command, timeout)
		}
		return nil, fmt.Errorf("%s failed: %v: %s", s.Command, err, strings.TrimSpace(stderr.String()))
	}

	return ParseJSONResponse(stdout.String())
}

// fencedBlock matches a markdown code fence around the JSON payload.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// braceBlock matches the outermost { ... } in the response.
var braceBlock = regexp.MustCompile(`(?s)\{.*\}`)

// ParseJSONResponse extracts a string-to-string JSON object from an LLM
// response, tolerating markdown fences and surrounding prose.
func ParseJSONResponse(text string) (map[string]string, error) {
	text = strings.TrimSpace(text)

	var result map[string]string
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return result, nil
	}

	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &result); err == nil {
			return result, nil
		}
	}

	if m := braceBlock.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &result); err == nil {
			return result, nil
		}
	}

	snippet := text
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}
	return nil, fmt.Errorf("could not parse JSON from response: %s", snippet)
}

func mustJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys2(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
