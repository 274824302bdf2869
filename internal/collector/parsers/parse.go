// Package parsers turns raw command output into metric payloads. Every
// function here is pure: input string in, typed data or an error out.
// Parsers tolerate extra whitespace, locale decimal separators, and
// truncated trailing fields, but they never silently produce an empty
// result from garbage; that comes back as an error.
package parsers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// sectionSeparator splits batched command output into sections.
const sectionSeparator = "---"

// SplitSections splits batched output on separator lines, trimming each
// section. Commands that batch several probes emit "---" between them.
func SplitSections(output string) []string {
	parts := strings.Split(output, sectionSeparator)
	sections := make([]string, len(parts))
	for i, p := range parts {
		sections[i] = strings.TrimSpace(p)
	}
	return sections
}

// Float parses a number the way remote tools print them: surrounding
// whitespace, a trailing percent sign, and locale decimal commas are all
// accepted. "45.2", "45,2", and " 45.2% " parse to the same value.
func Float(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") || strings.Count(s, ",") > 1 {
			// Commas are thousands separators here.
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// A single comma and no dot is a locale decimal separator.
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	return strconv.ParseFloat(s, 64)
}

// Int parses an integer with surrounding whitespace tolerated.
func Int(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// decodeJSONList unmarshals PowerShell ConvertTo-Json output. A query that
// matched a single instance yields a bare object rather than a one-element
// array, so both shapes are accepted. A UTF-8 BOM, which powershell.exe
// likes to prepend, is stripped.
func decodeJSONList[T any](data string) ([]T, error) {
	data = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(data), "\uFEFF"))
	if data == "" {
		return nil, fmt.Errorf("no data")
	}

	var list []T
	if err := json.Unmarshal([]byte(data), &list); err == nil {
		return list, nil
	}

	var single T
	if err := json.Unmarshal([]byte(data), &single); err != nil {
		return nil, fmt.Errorf("%w (output starts %q)", err, snippet(data))
	}
	return []T{single}, nil
}

// snippet returns a bounded prefix of raw output for error messages.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// percentUsed returns used/total as a percentage, 0 when total is 0.
func percentUsed(used, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}
