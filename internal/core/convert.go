package core

// convert.go provides scalar coercion for measurement CSV cells.
//
// Coercion is deliberately strict: the vendor spellings "NaN", "Inf", "∞"
// and friends are never numbers here, even though strconv would accept some
// of them. Those tokens are classified by the sentinel tagger instead.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a plain decimal or scientific number.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// runningDateRegex finds a `D/M/YYYY h:mm:ss AM|PM` timestamp in a preamble line.
var runningDateRegex = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}:\d{2} [AaPp][Mm]`)

// runningDateLayout is day-first with a 12-hour clock.
const runningDateLayout = "2/1/2006 3:04:05 PM"

// ParseNumber parses a trimmed cell as a float64.
// Returns false for empty input and for every non-finite spelling.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsNumeric reports whether s would be accepted by ParseNumber.
func IsNumeric(s string) bool {
	_, ok := ParseNumber(s)
	return ok
}

// ParseRunningDate extracts the running date from a metadata line.
func ParseRunningDate(line string) (time.Time, bool) {
	m := runningDateRegex.FindString(line)
	if m == "" {
		return time.Time{}, false
	}
	m = m[:len(m)-2] + strings.ToUpper(m[len(m)-2:])
	t, err := time.Parse(runningDateLayout, m)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
