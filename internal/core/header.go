package core

// header.go rewrites vendor column labels into canonical column names.
//
// Labels arrive quoted, optionally prefixed by a vendor namespace
// ("Running Dynamics.") and suffixed by a unit ("[m/s^2]"). The rules run in
// a fixed order; unit stripping must precede trailing-underscore trimming or
// "Speed [km/h]" would end up as "speed_".

import (
	"encoding/csv"
	"regexp"
	"strings"
)

// speedRenames disambiguates per-system speed channels that would otherwise
// collide with the shared "ajonopeus" column once namespaces are stripped.
var speedRenames = []struct {
	label string
	name  string
}{
	{"Running Dynamics.Ajonopeus", "ams_ajonopeus"},
	{"OHL.Ajonopeus", "ohl_ajonopeus"},
	{"Rail Profile.Ajonopeus", "rp_ajonopeus"},
}

// vendorNamespaces are stripped from the front of labels, longest first.
var vendorNamespaces = []string{
	"Over Head Line Geometry and Wear.",
	"Pantograph Interaction.",
	"Running Dynamics.",
	"Rail Corrugation.",
	"Track Geometry.",
	"Rail Profile.",
	"TG Master.",
	"T-Sight.",
	"TSIGHT.",
	"OHL.",
}

var (
	trailingUnitRegex = regexp.MustCompile(`\[[^\[\]]*\]$`)
	bracketReplacer   = strings.NewReplacer("[", "", "]", "", "(", "", ")", "")
	letterReplacer    = strings.NewReplacer("ä", "a", "ö", "o", "å", "a", "°", "")
	spaceDotReplacer  = strings.NewReplacer(" ", "_", ".", "_")
)

// NormalizeColumn converts one raw header label to its canonical name.
func NormalizeColumn(label string) string {
	s := strings.TrimSpace(label)
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)

	for _, r := range speedRenames {
		if rest, ok := strings.CutPrefix(s, r.label); ok {
			s = r.name + rest
			break
		}
	}

	for _, ns := range vendorNamespaces {
		if rest, ok := strings.CutPrefix(s, ns); ok {
			s = rest
			break
		}
	}

	s = spaceDotReplacer.Replace(s)
	s = strings.ToLower(s)
	s = trailingUnitRegex.ReplaceAllString(s, "")
	s = bracketReplacer.Replace(s)
	s = strings.TrimRight(s, "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = letterReplacer.Replace(s)

	return s
}

// NormalizeColumns applies NormalizeColumn to every label.
func NormalizeColumns(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = NormalizeColumn(l)
	}
	return out
}

// NormalizeHeader rewrites a comma-separated header line into canonical form.
// The result has one unquoted name per original column, joined by commas.
func NormalizeHeader(line string) string {
	return strings.Join(NormalizeColumns(splitHeaderLine(line)), ",")
}

// splitHeaderLine splits a header line honoring quotes.
// Falls back to a plain split when the line is not valid CSV.
func splitHeaderLine(line string) []string {
	line = strings.TrimRight(line, "\r\n")
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return fields
}
