package core

import "strings"

// untaggedFields are identity and positional columns that are never replaced
// by the sentinel, whatever their content.
var untaggedFields = map[string]bool{
	"report_id":        true,
	"running_date":     true,
	"system":           true,
	"sscount":          true,
	"track":            true,
	"location":         true,
	"latitude":         true,
	"longitude":        true,
	"lat":              true,
	"long":             true,
	"rataosuus_numero": true,
	"rataosuus_nimi":   true,
	"raide_numero":     true,
	"rata_kilometri":   true,
	"rata_metrit":      true,
}

// IsMeasurementField reports whether a column is subject to sentinel tagging.
func IsMeasurementField(name string) bool {
	return !untaggedFields[name]
}

// Classify maps a raw measurement token to its sentinel reason.
// The second result is false when the token is a usable number.
func Classify(raw string) (NanReason, bool) {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch t {
	case "":
		return ReasonEmptyValue, true
	case "∞":
		return ReasonInfValue, true
	case "-∞":
		return ReasonMinusInfValue, true
	case "inv":
		return ReasonInvValue, true
	case "nan":
		return ReasonNanValue, true
	case "null":
		return ReasonNullValue, true
	}
	if !IsNumeric(t) {
		return ReasonUnknownValue, true
	}
	return "", false
}

// Tag resolves every measurement field of a parsed row to a real value or a
// sentinel with a reason, and injects MISSING_COLUMN sentinels for optional
// columns the file's header never had.
func Tag(row ParsedRow, missingOptional []string) TaggedRow {
	out := make(TaggedRow, len(row)+len(missingOptional))

	for name, v := range row {
		if !IsMeasurementField(name) || v.Kind == ValueNumber {
			out[name] = TaggedValue{Value: v}
			continue
		}
		reason, tagged := Classify(v.Raw)
		if !tagged {
			// Numeric text in a string-kind column stays a string.
			out[name] = TaggedValue{Value: v}
			continue
		}
		out[name] = TaggedValue{Value: sentinelValue(), Reason: reason}
	}

	for _, name := range missingOptional {
		out[name] = TaggedValue{Value: sentinelValue(), Reason: ReasonMissingColumn}
	}

	return out
}

func sentinelValue() Value {
	return Value{Kind: ValueString, Raw: Sentinel}
}

// Reasons counts the sentinel reasons present in a tagged row.
func (r TaggedRow) Reasons() map[NanReason]int {
	counts := make(map[NanReason]int)
	for _, v := range r {
		if v.Tagged() {
			counts[v.Reason]++
		}
	}
	return counts
}
