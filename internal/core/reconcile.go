package core

// Reconcile compares a normalized header against a system's catalog.
//
// Columns in the header but not in the catalog are reported as Extra (an
// unrecognized or misspelled vendor field; not fatal). Catalog columns absent
// from the header are split by their Required flag. The returned schema drops
// every absent column so the row parser never rejects rows for them.
func Reconcile(def SystemDefinition, header []string) (ReducedSchema, HeaderDiff) {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var diff HeaderDiff
	reduced := make(ReducedSchema, 0, len(def.Columns))

	for _, col := range def.Columns {
		if present[col.Name] {
			reduced = append(reduced, col)
			continue
		}
		if col.Required {
			diff.MissingRequired = append(diff.MissingRequired, col.Name)
		} else {
			diff.MissingOptional = append(diff.MissingOptional, col.Name)
		}
	}

	known := def.columnSet()
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if _, ok := known[h]; ok || seen[h] || h == "" {
			continue
		}
		seen[h] = true
		diff.Extra = append(diff.Extra, h)
	}

	return reduced, diff
}

// ValidateHeader reconciles the header and fails when required columns are missing.
func ValidateHeader(def SystemDefinition, header []string) (ReducedSchema, HeaderDiff, error) {
	reduced, diff := Reconcile(def, header)
	if len(diff.MissingRequired) > 0 {
		return nil, diff, &FileHeaderError{System: def.System, Missing: diff.MissingRequired}
	}
	return reduced, diff, nil
}

// MakeHeaderIndex maps canonical names to physical positions.
// When a name repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		if _, dup := idx[h]; dup {
			continue
		}
		idx[h] = i
	}
	return idx
}
