package core

// validation.go coerces data rows against a reduced schema.
//
// Tokens are matched to columns through the file's own header order, never
// the catalog's, so a file may present the catalog columns in any order. A
// required column that is empty or fails numeric coercion rejects the row;
// an optional numeric column keeps its raw text for the sentinel tagger.

import (
	"strings"
)

// RowParser coerces rows of one file.
type RowParser struct {
	schema    ReducedSchema
	headerIdx HeaderIndex
}

// NewRowParser creates a parser for the given reduced schema and normalized header.
func NewRowParser(schema ReducedSchema, header []string) *RowParser {
	return &RowParser{
		schema:    schema,
		headerIdx: MakeHeaderIndex(header),
	}
}

// Parse coerces one row. It returns a *RowCoercionError on the first
// required column that cannot be satisfied.
func (p *RowParser) Parse(tokens []string) (ParsedRow, error) {
	row := make(ParsedRow, len(p.schema))

	for _, col := range p.schema {
		raw := ""
		present := false
		if pos, ok := p.headerIdx[col.Name]; ok && pos < len(tokens) {
			raw = CleanCell(tokens[pos])
			present = true
		}

		if raw == "" && col.Required {
			reason := "required field is empty"
			if !present {
				reason = "row has no value for required column"
			}
			return nil, &RowCoercionError{Column: col.Name, Reason: reason}
		}

		switch col.Kind {
		case KindNumber:
			if f, ok := ParseNumber(raw); ok {
				row[col.Name] = Value{Kind: ValueNumber, Raw: raw, Number: f}
				continue
			}
			if col.Required {
				return nil, &RowCoercionError{Column: col.Name, Value: raw, Reason: "invalid number"}
			}
			row[col.Name] = Value{Kind: ValueString, Raw: raw}
		default:
			row[col.Name] = Value{Kind: ValueString, Raw: raw}
		}
	}

	return row, nil
}

// isEmptyRow reports whether every token is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
