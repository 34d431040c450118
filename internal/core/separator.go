package core

// separator.go detects which of the two vendor CSV conventions a file uses.
//
// Exports come either as comma-delimited with dot decimals, or as
// semicolon-delimited with comma decimals (Excel in a Finnish locale). The
// semicolon form is rewritten into the comma form before any header or row
// parsing: ',' becomes '.' first, then ';' becomes ','.

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Separator is the delimiter convention of a file.
type Separator int

const (
	SeparatorComma     Separator = iota // ',' delimiter, '.' decimal mark
	SeparatorSemicolon                  // ';' delimiter, ',' decimal mark
)

func (s Separator) String() string {
	if s == SeparatorSemicolon {
		return "semicolon"
	}
	return "comma"
}

// DetectSeparator inspects the first two lines of a file.
// The count is taken on the second line (the first line after an optional
// metadata line); a one-line file is judged on its only line. Strictly more
// semicolons than commas selects the semicolon convention.
func DetectSeparator(first, second string) Separator {
	line := second
	if line == "" {
		line = first
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return SeparatorSemicolon
	}
	return SeparatorComma
}

// Rewrite converts s to the comma convention.
func (s Separator) Rewrite(text string) string {
	if s != SeparatorSemicolon {
		return text
	}
	text = strings.ReplaceAll(text, ",", ".")
	return strings.ReplaceAll(text, ";", ",")
}

// Transformer returns a streaming equivalent of Rewrite.
// Mapping both runes in one pass gives the same result as the ordered
// two-step replacement because no output rune is fed back in.
func (s Separator) Transformer() transform.Transformer {
	if s != SeparatorSemicolon {
		return transform.Nop
	}
	return runes.Map(swapSemicolonDecimal)
}

func swapSemicolonDecimal(r rune) rune {
	switch r {
	case ',':
		return '.'
	case ';':
		return ','
	}
	return r
}
