package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Decompose splits a row's track and location tokens into a TrackAddress.
//
// location must be "<km>+<m>" with both parts numeric ("130+0100.25");
// anything else is a *MalformedLocationError. track is split on whitespace and
// assigned only when it has exactly three parts ("006 LHRP 2"); any other
// shape leaves the three track fields empty without failing. The asymmetry
// is kept as-is because downstream reports already depend on it.
func Decompose(track, location string) (TrackAddress, error) {
	var addr TrackAddress

	km, m, ok := strings.Cut(strings.TrimSpace(location), "+")
	if !ok || strings.Contains(m, "+") {
		return TrackAddress{}, &MalformedLocationError{Location: location}
	}
	kilometri, err := strconv.Atoi(strings.TrimSpace(km))
	if err != nil {
		return TrackAddress{}, &MalformedLocationError{Location: location}
	}
	metrit, ok := ParseNumber(m)
	if !ok {
		return TrackAddress{}, &MalformedLocationError{Location: location}
	}
	addr.RataKilometri = kilometri
	addr.RataMetrit = metrit

	if parts := strings.Fields(track); len(parts) == 3 {
		addr.RataosuusNumero = parts[0]
		addr.RataosuusNimi = parts[1]
		addr.RaideNumero = parts[2]
	}

	return addr, nil
}

// ParseCoordinate parses decimal degrees such as "64.07646857° N".
// Every character other than digits, signs, '.' and ',' is dropped and a
// comma is read as the decimal mark.
func ParseCoordinate(s string) (float64, error) {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '+', r == '-', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteByte('.')
		}
	}
	cleaned := b.String()
	f, ok := ParseNumber(cleaned)
	if !ok {
		return 0, fmt.Errorf("invalid coordinate %q", s)
	}
	return f, nil
}
