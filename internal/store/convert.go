package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/railcsv/internal/core"
)

// ToPgText converts a string to pgtype.Text; blank strings become NULL.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgTimestamptz converts a time to pgtype.Timestamptz; the zero time becomes NULL.
func ToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// ToPgInt8 converts an optional integer to pgtype.Int8.
func ToPgInt8(n int64, ok bool) pgtype.Int8 {
	return pgtype.Int8{Int64: n, Valid: ok}
}

// ToPgUUID parses a report id.
func ToPgUUID(s string) (pgtype.UUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid report id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

// PgUUIDToString converts a pgtype.UUID back to its canonical string form.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// encodeMeasurements serializes a record's measurement fields.
// Sentinel fields carry "NaN" and a <name>_nan_reason sibling.
func encodeMeasurements(rec core.OutputRecord) ([]byte, error) {
	return json.Marshal(rec.Measurements())
}
