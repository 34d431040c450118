package core

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func taggedFixture() TaggedRow {
	return Tag(ParsedRow{
		"sscount":   {Kind: ValueNumber, Raw: "7", Number: 7},
		"track":     {Kind: ValueString, Raw: "006 LHRP 2"},
		"location":  {Kind: ValueString, Raw: "130+0100.25"},
		"latitude":  {Kind: ValueString, Raw: "64.5° N"},
		"longitude": {Kind: ValueString, Raw: "25.5° E"},
		"siksak_1":  {Kind: ValueNumber, Raw: "12", Number: 12},
		"siksak_2":  {Kind: ValueString, Raw: "null"},
	}, []string{"korkeus_1"})
}

func TestAssemble(t *testing.T) {
	date := time.Date(2023, 6, 3, 9, 14, 2, 0, time.UTC)
	meta := Metadata{ReportID: "r1", RunningDate: date, System: SystemOHL}

	rec, err := Assemble(meta, taggedFixture())
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	want := map[string]any{
		"report_id":            "r1",
		"system":               "OHL",
		"running_date":         "2023-06-03T09:14:02Z",
		"sscount":              7.0,
		"track":                "006 LHRP 2",
		"location":             "130+0100.25",
		"latitude":             "64.5° N",
		"longitude":            "25.5° E",
		"lat":                  64.5,
		"long":                 25.5,
		"rataosuus_numero":     "006",
		"rataosuus_nimi":       "LHRP",
		"raide_numero":         "2",
		"rata_kilometri":       130,
		"rata_metrit":          100.25,
		"siksak_1":             12.0,
		"siksak_2":             "NaN",
		"siksak_2_nan_reason":  "NULL_VALUE",
		"korkeus_1":            "NaN",
		"korkeus_1_nan_reason": "MISSING_COLUMN",
	}
	if d := cmp.Diff(want, rec.Columns()); d != "" {
		t.Errorf("Columns() mismatch (-want +got):\n%s", d)
	}

	wantMeasurements := map[string]any{
		"siksak_1":             12.0,
		"siksak_2":             "NaN",
		"siksak_2_nan_reason":  "NULL_VALUE",
		"korkeus_1":            "NaN",
		"korkeus_1_nan_reason": "MISSING_COLUMN",
	}
	if d := cmp.Diff(wantMeasurements, rec.Measurements()); d != "" {
		t.Errorf("Measurements() mismatch (-want +got):\n%s", d)
	}

	if n, ok := rec.SampleCount(); !ok || n != 7 {
		t.Errorf("SampleCount() = %d, %v, want 7", n, ok)
	}
}

func TestAssemble_RowFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(TaggedRow)
		check  func(t *testing.T, err error)
	}{
		{
			name: "malformed location",
			mutate: func(r TaggedRow) {
				r["location"] = TaggedValue{Value: Value{Kind: ValueString, Raw: "630"}}
			},
			check: func(t *testing.T, err error) {
				var mle *MalformedLocationError
				if !errors.As(err, &mle) {
					t.Errorf("error = %v, want *MalformedLocationError", err)
				}
			},
		},
		{
			name: "unreadable longitude",
			mutate: func(r TaggedRow) {
				r["longitude"] = TaggedValue{Value: Value{Kind: ValueString, Raw: "east"}}
			},
			check: func(t *testing.T, err error) {
				var rce *RowCoercionError
				if !errors.As(err, &rce) || rce.Column != "longitude" {
					t.Errorf("error = %v, want *RowCoercionError on longitude", err)
				}
			},
		},
		{
			name:   "latitude absent",
			mutate: func(r TaggedRow) { delete(r, "latitude") },
			check: func(t *testing.T, err error) {
				var rce *RowCoercionError
				if !errors.As(err, &rce) || rce.Column != "latitude" {
					t.Errorf("error = %v, want *RowCoercionError on latitude", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := taggedFixture()
			tt.mutate(row)
			_, err := Assemble(Metadata{}, row)
			tt.check(t, err)
		})
	}
}
