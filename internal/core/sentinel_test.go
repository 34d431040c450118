package core

import "testing"

func TestTag_Classification(t *testing.T) {
	tests := []struct {
		raw  string
		want NanReason
	}{
		{"", ReasonEmptyValue},
		{"NaN", ReasonNanValue},
		{"∞", ReasonInfValue},
		{"-∞", ReasonMinusInfValue},
		{"inv", ReasonInvValue},
		{"null", ReasonNullValue},
		{"xyz", ReasonUnknownValue},
		{"  INV ", ReasonInvValue},
		{"NULL", ReasonNullValue},
		{"1,5", ReasonUnknownValue},
		{"Inf", ReasonUnknownValue},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			row := ParsedRow{"siksak_1": {Kind: ValueString, Raw: tt.raw}}

			got := Tag(row, nil)["siksak_1"]

			if got.Reason != tt.want {
				t.Errorf("Reason = %s, want %s", got.Reason, tt.want)
			}
			if got.Value.Raw != Sentinel || got.Value.Any() != "NaN" {
				t.Errorf("Value = %+v, want sentinel %q", got.Value, Sentinel)
			}
		})
	}
}

func TestTag_RealValuesUntouched(t *testing.T) {
	row := ParsedRow{
		"siksak_1": {Kind: ValueNumber, Raw: "1.5", Number: 1.5},
		"siksak_2": {Kind: ValueString, Raw: "-2e3"},
	}

	got := Tag(row, nil)

	if v := got["siksak_1"]; v.Tagged() || v.Value.Number != 1.5 {
		t.Errorf("siksak_1 = %+v, want untagged 1.5", v)
	}
	if v := got["siksak_2"]; v.Tagged() || v.Value != (Value{Kind: ValueString, Raw: "-2e3"}) {
		t.Errorf("siksak_2 = %+v, want the string \"-2e3\" passed through", v)
	}
}

func TestTag_IdentityFieldsNeverTagged(t *testing.T) {
	row := ParsedRow{}
	for name := range untaggedFields {
		row[name] = Value{Kind: ValueString, Raw: ""}
	}

	for name, v := range Tag(row, nil) {
		if v.Tagged() {
			t.Errorf("%s tagged with %s, identity fields must pass through", name, v.Reason)
		}
	}
}

func TestTag_MissingColumnInjected(t *testing.T) {
	missing := []string{"vasen_pystysuuntainen_kiihtyvyys", "ams_ajonopeus"}

	rows := []ParsedRow{
		{"sscount": {Kind: ValueNumber, Raw: "1", Number: 1}},
		{"sscount": {Kind: ValueNumber, Raw: "2", Number: 2}, "siksak_1": {Kind: ValueString, Raw: "inv"}},
	}

	for i, row := range rows {
		got := Tag(row, missing)
		for _, name := range missing {
			v, ok := got[name]
			if !ok {
				t.Fatalf("row %d: %s not injected", i, name)
			}
			if v.Reason != ReasonMissingColumn || v.Value.Raw != Sentinel {
				t.Errorf("row %d: %s = %+v, want NaN/MISSING_COLUMN", i, name, v)
			}
		}
	}
}

func TestTaggedRow_Reasons(t *testing.T) {
	row := Tag(ParsedRow{
		"a": {Kind: ValueString, Raw: "inv"},
		"b": {Kind: ValueString, Raw: "INV"},
		"c": {Kind: ValueString, Raw: ""},
		"d": {Kind: ValueNumber, Raw: "1", Number: 1},
	}, []string{"e"})

	got := row.Reasons()
	want := map[NanReason]int{ReasonInvValue: 2, ReasonEmptyValue: 1, ReasonMissingColumn: 1}

	if len(got) != len(want) {
		t.Fatalf("Reasons() = %v, want %v", got, want)
	}
	for k, n := range want {
		if got[k] != n {
			t.Errorf("Reasons()[%s] = %d, want %d", k, got[k], n)
		}
	}
}
