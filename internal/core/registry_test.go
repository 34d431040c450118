package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegister_Panics(t *testing.T) {
	tests := []struct {
		name string
		def  SystemDefinition
	}{
		{
			name: "non-canonical column",
			def:  SystemDefinition{System: "X1", Columns: []ColumnDescriptor{{Name: "Speed [km/h]"}}},
		},
		{
			name: "trailing underscore",
			def:  SystemDefinition{System: "X2", Columns: []ColumnDescriptor{{Name: "speed_"}}},
		},
		{
			name: "duplicate column",
			def:  SystemDefinition{System: "X3", Columns: []ColumnDescriptor{{Name: "a"}, {Name: "a"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(Clear)
			defer func() {
				if recover() == nil {
					t.Error("Register did not panic")
				}
			}()
			Register(tt.def)
		})
	}
}

func TestRegister_DuplicateSystemPanics(t *testing.T) {
	registerTestSystem(t)
	defer func() {
		if recover() == nil {
			t.Error("second Register did not panic")
		}
	}()
	Register(testDefinition())
}

func TestRegistry_GetAll(t *testing.T) {
	def := registerTestSystem(t)
	Register(SystemDefinition{System: SystemTG, Columns: []ColumnDescriptor{{Name: "kallistus"}}})

	got, ok := Get(SystemAMS)
	if !ok || got.Label != def.Label {
		t.Errorf("Get(AMS) = %+v, %v", got, ok)
	}
	if _, ok := Get(SystemRC); ok {
		t.Error("Get(RC) found an unregistered system")
	}

	all := All()
	if len(all) != 2 || all[0].System != SystemAMS || all[1].System != SystemTG {
		t.Errorf("All() = %v, want AMS then TG", all)
	}
	if SystemCount() != 2 {
		t.Errorf("SystemCount() = %d, want 2", SystemCount())
	}
}

func TestSystemFromFileName(t *testing.T) {
	tests := []struct {
		name    string
		want    MeasurementSystem
		wantErr bool
	}{
		{name: "AMS_1234_20230603.csv", want: SystemAMS},
		{name: "/drop/OHL_77_export.CSV", want: SystemOHL},
		{name: "tsight_1_x.csv", want: SystemTSIGHT},
		{name: "RP_9.csv", want: SystemRP},
		{name: "XYZ_1_x.csv", wantErr: true},
		{name: "AMS.csv", wantErr: true},
		{name: "AMS_1234.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SystemFromFileName(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SystemFromFileName(%q) = %s, want error", tt.name, got)
				}
				if MapError(err).Code != "SYS001" {
					t.Errorf("MapError code = %s, want SYS001", MapError(err).Code)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SystemFromFileName(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestParseSystem_UnknownWrapsSentinel(t *testing.T) {
	_, err := ParseSystem("nope")
	if !errors.Is(err, ErrUnknownSystem) {
		t.Errorf("ParseSystem error = %v, want ErrUnknownSystem", err)
	}
}

func TestSystemDefinition_JSON(t *testing.T) {
	def := testDefinition()

	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `{"name":"sscount","required":true,"kind":"number"}`) {
		t.Errorf("kind not encoded by name: %s", data)
	}

	var got SystemDefinition
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if diff := cmp.Diff(def, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	var k ScalarKind
	if err := k.UnmarshalText([]byte("decimal")); err == nil {
		t.Error("UnmarshalText(decimal) succeeded, want error")
	}
}
