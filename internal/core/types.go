package core

import (
	"context"
	"fmt"
	"time"
)

// MeasurementSystem identifies the instrument that produced a file.
// It selects the schema catalog entry used to reconcile the file's header.
type MeasurementSystem string

const (
	SystemAMS    MeasurementSystem = "AMS"    // Running dynamics / axle box accelerations
	SystemOHL    MeasurementSystem = "OHL"    // Overhead line geometry and wear
	SystemPI     MeasurementSystem = "PI"     // Pantograph interaction
	SystemRC     MeasurementSystem = "RC"     // Rail corrugation
	SystemRP     MeasurementSystem = "RP"     // Rail profile
	SystemTG     MeasurementSystem = "TG"     // Track geometry
	SystemTSIGHT MeasurementSystem = "TSIGHT" // Track-side imaging
)

// ScalarKind is the target type of a catalog column.
type ScalarKind int

const (
	KindString ScalarKind = iota
	KindNumber
)

func (k ScalarKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	default:
		return "string"
	}
}

// MarshalText encodes the kind by name.
func (k ScalarKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name written by MarshalText.
func (k *ScalarKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "number":
		*k = KindNumber
	case "string":
		*k = KindString
	default:
		return fmt.Errorf("unknown scalar kind %q", b)
	}
	return nil
}

// ColumnDescriptor defines one expected column of a measurement system.
type ColumnDescriptor struct {
	Name     string     `json:"name"`     // Canonical column name (lower_snake, no units)
	Required bool       `json:"required"` // File is rejected when the header lacks this column
	Kind     ScalarKind `json:"kind"`     // Target scalar type
}

// SystemDefinition is the schema catalog entry for one measurement system.
type SystemDefinition struct {
	System  MeasurementSystem  `json:"system"`
	Label   string             `json:"label"`
	Columns []ColumnDescriptor `json:"columns"`
}

// HeaderIndex maps canonical column names to their position in the file's rows.
type HeaderIndex map[string]int

// ReducedSchema is the part of a system's catalog enforceable against one file.
type ReducedSchema []ColumnDescriptor

// HeaderDiff is the result of comparing a normalized header against the catalog.
type HeaderDiff struct {
	Extra           []string `json:"extra"`
	MissingRequired []string `json:"missing_required"`
	MissingOptional []string `json:"missing_optional"`
}

// Clean reports whether the header matched the catalog exactly.
func (d HeaderDiff) Clean() bool {
	return len(d.Extra) == 0 && len(d.MissingRequired) == 0 && len(d.MissingOptional) == 0
}

// ValueKind tells which member of a Value is meaningful.
type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueString
	ValueNumber
)

// Value is a single coerced cell.
// Raw always carries the trimmed token text; Number is set only for ValueNumber.
type Value struct {
	Kind   ValueKind
	Raw    string
	Number float64
}

// Any returns the value in its natural Go type: float64, string or nil.
func (v Value) Any() any {
	switch v.Kind {
	case ValueNumber:
		return v.Number
	case ValueString:
		return v.Raw
	default:
		return nil
	}
}

// ParsedRow maps canonical column names to coerced values.
type ParsedRow map[string]Value

// NanReason explains why a measurement was replaced with the sentinel.
type NanReason string

const (
	ReasonEmptyValue    NanReason = "EMPTY_VALUE"
	ReasonNanValue      NanReason = "NAN_VALUE"
	ReasonInfValue      NanReason = "INF_VALUE"
	ReasonMinusInfValue NanReason = "MINUS_INF_VALUE"
	ReasonInvValue      NanReason = "INV_VALUE"
	ReasonNullValue     NanReason = "NULL_VALUE"
	ReasonUnknownValue  NanReason = "UNKNOWN_VALUE"
	ReasonMissingColumn NanReason = "MISSING_COLUMN"
)

// Sentinel is stored in place of every unparsable or absent measurement.
const Sentinel = "NaN"

// NanReasonSuffix is appended to a column name to form its reason column.
const NanReasonSuffix = "_nan_reason"

// TaggedValue is a field after sentinel tagging.
// Reason is empty for real values; when set, Value holds the sentinel.
type TaggedValue struct {
	Value  Value
	Reason NanReason
}

// Tagged reports whether the value was replaced by the sentinel.
func (t TaggedValue) Tagged() bool { return t.Reason != "" }

// TaggedRow maps canonical column names to tagged values.
type TaggedRow map[string]TaggedValue

// TrackAddress is the structured form of a row's track and chainage tokens.
type TrackAddress struct {
	RataosuusNumero string  `json:"rataosuus_numero"`
	RataosuusNimi   string  `json:"rataosuus_nimi"`
	RaideNumero     string  `json:"raide_numero"`
	RataKilometri   int     `json:"rata_kilometri"`
	RataMetrit      float64 `json:"rata_metrit"`
}

// Metadata is the ingestion context merged into every output record.
type Metadata struct {
	ReportID    string
	RunningDate time.Time
	System      MeasurementSystem
	FileName    string
}

// OutputRecord is the terminal artifact handed to the store.
type OutputRecord struct {
	ReportID    string
	RunningDate time.Time
	System      MeasurementSystem
	LineNumber  int
	Track       string
	Location    string
	Address     TrackAddress
	Lat         float64
	Long        float64
	Fields      TaggedRow
}

// RowError records a data line that produced no output record.
type RowError struct {
	LineNumber int
	Err        error
	Data       []string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.LineNumber, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ProcessStats carries per-file counters and timings.
type ProcessStats struct {
	Lines          int
	Parsed         int
	Failed         int
	Sentinels      map[NanReason]int
	BytesRead      int64
	HeaderDuration time.Duration
	RowsDuration   time.Duration
}

// FileResult is everything produced from one file or chunk.
type FileResult struct {
	ReportID    string
	FileName    string
	System      MeasurementSystem
	RunningDate time.Time
	Separator   Separator
	Header      []string // Normalized header in file order
	Diff        HeaderDiff
	Records     []OutputRecord
	RowErrors   []RowError
	Stats       ProcessStats
	Duration    time.Duration
}

// MissingColumn is one entry of the persisted missing-columns report.
type MissingColumn struct {
	ReportID string `json:"report_id" csv:"report_id"`
	Column   string `json:"column" csv:"column"`
	Status   string `json:"status" csv:"status"` // "missing_required", "missing_optional" or "extra"
}

// RowErrorRecord is a persisted row error.
type RowErrorRecord struct {
	ReportID   string `json:"report_id" csv:"report_id"`
	LineNumber int    `json:"line_number" csv:"line_number"`
	Code       string `json:"code" csv:"code"`
	Column     string `json:"column,omitempty" csv:"column"`
	Reason     string `json:"reason" csv:"reason"`
}

// Store persists ingestion results.
// SaveFile must write the report, its missing-column entries, its row errors
// and its records atomically.
type Store interface {
	SaveFile(ctx context.Context, res *FileResult) error
	MissingColumns(ctx context.Context, reportID string) ([]MissingColumn, error)
	RowErrors(ctx context.Context, reportID string) ([]RowErrorRecord, error)
}

// Locker is a lease-based mutex shared by pipeline runs.
type Locker interface {
	TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name, owner string) error
}

// Recorder receives per-file outcomes for metrics.
type Recorder interface {
	ObserveFile(res *FileResult, err error)
}
