package core

import (
	"sort"
	"time"
)

// Assemble merges a tagged row with the file's metadata into an OutputRecord.
// A malformed location or an unparsable coordinate rejects the row.
func Assemble(meta Metadata, row TaggedRow) (OutputRecord, error) {
	track := row["track"].Value.Raw
	location := row["location"].Value.Raw

	addr, err := Decompose(track, location)
	if err != nil {
		return OutputRecord{}, err
	}

	lat, err := coordinate(row, "latitude")
	if err != nil {
		return OutputRecord{}, err
	}
	long, err := coordinate(row, "longitude")
	if err != nil {
		return OutputRecord{}, err
	}

	return OutputRecord{
		ReportID:    meta.ReportID,
		RunningDate: meta.RunningDate,
		System:      meta.System,
		Track:       track,
		Location:    location,
		Address:     addr,
		Lat:         lat,
		Long:        long,
		Fields:      row,
	}, nil
}

func coordinate(row TaggedRow, column string) (float64, error) {
	v, ok := row[column]
	if !ok {
		return 0, &RowCoercionError{Column: column, Reason: "row has no value for required column"}
	}
	f, err := ParseCoordinate(v.Value.Raw)
	if err != nil {
		return 0, &RowCoercionError{Column: column, Value: v.Value.Raw, Reason: "invalid coordinate"}
	}
	return f, nil
}

// Columns flattens the record into the column/value map handed to storage.
// Tagged fields hold the sentinel string and gain a <name>_nan_reason sibling.
func (r OutputRecord) Columns() map[string]any {
	out := make(map[string]any, len(r.Fields)*2+10)

	for name, v := range r.Fields {
		out[name] = v.Value.Any()
		if v.Tagged() {
			out[name+NanReasonSuffix] = string(v.Reason)
		}
	}

	out["report_id"] = r.ReportID
	out["system"] = string(r.System)
	if !r.RunningDate.IsZero() {
		out["running_date"] = r.RunningDate.Format(time.RFC3339)
	}
	out["lat"] = r.Lat
	out["long"] = r.Long
	out["rataosuus_numero"] = r.Address.RataosuusNumero
	out["rataosuus_nimi"] = r.Address.RataosuusNimi
	out["raide_numero"] = r.Address.RaideNumero
	out["rata_kilometri"] = r.Address.RataKilometri
	out["rata_metrit"] = r.Address.RataMetrit

	return out
}

// Measurements returns the record's measurement fields,
// flattened like Columns but without identity and positional fields.
func (r OutputRecord) Measurements() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for name, v := range r.Fields {
		if !IsMeasurementField(name) {
			continue
		}
		out[name] = v.Value.Any()
		if v.Tagged() {
			out[name+NanReasonSuffix] = string(v.Reason)
		}
	}
	return out
}

// FieldNames returns the record's field names sorted alphabetically.
func (r OutputRecord) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SampleCount returns the sscount field when it was parsed as a number.
func (r OutputRecord) SampleCount() (int64, bool) {
	v, ok := r.Fields["sscount"]
	if !ok || v.Value.Kind != ValueNumber {
		return 0, false
	}
	return int64(v.Value.Number), true
}
