package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JonMunkholm/railcsv/internal/core"
)

func testDefinition() core.SystemDefinition {
	return core.SystemDefinition{
		System: core.SystemAMS,
		Label:  "Running Dynamics",
		Columns: []core.ColumnDescriptor{
			{Name: "sscount", Required: true, Kind: core.KindNumber},
			{Name: "track", Required: true, Kind: core.KindString},
			{Name: "location", Required: true, Kind: core.KindString},
			{Name: "latitude", Required: true, Kind: core.KindString},
			{Name: "longitude", Required: true, Kind: core.KindString},
			{Name: "ams_ajonopeus", Kind: core.KindNumber},
			{Name: "oikea_pystysuuntainen_kiihtyvyys", Kind: core.KindNumber},
		},
	}
}

const testExport = "3/6/2023 9:14:02 AM\n" +
	`"SSCOUNT","Track","Location","Latitude","Longitude","Running Dynamics.Ajonopeus [km/h]"` + "\n" +
	"1,006 LHRP 2,130+0100.25,64.07646857° N,25.4683° E,80.5\n" +
	"2,006 LHRP 2,630,64.1,25.4,80\n" +
	"3,006 LHRP 2,130+0101.25,64.1,25.4,inv\n"

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "railcsv.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return s
}

func processTestExport(t *testing.T) *core.FileResult {
	t.Helper()
	meta := core.Metadata{ReportID: uuid.NewString(), System: core.SystemAMS, FileName: "AMS_1_20230603.csv"}
	res, err := core.ProcessFile(context.Background(), testDefinition(), meta, strings.NewReader(testExport))
	if err != nil {
		t.Fatalf("ProcessFile() error: %v", err)
	}
	return res
}

func TestSQLite_SaveFile(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	res := processTestExport(t)

	if err := s.SaveFile(ctx, res); err != nil {
		t.Fatalf("SaveFile() error: %v", err)
	}

	var records, rowErrors int
	var runningDate string
	err := s.DB().QueryRowContext(ctx,
		`SELECT records, row_errors, running_date FROM reports WHERE id = ?`, res.ReportID,
	).Scan(&records, &rowErrors, &runningDate)
	if err != nil {
		t.Fatalf("query report: %v", err)
	}
	if records != 2 || rowErrors != 1 {
		t.Errorf("report records/row_errors = %d/%d, want 2/1", records, rowErrors)
	}
	if !strings.HasPrefix(runningDate, "2023-06-03T09:14:02") {
		t.Errorf("running_date = %q", runningDate)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM measurements WHERE report_id = ?`, res.ReportID,
	).Scan(&count); err != nil {
		t.Fatalf("count measurements: %v", err)
	}
	if count != 2 {
		t.Errorf("measurements = %d, want 2", count)
	}

	var (
		numero string
		km     int
		metres float64
		data   string
	)
	if err := s.DB().QueryRowContext(ctx, `
		SELECT rataosuus_numero, rata_kilometri, rata_metrit, data
		FROM measurements WHERE report_id = ? AND line_number = 5`, res.ReportID,
	).Scan(&numero, &km, &metres, &data); err != nil {
		t.Fatalf("query measurement: %v", err)
	}
	if numero != "006" || km != 130 || metres != 101.25 {
		t.Errorf("address = %s/%d/%v, want 006/130/101.25", numero, km, metres)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	want := map[string]any{
		"ams_ajonopeus":                               core.Sentinel,
		"ams_ajonopeus_nan_reason":                    string(core.ReasonInvValue),
		"oikea_pystysuuntainen_kiihtyvyys":            core.Sentinel,
		"oikea_pystysuuntainen_kiihtyvyys_nan_reason": string(core.ReasonMissingColumn),
	}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLite_Reports(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	res := processTestExport(t)

	if err := s.SaveFile(ctx, res); err != nil {
		t.Fatalf("SaveFile() error: %v", err)
	}

	missing, err := s.MissingColumns(ctx, res.ReportID)
	if err != nil {
		t.Fatalf("MissingColumns() error: %v", err)
	}
	wantMissing := []core.MissingColumn{
		{ReportID: res.ReportID, Column: "oikea_pystysuuntainen_kiihtyvyys", Status: "missing_optional"},
	}
	if diff := cmp.Diff(wantMissing, missing); diff != "" {
		t.Errorf("MissingColumns() mismatch (-want +got):\n%s", diff)
	}

	rowErrs, err := s.RowErrors(ctx, res.ReportID)
	if err != nil {
		t.Fatalf("RowErrors() error: %v", err)
	}
	if diff := cmp.Diff(res.RowErrorRecords(), rowErrs); diff != "" {
		t.Errorf("RowErrors() mismatch (-want +got):\n%s", diff)
	}

	none, err := s.RowErrors(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("RowErrors(unknown) error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("RowErrors(unknown) = %+v, want empty", none)
	}
}

func TestSQLite_SaveFile_Atomic(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	res := processTestExport(t)

	if err := s.SaveFile(ctx, res); err != nil {
		t.Fatalf("SaveFile() error: %v", err)
	}
	// Same report id again violates the primary key; nothing of the second
	// attempt may remain.
	if err := s.SaveFile(ctx, res); err == nil {
		t.Fatal("second SaveFile() succeeded, want duplicate key error")
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM missing_columns`).Scan(&count); err != nil {
		t.Fatalf("count missing columns: %v", err)
	}
	if count != 1 {
		t.Errorf("missing_columns rows = %d, want 1", count)
	}
}

func TestSQLite_SaveFile_InvalidReportID(t *testing.T) {
	s := newTestSQLite(t)
	res := processTestExport(t)
	res.ReportID = "not-a-uuid"

	if err := s.SaveFile(context.Background(), res); err == nil {
		t.Error("SaveFile() succeeded, want invalid report id error")
	}
}

func TestSQLite_DeleteReport(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	res := processTestExport(t)

	if err := s.SaveFile(ctx, res); err != nil {
		t.Fatalf("SaveFile() error: %v", err)
	}
	if err := s.DeleteReport(ctx, res.ReportID); err != nil {
		t.Fatalf("DeleteReport() error: %v", err)
	}

	for _, table := range []string{"reports", "missing_columns", "row_errors", "measurements"} {
		var count int
		if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("%s has %d rows after delete, want 0", table, count)
		}
	}

	if err := s.DeleteReport(ctx, res.ReportID); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("second DeleteReport() error = %v, want ErrReportNotFound", err)
	}
}

func TestSQLite_Lock(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	ok, err := s.TryLock(ctx, "pipeline", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock(a) = %v, %v; want true, nil", ok, err)
	}

	ok, err = s.TryLock(ctx, "pipeline", "b", time.Minute)
	if err != nil || ok {
		t.Fatalf("TryLock(b) while held = %v, %v; want false, nil", ok, err)
	}

	ok, err = s.TryLock(ctx, "pipeline", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock(a) renew = %v, %v; want true, nil", ok, err)
	}

	if err := s.Unlock(ctx, "pipeline", "b"); err != nil {
		t.Fatalf("Unlock(b) error: %v", err)
	}
	ok, _ = s.TryLock(ctx, "pipeline", "b", time.Minute)
	if ok {
		t.Fatal("Unlock by non-owner released the lock")
	}

	if err := s.Unlock(ctx, "pipeline", "a"); err != nil {
		t.Fatalf("Unlock(a) error: %v", err)
	}
	ok, err = s.TryLock(ctx, "pipeline", "b", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock(b) after unlock = %v, %v; want true, nil", ok, err)
	}
}

func TestSQLite_LockExpired(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	if ok, err := s.TryLock(ctx, "pipeline", "a", -time.Second); err != nil || !ok {
		t.Fatalf("TryLock(a) = %v, %v; want true, nil", ok, err)
	}
	ok, err := s.TryLock(ctx, "pipeline", "b", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock(b) over expired lease = %v, %v; want true, nil", ok, err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mysql"}); err == nil {
		t.Error("Open(mysql) succeeded, want error")
	}
}

func TestOpen_SQLite(t *testing.T) {
	b, err := Open(context.Background(), Config{Driver: DriverSQLite, URL: filepath.Join(t.TempDir(), "open.db")})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer b.Close()

	if err := b.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}
