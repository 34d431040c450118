package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/railcsv/internal/config"
	"github.com/JonMunkholm/railcsv/internal/core"
	_ "github.com/JonMunkholm/railcsv/internal/core/systems"
	"github.com/JonMunkholm/railcsv/internal/logging"
	"github.com/JonMunkholm/railcsv/internal/metrics"
	"github.com/JonMunkholm/railcsv/internal/store"
)

const (
	testHeader = "SSCOUNT,Track,Location,Latitude,Longitude,Running Dynamics.Ajonopeus [km/h]"
	testBody   = testHeader + "\n" +
		"1,006 LHRP 2,130+0100.25,64.07646857° N,25.4683° E,80.5\n" +
		"2,006 LHRP 2,630,64.1,25.4,80\n"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Minute},
		Ingest: config.IngestConfig{MaxFileSize: 1 << 20},
	}
}

type testServer struct {
	*Server
	store *store.SQLite
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	db, err := store.NewSQLite(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	rec := metrics.NewRecorder()
	svc := core.NewService(db,
		core.WithRecorder(rec),
		core.WithMaxFileSize(cfg.Ingest.MaxFileSize),
	)
	return &testServer{
		Server: NewServer(svc, cfg, WithHealthCheck(db), WithMetricsHandler(rec.Handler())),
		store:  db,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, fileName, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile() error: %v", err)
		}
		_, _ = fw.Write([]byte(body))
	} else {
		_ = mw.WriteField("note", "no file")
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHandleIngest(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(uploadRequest(t, "/api/ingest", "AMS_1234_20230603.csv", testBody))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	resp := decode[IngestResponse](t, rec)
	if resp.System != core.SystemAMS || resp.Records != 1 || resp.RowErrors != 1 {
		t.Errorf("response = %+v, want AMS with 1 record and 1 row error", resp)
	}
	if resp.ReportID == "" {
		t.Fatal("report_id is empty")
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+resp.ReportID+"/row-errors", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("row-errors status = %d: %s", rec.Code, rec.Body.String())
	}
	rowErrs := decode[[]core.RowErrorRecord](t, rec)
	if len(rowErrs) != 1 || rowErrs[0].LineNumber != 3 || rowErrs[0].Code != "MALFORMED_LOCATION" {
		t.Errorf("row errors = %+v", rowErrs)
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/reports/"+resp.ReportID+"/missing-columns?format=csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("missing-columns status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if lines[0] != "report_id,column,status" {
		t.Errorf("csv header = %q", lines[0])
	}
	if !strings.Contains(rec.Body.String(), "oikea_pystysuuntainen_kiihtyvyys,missing_optional") {
		t.Errorf("csv body missing optional column entry:\n%s", rec.Body.String())
	}
}

func TestHandleIngest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		body     string
		status   int
		code     string
	}{
		{"no file", "", "", http.StatusBadRequest, "FILE004"},
		{"unknown system", "XYZ_1_20230603.csv", testBody, http.StatusBadRequest, "SYS001"},
		{"empty file", "AMS_1_20230603.csv", "", http.StatusBadRequest, "FILE005"},
		{"missing required column", "AMS_1_20230603.csv", "SSCOUNT,Track,Location\n1,a,1+1\n", http.StatusUnprocessableEntity, "VAL004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig())

			rec := s.do(uploadRequest(t, "/api/ingest", tt.fileName, tt.body))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			resp := decode[ErrorResponse](t, rec)
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q (%+v)", resp.Code, tt.code, resp)
			}
		})
	}
}

func TestHandleIngest_RejectedCarriesDiff(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(uploadRequest(t, "/api/ingest", "AMS_1_20230603.csv", "SSCOUNT,Track,Location\n1,a,1+1\n"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	resp := decode[ErrorResponse](t, rec)
	if resp.Diff == nil {
		t.Fatal("diff missing from rejection")
	}
	want := []string{"latitude", "longitude"}
	if strings.Join(resp.Diff.MissingRequired, ",") != strings.Join(want, ",") {
		t.Errorf("missing_required = %v, want %v", resp.Diff.MissingRequired, want)
	}
}

func TestHandleIngest_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.MaxFileSize = 64
	s := newTestServer(t, cfg)

	rec := s.do(uploadRequest(t, "/api/ingest", "AMS_1_20230603.csv", testBody))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusRequestEntityTooLarge, rec.Body.String())
	}
}

func TestHandlePreview(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(uploadRequest(t, "/api/preview", "AMS_1_20230603.csv", testBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	preview := decode[core.PreviewResponse](t, rec)
	if preview.Rejected {
		t.Error("preview rejected a valid header")
	}
	if preview.Summary.ValidRows != 1 || preview.Summary.ErrorRows != 1 {
		t.Errorf("summary = %+v, want 1 valid, 1 error", preview.Summary)
	}

	var count int
	if err := s.store.DB().QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&count); err != nil {
		t.Fatalf("count reports: %v", err)
	}
	if count != 0 {
		t.Errorf("preview saved %d reports, want 0", count)
	}
}

func TestHandleListSystems(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/systems", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	defs := decode[[]core.SystemDefinition](t, rec)
	if len(defs) != 7 {
		t.Errorf("got %d systems, want 7", len(defs))
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	s.store.Close()
	rec = s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status after close = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleMetrics(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}

	s.do(uploadRequest(t, "/api/ingest", "AMS_1_20230603.csv", testBody))
	rec = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `railcsv_files_total{status="ok",system="AMS"} 1`) {
		t.Error("metrics output missing the ingested file")
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := newTestServer(t, cfg)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/systems", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/systems", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := s.do(req); rec.Code != http.StatusOK {
		t.Errorf("status with key = %d, want %d", rec.Code, http.StatusOK)
	}

	if rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz should not require a key, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNoFile, http.StatusBadRequest},
		{core.ErrEmptyFile, http.StatusBadRequest},
		{core.ErrUnknownSystem, http.StatusBadRequest},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{&core.FileHeaderError{Missing: []string{"track"}}, http.StatusUnprocessableEntity},
		{core.ErrTooManyIngests, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondError_LogLevel(t *testing.T) {
	s := newTestServer(t, testConfig())

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "debug", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name      string
		err       error
		status    int
		wantLevel string
	}{
		{"mapped client error", core.ErrNoFile, http.StatusBadRequest, "level=WARN"},
		{"unmapped client error", errors.New("odd input"), http.StatusBadRequest, "level=ERROR"},
		{"server error", core.ErrTooManyIngests, http.StatusServiceUnavailable, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
			s.respondError(httptest.NewRecorder(), req, tt.err, tt.status)

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("log = %q, want %s", out, tt.wantLevel)
			}
			if !strings.Contains(out, "path=/api/ingest") || !strings.Contains(out, "method=POST") {
				t.Errorf("log = %q, want path and method fields", out)
			}
		})
	}
}
