package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/railcsv/internal/core"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id           TEXT PRIMARY KEY,
		file_name    TEXT NOT NULL,
		system       TEXT NOT NULL,
		running_date TEXT,
		separator    TEXT NOT NULL,
		records      INTEGER NOT NULL,
		row_errors   INTEGER NOT NULL,
		created_at   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS missing_columns (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id   TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		column_name TEXT NOT NULL,
		status      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS row_errors (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id   TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		line_number INTEGER NOT NULL,
		code        TEXT NOT NULL,
		column_name TEXT,
		reason      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS measurements (
		report_id        TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		line_number      INTEGER NOT NULL,
		track            TEXT NOT NULL,
		location         TEXT NOT NULL,
		rataosuus_numero TEXT NOT NULL,
		rataosuus_nimi   TEXT NOT NULL,
		raide_numero     TEXT NOT NULL,
		rata_kilometri   INTEGER NOT NULL,
		rata_metrit      REAL NOT NULL,
		lat              REAL NOT NULL,
		long             REAL NOT NULL,
		sscount          INTEGER,
		data             TEXT NOT NULL,
		PRIMARY KEY (report_id, line_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_address
		ON measurements (rataosuus_numero, rata_kilometri, rata_metrit)`,
	`CREATE TABLE IF NOT EXISTS pipeline_locks (
		name       TEXT PRIMARY KEY,
		owner      TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
}

// SQLite is the single-host backend used for local runs and tests.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database file at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

// sqliteDSN enables foreign keys and a busy timeout on every connection.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// DB exposes the underlying handle.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() { _ = s.db.Close() }

// Migrate creates the tables if they do not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveFile writes a report and everything produced from it in one transaction.
func (s *SQLite) SaveFile(ctx context.Context, res *core.FileResult) error {
	if _, err := ToPgUUID(res.ReportID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var runningDate sql.NullString
	if !res.RunningDate.IsZero() {
		runningDate = sql.NullString{String: res.RunningDate.Format(time.RFC3339), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, file_name, system, running_date, separator, records, row_errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ReportID,
		res.FileName,
		string(res.System),
		runningDate,
		res.Separator.String(),
		len(res.Records),
		len(res.RowErrors),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	for _, mc := range res.MissingColumnRecords() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO missing_columns (report_id, column_name, status) VALUES (?, ?, ?)`,
			res.ReportID, mc.Column, mc.Status,
		); err != nil {
			return fmt.Errorf("insert missing column %s: %w", mc.Column, err)
		}
	}

	for _, re := range res.RowErrorRecords() {
		column := sql.NullString{String: re.Column, Valid: re.Column != ""}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO row_errors (report_id, line_number, code, column_name, reason) VALUES (?, ?, ?, ?, ?)`,
			res.ReportID, re.LineNumber, re.Code, column, re.Reason,
		); err != nil {
			return fmt.Errorf("insert row error line %d: %w", re.LineNumber, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO measurements (
			report_id, line_number, track, location,
			rataosuus_numero, rataosuus_nimi, raide_numero, rata_kilometri, rata_metrit,
			lat, long, sscount, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare measurements: %w", err)
	}
	defer stmt.Close()

	for _, rec := range res.Records {
		m, err := toMeasurementRow(rec)
		if err != nil {
			return err
		}
		sscount := sql.NullInt64{Int64: m.SSCount, Valid: m.HasSSCount}
		if _, err := stmt.ExecContext(ctx,
			res.ReportID, m.LineNumber, m.Track, m.Location,
			m.Address.RataosuusNumero, m.Address.RataosuusNimi, m.Address.RaideNumero,
			m.Address.RataKilometri, m.Address.RataMetrit,
			m.Lat, m.Long, sscount, string(m.Data),
		); err != nil {
			return fmt.Errorf("insert measurement line %d: %w", m.LineNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MissingColumns returns the missing-column report of one ingest.
func (s *SQLite) MissingColumns(ctx context.Context, reportID string) ([]core.MissingColumn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_id, column_name, status
		FROM missing_columns
		WHERE report_id = ?
		ORDER BY id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("query missing columns: %w", err)
	}
	defer rows.Close()

	var out []core.MissingColumn
	for rows.Next() {
		var mc core.MissingColumn
		if err := rows.Scan(&mc.ReportID, &mc.Column, &mc.Status); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// RowErrors returns the row errors of one ingest in line order.
func (s *SQLite) RowErrors(ctx context.Context, reportID string) ([]core.RowErrorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_id, line_number, code, column_name, reason
		FROM row_errors
		WHERE report_id = ?
		ORDER BY line_number, id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("query row errors: %w", err)
	}
	defer rows.Close()

	var out []core.RowErrorRecord
	for rows.Next() {
		var (
			re     core.RowErrorRecord
			column sql.NullString
		)
		if err := rows.Scan(&re.ReportID, &re.LineNumber, &re.Code, &column, &re.Reason); err != nil {
			return nil, err
		}
		re.Column = column.String
		out = append(out, re)
	}
	return out, rows.Err()
}

// DeleteReport removes a report with its missing columns, row errors and
// measurements.
func (s *SQLite) DeleteReport(ctx context.Context, reportID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, reportID)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", reportID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report %s: %w", reportID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	return nil
}

// TryLock takes or renews the named lease. An expired lease held by another
// owner is taken over.
func (s *SQLite) TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_locks (name, owner, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE pipeline_locks.expires_at < ? OR pipeline_locks.owner = excluded.owner`,
		name, owner, now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("try lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("try lock %s: %w", name, err)
	}
	return n == 1, nil
}

// Unlock releases the lease if owner still holds it.
func (s *SQLite) Unlock(ctx context.Context, name, owner string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_locks WHERE name = ? AND owner = ?`, name, owner)
	if err != nil {
		return fmt.Errorf("unlock %s: %w", name, err)
	}
	return nil
}
