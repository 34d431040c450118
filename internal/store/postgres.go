package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/railcsv/internal/core"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id           UUID PRIMARY KEY,
		file_name    TEXT NOT NULL,
		system       TEXT NOT NULL,
		running_date TIMESTAMPTZ,
		separator    TEXT NOT NULL,
		records      INTEGER NOT NULL,
		row_errors   INTEGER NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS missing_columns (
		id          BIGSERIAL PRIMARY KEY,
		report_id   UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		column_name TEXT NOT NULL,
		status      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS row_errors (
		id          BIGSERIAL PRIMARY KEY,
		report_id   UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		line_number INTEGER NOT NULL,
		code        TEXT NOT NULL,
		column_name TEXT,
		reason      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS measurements (
		report_id        UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		line_number      INTEGER NOT NULL,
		track            TEXT NOT NULL,
		location         TEXT NOT NULL,
		rataosuus_numero TEXT NOT NULL,
		rataosuus_nimi   TEXT NOT NULL,
		raide_numero     TEXT NOT NULL,
		rata_kilometri   INTEGER NOT NULL,
		rata_metrit      DOUBLE PRECISION NOT NULL,
		lat              DOUBLE PRECISION NOT NULL,
		long             DOUBLE PRECISION NOT NULL,
		sscount          BIGINT,
		data             JSONB NOT NULL,
		PRIMARY KEY (report_id, line_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_address
		ON measurements (rataosuus_numero, rata_kilometri, rata_metrit)`,
	`CREATE TABLE IF NOT EXISTS pipeline_locks (
		name       TEXT PRIMARY KEY,
		owner      TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
}

// Postgres is the production backend.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool using cfg.URL and the pool limits in cfg.
func NewPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Pool exposes the underlying pool.
func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() { p.pool.Close() }

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveFile writes a report and everything produced from it in one transaction.
func (p *Postgres) SaveFile(ctx context.Context, res *core.FileResult) error {
	reportID, err := ToPgUUID(res.ReportID)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO reports (id, file_name, system, running_date, separator, records, row_errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		reportID,
		ToPgText(res.FileName),
		string(res.System),
		ToPgTimestamptz(res.RunningDate),
		res.Separator.String(),
		len(res.Records),
		len(res.RowErrors),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	missing := res.MissingColumnRecords()
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"missing_columns"},
		[]string{"report_id", "column_name", "status"},
		pgx.CopyFromSlice(len(missing), func(i int) ([]any, error) {
			return []any{reportID, missing[i].Column, missing[i].Status}, nil
		}),
	); err != nil {
		return fmt.Errorf("copy missing columns: %w", err)
	}

	rowErrs := res.RowErrorRecords()
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"row_errors"},
		[]string{"report_id", "line_number", "code", "column_name", "reason"},
		pgx.CopyFromSlice(len(rowErrs), func(i int) ([]any, error) {
			e := rowErrs[i]
			return []any{reportID, e.LineNumber, e.Code, ToPgText(e.Column), e.Reason}, nil
		}),
	); err != nil {
		return fmt.Errorf("copy row errors: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"measurements"},
		[]string{
			"report_id", "line_number", "track", "location",
			"rataosuus_numero", "rataosuus_nimi", "raide_numero", "rata_kilometri", "rata_metrit",
			"lat", "long", "sscount", "data",
		},
		pgx.CopyFromSlice(len(res.Records), func(i int) ([]any, error) {
			m, err := toMeasurementRow(res.Records[i])
			if err != nil {
				return nil, err
			}
			return []any{
				reportID, m.LineNumber, m.Track, m.Location,
				m.Address.RataosuusNumero, m.Address.RataosuusNimi, m.Address.RaideNumero,
				m.Address.RataKilometri, m.Address.RataMetrit,
				m.Lat, m.Long, ToPgInt8(m.SSCount, m.HasSSCount), m.Data,
			}, nil
		}),
	); err != nil {
		return fmt.Errorf("copy measurements: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MissingColumns returns the missing-column report of one ingest.
func (p *Postgres) MissingColumns(ctx context.Context, reportID string) ([]core.MissingColumn, error) {
	id, err := ToPgUUID(reportID)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT report_id, column_name, status
		FROM missing_columns
		WHERE report_id = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query missing columns: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.MissingColumn, error) {
		var (
			rid pgtype.UUID
			mc  core.MissingColumn
		)
		err := row.Scan(&rid, &mc.Column, &mc.Status)
		mc.ReportID = PgUUIDToString(rid)
		return mc, err
	})
}

// RowErrors returns the row errors of one ingest in line order.
func (p *Postgres) RowErrors(ctx context.Context, reportID string) ([]core.RowErrorRecord, error) {
	id, err := ToPgUUID(reportID)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT report_id, line_number, code, column_name, reason
		FROM row_errors
		WHERE report_id = $1
		ORDER BY line_number, id`, id)
	if err != nil {
		return nil, fmt.Errorf("query row errors: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.RowErrorRecord, error) {
		var (
			rid    pgtype.UUID
			column pgtype.Text
			re     core.RowErrorRecord
		)
		err := row.Scan(&rid, &re.LineNumber, &re.Code, &column, &re.Reason)
		re.ReportID = PgUUIDToString(rid)
		re.Column = column.String
		return re, err
	})
}

// DeleteReport removes a report with its missing columns, row errors and
// measurements.
func (p *Postgres) DeleteReport(ctx context.Context, reportID string) error {
	id, err := ToPgUUID(reportID)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", reportID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	return nil
}

// TryLock takes or renews the named lease. An expired lease held by another
// owner is taken over.
func (p *Postgres) TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO pipeline_locks (name, owner, expires_at)
		VALUES ($1, $2, now() + make_interval(secs => $3))
		ON CONFLICT (name) DO UPDATE
		SET owner = EXCLUDED.owner, expires_at = EXCLUDED.expires_at
		WHERE pipeline_locks.expires_at < now() OR pipeline_locks.owner = EXCLUDED.owner`,
		name, owner, ttl.Seconds())
	if err != nil {
		return false, fmt.Errorf("try lock %s: %w", name, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Unlock releases the lease if owner still holds it.
func (p *Postgres) Unlock(ctx context.Context, name, owner string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM pipeline_locks WHERE name = $1 AND owner = $2`, name, owner)
	if err != nil {
		return fmt.Errorf("unlock %s: %w", name, err)
	}
	return nil
}
