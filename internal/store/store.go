// Package store persists ingestion results.
//
// Two backends implement [core.Store] and [core.Locker]:
//
//   - [Postgres]: pgxpool, measurement rows written with COPY, payload as JSONB
//   - [SQLite]: database/sql over modernc.org/sqlite, payload as JSON text
//
// Every report is written in a single transaction: the report row, its
// missing-column entries, its row errors and its measurement rows.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/railcsv/internal/core"
)

// Drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects and tunes a backend.
type Config struct {
	Driver          string
	URL             string // Postgres connection string or SQLite file path
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// ErrReportNotFound is returned when a report id matches no saved report.
var ErrReportNotFound = errors.New("report not found")

// Backend is a store that can also hold the pipeline lock.
type Backend interface {
	core.Store
	core.Locker
	DeleteReport(ctx context.Context, reportID string) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// Open connects to the configured backend and creates its tables.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	var (
		b   Backend
		err error
	)

	switch cfg.Driver {
	case DriverPostgres, "":
		b, err = NewPostgres(ctx, cfg)
	case DriverSQLite:
		b, err = NewSQLite(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := b.Migrate(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return b, nil
}

// measurementRow is the storage shape of one output record.
type measurementRow struct {
	LineNumber int
	Track      string
	Location   string
	Address    core.TrackAddress
	Lat        float64
	Long       float64
	SSCount    int64
	HasSSCount bool
	Data       []byte
}

func toMeasurementRow(rec core.OutputRecord) (measurementRow, error) {
	data, err := encodeMeasurements(rec)
	if err != nil {
		return measurementRow{}, fmt.Errorf("encode line %d: %w", rec.LineNumber, err)
	}
	n, ok := rec.SampleCount()
	return measurementRow{
		LineNumber: rec.LineNumber,
		Track:      rec.Track,
		Location:   rec.Location,
		Address:    rec.Address,
		Lat:        rec.Lat,
		Long:       rec.Long,
		SSCount:    n,
		HasSSCount: ok,
		Data:       data,
	}, nil
}
