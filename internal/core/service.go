package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// DefaultIngestTimeout is the maximum duration for processing and saving one file.
var DefaultIngestTimeout = 10 * time.Minute

// DefaultMaxFileSize is the largest accepted export.
const DefaultMaxFileSize int64 = 512 << 20

var (
	// ErrFileTooLarge is returned when an export exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFile is returned when an ingest request carries no file.
	ErrNoFile = errors.New("no file provided")
)

// LockSettings configures the pipeline lock held during directory ingests.
type LockSettings struct {
	Name    string
	TTL     time.Duration
	MaxWait time.Duration
}

// Service runs files through the ingestion pipeline and persists the results.
type Service struct {
	store       Store
	locker      Locker
	recorder    Recorder
	limiter     *IngestLimiter
	lock        LockSettings
	owner       string
	maxFileSize int64
	timeout     time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLimiter bounds concurrent ingests.
func WithLimiter(l *IngestLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithRecorder reports per-file outcomes, typically to metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLocker makes directory ingests hold the named pipeline lock.
func WithLocker(l Locker, settings LockSettings) Option {
	return func(s *Service) {
		s.locker = l
		s.lock = settings
	}
}

// WithMaxFileSize rejects exports larger than n bytes.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) { s.maxFileSize = n }
}

// WithIngestTimeout bounds processing and saving of a single file.
func WithIngestTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService creates a new Service instance. store may be nil for dry runs.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		maxFileSize: DefaultMaxFileSize,
		timeout:     DefaultIngestTimeout,
		lock: LockSettings{
			Name:    "railcsv-pipeline",
			TTL:     15 * time.Minute,
			MaxWait: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewIngestLimiter(DefaultMaxConcurrentIngests, DefaultMaxWaitTime)
	}
	if s.owner == "" {
		host, _ := os.Hostname()
		s.owner = fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
	}
	return s
}

// Limiter returns the service's ingest limiter, for shutdown draining and status.
func (s *Service) Limiter() *IngestLimiter {
	return s.limiter
}

// Systems returns the catalog of every registered measurement system.
func (s *Service) Systems() []SystemDefinition {
	return All()
}

// IngestFile processes one export and saves the result.
//
// size is the byte length if known (0 otherwise). The system is derived from
// fileName. A *FileHeaderError returns the result (for its diff) with nothing
// saved; row errors are saved alongside the valid records.
func (s *Service) IngestFile(ctx context.Context, fileName string, r io.Reader, size int64) (*FileResult, error) {
	start := time.Now()
	log := slog.With("file", fileName, "source", SourceFromContext(ctx))

	def, err := s.resolve(fileName, size)
	if err != nil {
		s.observe(nil, err)
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		s.observe(nil, err)
		log.Warn("file not accepted", "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	meta := Metadata{
		ReportID: uuid.NewString(),
		System:   def.System,
		FileName: fileName,
	}

	res, err := ProcessFile(ctx, def, meta, s.limitReader(r))
	if err == nil {
		err = s.checkSize(fileName, res)
	}
	if err != nil {
		s.observe(res, err)
		var fhe *FileHeaderError
		if errors.As(err, &fhe) {
			log.Warn("file rejected", "system", def.System, "missing", fhe.Missing)
		} else {
			log.Error("file processing failed", "system", def.System, "error", err)
		}
		return res, err
	}

	if len(res.Diff.Extra) > 0 {
		log.Warn("unrecognized columns", "system", def.System, "extra", res.Diff.Extra)
	}

	if s.store != nil {
		if err := s.store.SaveFile(ctx, res); err != nil {
			err = fmt.Errorf("save report %s: %w", res.ReportID, err)
			s.observe(res, err)
			log.Error("save failed", "report_id", res.ReportID, "error", err)
			return res, err
		}
	}

	s.observe(res, nil)
	log.Info("file ingested",
		"report_id", res.ReportID,
		"system", res.System,
		"separator", res.Separator,
		"rows", res.Stats.Parsed,
		"row_errors", res.Stats.Failed,
		"missing_optional", len(res.Diff.MissingOptional),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// resolve finds the catalog entry for a file and checks its declared size.
func (s *Service) resolve(fileName string, size int64) (SystemDefinition, error) {
	if fileName == "" {
		return SystemDefinition{}, ErrNoFile
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return SystemDefinition{}, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, fileName, size, s.maxFileSize)
	}
	system, err := SystemFromFileName(fileName)
	if err != nil {
		return SystemDefinition{}, err
	}
	def, ok := Get(system)
	if !ok {
		return SystemDefinition{}, fmt.Errorf("%w: %s has no catalog", ErrUnknownSystem, system)
	}
	return def, nil
}

// checkSize fails when more bytes were read than the size limit allows.
func (s *Service) checkSize(fileName string, res *FileResult) error {
	if s.maxFileSize > 0 && res != nil && res.Stats.BytesRead > s.maxFileSize {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, fileName, s.maxFileSize)
	}
	return nil
}

// limitReader stops reading one byte past the size limit so oversize
// streams of unknown length are detected without reading them whole.
func (s *Service) limitReader(r io.Reader) io.Reader {
	if s.maxFileSize <= 0 {
		return r
	}
	return io.LimitReader(r, s.maxFileSize+1)
}

func (s *Service) observe(res *FileResult, err error) {
	if s.recorder != nil {
		s.recorder.ObserveFile(res, err)
	}
}

// MissingColumns returns the persisted missing-column report of a file.
func (s *Service) MissingColumns(ctx context.Context, reportID string) ([]MissingColumn, error) {
	if s.store == nil {
		return nil, errors.New("no store configured")
	}
	return s.store.MissingColumns(ctx, reportID)
}

// RowErrors returns the persisted row errors of a file.
func (s *Service) RowErrors(ctx context.Context, reportID string) ([]RowErrorRecord, error) {
	if s.store == nil {
		return nil, errors.New("no store configured")
	}
	return s.store.RowErrors(ctx, reportID)
}
