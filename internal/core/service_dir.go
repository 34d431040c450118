package core

// service_dir.go ingests every export waiting in a drop directory.
//
// Layout of a drop directory:
//
//	<dir>/*.csv             exports waiting to be ingested
//	<dir>/Uploaded/         exports that were saved (row errors or not)
//	<dir>/Failed/           <name>.errors.csv for every file with row errors
//
// Only one worker may scan a directory at a time; the pipeline lock is a
// lease in the store so that several hosts can share one drop directory.
// The lease is renewed every TTL/3 while the scan runs. If a renewal fails
// the scan is cancelled, since another worker may already own the directory.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jszwec/csvutil"
	"golang.org/x/sync/errgroup"
)

// ErrPipelineLocked is returned when another worker holds the pipeline lock
// for longer than LockSettings.MaxWait.
var ErrPipelineLocked = errors.New("pipeline lock held by another worker")

// ErrLeaseLost is the cancellation cause of a directory ingest whose lease
// could not be renewed.
var ErrLeaseLost = errors.New("pipeline lock lease lost")

var errLockBusy = errors.New("lock busy")

// DirFileResult is the outcome of one file of a directory ingest.
type DirFileResult struct {
	FileName string      `json:"file_name"`
	Result   *FileResult `json:"-"`
	Err      error       `json:"-"`
}

// DirResult summarizes a directory ingest.
type DirResult struct {
	Dir      string
	Files    []DirFileResult
	Duration time.Duration
}

// Failed returns the files that were not saved.
func (r *DirResult) Failed() []DirFileResult {
	var out []DirFileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// IngestDir ingests every *.csv file directly inside dir.
//
// Files are processed concurrently up to the limiter's capacity. A file that
// fails is left in place for the next run; the error is reported in its
// DirFileResult. The returned error is non-nil only when the run as a whole
// could not proceed (lock, unreadable directory, cancellation).
func (s *Service) IngestDir(ctx context.Context, dir string) (*DirResult, error) {
	start := time.Now()

	leaseCtx, unlock, err := s.acquirePipelineLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	files, err := listExports(dir)
	if err != nil {
		return nil, err
	}

	result := &DirResult{Dir: dir, Files: make([]DirFileResult, len(files))}

	g, gctx := errgroup.WithContext(ContextWithSource(leaseCtx, "dir"))
	g.SetLimit(s.limiter.MaxConcurrent())

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.ingestPath(gctx, dir, path)
			result.Files[i] = DirFileResult{FileName: filepath.Base(path), Result: res, Err: err}
			return nil
		})
	}

	err = g.Wait()
	if cause := context.Cause(leaseCtx); errors.Is(cause, ErrLeaseLost) {
		return result, fmt.Errorf("ingest %s: %w", dir, cause)
	}
	if err != nil {
		return result, fmt.Errorf("ingest %s: %w", dir, err)
	}

	result.Duration = time.Since(start)
	slog.Info("directory ingested",
		"dir", dir,
		"files", len(files),
		"failed", len(result.Failed()),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// ingestPath ingests one file and files it away on success.
func (s *Service) ingestPath(ctx context.Context, dir, path string) (*FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	name := filepath.Base(path)
	res, err := s.IngestFile(ctx, name, f, size)
	if err != nil {
		return res, err
	}

	if len(res.RowErrors) > 0 {
		if err := writeRowErrors(filepath.Join(dir, "Failed"), name, res.RowErrorRecords()); err != nil {
			slog.Warn("write row errors failed", "file", name, "error", err)
		}
	}

	// Move to Uploaded directory
	uploadedDir := filepath.Join(dir, "Uploaded")
	if err := os.MkdirAll(uploadedDir, 0o755); err != nil {
		return res, fmt.Errorf("create %s: %w", uploadedDir, err)
	}
	f.Close()
	if err := os.Rename(path, filepath.Join(uploadedDir, name)); err != nil {
		return res, fmt.Errorf("move %s: %w", name, err)
	}
	return res, nil
}

// writeRowErrors writes a file's row errors as <name>.errors.csv.
func writeRowErrors(dir, name string, records []RowErrorRecord) error {
	data, err := csvutil.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode row errors: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return os.WriteFile(filepath.Join(dir, base+".errors.csv"), data, 0o644)
}

// listExports returns the *.csv files directly inside dir, sorted by name.
func listExports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// acquirePipelineLock takes the lease, retrying with exponential backoff
// until LockSettings.MaxWait. The returned context is cancelled with
// ErrLeaseLost when a renewal fails; release stops renewing and unlocks.
// Without a Locker it is a no-op.
func (s *Service) acquirePipelineLock(ctx context.Context) (context.Context, func(), error) {
	if s.locker == nil {
		return ctx, func() {}, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = s.lock.MaxWait
	b.Reset()

	op := func() error {
		ok, err := s.locker.TryLock(ctx, s.lock.Name, s.owner, s.lock.TTL)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockBusy
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errLockBusy) {
			return nil, nil, fmt.Errorf("%w: %s", ErrPipelineLocked, s.lock.Name)
		}
		return nil, nil, fmt.Errorf("acquire pipeline lock: %w", err)
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		s.renewLease(leaseCtx, cancel, stop)
	}()

	return leaseCtx, func() {
		close(stop)
		<-renewed
		cancel(nil)
		if err := s.locker.Unlock(context.WithoutCancel(ctx), s.lock.Name, s.owner); err != nil {
			slog.Warn("release pipeline lock failed", "lock", s.lock.Name, "error", err)
		}
	}, nil
}

// renewLease extends the lease every TTL/3 until stop is closed or ctx ends.
func (s *Service) renewLease(ctx context.Context, cancel context.CancelCauseFunc, stop <-chan struct{}) {
	interval := s.lock.TTL / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := s.locker.TryLock(ctx, s.lock.Name, s.owner, s.lock.TTL)
			if err == nil && ok {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				err = errLockBusy
			}
			slog.Error("pipeline lock renewal failed, cancelling directory ingest",
				"lock", s.lock.Name, "error", err)
			cancel(fmt.Errorf("%w: %s: %v", ErrLeaseLost, s.lock.Name, err))
			return
		}
	}
}
