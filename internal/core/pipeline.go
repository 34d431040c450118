package core

// pipeline.go runs one file (or chunk) through the ingestion stages:
//
//  1. Decode bytes (BOM, Windows-1252) and split off the running-date preamble
//  2. Detect the separator convention from the first two lines
//  3. Normalize the header and reconcile it against the system's catalog
//  4. For every data line: coerce, tag sentinels, decompose location, assemble
//
// Lines are processed strictly in order on the calling goroutine. A missing
// required column aborts before any record is emitted; row failures are
// collected and processing continues.

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/transform"
)

// ContextCheckInterval is how often (in rows) to check for context cancellation.
var ContextCheckInterval = 100

// EmitFunc receives each assembled record in file order.
// Returning an error stops processing.
type EmitFunc func(OutputRecord) error

// ProcessFile runs a whole file and collects its records in memory.
func ProcessFile(ctx context.Context, def SystemDefinition, meta Metadata, r io.Reader) (*FileResult, error) {
	var records []OutputRecord
	res, err := StreamFile(ctx, def, meta, r, func(rec OutputRecord) error {
		records = append(records, rec)
		return nil
	})
	if res != nil {
		res.Records = records
	}
	return res, err
}

// StreamFile runs a file and hands each record to emit as soon as it is built.
//
// On a *FileHeaderError the returned result still carries the header diff so
// the caller can report it; no record has been emitted at that point.
func StreamFile(ctx context.Context, def SystemDefinition, meta Metadata, r io.Reader, emit EmitFunc) (*FileResult, error) {
	start := time.Now()
	if meta.System == "" {
		meta.System = def.System
	}

	decoded, counter := WrapForStreaming(r)
	br := bufio.NewReader(decoded)

	res := &FileResult{
		ReportID:    meta.ReportID,
		FileName:    meta.FileName,
		System:      meta.System,
		RunningDate: meta.RunningDate,
		Stats:       ProcessStats{Sentinels: make(map[NanReason]int)},
	}
	defer func() {
		res.Stats.BytesRead = counter.BytesRead
		res.Duration = time.Since(start)
	}()

	first, err := readLine(br)
	if err != nil && first == "" {
		if errors.Is(err, io.EOF) {
			return res, ErrEmptyFile
		}
		return res, fmt.Errorf("read header: %w", err)
	}

	// Preamble: a metadata line carrying the running date precedes the header.
	headerLine := first
	headerFileLine := 1
	if date, ok := ParseRunningDate(first); ok {
		if res.RunningDate.IsZero() {
			res.RunningDate = date
			meta.RunningDate = date
		}
		headerLine, err = readLine(br)
		if err != nil && headerLine == "" {
			return res, ErrEmptyFile
		}
		headerFileLine = 2
	}

	// The line after the first one decides the separator. Without a preamble
	// that is the first data line, which must then be replayed into the reader.
	second := headerLine
	var pending string
	hasPending := false
	if headerFileLine == 1 {
		var perr error
		pending, perr = readLine(br)
		hasPending = perr == nil || pending != ""
		second = pending
	}
	res.Separator = DetectSeparator(first, second)

	res.Header = NormalizeColumns(splitHeaderLine(res.Separator.Rewrite(headerLine)))
	schema, diff, err := ValidateHeader(def, res.Header)
	res.Diff = diff
	res.Stats.HeaderDuration = time.Since(start)
	if err != nil {
		return res, err
	}

	body := io.Reader(br)
	if hasPending {
		body = io.MultiReader(strings.NewReader(pending+"\n"), br)
	}

	cr := csv.NewReader(transform.NewReader(body, res.Separator.Transformer()))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	parser := NewRowParser(schema, res.Header)
	rowsStart := time.Now()
	defer func() { res.Stats.RowsDuration = time.Since(rowsStart) }()

	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("processing cancelled after %d rows: %w", res.Stats.Lines, err)
			}
		}

		tokens, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		line, _ := cr.FieldPos(0)
		lineNum := headerFileLine + line

		if readErr != nil {
			var pe *csv.ParseError
			if errors.As(readErr, &pe) {
				lineNum = headerFileLine + pe.Line
			}
			res.Stats.Lines++
			res.Stats.Failed++
			res.RowErrors = append(res.RowErrors, RowError{LineNumber: lineNum, Err: readErr, Data: tokens})
			continue
		}

		if isEmptyRow(tokens) {
			continue
		}
		res.Stats.Lines++

		rec, err := processRow(parser, meta, diff.MissingOptional, tokens)
		if err != nil {
			res.Stats.Failed++
			res.RowErrors = append(res.RowErrors, RowError{LineNumber: lineNum, Err: err, Data: tokens})
			continue
		}
		rec.LineNumber = lineNum

		for reason, n := range rec.Fields.Reasons() {
			res.Stats.Sentinels[reason] += n
		}
		res.Stats.Parsed++

		if err := emit(rec); err != nil {
			return res, fmt.Errorf("emit line %d: %w", lineNum, err)
		}
	}

	return res, nil
}

// processRow runs one data line through coercion, tagging and assembly.
func processRow(parser *RowParser, meta Metadata, missingOptional []string, tokens []string) (OutputRecord, error) {
	parsed, err := parser.Parse(tokens)
	if err != nil {
		return OutputRecord{}, err
	}
	tagged := Tag(parsed, missingOptional)
	return Assemble(meta, tagged)
}

// readLine reads one line without its terminator.
// A final line without a newline is returned together with io.EOF.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line != "" && errors.Is(err, io.EOF) {
		return line, nil
	}
	return line, err
}

// SplitPreamble separates an optional running-date line from a file body.
// It returns the running date (zero when absent) and the remaining body.
func SplitPreamble(body string) (time.Time, string) {
	first, rest, found := strings.Cut(body, "\n")
	if date, ok := ParseRunningDate(first); ok {
		if !found {
			return date, ""
		}
		return date, rest
	}
	return time.Time{}, body
}
