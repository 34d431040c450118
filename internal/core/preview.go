package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// PreviewSummary contains the summary counts for an ingest preview.
type PreviewSummary struct {
	TotalRows int               `json:"totalRows"`
	ValidRows int               `json:"validRows"`
	ErrorRows int               `json:"errorRows"`
	Sentinels map[NanReason]int `json:"sentinels"`
}

// RecordPreview is a single assembled record for preview display.
type RecordPreview struct {
	LineNumber int            `json:"lineNumber"`
	Address    TrackAddress   `json:"address"`
	Values     map[string]any `json:"values"`
}

// PreviewResponse is the complete response from a preview analysis.
type PreviewResponse struct {
	System           MeasurementSystem `json:"system"`
	Separator        string            `json:"separator"`
	RunningDate      *time.Time        `json:"runningDate,omitempty"`
	Header           []string          `json:"header"`
	Diff             HeaderDiff        `json:"diff"`
	Rejected         bool              `json:"rejected"`
	Summary          PreviewSummary    `json:"summary"`
	RecordSamples    []RecordPreview   `json:"recordSamples"`
	ErrorSamples     []RowErrorRecord  `json:"errorSamples"`
	ProcessingTimeMs int64             `json:"processingTimeMs"`
}

// Sample limits
const (
	maxRecordSamples = 10
	maxErrorSamples  = 20
)

// PreviewFile runs the full pipeline over an export without saving anything.
// A file whose header lacks required columns is reported as Rejected with
// its diff rather than as an error.
func (s *Service) PreviewFile(ctx context.Context, fileName string, r io.Reader) (*PreviewResponse, error) {
	startTime := time.Now()

	def, err := s.resolve(fileName, 0)
	if err != nil {
		return nil, err
	}

	resp := &PreviewResponse{System: def.System}
	meta := Metadata{ReportID: "preview", System: def.System, FileName: fileName}

	res, err := StreamFile(ctx, def, meta, s.limitReader(r), func(rec OutputRecord) error {
		if len(resp.RecordSamples) < maxRecordSamples {
			resp.RecordSamples = append(resp.RecordSamples, RecordPreview{
				LineNumber: rec.LineNumber,
				Address:    rec.Address,
				Values:     rec.Columns(),
			})
		}
		return nil
	})

	if sizeErr := s.checkSize(fileName, res); sizeErr != nil {
		return nil, sizeErr
	}

	var fhe *FileHeaderError
	switch {
	case errors.As(err, &fhe):
		resp.Rejected = true
	case err != nil:
		return nil, err
	}

	resp.Separator = res.Separator.String()
	resp.Header = res.Header
	resp.Diff = res.Diff
	if !res.RunningDate.IsZero() {
		date := res.RunningDate
		resp.RunningDate = &date
	}
	resp.Summary = PreviewSummary{
		TotalRows: res.Stats.Lines,
		ValidRows: res.Stats.Parsed,
		ErrorRows: res.Stats.Failed,
		Sentinels: res.Stats.Sentinels,
	}

	errs := res.RowErrorRecords()
	if len(errs) > maxErrorSamples {
		errs = errs[:maxErrorSamples]
	}
	resp.ErrorSamples = errs
	resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()

	return resp, nil
}
