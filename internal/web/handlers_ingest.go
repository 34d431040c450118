package web

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/JonMunkholm/railcsv/internal/core"
)

// multipartMemory is how much of an upload is held in memory before the rest
// spills to a temporary file.
const multipartMemory = 32 << 20

// IngestResponse summarizes a saved export.
type IngestResponse struct {
	ReportID    string                 `json:"report_id"`
	FileName    string                 `json:"file_name"`
	System      core.MeasurementSystem `json:"system"`
	Separator   string                 `json:"separator"`
	RunningDate *time.Time             `json:"running_date,omitempty"`
	Records     int                    `json:"records"`
	RowErrors   int                    `json:"row_errors"`
	Diff        core.HeaderDiff        `json:"diff"`
	Sentinels   map[core.NanReason]int `json:"sentinels"`
	DurationMs  int64                  `json:"duration_ms"`
}

func toIngestResponse(res *core.FileResult) IngestResponse {
	resp := IngestResponse{
		ReportID:   res.ReportID,
		FileName:   res.FileName,
		System:     res.System,
		Separator:  res.Separator.String(),
		Records:    len(res.Records),
		RowErrors:  len(res.RowErrors),
		Diff:       res.Diff,
		Sentinels:  res.Stats.Sentinels,
		DurationMs: res.Duration.Milliseconds(),
	}
	if !res.RunningDate.IsZero() {
		date := res.RunningDate
		resp.RunningDate = &date
	}
	return resp
}

// formFile extracts the "file" part of a multipart upload, bounded by the
// configured maximum export size.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, core.ErrFileTooLarge
		}
		return nil, nil, core.ErrNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, core.ErrNoFile
	}
	return file, header, nil
}

// handleIngest processes and saves one uploaded export. The system is taken
// from the file name.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	ctx := withIngestMetadata(r.Context(), r)
	res, err := s.service.IngestFile(ctx, header.Filename, file, header.Size)
	if err != nil {
		var fhe *core.FileHeaderError
		if errors.As(err, &fhe) && res != nil {
			s.respondRejected(w, r, err, statusFor(err), &res.Diff)
			return
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, toIngestResponse(res))
}

// handlePreview runs the pipeline over an uploaded export without saving it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	preview, err := s.service.PreviewFile(withIngestMetadata(r.Context(), r), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// handleIngestStatus returns the state of the ingest limiter.
func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Limiter().Status())
}
