package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jszwec/csvutil"
)

// handleListSystems returns the schema catalog.
func (s *Server) handleListSystems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Systems())
}

// handleMissingColumns returns the missing-column report of an ingest.
// ?format=csv downloads it as CSV.
func (s *Server) handleMissingColumns(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")

	records, err := s.service.MissingColumns(r.Context(), reportID)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		s.writeCSV(w, r, fmt.Sprintf("missing_columns_%s.csv", reportID), records)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleRowErrors returns the rejected lines of an ingest.
// ?format=csv downloads them as CSV.
func (s *Server) handleRowErrors(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")

	records, err := s.service.RowErrors(r.Context(), reportID)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		s.writeCSV(w, r, fmt.Sprintf("row_errors_%s.csv", reportID), records)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// writeCSV sends a slice of tagged structs as a CSV download.
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, filename string, v any) {
	data, err := csvutil.Marshal(v)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, _ = w.Write(data)
}
