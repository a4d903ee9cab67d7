package http

import (
	"bytes"
	"fmt"
	"net/http"

	"michaucha/internal/export"
)

func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	periodID, err := optionalID(r.URL.Query(), "period")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.svc.Summary.PeriodSummary(r.Context(), periodID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Buffer so a rendering failure can still produce an error status.
	var buf bytes.Buffer
	if err := export.WriteLedger(&buf, d); err != nil {
		writeError(w, r, fmt.Errorf("render workbook: %w", err))
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(d)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
