package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"ledger/internal/export"
	applog "ledger/internal/log"
)

func (s *Server) exportFilename(ext string) string {
	return fmt.Sprintf("ledger-%s.%s", s.now().Format("2006-01-02"), ext)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.ledger.All()); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV export failed",
			applog.FieldOperation, applog.OpExport, applog.FieldError, err)
		InternalServerError("export failed").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, s.exportFilename("csv")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	data, err := export.BuildStatementPDF(s.ledger.All())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "PDF export failed",
			applog.FieldOperation, applog.OpExport, applog.FieldError, err)
		InternalServerError("export failed").Write(w)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, s.exportFilename("pdf")))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
