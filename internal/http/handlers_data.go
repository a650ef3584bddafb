package http

import (
	"bytes"
	"errors"
	"net/http"

	"coinpath/internal/csvfile"
	"coinpath/internal/ledger"
	"coinpath/internal/log"
	"coinpath/internal/services"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p, err := ParseMonthFilter(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var buf bytes.Buffer
	name, err := s.store.Export(r.Context(), &buf, p.Year, p.Month)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		InternalServerError("export failed").Write(w)
		return
	}
	NewJSONResponse().
		Header("Content-Type", "text/csv; charset=utf-8").
		Header("Content-Disposition", `attachment; filename="`+name+`"`).
		Raw(buf.Bytes()).
		Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx)

	mode, err := ledger.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	// A body over the limit fails the decode, so a truncated file is never stored.
	decoded, err := csvfile.Decode(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		if bodyTooLarge(err) {
			logger.InfoContext(ctx, "Import file too large", log.FieldOperation, log.OpImport, "limit", s.maxBody)
			PayloadTooLargeError(s.maxBody).Write(w)
			return
		}
		logger.InfoContext(ctx, "Import file rejected", log.FieldOperation, log.OpImport, log.FieldError, err)
		UnprocessableEntityError("could not read the CSV file: " + err.Error()).Write(w)
		return
	}

	res, err := s.store.Import(ctx, decoded.Transactions, mode)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidRows) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		if errors.Is(err, ledger.ErrNotSaved) {
			ServiceUnavailableError(res.Notice).Write(w)
			return
		}
		InternalServerError("import failed").Write(w)
		return
	}
	s.invalidate()

	NewJSONResponse().
		Data(importView{
			Mode:     string(res.Mode),
			Added:    res.Added,
			Total:    res.Total,
			Skipped:  decoded.Skipped,
			Rejected: res.Rejected,
			Backend:  res.Backend,
			FellBack: res.FellBack,
		}).
		Notice(res.Notice).
		Write(w)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().Data(newSettingsView(s.settings)).Write(w)
}

// handleRecurringApply materialises the recurring items of a month. Items
// already present are left alone, so repeating the call is harmless.
func (s *Server) handleRecurringApply(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	res, err := s.recurring.Apply(r.Context(), s.settings.Recurring, p.Year, p.Month, s.now())
	if res.Added > 0 {
		s.invalidate()
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Recurring items not fully applied",
			log.FieldYear, p.Year,
			log.FieldMonth, p.Month,
			log.FieldError, err)
		if errors.Is(err, services.ErrLedgerUnreadable) {
			ServiceUnavailableError("the ledger could not be read; nothing was applied").Write(w)
			return
		}
		if errors.Is(err, ledger.ErrNotSaved) {
			ServiceUnavailableError("some recurring items could not be saved").Write(w)
			return
		}
		InternalServerError("recurring items could not be applied").Write(w)
		return
	}
	NewJSONResponse().Data(res).Write(w)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	st := s.store.Status()
	NewJSONResponse().
		Data(diagnosticsView{
			Primary:        st.Primary,
			Fallback:       st.Fallback,
			Degraded:       st.Degraded,
			LastNotice:     st.LastNotice,
			ServiceAccount: s.email,
			CachedMonths:   s.snapshotLRU.Size(),
			Requests:       s.tracer.TotalRequests(),
			RateLimited:    s.limiter.Rejected(),
		}).
		Write(w)
}
