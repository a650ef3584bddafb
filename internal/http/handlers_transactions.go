package http

import (
	"errors"
	"net/http"

	"coinpath/internal/core"
	"coinpath/internal/entry"
	"coinpath/internal/ledger"
	"coinpath/internal/log"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthFilter(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	snap := s.snapshot(r.Context(), p)
	NewJSONResponse().
		Data(newTransactionsView(snap, snap.Transactions, p)).
		Notice(snap.Notice).
		Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		if bodyTooLarge(err) {
			PayloadTooLargeError(s.maxBody).Write(w)
			return
		}
		BadRequestError("malformed request body").Write(w)
		return
	}

	d, err := ParseDraft(parser, s.today(), s.defaultMode())
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	tx, err := entry.Build(d, s.settings)
	if err != nil {
		logger.InfoContext(ctx, "Transaction rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldKind, d.Kind.String(),
			log.FieldCategory, d.Category,
			log.FieldError, err)
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}

	rc, err := s.entries.Record(ctx, tx)
	if err != nil {
		if errors.Is(err, ledger.ErrNotSaved) {
			log.NewStructuredLogger(logger).LogError(ctx, "Transaction not saved", err, log.OpAppend, log.NewFields().WithTransaction(tx))
			ServiceUnavailableError(rc.Notice).Write(w)
			return
		}
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	s.invalidate()

	NewJSONResponse().
		Status(http.StatusCreated).
		Data(newReceiptView(tx, rc)).
		Notice(rc.Notice).
		Write(w)
}

func (s *Server) defaultMode() string {
	if len(s.settings.Modes) == 0 {
		return ""
	}
	return s.settings.Modes[0]
}

// validationMessage maps validation errors to the messages shown to users.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid amount greater than zero."
	case errors.Is(err, entry.ErrMissingCategory), errors.Is(err, core.ErrEmptyCategory):
		return "Please select a category."
	case errors.Is(err, entry.ErrUnknownCategory):
		return "That category is not available for this type."
	case errors.Is(err, entry.ErrUnknownMode):
		return "Unknown payment mode."
	case errors.Is(err, core.ErrInvalidKind):
		return "Type must be Income or Expense."
	case errors.Is(err, core.ErrInvalidDate):
		return "Please enter a date as YYYY-MM-DD."
	case errors.Is(err, core.ErrNotesTooLong):
		return "Notes must be at most 500 characters."
	}
	return err.Error()
}
