package http

import (
	"errors"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
)

type createdResponse struct {
	ID int64 `json:"id"`
}

type listResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
}

type summaryResponse struct {
	Totals            core.Totals         `json:"totals"`
	Savings           float64             `json:"savings"`
	ExpenseByCategory map[string]float64  `json:"expense_by_category"`
	Monthly           []core.MonthSummary `json:"monthly"`
	Count             int                 `json:"count"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	criteria, sortKey, err := ParseListQuery(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	txs := core.Sort(core.Filter(s.ledger.All(), criteria), sortKey)
	NewJSONResponse().Body(listResponse{Transactions: txs, Count: len(txs)}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	t, err := req.toTransaction(s.now())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	id := s.ledger.Add(r.Context(), t)
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(createdResponse{ID: id}).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, ok := s.ledger.Get(id)
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

// handlePatchTransaction answers 204 whether or not the id exists; an
// unknown id is a silent no-op in the store.
func (s *Server) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req patchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, err := req.toPatch()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if !s.ledger.Update(r.Context(), id, p) {
		s.logger.DebugContext(r.Context(), "Patch of unknown transaction", applog.FieldID, id)
	}
	NoContent().Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if !s.ledger.Delete(r.Context(), id) {
		s.logger.DebugContext(r.Context(), "Delete of unknown transaction", applog.FieldID, id)
	}
	NoContent().Write(w)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := ledger.Confirmation{
		First:  parseConfirmation(q, "confirm"),
		Second: parseConfirmation(q, "confirm_again"),
	}

	if err := s.ledger.Clear(r.Context(), c); err != nil {
		if errors.Is(err, ledger.ErrClearNotConfirmed) {
			ErrorResponse(http.StatusPreconditionRequired, err.Error()).Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Clear failed", applog.FieldError, err)
		InternalServerError("clear failed").Write(w)
		return
	}
	NoContent().Write(w)
}

// handleSummary derives every aggregate from the full, unfiltered ledger.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	txs := s.ledger.All()
	NewJSONResponse().Body(summaryResponse{
		Totals:            core.ComputeTotals(txs),
		Savings:           core.SavingsTotal(txs),
		ExpenseByCategory: core.ExpenseByCategory(txs),
		Monthly:           core.MonthlySummary(txs),
		Count:             len(txs),
	}).Write(w)
}
