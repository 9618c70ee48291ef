package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
)

// transactionInput is one transaction in a POST body. Either booked_at
// (RFC 3339) or date (YYYY-MM-DD, booked at the start of the day) is required.
type transactionInput struct {
	Amount      decimal.Decimal `json:"amount"`
	BookedAt    time.Time       `json:"booked_at"`
	Date        date.Date       `json:"date"`
	CategoryID  string          `json:"category_id"`
	Description string          `json:"description"`
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodGet {
		from, ok := QueryDate(w, r, "from", date.Date{})
		if !ok {
			return
		}
		to, ok := QueryDate(w, r, "to", date.Date{})
		if !ok {
			return
		}
		txs, err := s.app.TransactionService.ListTransactions(r.Context(), id, date.NewRange(from, to))
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if txs == nil {
			txs = []*models.Transaction{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
		return
	}

	var req struct {
		Transactions []transactionInput `json:"transactions"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	loc := s.app.LedgerService.Location()
	txs := make([]models.Transaction, 0, len(req.Transactions))
	for _, in := range req.Transactions {
		bookedAt := in.BookedAt
		if bookedAt.IsZero() && !in.Date.IsZero() {
			bookedAt = in.Date.Start(loc)
		}
		txs = append(txs, models.Transaction{
			Amount:      in.Amount,
			BookedAt:    bookedAt,
			CategoryID:  in.CategoryID,
			Description: in.Description,
		})
	}

	saved, rec, err := s.app.TransactionService.AddTransactions(r.Context(), id, txs)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"transactions": saved,
		"recompute":    rec,
	})
}

// handleTransactionByID handles DELETE and PATCH /api/transactions/{id}.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete, http.MethodPatch) {
		return
	}
	id := PathParam(r, "/api/transactions/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "transaction id is required in path")
		return
	}

	if r.Method == http.MethodDelete {
		rec, err := s.app.TransactionService.DeleteTransaction(r.Context(), id)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, rec)
		return
	}

	var req struct {
		CategoryID string `json:"category_id"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	tx, err := s.app.TransactionService.Recategorize(r.Context(), id, req.CategoryID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tx)
}

// handleAnchorByID handles DELETE /api/anchors/{id}.
func (s *Server) handleAnchorByID(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	id := PathParam(r, "/api/anchors/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "anchor id is required in path")
		return
	}
	rec, err := s.app.ReconcileService.DeleteAnchor(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodGet {
		cats, err := s.app.LedgerService.ListCategories(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if cats == nil {
			cats = []*models.Category{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": cats})
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	cat, err := s.app.LedgerService.CreateCategory(r.Context(), req.Name)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, cat)
}

// handleBalancingCategory returns the caller's balancing-transfer category, creating it on first use.
func (s *Server) handleBalancingCategory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	cat, err := s.app.LedgerService.BalancingCategory(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cat)
}
