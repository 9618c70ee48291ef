package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/shopspring/decimal"
)

// defaultSnapshotDays is the span listed when no from date is given.
const defaultSnapshotDays = 30

func (s *Server) today() date.Date {
	return s.app.ReconcileService.Today()
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodGet {
		accounts, err := s.app.LedgerService.ListAccounts(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if accounts == nil {
			accounts = []*models.Account{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
		return
	}

	var req struct {
		Name            string          `json:"name"`
		Currency        string          `json:"currency"`
		StartingBalance decimal.Decimal `json:"starting_balance"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	acct, err := s.app.LedgerService.CreateAccount(r.Context(), req.Name, req.Currency, req.StartingBalance)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, acct)
}

func (s *Server) handleAccountGet(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	acct, err := s.app.LedgerService.GetAccount(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, acct)
}

// handleAccountBalance handles GET /api/accounts/{id}/balance?date=YYYY-MM-DD.
// The date defaults to today.
func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	day, ok := QueryDate(w, r, "date", s.today())
	if !ok {
		return
	}
	pb, err := s.app.LedgerService.BalanceOn(r.Context(), id, day)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, pb)
}

// handleAccountAnchor handles POST /api/accounts/{id}/anchors. Without a
// category_id the caller's balancing-transfer category is used. A request
// within tolerance answers 200 with action "noop".
func (s *Server) handleAccountAnchor(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Date          date.Date        `json:"date"`
		TargetBalance *decimal.Decimal `json:"target_balance"`
		CategoryID    string           `json:"category_id"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Date.IsZero() {
		WriteError(w, http.StatusBadRequest, "date is required")
		return
	}
	if req.TargetBalance == nil {
		WriteError(w, http.StatusBadRequest, "target_balance is required")
		return
	}

	categoryID := strings.TrimSpace(req.CategoryID)
	if categoryID == "" {
		cat, err := s.app.LedgerService.BalancingCategory(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		categoryID = cat.ID
	}

	result, err := s.app.ReconcileService.UpsertAnchor(r.Context(), id, req.Date, *req.TargetBalance, categoryID)
	if err != nil && !errors.Is(err, models.ErrComputationNoOp) {
		WriteServiceError(w, err)
		return
	}

	if result == nil {
		result = &models.AnchorResult{Action: models.AnchorNoOp}
	}

	status := http.StatusOK
	if result.Action == models.AnchorCreated {
		status = http.StatusCreated
	}
	WriteJSON(w, status, result)
}

func (s *Server) handleAccountRecompute(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		From                 date.Date `json:"from"`
		ExcludeTransactionID string    `json:"exclude_transaction_id"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.From.IsZero() {
		WriteError(w, http.StatusBadRequest, "from is required")
		return
	}

	result, err := s.app.ReconcileService.RecomputeFrom(r.Context(), id, req.From, req.ExcludeTransactionID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleAccountRebuild(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	result, err := s.app.ReconcileService.Rebuild(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleAccountSnapshots handles GET /api/accounts/{id}/snapshots?from=&to=.
// to defaults to today and from to thirty days earlier.
func (s *Server) handleAccountSnapshots(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	to, ok := QueryDate(w, r, "to", s.today())
	if !ok {
		return
	}
	from, ok := QueryDate(w, r, "from", to.Add(-defaultSnapshotDays))
	if !ok {
		return
	}
	if to.Before(from) {
		WriteError(w, http.StatusBadRequest, "from must not be after to")
		return
	}

	snaps, err := s.app.LedgerService.ListSnapshots(r.Context(), id, date.NewRange(from, to))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if snaps == nil {
		snaps = []*models.BalanceSnapshot{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": id,
		"from":       from,
		"to":         to,
		"snapshots":  snaps,
	})
}
