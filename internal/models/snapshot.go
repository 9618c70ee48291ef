package models

import (
	"time"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/shopspring/decimal"
)

// BalanceSnapshot is the end-of-day balance of an account on one calendar day.
// Snapshots are derived from the ledger and can be regenerated at any time.
type BalanceSnapshot struct {
	AccountID  string          `json:"account_id"`
	Date       date.Date       `json:"date"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
	ComputedAt time.Time       `json:"computed_at"`
}

// PointBalance answers "what was the balance on this day".
type PointBalance struct {
	AccountID    string          `json:"account_id"`
	Date         date.Date       `json:"date"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	FromSnapshot bool            `json:"from_snapshot"`
}

// RecomputeResult describes one pass of snapshot recomputation.
type RecomputeResult struct {
	AccountID      string          `json:"account_id"`
	From           date.Date       `json:"from"`
	To             date.Date       `json:"to"`
	Days           int             `json:"days"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// AnchorAction records what UpsertAnchor did to the ledger.
type AnchorAction string

const (
	AnchorCreated   AnchorAction = "created"
	AnchorUpdated   AnchorAction = "updated"
	AnchorUnchanged AnchorAction = "unchanged"
	AnchorRemoved   AnchorAction = "removed"
	AnchorNoOp      AnchorAction = "noop"
)

// AnchorResult is returned by UpsertAnchor.
type AnchorResult struct {
	Action     AnchorAction     `json:"action"`
	Updated    bool             `json:"updated"` // a pre-existing anchor was rewritten or removed
	Anchor     *Transaction     `json:"anchor,omitempty"`
	Difference decimal.Decimal  `json:"difference"`
	Recompute  *RecomputeResult `json:"recompute,omitempty"`
}
