package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the ledger, reconcile and transaction services.
// Callers match with errors.Is; services wrap with context via %w.
var (
	// ErrNotFound covers accounts, transactions and categories that are
	// missing or not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation rejects treating a transaction as something it is not,
	// such as deleting a regular transaction as an anchor.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidCategory is returned when a category other than the
	// balancing-transfer category is supplied for an anchor (or vice versa).
	ErrInvalidCategory = fmt.Errorf("%w: invalid category", ErrInvalidOperation)

	// ErrComputationNoOp signals that the requested adjustment was within
	// tolerance and nothing was written. It is not a failure.
	ErrComputationNoOp = errors.New("adjustment within tolerance, nothing written")
)

// ErrInvalidInput marks a request rejected by validation before any read or write.
var ErrInvalidInput = errors.New("invalid input")
