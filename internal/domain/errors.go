package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Validation errors
// are returned as values and surfaced verbatim to the caller; they never
// drive control flow through panics.

var (
	// Redemption validation errors (user-correctable, no retry implied)
	ErrRewardNotFound     = errors.New("reward not found")
	ErrRewardInactive     = errors.New("reward is not active")
	ErrOutOfStock         = errors.New("reward is out of stock")
	ErrTierTooLow         = errors.New("membership tier too low for reward")
	ErrInsufficientPoints = errors.New("insufficient points")

	// Ledger errors
	ErrInvalidAmount   = errors.New("entry amount must be non-zero")
	ErrUnknownReason   = errors.New("unknown earning reason")
	ErrNegativeBalance = errors.New("entry would drive balance negative")

	// Redemption lifecycle errors
	ErrRedemptionNotFound = errors.New("redemption record not found")
	ErrAlreadyReversed    = errors.New("redemption already reversed")

	// Transient storage errors (safe to retry the same idempotent request)
	ErrConcurrencyConflict = errors.New("concurrent write conflict")
	ErrStorageTimeout      = errors.New("storage operation timed out")
)
