package domain

import (
	"errors"

	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/evrimtas/outcomemarket/internal/lmsr"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Validation errors
var (
	// ErrZeroAmount is returned when a trade or redemption amount is zero.
	ErrZeroAmount = errors.New("amount must be greater than zero")

	// ErrFeeTooHigh is returned when fee basis points exceed MaxFeeBps.
	ErrFeeTooHigh = errors.New("fee exceeds the 1000 bps bound")

	// ErrNonPositiveLiquidity is returned at creation when the liquidity
	// parameter is not strictly positive.
	ErrNonPositiveLiquidity = errors.New("liquidity parameter must be positive")

	// ErrContentRefUnchanged is returned when a content-reference update
	// carries the value already stored.
	ErrContentRefUnchanged = errors.New("content reference is unchanged")

	// ErrWrongCollateralAsset is returned when a payment's asset tag does not
	// match the market's collateral asset.
	ErrWrongCollateralAsset = errors.New("payment asset does not match market collateral")

	// ErrWrongMarketPosition is returned when an outcome position was minted
	// by a different market.
	ErrWrongMarketPosition = errors.New("position belongs to a different market")

	// ErrUnknownOutcome is returned when an outcome is not one of the
	// market's two outcomes.
	ErrUnknownOutcome = errors.New("outcome is not part of this market")

	// ErrOutcomeMismatch is returned when a redemption presents a position on
	// an outcome other than the winning one.
	ErrOutcomeMismatch = errors.New("position outcome does not match the winning outcome")
)

// Authorization errors
var (
	// ErrCapabilityMismatch is returned when a manager capability is not
	// bound to the target market or has been rotated away.
	ErrCapabilityMismatch = errors.New("capability does not authorize this market")
)

// Lifecycle state errors
var (
	// ErrMarketNotFound is returned when no market matches the given id.
	ErrMarketNotFound = errors.New("market not found")

	// ErrMarketResolved is returned when an operation requires an unresolved
	// market (trading, pause/resume, fee update, resolve itself).
	ErrMarketResolved = errors.New("market is already resolved")

	// ErrMarketNotResolved is returned when an operation requires resolution
	// first (redeem, withdraw_fee, close).
	ErrMarketNotResolved = errors.New("market is not resolved yet")

	// ErrMarketPaused is returned when a pricing snapshot is requested while
	// trading is frozen.
	ErrMarketPaused = errors.New("market is paused")

	// ErrMarketNotPaused is returned when redemption is attempted before the
	// manager has frozen trading.
	ErrMarketNotPaused = errors.New("market must be paused before redemption")
)

// Economic errors
var (
	// ErrSlippageExceeded is returned when the computed cost breaches the
	// caller's max_cost bound, or revenue falls below min_revenue.
	ErrSlippageExceeded = errors.New("price moved beyond the slippage bound")

	// ErrInsufficientPayment is returned when the payment does not cover
	// cost plus fee.
	ErrInsufficientPayment = errors.New("payment does not cover cost and fee")

	// ErrInsufficientFeeBalance is returned when a fee withdrawal exceeds the
	// accrued fee balance.
	ErrInsufficientFeeBalance = errors.New("withdrawal exceeds accrued fee balance")

	// ErrInsufficientCollateral is returned when a payout would overdraw the
	// market's collateral balance.
	ErrInsufficientCollateral = errors.New("payout exceeds market collateral balance")
)

// Snapshot errors
var (
	// ErrSnapshotMarketMismatch is returned when a snapshot is used against a
	// market other than the one it captured.
	ErrSnapshotMarketMismatch = errors.New("snapshot belongs to a different market")

	// ErrDuplicateSnapshotEntry is returned when the same outcome is added to
	// a snapshot twice.
	ErrDuplicateSnapshotEntry = errors.New("outcome already present in snapshot")

	// ErrSnapshotIncomplete is returned when a pricing call consumes a
	// snapshot that does not hold exactly two entries.
	ErrSnapshotIncomplete = errors.New("snapshot must contain exactly two outcome entries")

	// ErrSnapshotConsumed is returned when a snapshot is reused after a
	// pricing call already consumed it.
	ErrSnapshotConsumed = errors.New("snapshot has already been consumed")

	// ErrOutcomeNotInSnapshot is returned when the priced outcome is missing
	// from the snapshot entries.
	ErrOutcomeNotInSnapshot = errors.New("outcome not found in snapshot")
)

// ──────────────────────────────────────────────────────────────────────────────
// Classifier predicates — one per error class
// ──────────────────────────────────────────────────────────────────────────────

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for malformed or out-of-bounds inputs.
func IsValidation(err error) bool {
	return isAny(err, []error{
		ErrZeroAmount,
		ErrFeeTooHigh,
		ErrNonPositiveLiquidity,
		ErrContentRefUnchanged,
		ErrWrongCollateralAsset,
		ErrWrongMarketPosition,
		ErrUnknownOutcome,
		ErrOutcomeMismatch,
	})
}

// IsAuthorization returns true for capability/market identity mismatches.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrCapabilityMismatch)
}

// IsState returns true for operations attempted in the wrong lifecycle phase.
func IsState(err error) bool {
	return isAny(err, []error{
		ErrMarketResolved,
		ErrMarketNotResolved,
		ErrMarketPaused,
		ErrMarketNotPaused,
	})
}

// IsEconomic returns true for slippage, funding, and cost-engine guard
// failures, including the guards raised inside the lmsr and fixedpoint
// packages.
func IsEconomic(err error) bool {
	return isAny(err, []error{
		ErrSlippageExceeded,
		ErrInsufficientPayment,
		ErrInsufficientFeeBalance,
		ErrInsufficientCollateral,
		lmsr.ErrCostUnderflow,
		lmsr.ErrInsufficientSupply,
		lmsr.ErrZeroLiquidity,
		fixedpoint.ErrExpOverflow,
	})
}

// IsSnapshot returns true for snapshot lifecycle violations.
func IsSnapshot(err error) bool {
	return isAny(err, []error{
		ErrSnapshotMarketMismatch,
		ErrDuplicateSnapshotEntry,
		ErrSnapshotIncomplete,
		ErrSnapshotConsumed,
		ErrOutcomeNotInSnapshot,
	})
}

// IsNotFound returns true for missing-entity errors.  Use this when
// translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMarketNotFound)
}
