// Package lmsr implements the Logarithmic Market Scoring Rule cost function
// used to price outcome shares.  All functions are pure: they take a supply
// vector and the liquidity parameter b and never touch market state.
//
// Cost is evaluated through the log-sum-exp identity
//
//	m    = max(q)
//	C(q) = m + b·ln( Σ exp((qᵢ−m)/b) )
//
// so every exponent argument is ≤ 0 by construction and the engine cannot
// overflow for large, imbalanced supplies.
package lmsr

import (
	"errors"
	"fmt"

	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
)

// ──────────────────────────────────────────────────────────────────────────────
// Errors
// ──────────────────────────────────────────────────────────────────────────────

var (
	// ErrZeroLiquidity is returned when the liquidity parameter b is zero
	// or negative.  A non-positive b has no curve: cost would invert.
	ErrZeroLiquidity = errors.New("lmsr: liquidity parameter must be positive")

	// ErrNoQuantities is returned when the supply vector is empty.
	ErrNoQuantities = errors.New("lmsr: quantity vector is empty")

	// ErrIndexOutOfRange is returned when an outcome index does not address
	// the supply vector.
	ErrIndexOutOfRange = errors.New("lmsr: outcome index out of range")

	// ErrCostUnderflow is returned when fixed-point rounding would produce a
	// negative net cost or net revenue.  The condition is fatal to the
	// operation and never silently clamped.
	ErrCostUnderflow = errors.New("lmsr: cost delta underflowed below zero")

	// ErrInsufficientSupply is returned by NetRevenue when the sell amount
	// exceeds the outstanding supply of the outcome.
	ErrInsufficientSupply = errors.New("lmsr: sell amount exceeds outstanding supply")
)

// ──────────────────────────────────────────────────────────────────────────────
// Cost
// ──────────────────────────────────────────────────────────────────────────────

// Cost computes C(q) for the supply vector and liquidity parameter b.
// A single-element vector degenerates to the sole quantity unchanged.
func Cost(quantities []fixedpoint.Value, b fixedpoint.Value) (fixedpoint.Value, error) {
	if b.Sign() <= 0 {
		return fixedpoint.Zero(), ErrZeroLiquidity
	}
	if len(quantities) == 0 {
		return fixedpoint.Zero(), ErrNoQuantities
	}
	if len(quantities) == 1 {
		return quantities[0], nil
	}

	m := maxOf(quantities)

	sum, err := shiftedExpSum(quantities, b, m)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	// sum ≥ 1 because the maximal element contributes exp(0), so Ln cannot
	// fail on its domain here.
	lnSum, err := fixedpoint.Ln(sum)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("lmsr.Cost: %w", err)
	}
	return m.Add(b.Mul(lnSum)), nil
}

// Price computes the instantaneous price of the outcome at index in the
// supply vector: exp((q_idx−m)/b) / Σ exp((qⱼ−m)/b).  For a two-outcome
// market the two prices sum to 1 within rounding tolerance.
func Price(quantities []fixedpoint.Value, b fixedpoint.Value, index int) (fixedpoint.Value, error) {
	if b.Sign() <= 0 {
		return fixedpoint.Zero(), ErrZeroLiquidity
	}
	if len(quantities) == 0 {
		return fixedpoint.Zero(), ErrNoQuantities
	}
	if index < 0 || index >= len(quantities) {
		return fixedpoint.Zero(), ErrIndexOutOfRange
	}

	m := maxOf(quantities)

	num, err := shiftedExp(quantities[index], b, m)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	sum, err := shiftedExpSum(quantities, b, m)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	price, err := num.Div(sum)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("lmsr.Price: %w", err)
	}
	return price, nil
}

// NetCost computes the price impact of buying amount shares of the outcome
// at index: C(q with q[index]+=amount) − C(q).  The result is ≥ 0 for
// amount ≥ 0; a negative delta trips ErrCostUnderflow.
func NetCost(quantities []fixedpoint.Value, b fixedpoint.Value, index int, amount fixedpoint.Value) (fixedpoint.Value, error) {
	if index < 0 || index >= len(quantities) {
		return fixedpoint.Zero(), ErrIndexOutOfRange
	}

	before, err := Cost(quantities, b)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	bumped := withAdjusted(quantities, index, amount)
	after, err := Cost(bumped, b)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	delta := after.Sub(before)
	if delta.IsNegative() {
		return fixedpoint.Zero(), ErrCostUnderflow
	}
	return delta, nil
}

// NetRevenue computes the proceeds of selling amount shares of the outcome
// at index: C(q) − C(q with q[index]−=amount).  Requires
// quantities[index] ≥ amount.
func NetRevenue(quantities []fixedpoint.Value, b fixedpoint.Value, index int, amount fixedpoint.Value) (fixedpoint.Value, error) {
	if index < 0 || index >= len(quantities) {
		return fixedpoint.Zero(), ErrIndexOutOfRange
	}
	if quantities[index].LessThan(amount) {
		return fixedpoint.Zero(), ErrInsufficientSupply
	}

	before, err := Cost(quantities, b)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	reduced := withAdjusted(quantities, index, amount.Neg())
	after, err := Cost(reduced, b)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	delta := before.Sub(after)
	if delta.IsNegative() {
		return fixedpoint.Zero(), ErrCostUnderflow
	}
	return delta, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

func maxOf(quantities []fixedpoint.Value) fixedpoint.Value {
	m := quantities[0]
	for _, q := range quantities[1:] {
		m = fixedpoint.Max(m, q)
	}
	return m
}

// shiftedExp computes exp((q−m)/b).  The argument is ≤ 0 whenever m is the
// vector maximum, so the exponential is bounded by 1.
func shiftedExp(q, b, m fixedpoint.Value) (fixedpoint.Value, error) {
	arg, err := q.Sub(m).Div(b)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("lmsr: shift: %w", err)
	}
	e, err := fixedpoint.Exp(arg)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("lmsr: exp: %w", err)
	}
	return e, nil
}

func shiftedExpSum(quantities []fixedpoint.Value, b, m fixedpoint.Value) (fixedpoint.Value, error) {
	sum := fixedpoint.Zero()
	for _, q := range quantities {
		e, err := shiftedExp(q, b, m)
		if err != nil {
			return fixedpoint.Zero(), err
		}
		sum = sum.Add(e)
	}
	return sum, nil
}

// withAdjusted copies the vector with quantities[index] moved by delta.
func withAdjusted(quantities []fixedpoint.Value, index int, delta fixedpoint.Value) []fixedpoint.Value {
	out := make([]fixedpoint.Value, len(quantities))
	copy(out, quantities)
	out[index] = out[index].Add(delta)
	return out
}
