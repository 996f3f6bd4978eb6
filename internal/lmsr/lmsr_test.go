package lmsr_test

import (
	"errors"
	"testing"

	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/evrimtas/outcomemarket/internal/lmsr"
)

func fp(s string) fixedpoint.Value { return fixedpoint.MustParse(s) }

func qs(ss ...string) []fixedpoint.Value {
	out := make([]fixedpoint.Value, len(ss))
	for i, s := range ss {
		out[i] = fp(s)
	}
	return out
}

func within(t *testing.T, got, want fixedpoint.Value, relTol string) {
	t.Helper()
	diff := got.Sub(want).Abs()
	bound := want.Abs().Mul(fp(relTol))
	if want.IsZero() {
		bound = fp(relTol)
	}
	if diff.GreaterThan(bound) {
		t.Errorf("got %s, want %s (diff %s exceeds tolerance)", got, want, diff)
	}
}

// ── Cost ──────────────────────────────────────────────────────────────────────

func TestCost_EmptyBook(t *testing.T) {
	// C(0,0) = b·ln(2).
	got, err := lmsr.Cost(qs("0", "0"), fp("100"))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	within(t, got, fp("69.314718055994530942"), "0.000001")
}

func TestCost_ShiftInvariantStructure(t *testing.T) {
	// C(q+c, q+c) = c + C(q, q): adding the same amount to every outcome
	// moves the cost by exactly that amount.
	base, err := lmsr.Cost(qs("0", "0"), fp("100"))
	if err != nil {
		t.Fatalf("Cost base: %v", err)
	}
	shifted, err := lmsr.Cost(qs("500", "500"), fp("100"))
	if err != nil {
		t.Fatalf("Cost shifted: %v", err)
	}
	within(t, shifted, base.Add(fp("500")), "0.000001")
}

func TestCost_LargeImbalanceDoesNotOverflow(t *testing.T) {
	// The log-sum-exp shift keeps every exponent argument non-positive, so
	// a hugely imbalanced book must still price.
	got, err := lmsr.Cost(qs("100000", "0"), fp("100"))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	// exp((0-100000)/100) flushes to zero, so C ≈ max(q) = 100000.
	within(t, got, fp("100000"), "0.000001")
}

func TestCost_SingleOutcome(t *testing.T) {
	// With one outcome the curve degenerates to the quantity itself.
	got, err := lmsr.Cost(qs("42.5"), fp("100"))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	within(t, got, fp("42.5"), "0.000001")
}

func TestCost_Guards(t *testing.T) {
	if _, err := lmsr.Cost(nil, fp("100")); !errors.Is(err, lmsr.ErrNoQuantities) {
		t.Errorf("empty quantities: got %v", err)
	}
	if _, err := lmsr.Cost(qs("0", "0"), fixedpoint.Zero()); !errors.Is(err, lmsr.ErrZeroLiquidity) {
		t.Errorf("zero liquidity: got %v", err)
	}
	if _, err := lmsr.Cost(qs("0", "0"), fp("-1")); !errors.Is(err, lmsr.ErrZeroLiquidity) {
		t.Errorf("negative liquidity: got %v", err)
	}
	if _, err := lmsr.Price(qs("0", "0"), fp("-1"), 0); !errors.Is(err, lmsr.ErrZeroLiquidity) {
		t.Errorf("price with negative liquidity: got %v", err)
	}
}

// ── Price ─────────────────────────────────────────────────────────────────────

func TestPrice_BalancedBook(t *testing.T) {
	for i := 0; i < 2; i++ {
		p, err := lmsr.Price(qs("0", "0"), fp("100"), i)
		if err != nil {
			t.Fatalf("Price(%d): %v", i, err)
		}
		within(t, p, fp("0.5"), "0.000001")
	}
}

func TestPrice_SkewedBook(t *testing.T) {
	// q = (10, 0), b = 100: p0 = 1/(1+e^(-0.1)).
	p0, err := lmsr.Price(qs("10", "0"), fp("100"), 0)
	if err != nil {
		t.Fatalf("Price(0): %v", err)
	}
	within(t, p0, fp("0.524979187478940013"), "0.000001")

	p1, err := lmsr.Price(qs("10", "0"), fp("100"), 1)
	if err != nil {
		t.Fatalf("Price(1): %v", err)
	}
	// Prices sum to one up to truncation dust.
	within(t, p0.Add(p1), fp("1"), "0.000001")
	// The heavier side is the more expensive one.
	if !p0.GreaterThan(p1) {
		t.Errorf("p0 %s should exceed p1 %s", p0, p1)
	}
}

func TestPrice_IndexOutOfRange(t *testing.T) {
	if _, err := lmsr.Price(qs("0", "0"), fp("100"), 2); !errors.Is(err, lmsr.ErrIndexOutOfRange) {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
	if _, err := lmsr.Price(qs("0", "0"), fp("100"), -1); !errors.Is(err, lmsr.ErrIndexOutOfRange) {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
}

// ── NetCost / NetRevenue ─────────────────────────────────────────────────────

func TestNetCost_EmptyBook(t *testing.T) {
	// Buying 10 of outcome 0 on an empty book with b=100:
	// 100·(ln(e^0.1 + 1) − ln 2) ≈ 5.1249481.
	got, err := lmsr.NetCost(qs("0", "0"), fp("100"), 0, fp("10"))
	if err != nil {
		t.Fatalf("NetCost: %v", err)
	}
	within(t, got, fp("5.124947951362557"), "0.000001")
}

func TestNetCost_MonotoneInAmount(t *testing.T) {
	small, err := lmsr.NetCost(qs("0", "0"), fp("100"), 0, fp("1"))
	if err != nil {
		t.Fatalf("NetCost small: %v", err)
	}
	large, err := lmsr.NetCost(qs("0", "0"), fp("100"), 0, fp("50"))
	if err != nil {
		t.Fatalf("NetCost large: %v", err)
	}
	if !large.GreaterThan(small) {
		t.Errorf("cost must grow with amount: %s vs %s", small, large)
	}
	// Cost per share grows too (convexity): 50 shares cost more than
	// 50 times what the first fraction of a share costs.
	if !large.GreaterThan(small.MulFrac(50, 1)) {
		t.Errorf("curve should be convex: 50 shares %s vs 50×1 share %s", large, small)
	}
}

func TestNetRevenue_InvertsNetCost(t *testing.T) {
	b := fp("100")
	cost, err := lmsr.NetCost(qs("0", "0"), b, 0, fp("10"))
	if err != nil {
		t.Fatalf("NetCost: %v", err)
	}
	// Selling the same 10 back from the post-trade book returns the cost.
	revenue, err := lmsr.NetRevenue(qs("10", "0"), b, 0, fp("10"))
	if err != nil {
		t.Fatalf("NetRevenue: %v", err)
	}
	within(t, revenue, cost, "0.000001")
	// Truncation may shave dust but never overpays.
	if revenue.GreaterThan(cost) {
		t.Errorf("revenue %s must not exceed cost %s", revenue, cost)
	}
}

func TestNetRevenue_InsufficientSupply(t *testing.T) {
	_, err := lmsr.NetRevenue(qs("5", "0"), fp("100"), 0, fp("10"))
	if !errors.Is(err, lmsr.ErrInsufficientSupply) {
		t.Errorf("got %v, want ErrInsufficientSupply", err)
	}
}

func TestNetCost_Guards(t *testing.T) {
	if _, err := lmsr.NetCost(qs("0", "0"), fp("100"), 5, fp("1")); !errors.Is(err, lmsr.ErrIndexOutOfRange) {
		t.Errorf("bad index: got %v", err)
	}
	if _, err := lmsr.NetCost(qs("0", "0"), fixedpoint.Zero(), 0, fp("1")); !errors.Is(err, lmsr.ErrZeroLiquidity) {
		t.Errorf("zero liquidity: got %v", err)
	}
}

// ── Liquidity behaviour ──────────────────────────────────────────────────────

func TestLiquidity_DampensPriceMoves(t *testing.T) {
	// The same purchase moves the price less on a deeper market.
	shallow, err := lmsr.Price(qs("10", "0"), fp("10"), 0)
	if err != nil {
		t.Fatalf("Price shallow: %v", err)
	}
	deep, err := lmsr.Price(qs("10", "0"), fp("1000"), 0)
	if err != nil {
		t.Fatalf("Price deep: %v", err)
	}
	half := fp("0.5")
	if !shallow.Sub(half).Abs().GreaterThan(deep.Sub(half).Abs()) {
		t.Errorf("shallow price %s should deviate more from 0.5 than deep price %s", shallow, deep)
	}
}

func TestPrice_EvensOutWithDeepLiquidity(t *testing.T) {
	// Hold the imbalance fixed at 10 shares and deepen the book: the favored
	// side's price must fall monotonically toward 0.5 without crossing it.
	q := qs("10", "0")
	half := fp("0.5")
	prev := fp("1")
	for _, bs := range []string{"10", "100", "1000", "100000"} {
		p, err := lmsr.Price(q, fp(bs), 0)
		if err != nil {
			t.Fatalf("Price(b=%s): %v", bs, err)
		}
		if !p.GreaterThan(half) {
			t.Errorf("b=%s: price %s fell to or below 0.5", bs, p)
		}
		if !p.LessThan(prev) {
			t.Errorf("b=%s: price %s did not fall below %s", bs, p, prev)
		}
		prev = p
	}
	// At b=100000 the remaining skew is under a basis point.
	if prev.Sub(half).GreaterThan(fp("0.0001")) {
		t.Errorf("b=100000: price %s still more than 0.0001 above 0.5", prev)
	}
}

func TestNetCost_GrowsWithFavoredImbalance(t *testing.T) {
	b := fp("100")
	amount := fp("10")

	balanced, err := lmsr.NetCost(qs("0", "0"), b, 0, amount)
	if err != nil {
		t.Fatalf("NetCost balanced: %v", err)
	}
	favored, err := lmsr.NetCost(qs("500", "0"), b, 0, amount)
	if err != nil {
		t.Fatalf("NetCost favored: %v", err)
	}
	underdog, err := lmsr.NetCost(qs("0", "500"), b, 0, amount)
	if err != nil {
		t.Fatalf("NetCost underdog: %v", err)
	}

	if !favored.GreaterThan(balanced) {
		t.Errorf("buying into a heavy book costs %s, want above balanced %s", favored, balanced)
	}
	if !underdog.LessThan(balanced) {
		t.Errorf("buying the underdog costs %s, want below balanced %s", underdog, balanced)
	}
	// With the book at 500-0 the favored price sits near 1, so ten shares
	// cost almost their face amount but never reach it.
	if !favored.GreaterThan(fp("9.9")) || !favored.LessThan(amount) {
		t.Errorf("favored cost = %s, want in (9.9, 10)", favored)
	}
}
