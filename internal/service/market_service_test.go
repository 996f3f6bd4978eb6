package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/evrimtas/outcomemarket/internal/service"
	"github.com/google/uuid"
)

func fp(s string) fixedpoint.Value { return fixedpoint.MustParse(s) }

func newTestMarket(t *testing.T, svc *service.MarketService) (*domain.Market, domain.ManagerCapability) {
	t.Helper()
	m, cap, err := svc.CreateMarket(context.Background(), service.CreateMarketParams{
		FirstAsset:      "RAIN",
		SecondAsset:     "SUN",
		CollateralAsset: "USD",
		ContentRef:      "ipfs://weather-tomorrow",
		FeeBps:          100, // 1%
		Liquidity:       fp("100"),
		Now:             time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	return m, cap
}

func pay(amount string) domain.Collateral {
	return domain.Collateral{Asset: "USD", Amount: fp(amount)}
}

// buyShares is the common happy-path purchase helper: snapshot, then buy
// with a generous payment and slippage bound.
func buyShares(t *testing.T, svc *service.MarketService, m *domain.Market, outcome domain.Outcome, amount string) domain.Position {
	t.Helper()
	snap, err := svc.FullSnapshot(m.ID)
	if err != nil {
		t.Fatalf("FullSnapshot: %v", err)
	}
	pos, _, err := svc.Buy(context.Background(), m.ID, snap, pay("1000000"), outcome, fp(amount), fp("1000000"), time.Now())
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	return pos
}

// ── Creation ──────────────────────────────────────────────────────────────────

func TestCreateMarket_FeeBounds(t *testing.T) {
	svc := service.NewMarketService()
	_, _, err := svc.CreateMarket(context.Background(), service.CreateMarketParams{
		FirstAsset: "A", SecondAsset: "B", CollateralAsset: "USD",
		FeeBps:    domain.MaxFeeBps + 1,
		Liquidity: fp("100"),
		Now:       time.Now(),
	})
	if !errors.Is(err, domain.ErrFeeTooHigh) {
		t.Errorf("fee above cap: got %v, want ErrFeeTooHigh", err)
	}

	// Exactly the cap is allowed.
	_, _, err = svc.CreateMarket(context.Background(), service.CreateMarketParams{
		FirstAsset: "A", SecondAsset: "B", CollateralAsset: "USD",
		FeeBps:    domain.MaxFeeBps,
		Liquidity: fp("100"),
		Now:       time.Now(),
	})
	if err != nil {
		t.Errorf("fee at cap: got %v, want nil", err)
	}
}

func TestCreateMarket_RequiresPositiveLiquidity(t *testing.T) {
	svc := service.NewMarketService()
	for _, b := range []fixedpoint.Value{fixedpoint.Zero(), fp("-1")} {
		_, _, err := svc.CreateMarket(context.Background(), service.CreateMarketParams{
			FirstAsset: "A", SecondAsset: "B", CollateralAsset: "USD",
			Liquidity: b,
			Now:       time.Now(),
		})
		if !errors.Is(err, domain.ErrNonPositiveLiquidity) {
			t.Errorf("liquidity %s: got %v, want ErrNonPositiveLiquidity", b, err)
		}
	}
}

func TestCreateMarket_StartsEmpty(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)

	if !cap.Binds(m.ID) {
		t.Error("fresh capability should bind its market")
	}
	if !m.Supplies[0].IsZero() || !m.Supplies[1].IsZero() {
		t.Errorf("fresh supplies should be zero, got %s / %s", m.Supplies[0], m.Supplies[1])
	}
	// Creation funds the pot with 100·ln 2, the most the maker can lose.
	if !m.CollateralBalance.GreaterThan(fp("69.314718")) || !m.CollateralBalance.LessThan(fp("69.314719")) {
		t.Errorf("fresh collateral = %s, want 100*ln(2)", m.CollateralBalance)
	}
	if !m.FeeBalance.IsZero() {
		t.Error("fresh fee balance should be zero")
	}
	if m.Paused || m.IsResolved() {
		t.Error("fresh market should be live and unresolved")
	}
}

// ── Capability authorization ──────────────────────────────────────────────────

func TestCapability_WrongMarketRejected(t *testing.T) {
	svc := service.NewMarketService()
	m1, _ := newTestMarket(t, svc)
	_, cap2 := newTestMarket(t, svc)

	err := svc.Pause(context.Background(), m1.ID, cap2, time.Now())
	if !errors.Is(err, domain.ErrCapabilityMismatch) {
		t.Errorf("other market's capability: got %v, want ErrCapabilityMismatch", err)
	}
	if !domain.IsAuthorization(err) {
		t.Error("capability mismatch should classify as authorization failure")
	}
}

func TestCapability_RotationRetiresOld(t *testing.T) {
	svc := service.NewMarketService()
	m, old := newTestMarket(t, svc)

	next, err := svc.RotateCapability(context.Background(), m.ID, old)
	if err != nil {
		t.Fatalf("RotateCapability: %v", err)
	}
	if next.ID == old.ID {
		t.Fatal("rotation must mint a distinct capability")
	}

	// The retired capability stops working immediately.
	if err := svc.Pause(context.Background(), m.ID, old, time.Now()); !errors.Is(err, domain.ErrCapabilityMismatch) {
		t.Errorf("retired capability: got %v, want ErrCapabilityMismatch", err)
	}
	// The fresh one works.
	if err := svc.Pause(context.Background(), m.ID, next, time.Now()); err != nil {
		t.Errorf("fresh capability: got %v, want nil", err)
	}
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

func TestPauseResume(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)
	ctx := context.Background()

	if err := svc.Pause(ctx, m.ID, cap, time.Now()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := svc.QuoteSnapshot(m.ID); !errors.Is(err, domain.ErrMarketPaused) {
		t.Errorf("quote while paused: got %v, want ErrMarketPaused", err)
	}

	if err := svc.Resume(ctx, m.ID, cap, time.Now()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := svc.QuoteSnapshot(m.ID); err != nil {
		t.Errorf("quote after resume: got %v, want nil", err)
	}
}

func TestResolve_IsOneWay(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)
	ctx := context.Background()

	if err := svc.Resolve(ctx, m.ID, cap, m.Outcomes[0], time.Now()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := svc.Resolve(ctx, m.ID, cap, m.Outcomes[1], time.Now()); !errors.Is(err, domain.ErrMarketResolved) {
		t.Errorf("second resolve: got %v, want ErrMarketResolved", err)
	}
	// Pause/resume and fee updates are frozen too.
	if err := svc.Resume(ctx, m.ID, cap, time.Now()); !errors.Is(err, domain.ErrMarketResolved) {
		t.Errorf("resume after resolve: got %v, want ErrMarketResolved", err)
	}
	if err := svc.UpdateFeeBps(ctx, m.ID, cap, 50, time.Now()); !errors.Is(err, domain.ErrMarketResolved) {
		t.Errorf("fee update after resolve: got %v, want ErrMarketResolved", err)
	}
}

func TestResolve_UnknownOutcomeRejected(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)

	bogus := domain.Outcome{Side: domain.SideFirst, Asset: "NOT-LISTED"}
	err := svc.Resolve(context.Background(), m.ID, cap, bogus, time.Now())
	if !errors.Is(err, domain.ErrUnknownOutcome) {
		t.Errorf("got %v, want ErrUnknownOutcome", err)
	}
}

func TestClose_RequiresResolution(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)
	ctx := context.Background()

	if err := svc.Close(ctx, m.ID, cap, time.Now()); !errors.Is(err, domain.ErrMarketNotResolved) {
		t.Errorf("close before resolve: got %v, want ErrMarketNotResolved", err)
	}

	if err := svc.Resolve(ctx, m.ID, cap, m.Outcomes[0], time.Now()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := svc.Close(ctx, m.ID, cap, time.Now()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The object is gone, the registry record is not.
	if _, err := svc.GetMarket(m.ID); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("get after close: got %v, want ErrMarketNotFound", err)
	}
	if svc.MarketCount() != 1 {
		t.Errorf("MarketCount after close = %d, want 1", svc.MarketCount())
	}
}

func TestUpdateContentRef_RejectsNoop(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)
	ctx := context.Background()

	if err := svc.UpdateContentRef(ctx, m.ID, cap, m.ContentRef, time.Now()); !errors.Is(err, domain.ErrContentRefUnchanged) {
		t.Errorf("same ref: got %v, want ErrContentRefUnchanged", err)
	}
	if err := svc.UpdateContentRef(ctx, m.ID, cap, "ipfs://revised", time.Now()); err != nil {
		t.Fatalf("UpdateContentRef: %v", err)
	}
	got, err := svc.GetMarket(m.ID)
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if got.ContentRef != "ipfs://revised" {
		t.Errorf("ContentRef = %q, want %q", got.ContentRef, "ipfs://revised")
	}
}

// ── Buying ────────────────────────────────────────────────────────────────────

func TestBuy_Accounting(t *testing.T) {
	svc := service.NewMarketService()
	m, _ := newTestMarket(t, svc)
	ctx := context.Background()

	snap, err := svc.FullSnapshot(m.ID)
	if err != nil {
		t.Fatalf("FullSnapshot: %v", err)
	}
	payment := pay("100")
	pos, change, err := svc.Buy(ctx, m.ID, snap, payment, m.Outcomes[0], fp("10"), fp("100"), time.Now())
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if !pos.Amount.Equal(fp("10")) || pos.Outcome != m.Outcomes[0] {
		t.Errorf("position = %+v, want 10 of %s", pos, m.Outcomes[0])
	}

	after, err := svc.GetMarket(m.ID)
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	cost := after.CollateralBalance.Sub(m.CollateralBalance)
	fee := after.FeeBalance

	// With b=100 and an empty book, 10 shares cost slightly over 5.
	if !cost.GreaterThan(fp("5")) || !cost.LessThan(fp("5.2")) {
		t.Errorf("cost = %s, want in (5, 5.2)", cost)
	}
	// 1% fee accrues on the cost.
	wantFee := after.FeeOn(cost)
	if !fee.Equal(wantFee) {
		t.Errorf("fee balance = %s, want %s", fee, wantFee)
	}
	// change = payment - cost - fee, exactly.
	wantChange := payment.Amount.Sub(cost).Sub(fee)
	if !change.Amount.Equal(wantChange) {
		t.Errorf("change = %s, want %s", change.Amount, wantChange)
	}
	if !after.Supplies[0].Equal(fp("10")) || !after.Supplies[1].IsZero() {
		t.Errorf("supplies = %s / %s, want 10 / 0", after.Supplies[0], after.Supplies[1])
	}
}

func TestBuy_SlippageBoundExcludesFee(t *testing.T) {
	svc := service.NewMarketService()
	m, _ := newTestMarket(t, svc)
	ctx := context.Background()

	snap, _ := svc.FullSnapshot(m.ID)
	cost, err := svc.PreviewBuyCost(m.ID, snap, m.Outcomes[0], fp("10"))
	if err != nil {
		t.Fatalf("PreviewBuyCost: %v", err)
	}

	// maxCost equal to the quoted net cost passes, even though the total
	// charge is cost plus fee.
	if _, _, err := svc.Buy(ctx, m.ID, snap, pay("100"), m.Outcomes[0], fp("10"), cost, time.Now()); err != nil {
		t.Fatalf("buy at exact quote: %v", err)
	}

	// A bound just below the quote trips the slippage guard.
	snap2, _ := svc.FullSnapshot(m.ID)
	cost2, _ := svc.PreviewBuyCost(m.ID, snap2, m.Outcomes[0], fp("10"))
	low := cost2.Sub(fp("0.000001"))
	if _, _, err := svc.Buy(ctx, m.ID, snap2, pay("100"), m.Outcomes[0], fp("10"), low, time.Now()); !errors.Is(err, domain.ErrSlippageExceeded) {
		t.Errorf("tight bound: got %v, want ErrSlippageExceeded", err)
	}
}

func TestBuy_PaymentMustCoverCostPlusFee(t *testing.T) {
	svc := service.NewMarketService()
	m, _ := newTestMarket(t, svc)
	ctx := context.Background()

	snap, _ := svc.FullSnapshot(m.ID)
	cost, _ := svc.PreviewBuyCost(m.ID, snap, m.Outcomes[0], fp("10"))

	// A payment covering the cost but not the fee is insufficient.
	_, _, err := svc.Buy(ctx, m.ID, snap, domain.Collateral{Asset: "USD", Amount: cost}, m.Outcomes[0], fp("10"), cost, time.Now())
	if !errors.Is(err, domain.ErrInsufficientPayment) {
		t.Errorf("got %v, want ErrInsufficientPayment", err)
	}

	// The failed buy consumed the snapshot; it cannot be retried.
	_, _, err = svc.Buy(ctx, m.ID, snap, pay("100"), m.Outcomes[0], fp("10"), cost, time.Now())
	if !errors.Is(err, domain.ErrSnapshotConsumed) {
		t.Errorf("reuse after pricing: got %v, want ErrSnapshotConsumed", err)
	}
}

func TestBuy_Guards(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)
	ctx := context.Background()
	snap, _ := svc.FullSnapshot(m.ID)

	if _, _, err := svc.Buy(ctx, m.ID, snap, pay("100"), m.Outcomes[0], fixedpoint.Zero(), fp("100"), time.Now()); !errors.Is(err, domain.ErrZeroAmount) {
		t.Errorf("zero amount: got %v, want ErrZeroAmount", err)
	}
	wrongPay := domain.Collateral{Asset: "EUR", Amount: fp("100")}
	if _, _, err := svc.Buy(ctx, m.ID, snap, wrongPay, m.Outcomes[0], fp("1"), fp("100"), time.Now()); !errors.Is(err, domain.ErrWrongCollateralAsset) {
		t.Errorf("wrong asset: got %v, want ErrWrongCollateralAsset", err)
	}

	// A snapshot from another market is rejected before pricing.
	other, _ := newTestMarket(t, svc)
	otherSnap, _ := svc.FullSnapshot(other.ID)
	if _, _, err := svc.Buy(ctx, m.ID, otherSnap, pay("100"), m.Outcomes[0], fp("1"), fp("100"), time.Now()); !errors.Is(err, domain.ErrSnapshotMarketMismatch) {
		t.Errorf("foreign snapshot: got %v, want ErrSnapshotMarketMismatch", err)
	}

	if err := svc.Pause(ctx, m.ID, cap, time.Now()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, _, err := svc.Buy(ctx, m.ID, snap, pay("100"), m.Outcomes[0], fp("1"), fp("100"), time.Now()); !errors.Is(err, domain.ErrMarketPaused) {
		t.Errorf("buy while paused: got %v, want ErrMarketPaused", err)
	}
}

// ── Selling ───────────────────────────────────────────────────────────────────

func TestSellRoundTrip(t *testing.T) {
	svc := service.NewMarketService()
	m, _ := newTestMarket(t, svc)
	ctx := context.Background()

	pos := buyShares(t, svc, m, m.Outcomes[0], "10")
	mid, _ := svc.GetMarket(m.ID)
	costPaid := mid.CollateralBalance.Sub(m.CollateralBalance)

	snap, err := svc.FullSnapshot(m.ID)
	if err != nil {
		t.Fatalf("FullSnapshot: %v", err)
	}
	got, err := svc.Sell(ctx, m.ID, snap, pos, fixedpoint.Zero(), time.Now())
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if got.Asset != "USD" {
		t.Errorf("revenue asset = %s, want USD", got.Asset)
	}

	// Selling right back unwinds the curve: revenue matches the net cost
	// to within truncation dust, and never exceeds the collateral held.
	diff := costPaid.Sub(got.Amount).Abs()
	if diff.GreaterThan(fp("0.000001")) {
		t.Errorf("round trip: cost %s vs revenue %s (diff %s)", costPaid, got.Amount, diff)
	}
	after, _ := svc.GetMarket(m.ID)
	if after.CollateralBalance.IsNegative() {
		t.Errorf("collateral went negative: %s", after.CollateralBalance)
	}
	if !after.Supplies[0].IsZero() {
		t.Errorf("supply after full sell = %s, want 0", after.Supplies[0])
	}
	// The fee accrued on the buy stays with the market.
	if after.FeeBalance.IsZero() {
		t.Error("fee balance should survive the sell")
	}
}

func TestSell_SlippageAndSupplyGuards(t *testing.T) {
	svc := service.NewMarketService()
	m, _ := newTestMarket(t, svc)
	ctx := context.Background()

	pos := buyShares(t, svc, m, m.Outcomes[0], "10")

	// minRevenue above any achievable revenue trips the guard.
	snap, _ := svc.FullSnapshot(m.ID)
	if _, err := svc.Sell(ctx, m.ID, snap, pos, fp("9999"), time.Now()); !errors.Is(err, domain.ErrSlippageExceeded) {
		t.Errorf("got %v, want ErrSlippageExceeded", err)
	}

	// Selling more than the outstanding supply is rejected.
	snap2, _ := svc.FullSnapshot(m.ID)
	over := domain.Position{MarketID: m.ID, Outcome: m.Outcomes[0], Amount: fp("11")}
	if _, err := svc.Sell(ctx, m.ID, snap2, over, fixedpoint.Zero(), time.Now()); !domain.IsEconomic(err) {
		t.Errorf("oversell: got %v, want an economic error", err)
	}

	// A position minted by another market never sells here.
	foreign := domain.Position{MarketID: uuid.New(), Outcome: m.Outcomes[0], Amount: fp("1")}
	snap3, _ := svc.FullSnapshot(m.ID)
	if _, err := svc.Sell(ctx, m.ID, snap3, foreign, fixedpoint.Zero(), time.Now()); !errors.Is(err, domain.ErrWrongMarketPosition) {
		t.Errorf("foreign position: got %v, want ErrWrongMarketPosition", err)
	}
}

// ── Redemption ────────────────────────────────────────────────────────────────

func TestRedeem_WinnersPaidLosersNot(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)
	ctx := context.Background()

	win := buyShares(t, svc, m, m.Outcomes[0], "10")
	lose := buyShares(t, svc, m, m.Outcomes[1], "10")

	if err := svc.Pause(ctx, m.ID, cap, time.Now()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := svc.Resolve(ctx, m.ID, cap, m.Outcomes[0], time.Now()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got, err := svc.Redeem(ctx, m.ID, win, time.Now())
	if err != nil {
		t.Fatalf("Redeem winner: %v", err)
	}
	if !got.Amount.Equal(win.Amount) {
		t.Errorf("payout = %s, want %s (one unit of collateral per share)", got.Amount, win.Amount)
	}

	if _, err := svc.Redeem(ctx, m.ID, lose, time.Now()); !errors.Is(err, domain.ErrOutcomeMismatch) {
		t.Errorf("losing side: got %v, want ErrOutcomeMismatch", err)
	}
}

func TestRedeem_OneSidedBookPaysInFull(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)
	ctx := context.Background()

	// Every purchase lands on one side, so trades deposit only ~5.12 of net
	// cost against the 10 owed at resolution.  The creation seed covers the
	// shortfall.
	pos := buyShares(t, svc, m, m.Outcomes[0], "10")

	if err := svc.Pause(ctx, m.ID, cap, time.Now()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := svc.Resolve(ctx, m.ID, cap, m.Outcomes[0], time.Now()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got, err := svc.Redeem(ctx, m.ID, pos, time.Now())
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !got.Amount.Equal(fp("10")) {
		t.Errorf("payout = %s, want 10", got.Amount)
	}

	after, err := svc.GetMarket(m.ID)
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if after.CollateralBalance.IsNegative() {
		t.Errorf("collateral overdrawn: %s", after.CollateralBalance)
	}
	if !after.Supplies[0].IsZero() {
		t.Errorf("winning supply after full redemption = %s, want 0", after.Supplies[0])
	}
}

func TestRedeem_GateOrdering(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)
	ctx := context.Background()

	pos := buyShares(t, svc, m, m.Outcomes[0], "10")

	// Unresolved and unpaused: the resolution gate reports first.
	if _, err := svc.Redeem(ctx, m.ID, pos, time.Now()); !errors.Is(err, domain.ErrMarketNotResolved) {
		t.Errorf("live market: got %v, want ErrMarketNotResolved", err)
	}

	// Resolved but not paused: settlement is not open yet.
	if err := svc.Resolve(ctx, m.ID, cap, m.Outcomes[0], time.Now()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := svc.Redeem(ctx, m.ID, pos, time.Now()); !errors.Is(err, domain.ErrMarketNotPaused) {
		t.Errorf("unpaused market: got %v, want ErrMarketNotPaused", err)
	}
}

// ── Fee withdrawal ────────────────────────────────────────────────────────────

func TestWithdrawFee(t *testing.T) {
	svc := service.NewMarketService()
	m, cap := newTestMarket(t, svc)
	ctx := context.Background()

	buyShares(t, svc, m, m.Outcomes[0], "10")
	mid, _ := svc.GetMarket(m.ID)
	accrued := mid.FeeBalance
	if accrued.IsZero() {
		t.Fatal("expected a nonzero fee balance after a buy")
	}

	// Locked until resolution.
	if _, err := svc.WithdrawFee(ctx, m.ID, cap, accrued, time.Now()); !errors.Is(err, domain.ErrMarketNotResolved) {
		t.Errorf("before resolve: got %v, want ErrMarketNotResolved", err)
	}

	if err := svc.Resolve(ctx, m.ID, cap, m.Outcomes[0], time.Now()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	over := accrued.Add(fp("1"))
	if _, err := svc.WithdrawFee(ctx, m.ID, cap, over, time.Now()); !errors.Is(err, domain.ErrInsufficientFeeBalance) {
		t.Errorf("overdraw: got %v, want ErrInsufficientFeeBalance", err)
	}

	got, err := svc.WithdrawFee(ctx, m.ID, cap, accrued, time.Now())
	if err != nil {
		t.Fatalf("WithdrawFee: %v", err)
	}
	if !got.Amount.Equal(accrued) || got.Asset != "USD" {
		t.Errorf("withdrawal = %+v, want %s USD", got, accrued)
	}
	after, _ := svc.GetMarket(m.ID)
	if !after.FeeBalance.IsZero() {
		t.Errorf("fee balance after full withdrawal = %s, want 0", after.FeeBalance)
	}
}

// ── Registry ──────────────────────────────────────────────────────────────────

func TestRegistry_OrderAndCount(t *testing.T) {
	svc := service.NewMarketService()
	m1, _ := newTestMarket(t, svc)
	m2, _ := newTestMarket(t, svc)
	m3, _ := newTestMarket(t, svc)

	list := svc.ListMarkets()
	if len(list) != 3 {
		t.Fatalf("ListMarkets len = %d, want 3", len(list))
	}
	wantOrder := []uuid.UUID{m1.ID, m2.ID, m3.ID}
	for i, s := range list {
		if s.ID != wantOrder[i] {
			t.Errorf("list[%d] = %s, want %s (creation order)", i, s.ID, wantOrder[i])
		}
	}
	if svc.MarketCount() != 3 {
		t.Errorf("MarketCount = %d, want 3", svc.MarketCount())
	}
}

// ── Event emission ────────────────────────────────────────────────────────────

type captureBroadcaster struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (c *captureBroadcaster) BroadcastEvent(e *domain.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *captureBroadcaster) types() []domain.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func TestEvents_EmittedPerOperation(t *testing.T) {
	svc := service.NewMarketService()
	cap := &captureBroadcaster{}
	svc.SetBroadcaster(cap)

	m, mgr := newTestMarket(t, svc)
	ctx := context.Background()

	buyShares(t, svc, m, m.Outcomes[0], "5")
	if err := svc.Pause(ctx, m.ID, mgr, time.Now()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := svc.Resolve(ctx, m.ID, mgr, m.Outcomes[0], time.Now()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []domain.EventType{
		domain.EventMarketCreated,
		domain.EventSharesPurchased,
		domain.EventMarketPaused,
		domain.EventMarketResolved,
	}
	got := cap.types()
	if len(got) != len(want) {
		t.Fatalf("event count = %d (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEvents_FailedOperationEmitsNothing(t *testing.T) {
	svc := service.NewMarketService()
	cap := &captureBroadcaster{}
	svc.SetBroadcaster(cap)

	m, _ := newTestMarket(t, svc)
	snap, _ := svc.FullSnapshot(m.ID)
	before := len(cap.types())

	_, _, err := svc.Buy(context.Background(), m.ID, snap, pay("100"), m.Outcomes[0], fixedpoint.Zero(), fp("100"), time.Now())
	if !errors.Is(err, domain.ErrZeroAmount) {
		t.Fatalf("got %v, want ErrZeroAmount", err)
	}
	if got := len(cap.types()); got != before {
		t.Errorf("failed buy emitted %d extra events", got-before)
	}
}
