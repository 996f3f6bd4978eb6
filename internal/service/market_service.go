// Package service implements the market lifecycle state machine and the
// in-memory registry of live markets.  Every state-mutating operation on a
// given market is serialized behind a per-market mutex, so no operation ever
// observes a partially-applied effect of another; operations on different
// markets proceed concurrently.
package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/evrimtas/outcomemarket/internal/lmsr"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into MarketService to avoid import cycles
// ──────────────────────────────────────────────────────────────────────────────

// Recorder persists events and market state for offline consumption.
// Implemented by repository.JournalRepository.  Journal failures are logged
// and never fail the originating operation.
type Recorder interface {
	RecordEvent(ctx context.Context, e *domain.Event) error
	SaveMarket(ctx context.Context, m *domain.Market) error
}

// Broadcaster pushes events to connected observers.  Implemented by ws.Hub.
type Broadcaster interface {
	BroadcastEvent(e *domain.Event)
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketService
// ──────────────────────────────────────────────────────────────────────────────

// marketEntry couples one live market with its serialization lock and the
// id of the capability currently holding manager rights.
type marketEntry struct {
	mu     sync.Mutex
	market *domain.Market
	capID  uuid.UUID
}

// MarketService owns the registry of live markets and applies every
// operation of the lifecycle table.  Validation always completes before the
// first mutation, so a failed operation leaves no partial state behind.
type MarketService struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*marketEntry
	order   []uuid.UUID // append-only creation order; survives close
	created uint64      // total markets ever created

	recorder    Recorder    // injected after the repository is built
	broadcaster Broadcaster // injected after the WS hub is built
}

// NewMarketService creates an empty MarketService.
func NewMarketService() *MarketService {
	return &MarketService{
		entries: make(map[uuid.UUID]*marketEntry),
	}
}

// SetRecorder injects the journal dependency post-construction.
func (s *MarketService) SetRecorder(r Recorder) { s.recorder = r }

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *MarketService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

// CreateMarketParams carries everything fixed at market creation.
type CreateMarketParams struct {
	FirstAsset      domain.AssetTag
	SecondAsset     domain.AssetTag
	CollateralAsset domain.AssetTag
	ContentRef      string
	FeeBps          int64
	Liquidity       fixedpoint.Value
	Now             time.Time
}

// CreateMarket atomically creates a market together with its bound manager
// capability.  Outcome supplies start at zero.
func (s *MarketService) CreateMarket(ctx context.Context, p CreateMarketParams) (*domain.Market, domain.ManagerCapability, error) {
	if p.FeeBps < 0 || p.FeeBps > domain.MaxFeeBps {
		return nil, domain.ManagerCapability{}, domain.ErrFeeTooHigh
	}
	if p.Liquidity.Sign() <= 0 {
		return nil, domain.ManagerCapability{}, domain.ErrNonPositiveLiquidity
	}

	// Seed the pot with the maker's worst-case loss, C(0,0) = b·ln 2.  The
	// collateral balance then tracks C(q) exactly as trades come and go, and
	// C(q) ≥ max(q) on every reachable book, so the winning side can always
	// redeem 1:1 no matter how lopsided the flow was.
	seed, err := lmsr.Cost([]fixedpoint.Value{fixedpoint.Zero(), fixedpoint.Zero()}, p.Liquidity)
	if err != nil {
		return nil, domain.ManagerCapability{}, fmt.Errorf("service.CreateMarket: %w", err)
	}

	m := &domain.Market{
		ID:         uuid.New(),
		ContentRef: p.ContentRef,
		CreatedAt:  p.Now,
		Outcomes: [2]domain.Outcome{
			{Side: domain.SideFirst, Asset: p.FirstAsset},
			{Side: domain.SideSecond, Asset: p.SecondAsset},
		},
		CollateralAsset:   p.CollateralAsset,
		CollateralBalance: seed,
		Config: domain.MarketConfig{
			FeeBps:    p.FeeBps,
			Liquidity: p.Liquidity,
		},
	}
	cap := domain.NewManagerCapability(m.ID)

	s.mu.Lock()
	s.entries[m.ID] = &marketEntry{market: m, capID: cap.ID}
	s.order = append(s.order, m.ID)
	s.created++
	s.mu.Unlock()

	s.emit(m.Clone(), domain.NewEvent(domain.EventMarketCreated, m.ID, p.Now, domain.CreatedPayload{
		Outcomes:        m.Outcomes,
		CollateralAsset: m.CollateralAsset,
		ContentRef:      m.ContentRef,
		FeeBps:          m.Config.FeeBps,
		Liquidity:       m.Config.Liquidity,
	}))

	log.Printf("[market] created %s (fee=%dbps b=%s)", m.ID, m.Config.FeeBps, m.Config.Liquidity)
	return m.Clone(), cap, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Admin operations
// ──────────────────────────────────────────────────────────────────────────────

// RotateCapability transfers manager rights by minting a fresh capability
// and retiring the presented one.  The old capability stops verifying
// immediately, so rights cannot be duplicated.
func (s *MarketService) RotateCapability(ctx context.Context, marketID uuid.UUID, cap domain.ManagerCapability) (domain.ManagerCapability, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return domain.ManagerCapability{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.authorize(e, cap); err != nil {
		return domain.ManagerCapability{}, err
	}
	next := domain.NewManagerCapability(marketID)
	e.capID = next.ID
	return next, nil
}

// UpdateContentRef mutates the market's content reference.  The new value
// must differ from the stored one.
func (s *MarketService) UpdateContentRef(ctx context.Context, marketID uuid.UUID, cap domain.ManagerCapability, newRef string, now time.Time) error {
	e, err := s.entry(marketID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.authorize(e, cap); err != nil {
		return err
	}
	m := e.market
	if m.ContentRef == newRef {
		return domain.ErrContentRefUnchanged
	}
	old := m.ContentRef
	m.ContentRef = newRef

	s.emit(m.Clone(), domain.NewEvent(domain.EventContentUpdated, m.ID, now, domain.ContentUpdatedPayload{
		OldRef: old,
		NewRef: newRef,
	}))
	return nil
}

// UpdateFeeBps changes the trading fee.  Allowed only before resolution and
// bounded by MaxFeeBps.
func (s *MarketService) UpdateFeeBps(ctx context.Context, marketID uuid.UUID, cap domain.ManagerCapability, bps int64, now time.Time) error {
	e, err := s.entry(marketID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.authorize(e, cap); err != nil {
		return err
	}
	m := e.market
	if m.IsResolved() {
		return domain.ErrMarketResolved
	}
	if bps < 0 || bps > domain.MaxFeeBps {
		return domain.ErrFeeTooHigh
	}
	old := m.Config.FeeBps
	m.Config.FeeBps = bps

	s.emit(m.Clone(), domain.NewEvent(domain.EventFeeUpdated, m.ID, now, domain.FeeUpdatedPayload{
		OldBps: old,
		NewBps: bps,
	}))
	return nil
}

// Pause freezes trading.  Pause is also the explicit "open settlement" gate:
// redemption requires the market to be both paused and resolved.
func (s *MarketService) Pause(ctx context.Context, marketID uuid.UUID, cap domain.ManagerCapability, now time.Time) error {
	return s.setPaused(marketID, cap, true, now)
}

// Resume unfreezes trading on an unresolved market.
func (s *MarketService) Resume(ctx context.Context, marketID uuid.UUID, cap domain.ManagerCapability, now time.Time) error {
	return s.setPaused(marketID, cap, false, now)
}

func (s *MarketService) setPaused(marketID uuid.UUID, cap domain.ManagerCapability, paused bool, now time.Time) error {
	e, err := s.entry(marketID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.authorize(e, cap); err != nil {
		return err
	}
	m := e.market
	if m.IsResolved() {
		return domain.ErrMarketResolved
	}
	m.Paused = paused

	evType := domain.EventMarketPaused
	if !paused {
		evType = domain.EventMarketResumed
	}
	s.emit(m.Clone(), domain.NewEvent(evType, m.ID, now, nil))
	return nil
}

// Resolve records the winning outcome.  One-way: a resolved market never
// resolves again.
func (s *MarketService) Resolve(ctx context.Context, marketID uuid.UUID, cap domain.ManagerCapability, winner domain.Outcome, now time.Time) error {
	e, err := s.entry(marketID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.authorize(e, cap); err != nil {
		return err
	}
	m := e.market
	if m.IsResolved() {
		return domain.ErrMarketResolved
	}
	if _, ok := m.OutcomeIndex(winner); !ok {
		return domain.ErrUnknownOutcome
	}
	ts := now
	m.ResolvedAt = &ts
	w := winner
	m.Winner = &w

	s.emit(m.Clone(), domain.NewEvent(domain.EventMarketResolved, m.ID, now, domain.ResolvedPayload{
		Winner: winner,
	}))
	log.Printf("[market] resolved %s: winner=%s", m.ID, winner)
	return nil
}

// Close irreversibly removes a resolved market object.  The registry record
// (creation order and counter) is append-only and survives the close.
func (s *MarketService) Close(ctx context.Context, marketID uuid.UUID, cap domain.ManagerCapability, now time.Time) error {
	e, err := s.entry(marketID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.authorize(e, cap); err != nil {
		return err
	}
	m := e.market
	if !m.IsResolved() {
		return domain.ErrMarketNotResolved
	}

	s.mu.Lock()
	delete(s.entries, marketID)
	s.mu.Unlock()

	s.emit(m.Clone(), domain.NewEvent(domain.EventMarketClosed, m.ID, now, nil))
	log.Printf("[market] closed %s", m.ID)
	return nil
}

// WithdrawFee pays out accrued trading fees to the manager after resolution.
func (s *MarketService) WithdrawFee(ctx context.Context, marketID uuid.UUID, cap domain.ManagerCapability, amount fixedpoint.Value, now time.Time) (domain.Collateral, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return domain.Collateral{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.authorize(e, cap); err != nil {
		return domain.Collateral{}, err
	}
	m := e.market
	if !m.IsResolved() {
		return domain.Collateral{}, domain.ErrMarketNotResolved
	}
	if amount.Sign() <= 0 {
		return domain.Collateral{}, domain.ErrZeroAmount
	}
	if m.FeeBalance.LessThan(amount) {
		return domain.Collateral{}, domain.ErrInsufficientFeeBalance
	}
	m.FeeBalance = m.FeeBalance.Sub(amount)

	s.emit(m.Clone(), domain.NewEvent(domain.EventFeeWithdrawn, m.ID, now, domain.FeeWithdrawnPayload{
		Amount:    amount,
		Remaining: m.FeeBalance,
	}))
	return domain.Collateral{Asset: m.CollateralAsset, Amount: amount}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Snapshots
// ──────────────────────────────────────────────────────────────────────────────

// QuoteSnapshot opens a fresh, empty pricing snapshot.  Guarded by market
// state: a paused or resolved market no longer quotes.
func (s *MarketService) QuoteSnapshot(marketID uuid.UUID) (*domain.Snapshot, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.market
	if m.Paused {
		return nil, domain.ErrMarketPaused
	}
	if m.IsResolved() {
		return nil, domain.ErrMarketResolved
	}
	return domain.NewSnapshot(m.ID), nil
}

// AddSnapshotEntry captures the current supply of one outcome into the
// snapshot.  Call exactly twice per snapshot, once per outcome.
func (s *MarketService) AddSnapshotEntry(marketID uuid.UUID, snap *domain.Snapshot, outcome domain.Outcome) error {
	e, err := s.entry(marketID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.market
	supply, ok := m.SupplyOf(outcome)
	if !ok {
		return domain.ErrUnknownOutcome
	}
	return snap.AddEntry(m.ID, outcome, supply)
}

// FullSnapshot quotes a snapshot and captures both outcome supplies in one
// consistent view.  Convenience wrapper around QuoteSnapshot plus two
// AddSnapshotEntry calls, taken under a single lock acquisition.
func (s *MarketService) FullSnapshot(marketID uuid.UUID) (*domain.Snapshot, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.market
	if m.Paused {
		return nil, domain.ErrMarketPaused
	}
	if m.IsResolved() {
		return nil, domain.ErrMarketResolved
	}
	snap := domain.NewSnapshot(m.ID)
	for i, o := range m.Outcomes {
		if err := snap.AddEntry(m.ID, o, m.Supplies[i]); err != nil {
			return nil, fmt.Errorf("market_service.FullSnapshot: %w", err)
		}
	}
	return snap, nil
}

// PreviewBuyCost prices a purchase against a clone of the snapshot without
// consuming it.  Returns the net cost (fee excluded, matching the slippage
// bound semantics of Buy).
func (s *MarketService) PreviewBuyCost(marketID uuid.UUID, snap *domain.Snapshot, outcome domain.Outcome, amount fixedpoint.Value) (fixedpoint.Value, error) {
	if amount.Sign() <= 0 {
		return fixedpoint.Zero(), domain.ErrZeroAmount
	}
	e, err := s.entry(marketID)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	e.mu.Lock()
	b := e.market.Config.Liquidity
	e.mu.Unlock()

	if snap.MarketID() != marketID {
		return fixedpoint.Zero(), domain.ErrSnapshotMarketMismatch
	}
	return snap.Clone().NetCost(b, outcome, amount)
}

// ──────────────────────────────────────────────────────────────────────────────
// Trading
// ──────────────────────────────────────────────────────────────────────────────

// Buy prices a purchase against the snapshot, charges cost plus fee from the
// payment, mints the outcome position, and returns it together with the
// change.  The slippage bound applies to the net cost alone; the fee is
// computed on the cost and charged on top of it.
func (s *MarketService) Buy(
	ctx context.Context,
	marketID uuid.UUID,
	snap *domain.Snapshot,
	payment domain.Collateral,
	outcome domain.Outcome,
	amount fixedpoint.Value,
	maxCost fixedpoint.Value,
	now time.Time,
) (domain.Position, domain.Collateral, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return domain.Position{}, domain.Collateral{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.market
	if amount.Sign() <= 0 {
		return domain.Position{}, domain.Collateral{}, domain.ErrZeroAmount
	}
	if payment.Asset != m.CollateralAsset {
		return domain.Position{}, domain.Collateral{}, domain.ErrWrongCollateralAsset
	}
	if m.Paused {
		return domain.Position{}, domain.Collateral{}, domain.ErrMarketPaused
	}
	if m.IsResolved() {
		return domain.Position{}, domain.Collateral{}, domain.ErrMarketResolved
	}
	if snap.MarketID() != m.ID {
		return domain.Position{}, domain.Collateral{}, domain.ErrSnapshotMarketMismatch
	}
	idx, ok := m.OutcomeIndex(outcome)
	if !ok {
		return domain.Position{}, domain.Collateral{}, domain.ErrUnknownOutcome
	}

	cost, err := snap.NetCost(m.Config.Liquidity, outcome, amount)
	if err != nil {
		return domain.Position{}, domain.Collateral{}, err
	}
	if cost.GreaterThan(maxCost) {
		return domain.Position{}, domain.Collateral{}, domain.ErrSlippageExceeded
	}
	fee := m.FeeOn(cost)
	total := cost.Add(fee)
	if payment.Amount.LessThan(total) {
		return domain.Position{}, domain.Collateral{}, domain.ErrInsufficientPayment
	}

	// All guards passed: apply the trade.
	m.Supplies[idx] = m.Supplies[idx].Add(amount)
	m.CollateralBalance = m.CollateralBalance.Add(cost)
	m.FeeBalance = m.FeeBalance.Add(fee)

	position := domain.Position{MarketID: m.ID, Outcome: outcome, Amount: amount}
	change := domain.Collateral{Asset: m.CollateralAsset, Amount: payment.Amount.Sub(total)}

	s.emit(m.Clone(), domain.NewEvent(domain.EventSharesPurchased, m.ID, now, domain.TradePayload{
		Outcome:           outcome,
		Shares:            amount,
		Collateral:        cost,
		Fee:               fee,
		SupplyFirst:       m.Supplies[0],
		SupplySecond:      m.Supplies[1],
		CollateralBalance: m.CollateralBalance,
	}))
	return position, change, nil
}

// Sell prices a sale against the snapshot, burns the position, and pays net
// revenue out of the market's collateral.  No fee is charged on the sell
// side.
func (s *MarketService) Sell(
	ctx context.Context,
	marketID uuid.UUID,
	snap *domain.Snapshot,
	position domain.Position,
	minRevenue fixedpoint.Value,
	now time.Time,
) (domain.Collateral, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return domain.Collateral{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.market
	if position.Amount.Sign() <= 0 {
		return domain.Collateral{}, domain.ErrZeroAmount
	}
	if position.MarketID != m.ID {
		return domain.Collateral{}, domain.ErrWrongMarketPosition
	}
	if m.Paused {
		return domain.Collateral{}, domain.ErrMarketPaused
	}
	if m.IsResolved() {
		return domain.Collateral{}, domain.ErrMarketResolved
	}
	if snap.MarketID() != m.ID {
		return domain.Collateral{}, domain.ErrSnapshotMarketMismatch
	}
	idx, ok := m.OutcomeIndex(position.Outcome)
	if !ok {
		return domain.Collateral{}, domain.ErrUnknownOutcome
	}
	// The snapshot checks its captured supply; the live supply may have
	// moved since, so guard it independently.
	if m.Supplies[idx].LessThan(position.Amount) {
		return domain.Collateral{}, lmsr.ErrInsufficientSupply
	}

	revenue, err := snap.NetRevenue(m.Config.Liquidity, position.Outcome, position.Amount)
	if err != nil {
		return domain.Collateral{}, err
	}
	if revenue.LessThan(minRevenue) {
		return domain.Collateral{}, domain.ErrSlippageExceeded
	}
	if m.CollateralBalance.LessThan(revenue) {
		return domain.Collateral{}, domain.ErrInsufficientCollateral
	}

	m.Supplies[idx] = m.Supplies[idx].Sub(position.Amount)
	m.CollateralBalance = m.CollateralBalance.Sub(revenue)

	s.emit(m.Clone(), domain.NewEvent(domain.EventSharesSold, m.ID, now, domain.TradePayload{
		Outcome:           position.Outcome,
		Shares:            position.Amount,
		Collateral:        revenue,
		SupplyFirst:       m.Supplies[0],
		SupplySecond:      m.Supplies[1],
		CollateralBalance: m.CollateralBalance,
	}))
	return domain.Collateral{Asset: m.CollateralAsset, Amount: revenue}, nil
}

// Redeem pays 1:1 collateral for winning positions.  Requires the market to
// be both paused and resolved: pausing is the manager's explicit "freeze
// trading, open settlement" gate.
func (s *MarketService) Redeem(ctx context.Context, marketID uuid.UUID, position domain.Position, now time.Time) (domain.Collateral, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return domain.Collateral{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.market
	if position.Amount.Sign() <= 0 {
		return domain.Collateral{}, domain.ErrZeroAmount
	}
	if position.MarketID != m.ID {
		return domain.Collateral{}, domain.ErrWrongMarketPosition
	}
	if !m.IsResolved() {
		return domain.Collateral{}, domain.ErrMarketNotResolved
	}
	if !m.Paused {
		return domain.Collateral{}, domain.ErrMarketNotPaused
	}
	if position.Outcome != *m.Winner {
		return domain.Collateral{}, domain.ErrOutcomeMismatch
	}
	idx, _ := m.OutcomeIndex(position.Outcome)
	if m.Supplies[idx].LessThan(position.Amount) {
		return domain.Collateral{}, lmsr.ErrInsufficientSupply
	}
	if m.CollateralBalance.LessThan(position.Amount) {
		return domain.Collateral{}, domain.ErrInsufficientCollateral
	}

	m.Supplies[idx] = m.Supplies[idx].Sub(position.Amount)
	m.CollateralBalance = m.CollateralBalance.Sub(position.Amount)

	s.emit(m.Clone(), domain.NewEvent(domain.EventSharesRedeemed, m.ID, now, domain.RedeemPayload{
		Outcome:           position.Outcome,
		Shares:            position.Amount,
		Payout:            position.Amount,
		CollateralBalance: m.CollateralBalance,
	}))
	return domain.Collateral{Asset: m.CollateralAsset, Amount: position.Amount}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Registry reads
// ──────────────────────────────────────────────────────────────────────────────

// GetMarket returns a copy of one live market.
func (s *MarketService) GetMarket(marketID uuid.UUID) (*domain.Market, error) {
	e, err := s.entry(marketID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.market.Clone(), nil
}

// ListMarkets returns summaries of all live markets in creation order.
func (s *MarketService) ListMarkets() []domain.MarketSummary {
	s.mu.RLock()
	ids := make([]uuid.UUID, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	out := make([]domain.MarketSummary, 0, len(ids))
	for _, id := range ids {
		e, err := s.entry(id)
		if err != nil {
			continue // closed market: registry record without an object
		}
		e.mu.Lock()
		out = append(out, e.market.ToSummary())
		e.mu.Unlock()
	}
	return out
}

// MarketCount returns the total number of markets ever created, including
// closed ones.
func (s *MarketService) MarketCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.created
}

// ──────────────────────────────────────────────────────────────────────────────
// internals
// ──────────────────────────────────────────────────────────────────────────────

func (s *MarketService) entry(marketID uuid.UUID) (*marketEntry, error) {
	s.mu.RLock()
	e, ok := s.entries[marketID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrMarketNotFound
	}
	return e, nil
}

// authorize equality-checks the capability against the market identity and
// the currently-held capability id.  Caller holds the entry lock.
func (s *MarketService) authorize(e *marketEntry, cap domain.ManagerCapability) error {
	if !cap.Binds(e.market.ID) || cap.ID != e.capID {
		return domain.ErrCapabilityMismatch
	}
	return nil
}

// emit broadcasts the event synchronously (non-blocking hub send) and
// journals event plus market state asynchronously.  Journal errors are
// logged, never surfaced: events carry no control-flow significance.
func (s *MarketService) emit(m *domain.Market, e *domain.Event) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(e)
	}
	if s.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.recorder.RecordEvent(ctx, e); err != nil {
			log.Printf("[market] WARN: journal %s for %s: %v", e.Type, e.MarketID, err)
		}
		if m != nil {
			if err := s.recorder.SaveMarket(ctx, m); err != nil {
				log.Printf("[market] WARN: save read model for %s: %v", m.ID, err)
			}
		}
	}()
}
