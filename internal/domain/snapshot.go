package domain

import (
	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/evrimtas/outcomemarket/internal/lmsr"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Snapshot
// ──────────────────────────────────────────────────────────────────────────────

// SnapshotEntry pairs one outcome with the supply captured for it.
type SnapshotEntry struct {
	Outcome Outcome
	Supply  fixedpoint.Value
}

// Snapshot is a single-use capture of both outcome supplies of one market,
// used to price exactly one trade.  It decouples "read current supplies"
// from "price and apply" so a quote → sign → submit interaction is always
// priced against one consistent view.  A pricing call consumes the snapshot;
// take a Clone first for non-committing previews.
type Snapshot struct {
	marketID uuid.UUID
	entries  []SnapshotEntry
	consumed bool
}

// NewSnapshot starts an empty snapshot owned by the given market.
func NewSnapshot(marketID uuid.UUID) *Snapshot {
	return &Snapshot{
		marketID: marketID,
		entries:  make([]SnapshotEntry, 0, 2),
	}
}

// MarketID returns the owning market's identity.
func (s *Snapshot) MarketID() uuid.UUID { return s.marketID }

// EntryCount returns the number of entries added so far.
func (s *Snapshot) EntryCount() int { return len(s.entries) }

// AddEntry records the supply of one outcome.  marketID must equal the
// snapshot's owning market; each outcome may be added at most once.
func (s *Snapshot) AddEntry(marketID uuid.UUID, outcome Outcome, supply fixedpoint.Value) error {
	if s.consumed {
		return ErrSnapshotConsumed
	}
	if marketID != s.marketID {
		return ErrSnapshotMarketMismatch
	}
	for _, e := range s.entries {
		if e.Outcome == outcome {
			return ErrDuplicateSnapshotEntry
		}
	}
	s.entries = append(s.entries, SnapshotEntry{Outcome: outcome, Supply: supply})
	return nil
}

// Clone copies the snapshot so a preview can price without consuming the
// original.
func (s *Snapshot) Clone() *Snapshot {
	entries := make([]SnapshotEntry, len(s.entries))
	copy(entries, s.entries)
	return &Snapshot{
		marketID: s.marketID,
		entries:  entries,
		consumed: s.consumed,
	}
}

// NetCost consumes the snapshot and prices a purchase of amount shares of
// the given outcome against the captured supplies.
func (s *Snapshot) NetCost(b fixedpoint.Value, outcome Outcome, amount fixedpoint.Value) (fixedpoint.Value, error) {
	index, err := s.consume(outcome)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return lmsr.NetCost(s.quantities(), b, index, amount)
}

// NetRevenue consumes the snapshot and prices a sale of amount shares of the
// given outcome against the captured supplies.
func (s *Snapshot) NetRevenue(b fixedpoint.Value, outcome Outcome, amount fixedpoint.Value) (fixedpoint.Value, error) {
	index, err := s.consume(outcome)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return lmsr.NetRevenue(s.quantities(), b, index, amount)
}

// consume validates the snapshot for a pricing call and marks it spent.
// Validation failures do not consume: the caller may repair an incomplete
// snapshot and retry, but a snapshot that priced once never prices again.
func (s *Snapshot) consume(outcome Outcome) (int, error) {
	if s.consumed {
		return 0, ErrSnapshotConsumed
	}
	if len(s.entries) != 2 {
		return 0, ErrSnapshotIncomplete
	}
	for i, e := range s.entries {
		if e.Outcome == outcome {
			s.consumed = true
			return i, nil
		}
	}
	return 0, ErrOutcomeNotInSnapshot
}

func (s *Snapshot) quantities() []fixedpoint.Value {
	qs := make([]fixedpoint.Value, len(s.entries))
	for i, e := range s.entries {
		qs[i] = e.Supply
	}
	return qs
}
