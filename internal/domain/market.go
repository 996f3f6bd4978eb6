package domain

import (
	"time"

	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/evrimtas/outcomemarket/internal/lmsr"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Config
// ──────────────────────────────────────────────────────────────────────────────

const (
	// MaxFeeBps bounds the trading fee at 10%.
	MaxFeeBps = 1000
	// FeeDenominator converts basis points to a fraction.
	FeeDenominator = 10000
)

// MarketConfig holds the per-market pricing parameters.  Liquidity is fixed
// at creation; FeeBps is mutable only before resolution.
type MarketConfig struct {
	FeeBps    int64            `json:"fee_bps"`
	Liquidity fixedpoint.Value `json:"liquidity"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Market
// ──────────────────────────────────────────────────────────────────────────────

// Market is one two-sided continuous prediction market priced by the LMSR
// cost function.  Pausing and resolving are independent flags: pause freezes
// trading, resolve picks the winner, and redemption requires both.
type Market struct {
	ID              uuid.UUID  `json:"id"`
	ContentRef      string     `json:"content_ref"`
	Paused          bool       `json:"paused"`
	CreatedAt       time.Time  `json:"created_at"`
	Outcomes        [2]Outcome `json:"outcomes"`
	CollateralAsset AssetTag   `json:"collateral_asset"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	Winner          *Outcome   `json:"winner,omitempty"`

	Config MarketConfig `json:"config"`

	CollateralBalance fixedpoint.Value `json:"collateral_balance"`
	FeeBalance        fixedpoint.Value `json:"fee_balance"`

	// Supplies holds the outstanding share count per outcome, index-aligned
	// with Outcomes.  Mutated only by the MarketService operations.
	Supplies [2]fixedpoint.Value `json:"supplies"`
}

// IsResolved returns true once a winning outcome has been recorded.
// Resolution is one-way.
func (m *Market) IsResolved() bool {
	return m.ResolvedAt != nil
}

// OutcomeIndex locates an outcome within the market's pair.
func (m *Market) OutcomeIndex(o Outcome) (int, bool) {
	for i, candidate := range m.Outcomes {
		if candidate == o {
			return i, true
		}
	}
	return 0, false
}

// SupplyOf returns the outstanding supply of the given outcome.
func (m *Market) SupplyOf(o Outcome) (fixedpoint.Value, bool) {
	i, ok := m.OutcomeIndex(o)
	if !ok {
		return fixedpoint.Zero(), false
	}
	return m.Supplies[i], true
}

// FeeOn computes the trading fee on a collateral amount:
// floor(amount × fee_bps ⁄ 10000).
func (m *Market) FeeOn(amount fixedpoint.Value) fixedpoint.Value {
	if m.Config.FeeBps == 0 {
		return fixedpoint.Zero()
	}
	return amount.MulFrac(m.Config.FeeBps, FeeDenominator)
}

// PriceOf returns the instantaneous LMSR price of one outcome against the
// current supplies.
func (m *Market) PriceOf(o Outcome) (fixedpoint.Value, error) {
	i, ok := m.OutcomeIndex(o)
	if !ok {
		return fixedpoint.Zero(), ErrUnknownOutcome
	}
	return lmsr.Price(m.Supplies[:], m.Config.Liquidity, i)
}

// Clone returns a deep copy safe to hand to asynchronous consumers
// (event journal, broadcast) while the live market keeps mutating.
func (m *Market) Clone() *Market {
	out := *m
	if m.ResolvedAt != nil {
		ts := *m.ResolvedAt
		out.ResolvedAt = &ts
	}
	if m.Winner != nil {
		w := *m.Winner
		out.Winner = &w
	}
	return &out
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketSummary — read model for WS broadcasts and list endpoints
// ──────────────────────────────────────────────────────────────────────────────

// MarketSummary is a derived, read-only view of a Market with current prices.
type MarketSummary struct {
	ID                uuid.UUID           `json:"id"`
	ContentRef        string              `json:"content_ref"`
	Paused            bool                `json:"paused"`
	Resolved          bool                `json:"resolved"`
	Winner            *Outcome            `json:"winner,omitempty"`
	Outcomes          [2]Outcome          `json:"outcomes"`
	Supplies          [2]fixedpoint.Value `json:"supplies"`
	Prices            [2]fixedpoint.Value `json:"prices"`
	FeeBps            int64               `json:"fee_bps"`
	Liquidity         fixedpoint.Value    `json:"liquidity"`
	CollateralBalance fixedpoint.Value    `json:"collateral_balance"`
	FeeBalance        fixedpoint.Value    `json:"fee_balance"`
	CreatedAt         time.Time           `json:"created_at"`
}

// ToSummary builds a MarketSummary with instantaneous prices.  Price errors
// degrade to zero values so a summary can always be produced.
func (m *Market) ToSummary() MarketSummary {
	s := MarketSummary{
		ID:                m.ID,
		ContentRef:        m.ContentRef,
		Paused:            m.Paused,
		Resolved:          m.IsResolved(),
		Winner:            m.Winner,
		Outcomes:          m.Outcomes,
		Supplies:          m.Supplies,
		FeeBps:            m.Config.FeeBps,
		Liquidity:         m.Config.Liquidity,
		CollateralBalance: m.CollateralBalance,
		FeeBalance:        m.FeeBalance,
		CreatedAt:         m.CreatedAt,
	}
	for i := range m.Outcomes {
		if p, err := lmsr.Price(m.Supplies[:], m.Config.Liquidity, i); err == nil {
			s.Prices[i] = p
		}
	}
	return s
}
