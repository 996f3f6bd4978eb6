package domain

import (
	"time"

	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/google/uuid"
)

// EventType identifies the kind of observational record so consumers can
// switch on it.
type EventType string

const (
	EventMarketCreated   EventType = "market_created"
	EventSharesPurchased EventType = "shares_purchased"
	EventSharesSold      EventType = "shares_sold"
	EventSharesRedeemed  EventType = "shares_redeemed"
	EventMarketResolved  EventType = "market_resolved"
	EventMarketPaused    EventType = "market_paused"
	EventMarketResumed   EventType = "market_resumed"
	EventMarketClosed    EventType = "market_closed"
	EventFeeUpdated      EventType = "fee_updated"
	EventFeeWithdrawn    EventType = "fee_withdrawn"
	EventContentUpdated  EventType = "content_updated"
)

// Event is the immutable observational record emitted by every mutating
// market operation.  Events are for external/offline consumption only and
// carry no control-flow significance inside the engine.
type Event struct {
	ID       uuid.UUID `json:"id"`
	Type     EventType `json:"type"`
	MarketID uuid.UUID `json:"market_id"`
	At       time.Time `json:"at"`
	Payload  any       `json:"payload,omitempty"`
}

// NewEvent stamps a fresh event envelope.
func NewEvent(t EventType, marketID uuid.UUID, at time.Time, payload any) *Event {
	return &Event{
		ID:       uuid.New(),
		Type:     t,
		MarketID: marketID,
		At:       at,
		Payload:  payload,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Payloads
// ──────────────────────────────────────────────────────────────────────────────

// CreatedPayload accompanies EventMarketCreated.
type CreatedPayload struct {
	Outcomes        [2]Outcome       `json:"outcomes"`
	CollateralAsset AssetTag         `json:"collateral_asset"`
	ContentRef      string           `json:"content_ref"`
	FeeBps          int64            `json:"fee_bps"`
	Liquidity       fixedpoint.Value `json:"liquidity"`
}

// TradePayload accompanies EventSharesPurchased and EventSharesSold.
// Collateral is the net cost on a purchase and the net revenue on a sale.
type TradePayload struct {
	Outcome           Outcome          `json:"outcome"`
	Shares            fixedpoint.Value `json:"shares"`
	Collateral        fixedpoint.Value `json:"collateral"`
	Fee               fixedpoint.Value `json:"fee"`
	SupplyFirst       fixedpoint.Value `json:"supply_first"`
	SupplySecond      fixedpoint.Value `json:"supply_second"`
	CollateralBalance fixedpoint.Value `json:"collateral_balance"`
}

// RedeemPayload accompanies EventSharesRedeemed.
type RedeemPayload struct {
	Outcome           Outcome          `json:"outcome"`
	Shares            fixedpoint.Value `json:"shares"`
	Payout            fixedpoint.Value `json:"payout"`
	CollateralBalance fixedpoint.Value `json:"collateral_balance"`
}

// ResolvedPayload accompanies EventMarketResolved.
type ResolvedPayload struct {
	Winner Outcome `json:"winner"`
}

// FeeUpdatedPayload accompanies EventFeeUpdated.
type FeeUpdatedPayload struct {
	OldBps int64 `json:"old_bps"`
	NewBps int64 `json:"new_bps"`
}

// FeeWithdrawnPayload accompanies EventFeeWithdrawn.
type FeeWithdrawnPayload struct {
	Amount    fixedpoint.Value `json:"amount"`
	Remaining fixedpoint.Value `json:"remaining"`
}

// ContentUpdatedPayload accompanies EventContentUpdated.
type ContentUpdatedPayload struct {
	OldRef string `json:"old_ref"`
	NewRef string `json:"new_ref"`
}
