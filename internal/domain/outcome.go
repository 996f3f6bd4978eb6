// Package domain defines the core business entities of the binary outcome
// market engine: outcomes, markets, pricing snapshots, manager capabilities,
// and the event records emitted by every mutating operation.
package domain

import (
	"fmt"

	"github.com/evrimtas/outcomemarket/internal/fixedpoint"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Outcome
// ──────────────────────────────────────────────────────────────────────────────

// Side selects one of the two mutually exclusive positions of a market.
type Side int

const (
	SideFirst Side = iota
	SideSecond
)

// String renders the side as its canonical wire name.
func (s Side) String() string {
	switch s {
	case SideFirst:
		return "FIRST"
	case SideSecond:
		return "SECOND"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// IsValid returns true if the side is a recognised position.
func (s Side) IsValid() bool {
	return s == SideFirst || s == SideSecond
}

// ParseSide converts a wire name back to a Side.
func ParseSide(name string) (Side, error) {
	switch name {
	case "FIRST":
		return SideFirst, nil
	case "SECOND":
		return SideSecond, nil
	default:
		return 0, fmt.Errorf("domain.ParseSide: unknown side %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(data []byte) error {
	parsed, err := ParseSide(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AssetTag is the opaque identifier of a backing asset type.  The collateral
// asset and the two outcome assets of a market each carry a distinct tag
// fixed at creation time.
type AssetTag string

// Outcome is one of the two positions of a binary market: a side plus the
// tag of the asset backing that side.  Two outcomes are equal when both the
// side and the tag match, so plain == comparison is the equality contract.
type Outcome struct {
	Side  Side     `json:"side"`
	Asset AssetTag `json:"asset"`
}

// String renders the outcome for logs and error messages.
func (o Outcome) String() string {
	return fmt.Sprintf("%s(%s)", o.Side, o.Asset)
}

// ──────────────────────────────────────────────────────────────────────────────
// Value objects moved by trades
// ──────────────────────────────────────────────────────────────────────────────

// Collateral is an amount of the collateral asset handed to buy, or returned
// by sell, redeem and withdraw_fee.
type Collateral struct {
	Asset  AssetTag         `json:"asset"`
	Amount fixedpoint.Value `json:"amount"`
}

// Position is a quantity of one outcome asset minted by buy and burned by
// sell or redeem.  It is bound to the market that minted it.
type Position struct {
	MarketID uuid.UUID        `json:"market_id"`
	Outcome  Outcome          `json:"outcome"`
	Amount   fixedpoint.Value `json:"amount"`
}
