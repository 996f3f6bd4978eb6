// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/evrimtas/outcomemarket/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeEvent   MsgType = "event"
	MsgTypeSummary MsgType = "summary"
)

// ──────────────────────────────────────────────────────────────────────────────
// EventMessage — pushed whenever a market operation commits.
// ──────────────────────────────────────────────────────────────────────────────

// EventMessage wraps one engine event for the wire.  The payload shape
// depends on the event type, exactly as journaled.
type EventMessage struct {
	Type      MsgType       `json:"type"`
	Event     *domain.Event `json:"event"`
	Timestamp time.Time     `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// SummaryMessage — periodic full view of every live market.
// ──────────────────────────────────────────────────────────────────────────────

// SummaryMessage carries the supplies, prices, and lifecycle flags of all
// live markets so late joiners can render without replaying events.
type SummaryMessage struct {
	Type      MsgType                `json:"type"`
	Markets   []domain.MarketSummary `json:"markets"`
	Timestamp time.Time              `json:"timestamp"`
}
