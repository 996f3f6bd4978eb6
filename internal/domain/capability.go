package domain

import "github.com/google/uuid"

// ManagerCapability is the unforgeable credential granting administrative
// rights over exactly one market.  It is minted together with the market,
// bound to the market's identity, and transferable only as a whole: rotation
// mints a fresh capability id and retires the old one, so the token cannot
// be duplicated.
type ManagerCapability struct {
	ID       uuid.UUID `json:"id"`
	MarketID uuid.UUID `json:"market_id"`
}

// NewManagerCapability mints a capability bound to the given market.
func NewManagerCapability(marketID uuid.UUID) ManagerCapability {
	return ManagerCapability{ID: uuid.New(), MarketID: marketID}
}

// Binds reports whether the capability is bound to the given market identity.
// The capability id must additionally match the market's current holder;
// that check lives in the service, which tracks rotations.
func (c ManagerCapability) Binds(marketID uuid.UUID) bool {
	return c.MarketID == marketID
}
