package model

// Side is the direction of an exposure.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// PositionSnapshot is the view of an open position supplied by the external
// account collaborator. The engine reads it when seeding trailing stops;
// it never mutates broker state.
type PositionSnapshot struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Size       float64 `json:"size"`
	EntryPrice float64 `json:"entry_price"`
}

// Key returns a unique key for this exposure: "symbol:side".
func (p *PositionSnapshot) Key() string {
	return p.Symbol + ":" + string(p.Side)
}

// StopInstruction is the close-position order handed to the order-placement
// collaborator when a trailing stop fires.
type StopInstruction struct {
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Quantity float64 `json:"quantity"`
	Reason   string  `json:"reason"` // "TRAILING_STOP_TRIGGERED"
}
