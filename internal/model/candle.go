package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV period for a single symbol.
// While a period is still open the feed re-sends the same candle with
// Closed=false and updated high/low/close/volume; the final send has
// Closed=true.
type Candle struct {
	Symbol   string    `json:"symbol"`
	OpenTime time.Time `json:"open_time"` // bucket start time (UTC)
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Closed   bool      `json:"closed"` // false while the period is still forming
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
