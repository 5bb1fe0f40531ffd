package market

import (
	"context"
	"time"
)

// Tick is a single real-time price update. Ticks are consumed immediately and
// never retained.
type Tick struct {
	Symbol string
	Price  float64
	At     time.Time
}

// Candle is one aggregated OHLCV bar.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Handler receives every inbound feed message in arrival order. Delivery is
// synchronous: the stream does not read the next frame until the handler
// returns, which is the natural backpressure point.
type Handler interface {
	HandleMessage(ctx context.Context, payload []byte)
}

// StreamStats reports connection health counters for the feed session.
type StreamStats struct {
	Reconnects      int
	SubscribeErrors int
	LastError       string
}
