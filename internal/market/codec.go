package market

import (
	"time"

	"github.com/tidwall/gjson"
)

// TickDecoder turns an opaque feed frame into a Tick. The upstream wire
// format is not pinned down (the feed documents both JSON and binary modes),
// so the decoder is a swappable capability rather than a fixed contract.
type TickDecoder interface {
	Decode(payload []byte) (Tick, bool)
}

// JSONTickDecoder extracts tick fields from a JSON frame via gjson paths.
// Zero-value paths fall back to flat "symbol"/"ltp"/"ts" keys.
type JSONTickDecoder struct {
	SymbolPath string
	PricePath  string
	TimePath   string
}

func (d JSONTickDecoder) Decode(payload []byte) (Tick, bool) {
	if !gjson.ValidBytes(payload) {
		return Tick{}, false
	}
	root := gjson.ParseBytes(payload)
	symbol := root.Get(d.symbolPath()).String()
	price := root.Get(d.pricePath()).Float()
	if symbol == "" || price <= 0 {
		return Tick{}, false
	}
	at := time.Now()
	if ms := root.Get(d.timePath()).Int(); ms > 0 {
		at = time.UnixMilli(ms)
	}
	return Tick{Symbol: symbol, Price: price, At: at}, true
}

func (d JSONTickDecoder) symbolPath() string {
	if d.SymbolPath != "" {
		return d.SymbolPath
	}
	return "symbol"
}

func (d JSONTickDecoder) pricePath() string {
	if d.PricePath != "" {
		return d.PricePath
	}
	return "ltp"
}

func (d JSONTickDecoder) timePath() string {
	if d.TimePath != "" {
		return d.TimePath
	}
	return "ts"
}
