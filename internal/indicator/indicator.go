package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"nkbot/internal/market"
)

const (
	// MinHistory is the number of closed candles required before a
	// snapshot is meaningful. Callers with fewer rows must not evaluate.
	MinHistory = 50

	RSIPeriod       = 14
	ATRPeriod       = 14
	VolumeSMAPeriod = 20
)

// Row holds the computed values for one closed candle.
type Row struct {
	Close     float64
	Volume    float64
	VWAP      float64
	RSI       float64
	ATR       float64
	VolumeSMA float64
}

// Snapshot is the latest Row plus the immediately preceding one, for
// slope-sensitive checks.
type Snapshot struct {
	Symbol string
	Row
	Prev Row
}

// Compute derives the indicator snapshot for the newest candle. Returns
// false when the history is too short for stable values.
func Compute(symbol string, candles []market.Candle) (Snapshot, bool) {
	if len(candles) < MinHistory {
		return Snapshot{}, false
	}
	n := len(candles)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	vwap := vwapSeries(highs, lows, closes, volumes)
	rsi := talib.Rsi(closes, RSIPeriod)
	atr := talib.Atr(highs, lows, closes, ATRPeriod)
	volSMA := talib.Sma(volumes, VolumeSMAPeriod)

	rowAt := func(i int) Row {
		return Row{
			Close:     closes[i],
			Volume:    volumes[i],
			VWAP:      at(vwap, i),
			RSI:       at(rsi, i),
			ATR:       at(atr, i),
			VolumeSMA: at(volSMA, i),
		}
	}
	return Snapshot{
		Symbol: symbol,
		Row:    rowAt(n - 1),
		Prev:   rowAt(n - 2),
	}, true
}

// vwapSeries is the session-cumulative volume weighted average price.
// TALib has no VWAP, so it is computed directly from typical price.
func vwapSeries(highs, lows, closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	cumPV := 0.0
	cumVol := 0.0
	for i := range closes {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		cumPV += typical * volumes[i]
		cumVol += volumes[i]
		if cumVol > 0 {
			out[i] = cumPV / cumVol
		}
	}
	return out
}

func at(series []float64, i int) float64 {
	if i < 0 || i >= len(series) {
		return 0
	}
	v := series[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
