package strategy

import (
	"nkbot/internal/indicator"
	"nkbot/internal/logger"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// EntryIntent is a proposed new position awaiting installation into the
// position table. The risk manager computes stop/target from ATR.
type EntryIntent struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	ATR        float64
}

// Thresholds gate new entries.
type Thresholds struct {
	VolumeSurge  float64 // volume must exceed VolumeSurge × volume SMA
	RSIFloor     float64
	RSICeiling   float64
	MinSentiment float64 // absolute sentiment magnitude required
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		VolumeSurge:  2.0,
		RSIFloor:     50,
		RSICeiling:   75,
		MinSentiment: 0.1,
	}
}

// Evaluator turns an indicator snapshot plus the market sentiment score into
// an entry decision. It is a pure decision function: no table mutation.
type Evaluator struct {
	th Thresholds
}

func NewEvaluator(th Thresholds) *Evaluator {
	if th.VolumeSurge <= 0 {
		th = DefaultThresholds()
	}
	return &Evaluator{th: th}
}

// Evaluate returns a new entry intent or nil. A symbol that already has an
// open position is a no-op, not an error. The long and short trend
// conditions are mutually exclusive so at most one side can fire.
func (e *Evaluator) Evaluate(snap indicator.Snapshot, sentiment float64, hasPosition bool) *EntryIntent {
	if hasPosition {
		return nil
	}
	volSurge := snap.Volume > snap.VolumeSMA*e.th.VolumeSurge

	trendUp := snap.Close > snap.VWAP
	rsiOK := snap.RSI > e.th.RSIFloor && snap.RSI < e.th.RSICeiling
	if trendUp && volSurge && rsiOK && sentiment > e.th.MinSentiment {
		logger.Infof("[signal] LONG %s @ %.2f (rsi=%.1f sent=%.2f)", snap.Symbol, snap.Close, snap.RSI, sentiment)
		return &EntryIntent{Symbol: snap.Symbol, Side: SideBuy, EntryPrice: snap.Close, ATR: snap.ATR}
	}

	trendDown := snap.Close < snap.VWAP
	if trendDown && volSurge && snap.RSI < e.th.RSIFloor && sentiment < -e.th.MinSentiment {
		logger.Infof("[signal] SHORT %s @ %.2f (rsi=%.1f sent=%.2f)", snap.Symbol, snap.Close, snap.RSI, sentiment)
		return &EntryIntent{Symbol: snap.Symbol, Side: SideSell, EntryPrice: snap.Close, ATR: snap.ATR}
	}
	return nil
}
