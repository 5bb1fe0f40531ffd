package strategy

import (
	"context"

	"nkbot/internal/indicator"
	"nkbot/internal/logger"
	"nkbot/internal/market"
	"nkbot/internal/sentiment"
)

// SentimentReader is the read side of the sentiment cache.
type SentimentReader interface {
	Get() sentiment.Score
}

// Engine glues the feed to the strategy: raw frames become ticks for risk
// checks, and closed candles (delivered by an external aggregator) become
// entry evaluations. It implements market.Handler.
type Engine struct {
	decoder   market.TickDecoder
	risk      *RiskManager
	evaluator *Evaluator
	sentiment SentimentReader

	minHistory int
	compute    func(string, []market.Candle) (indicator.Snapshot, bool)
}

func NewEngine(decoder market.TickDecoder, risk *RiskManager, evaluator *Evaluator, reader SentimentReader, minHistory int) *Engine {
	if minHistory <= 0 {
		minHistory = indicator.MinHistory
	}
	return &Engine{
		decoder:    decoder,
		risk:       risk,
		evaluator:  evaluator,
		sentiment:  reader,
		minHistory: minHistory,
		compute:    indicator.Compute,
	}
}

// HandleMessage receives every feed frame in arrival order. Frames that do
// not decode into a tick are dropped silently: the upstream mixes data and
// housekeeping messages on one connection.
func (e *Engine) HandleMessage(ctx context.Context, payload []byte) {
	tick, ok := e.decoder.Decode(payload)
	if !ok {
		return
	}
	e.risk.OnTick(ctx, tick)
}

// OnCandle evaluates entry logic for a symbol whose candle just closed.
// Histories shorter than the minimum are a caller-contract no-op.
func (e *Engine) OnCandle(ctx context.Context, symbol string, candles []market.Candle) {
	if len(candles) < e.minHistory {
		return
	}
	snap, ok := e.compute(symbol, candles)
	if !ok {
		return
	}
	score := e.sentiment.Get()
	_, hasPosition := e.risk.Open(symbol)
	intent := e.evaluator.Evaluate(snap, score.Value, hasPosition)
	if intent == nil {
		return
	}
	if err := e.risk.ApplyIntent(ctx, intent); err != nil {
		logger.Warnf("[engine] entry for %s not installed: %v", symbol, err)
	}
}

// Risk exposes the position table owner, mainly for observability.
func (e *Engine) Risk() *RiskManager {
	return e.risk
}
