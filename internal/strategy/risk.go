package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nkbot/internal/broker"
	"nkbot/internal/logger"
	"nkbot/internal/market"
	"nkbot/internal/sizing"
)

// Exit reasons reported on close.
const (
	ReasonStopLoss = "SL Hit"
	ReasonTarget   = "Target Hit"
	ReasonTimeStop = "Time Stop"
)

// Position is one live directional position. Existence in the table IS the
// open state; there is no retained closed record.
type Position struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	EntryTime  time.Time
	Quantity   int
	StopLoss   float64
	Target     float64
	OrderID    string
}

// RiskConfig fixes stop/target geometry and the time-decay escape.
type RiskConfig struct {
	StopATRMultiple   float64
	TargetATRMultiple float64
	MaxHold           time.Duration
	StagnantPnL       float64
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		StopATRMultiple:   1.5,
		TargetATRMultiple: 3.0,
		MaxHold:           5 * time.Minute,
		StagnantPnL:       0.002,
	}
}

// RiskManager owns the position table: it applies entry intents, evaluates
// every tick against open positions, and applies exits. At most one position
// per symbol exists at any time.
type RiskManager struct {
	cfg     RiskConfig
	gateway broker.Gateway
	sizer   sizing.Policy
	clock   func() time.Time

	mu        sync.RWMutex
	positions map[string]*Position
}

func NewRiskManager(cfg RiskConfig, gateway broker.Gateway, sizer sizing.Policy) *RiskManager {
	if cfg.StopATRMultiple <= 0 {
		cfg = DefaultRiskConfig()
	}
	if sizer == nil {
		sizer = sizing.Fixed{Lots: 1}
	}
	return &RiskManager{
		cfg:       cfg,
		gateway:   gateway,
		sizer:     sizer,
		clock:     time.Now,
		positions: make(map[string]*Position),
	}
}

// Open reports the live position for a symbol, if any.
func (m *RiskManager) Open(symbol string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns a snapshot of the table.
func (m *RiskManager) Positions() []Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, *pos)
	}
	return out
}

// ApplyIntent installs a new position for the intent's symbol. The order is
// placed at the gateway first: a failed placement must not create a
// Position. A symbol that is already positioned is a no-op.
func (m *RiskManager) ApplyIntent(ctx context.Context, intent *EntryIntent) error {
	if intent == nil {
		return nil
	}
	m.mu.RLock()
	_, exists := m.positions[intent.Symbol]
	m.mu.RUnlock()
	if exists {
		return nil
	}

	qty := m.sizer.Quantity(intent.Symbol, string(intent.Side), intent.EntryPrice, intent.ATR)
	stop, target := m.exitLevels(intent)

	orderID, err := m.gateway.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:      intent.Symbol,
		Side:        string(intent.Side),
		Quantity:    qty,
		ProductType: broker.ProductIntraday,
		OrderType:   broker.OrderTypeMarket,
		Price:       intent.EntryPrice,
	})
	if err != nil {
		return fmt.Errorf("entry order for %s rejected: %w", intent.Symbol, err)
	}

	pos := &Position{
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		EntryPrice: intent.EntryPrice,
		EntryTime:  m.clock(),
		Quantity:   qty,
		StopLoss:   stop,
		Target:     target,
		OrderID:    orderID,
	}

	m.mu.Lock()
	if _, raced := m.positions[intent.Symbol]; raced {
		m.mu.Unlock()
		// Another entry won between our check and the order fill; undo ours.
		if cancelErr := m.gateway.CancelOrder(ctx, orderID); cancelErr != nil {
			logger.Warnf("[risk] duplicate entry for %s, cancel failed: %v", intent.Symbol, cancelErr)
		}
		return nil
	}
	m.positions[intent.Symbol] = pos
	m.mu.Unlock()

	logger.Infof("[risk] opened %s %s x%d @ %.2f sl=%.2f tgt=%.2f",
		pos.Side, pos.Symbol, pos.Quantity, pos.EntryPrice, pos.StopLoss, pos.Target)
	return nil
}

func (m *RiskManager) exitLevels(intent *EntryIntent) (stop, target float64) {
	stopDist := m.cfg.StopATRMultiple * intent.ATR
	targetDist := m.cfg.TargetATRMultiple * intent.ATR
	if intent.Side == SideBuy {
		return intent.EntryPrice - stopDist, intent.EntryPrice + targetDist
	}
	return intent.EntryPrice + stopDist, intent.EntryPrice - targetDist
}

// OnTick evaluates a price update against the symbol's open position. The
// checks run in fixed order — stop-loss, target, time decay — and the first
// match closes the position; later checks are skipped. Returns the exit
// reason when a close occurred.
func (m *RiskManager) OnTick(ctx context.Context, tick market.Tick) (string, bool) {
	m.mu.RLock()
	pos, ok := m.positions[tick.Symbol]
	var snapshot Position
	if ok {
		snapshot = *pos
	}
	m.mu.RUnlock()
	if !ok {
		return "", false
	}

	reason := m.exitReason(snapshot, tick.Price)
	if reason == "" {
		return "", false
	}
	if !m.close(ctx, snapshot, tick.Price, reason) {
		return "", false
	}
	return reason, true
}

func (m *RiskManager) exitReason(pos Position, ltp float64) string {
	switch pos.Side {
	case SideBuy:
		if ltp <= pos.StopLoss {
			return ReasonStopLoss
		}
		if ltp >= pos.Target {
			return ReasonTarget
		}
	case SideSell:
		if ltp >= pos.StopLoss {
			return ReasonStopLoss
		}
		if ltp <= pos.Target {
			return ReasonTarget
		}
	}

	if m.clock().Sub(pos.EntryTime) > m.cfg.MaxHold {
		pnl := (ltp - pos.EntryPrice) / pos.EntryPrice
		if pos.Side == SideSell {
			pnl = -pnl
		}
		if pnl < m.cfg.StagnantPnL {
			return ReasonTimeStop
		}
	}
	return ""
}

// close exits at the gateway and removes the position from the table. When
// the exit order is rejected the position stays in the table so the next
// tick retries; the table must never claim flat while the broker holds.
func (m *RiskManager) close(ctx context.Context, pos Position, ltp float64, reason string) bool {
	exitSide := broker.SideSell
	if pos.Side == SideSell {
		exitSide = broker.SideBuy
	}
	_, err := m.gateway.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:      pos.Symbol,
		Side:        exitSide,
		Quantity:    pos.Quantity,
		ProductType: broker.ProductIntraday,
		OrderType:   broker.OrderTypeMarket,
		Price:       ltp,
	})
	if err != nil {
		logger.Warnf("[risk] exit order for %s rejected (%s): %v", pos.Symbol, reason, err)
		return false
	}

	m.mu.Lock()
	delete(m.positions, pos.Symbol)
	m.mu.Unlock()

	logger.Infof("[risk] closed %s %s @ %.2f: %s", pos.Side, pos.Symbol, ltp, reason)
	return true
}
