package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nkbot/internal/broker"
	"nkbot/internal/market"
	"nkbot/internal/sizing"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) PlaceOrder(ctx context.Context, req broker.OrderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CancelOrder(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockGateway) ValidateSession(context.Context) bool { return true }

func acceptingGateway() *MockGateway {
	gw := new(MockGateway)
	gw.On("PlaceOrder", mock.Anything, mock.Anything).Return("ord-1", nil)
	return gw
}

func newTestManager(gw broker.Gateway) (*RiskManager, *time.Time) {
	m := NewRiskManager(DefaultRiskConfig(), gw, sizing.Fixed{Lots: 1})
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return now }
	return m, &now
}

func buyIntent() *EntryIntent {
	return &EntryIntent{Symbol: "NSE_EQ|RELIANCE", Side: SideBuy, EntryPrice: 100, ATR: 2}
}

func sellIntent() *EntryIntent {
	return &EntryIntent{Symbol: "NSE_EQ|TCS", Side: SideSell, EntryPrice: 100, ATR: 2}
}

func tick(symbol string, price float64) market.Tick {
	return market.Tick{Symbol: symbol, Price: price, At: time.Now()}
}

func TestApplyIntentComputesStopAndTarget(t *testing.T) {
	m, _ := newTestManager(acceptingGateway())
	require.NoError(t, m.ApplyIntent(context.Background(), buyIntent()))

	pos, ok := m.Open("NSE_EQ|RELIANCE")
	require.True(t, ok)
	assert.Equal(t, 97.0, pos.StopLoss)
	assert.Equal(t, 106.0, pos.Target)
	assert.Equal(t, 1, pos.Quantity)
	assert.Equal(t, "ord-1", pos.OrderID)

	require.NoError(t, m.ApplyIntent(context.Background(), sellIntent()))
	pos, ok = m.Open("NSE_EQ|TCS")
	require.True(t, ok)
	assert.Equal(t, 103.0, pos.StopLoss)
	assert.Equal(t, 94.0, pos.Target)
}

func TestSinglePositionInvariant(t *testing.T) {
	gw := acceptingGateway()
	m, _ := newTestManager(gw)
	ctx := context.Background()

	require.NoError(t, m.ApplyIntent(ctx, buyIntent()))
	require.NoError(t, m.ApplyIntent(ctx, buyIntent()))

	assert.Len(t, m.Positions(), 1)
	gw.AssertNumberOfCalls(t, "PlaceOrder", 1)
}

func TestFailedEntryOrderCreatesNoPosition(t *testing.T) {
	gw := new(MockGateway)
	gw.On("PlaceOrder", mock.Anything, mock.Anything).Return("", errors.New("margin exceeded"))
	m, _ := newTestManager(gw)

	err := m.ApplyIntent(context.Background(), buyIntent())
	assert.Error(t, err)
	_, ok := m.Open("NSE_EQ|RELIANCE")
	assert.False(t, ok)
}

func TestStopLossHit(t *testing.T) {
	ctx := context.Background()

	t.Run("buy closes at or below stop", func(t *testing.T) {
		m, _ := newTestManager(acceptingGateway())
		require.NoError(t, m.ApplyIntent(ctx, buyIntent()))

		reason, closed := m.OnTick(ctx, tick("NSE_EQ|RELIANCE", 97))
		assert.True(t, closed)
		assert.Equal(t, ReasonStopLoss, reason)
		_, ok := m.Open("NSE_EQ|RELIANCE")
		assert.False(t, ok)
	})

	t.Run("sell closes at or above stop", func(t *testing.T) {
		m, _ := newTestManager(acceptingGateway())
		require.NoError(t, m.ApplyIntent(ctx, sellIntent()))

		reason, closed := m.OnTick(ctx, tick("NSE_EQ|TCS", 103))
		assert.True(t, closed)
		assert.Equal(t, ReasonStopLoss, reason)
	})
}

func TestTargetHit(t *testing.T) {
	ctx := context.Background()

	t.Run("buy", func(t *testing.T) {
		m, _ := newTestManager(acceptingGateway())
		require.NoError(t, m.ApplyIntent(ctx, buyIntent()))

		reason, closed := m.OnTick(ctx, tick("NSE_EQ|RELIANCE", 106))
		assert.True(t, closed)
		assert.Equal(t, ReasonTarget, reason)
	})

	t.Run("sell", func(t *testing.T) {
		m, _ := newTestManager(acceptingGateway())
		require.NoError(t, m.ApplyIntent(ctx, sellIntent()))

		reason, closed := m.OnTick(ctx, tick("NSE_EQ|TCS", 94))
		assert.True(t, closed)
		assert.Equal(t, ReasonTarget, reason)
	})
}

func TestTicksInsideBandsKeepPositionOpen(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(acceptingGateway())
	require.NoError(t, m.ApplyIntent(ctx, buyIntent()))

	for _, price := range []float64{100, 99, 102, 105.9, 97.1} {
		_, closed := m.OnTick(ctx, tick("NSE_EQ|RELIANCE", price))
		assert.False(t, closed, "price %.1f must not close", price)
	}
	_, ok := m.Open("NSE_EQ|RELIANCE")
	assert.True(t, ok)
}

func TestTimeDecay(t *testing.T) {
	ctx := context.Background()

	t.Run("stagnant buy closes after max hold", func(t *testing.T) {
		m, now := newTestManager(acceptingGateway())
		require.NoError(t, m.ApplyIntent(ctx, buyIntent()))

		*now = now.Add(6 * time.Minute)
		reason, closed := m.OnTick(ctx, tick("NSE_EQ|RELIANCE", 100.1))
		assert.True(t, closed)
		assert.Equal(t, ReasonTimeStop, reason)
	})

	t.Run("profitable buy stays open", func(t *testing.T) {
		m, now := newTestManager(acceptingGateway())
		require.NoError(t, m.ApplyIntent(ctx, buyIntent()))

		*now = now.Add(6 * time.Minute)
		_, closed := m.OnTick(ctx, tick("NSE_EQ|RELIANCE", 100.3))
		assert.False(t, closed)
	})

	t.Run("stagnant tick before max hold stays open", func(t *testing.T) {
		m, now := newTestManager(acceptingGateway())
		require.NoError(t, m.ApplyIntent(ctx, buyIntent()))

		*now = now.Add(4 * time.Minute)
		_, closed := m.OnTick(ctx, tick("NSE_EQ|RELIANCE", 100.1))
		assert.False(t, closed)
	})

	t.Run("sell pnl is negated", func(t *testing.T) {
		m, now := newTestManager(acceptingGateway())
		require.NoError(t, m.ApplyIntent(ctx, sellIntent()))

		*now = now.Add(6 * time.Minute)
		_, closed := m.OnTick(ctx, tick("NSE_EQ|TCS", 99.7)) // +0.3% for a short
		assert.False(t, closed)

		reason, closed := m.OnTick(ctx, tick("NSE_EQ|TCS", 99.95)) // +0.05%
		assert.True(t, closed)
		assert.Equal(t, ReasonTimeStop, reason)
	})
}

func TestSymbolEligibleAgainAfterClose(t *testing.T) {
	ctx := context.Background()
	gw := acceptingGateway()
	m, _ := newTestManager(gw)

	require.NoError(t, m.ApplyIntent(ctx, buyIntent()))
	_, closed := m.OnTick(ctx, tick("NSE_EQ|RELIANCE", 97))
	require.True(t, closed)

	require.NoError(t, m.ApplyIntent(ctx, buyIntent()))
	assert.Len(t, m.Positions(), 1)
	// entry + exit + second entry
	gw.AssertNumberOfCalls(t, "PlaceOrder", 3)
}

func TestRejectedExitKeepsPosition(t *testing.T) {
	ctx := context.Background()
	gw := new(MockGateway)
	gw.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req broker.OrderRequest) bool {
		return req.Side == broker.SideBuy
	})).Return("ord-1", nil)
	gw.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req broker.OrderRequest) bool {
		return req.Side == broker.SideSell
	})).Return("", errors.New("exchange closed"))

	m, _ := newTestManager(gw)
	require.NoError(t, m.ApplyIntent(ctx, buyIntent()))

	_, closed := m.OnTick(ctx, tick("NSE_EQ|RELIANCE", 97))
	assert.False(t, closed, "close must not be reported when the exit order is rejected")
	_, ok := m.Open("NSE_EQ|RELIANCE")
	assert.True(t, ok, "position stays in the table until the broker confirms the exit")
}

func TestTickForUnknownSymbolIsIgnored(t *testing.T) {
	m, _ := newTestManager(acceptingGateway())
	_, closed := m.OnTick(context.Background(), tick("NSE_EQ|UNKNOWN", 1))
	assert.False(t, closed)
}
