package broker

import "context"

// Order sides and types mirror the upstream broker API vocabulary.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	ProductIntraday = "I"
	OrderTypeMarket = "MARKET"
)

// OrderRequest describes one order to place.
type OrderRequest struct {
	Symbol      string
	Side        string
	Quantity    int
	ProductType string
	OrderType   string
	Price       float64
}

// Gateway is the broker capability the engine calls as a side effect of
// entry and exit decisions. Session/auth handshakes live behind it.
type Gateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)
	CancelOrder(ctx context.Context, orderID string) error
	ValidateSession(ctx context.Context) bool
}
