package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nkbot/internal/logger"
)

// PlacedOrder is one entry in the paper gateway's order log.
type PlacedOrder struct {
	ID       string
	Request  OrderRequest
	PlacedAt time.Time
	Canceled bool
}

// Paper is an in-memory Gateway used for dry runs and tests. Every order
// succeeds and is recorded.
type Paper struct {
	mu     sync.Mutex
	seq    int
	orders []PlacedOrder
}

func NewPaper() *Paper {
	return &Paper{}
}

func (p *Paper) PlaceOrder(_ context.Context, req OrderRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("paper-%d", p.seq)
	p.orders = append(p.orders, PlacedOrder{ID: id, Request: req, PlacedAt: time.Now()})
	logger.Infof("[paper] %s %s x%d @ %.2f (%s)", req.Side, req.Symbol, req.Quantity, req.Price, id)
	return id, nil
}

func (p *Paper) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.orders {
		if p.orders[i].ID == orderID {
			p.orders[i].Canceled = true
			return nil
		}
	}
	return fmt.Errorf("paper: unknown order %s", orderID)
}

func (p *Paper) ValidateSession(context.Context) bool {
	return true
}

// Orders returns a copy of the order log.
func (p *Paper) Orders() []PlacedOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PlacedOrder, len(p.orders))
	copy(out, p.orders)
	return out
}
