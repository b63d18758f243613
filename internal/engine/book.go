package engine

import (
	"fmt"

	"github.com/efreitasn/limitbook/internal/domain"
)

// OrderBook owns the buy and sell sides of the single instrument and an
// index of live order ids across both sides.
//
// OrderBook is not safe for concurrent use; Exchange serializes access.
type OrderBook struct {
	bids    *BookSide
	asks    *BookSide
	live    map[uint64]*domain.Order // order id → resting order
	lastSeq uint64
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: NewBookSide(domain.SideBuy),
		asks: NewBookSide(domain.SideSell),
		live: make(map[uint64]*domain.Order),
	}
}

// Side returns the book side holding orders of the given side.
func (b *OrderBook) Side(side domain.Side) *BookSide {
	if side == domain.SideBuy {
		return b.bids
	}
	return b.asks
}

// BestBuy returns the highest bid level snapshot, or false if there are
// no resting buy orders.
func (b *OrderBook) BestBuy() (domain.BestPrice, bool) {
	return b.bids.BestLevel()
}

// BestSell returns the lowest ask level snapshot, or false if there are
// no resting sell orders.
func (b *OrderBook) BestSell() (domain.BestPrice, bool) {
	return b.asks.BestLevel()
}

// Contains reports whether an order with the given id is resting on
// either side.
func (b *OrderBook) Contains(id uint64) bool {
	_, ok := b.live[id]
	return ok
}

// Rest assigns o the next sequence number and places it at the back of
// its price level.
func (b *OrderBook) Rest(o *domain.Order) error {
	if o.RemainingQuantity <= 0 {
		return fmt.Errorf("rest order %d with remaining %d: %w", o.ID, o.RemainingQuantity, domain.ErrInvariantViolation)
	}
	if b.Contains(o.ID) {
		return fmt.Errorf("rest order %d: %w", o.ID, domain.ErrDuplicateOrderID)
	}
	b.lastSeq++
	o.Sequence = b.lastSeq
	b.Side(o.Side).Insert(o)
	b.live[o.ID] = o
	return nil
}

// fillFront reduces the front order of side by quantity and drops it
// from the live index once it is exhausted.
func (b *OrderBook) fillFront(side *BookSide, quantity int64) error {
	o, err := side.ReduceFront(quantity)
	if err != nil {
		return err
	}
	if o.RemainingQuantity == 0 {
		delete(b.live, o.ID)
	}
	return nil
}

// Depth returns up to n aggregated levels per side, best first.
func (b *OrderBook) Depth(n int) (bids, asks []domain.PriceLevel) {
	return b.bids.TopLevels(n), b.asks.TopLevels(n)
}

// Len returns the number of resting orders across both sides.
func (b *OrderBook) Len() int {
	return b.bids.Len() + b.asks.Len()
}
