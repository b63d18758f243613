package engine

import (
	"sync"

	"github.com/efreitasn/limitbook/internal/domain"
)

// TradeRecorder receives the trades of each placement while the book is
// still locked, so recordings appear in execution order. Implementations
// must not block.
type TradeRecorder interface {
	Record(trades []domain.Trade)
}

// Exchange is the only way to reach the shared OrderBook. Every method
// holds the book lock for its full duration, so callers observe the book
// as if all calls ran one after another.
type Exchange struct {
	mu       sync.Mutex
	book     *OrderBook
	matcher  *Matcher
	recorder TradeRecorder
}

// NewExchange creates an Exchange over an empty book. recorder may be nil.
func NewExchange(recorder TradeRecorder) *Exchange {
	return &Exchange{
		book:     NewOrderBook(),
		matcher:  NewMatcher(),
		recorder: recorder,
	}
}

// PlaceOrder submits a new limit order and returns the trades it
// produced. See Matcher.PlaceOrder for the error contract.
func (e *Exchange) PlaceOrder(id uint64, side domain.Side, price, quantity int64) ([]domain.Trade, error) {
	order := domain.NewOrder(id, side, price, quantity)

	e.mu.Lock()
	defer e.mu.Unlock()

	trades, err := e.matcher.PlaceOrder(e.book, order)
	if err != nil {
		return nil, err
	}
	if e.recorder != nil && len(trades) > 0 {
		e.recorder.Record(trades)
	}
	return trades, nil
}

// BestBuy returns the best bid snapshot, or false if no buy orders rest.
func (e *Exchange) BestBuy() (domain.BestPrice, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.BestBuy()
}

// BestSell returns the best ask snapshot, or false if no sell orders rest.
func (e *Exchange) BestSell() (domain.BestPrice, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.BestSell()
}

// Depth returns up to n aggregated levels per side, best first.
func (e *Exchange) Depth(n int) (bids, asks []domain.PriceLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Depth(n)
}

// OrderCount returns the number of resting orders.
func (e *Exchange) OrderCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Len()
}
