package engine

import (
	"fmt"

	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/google/btree"
)

// priceLevel holds the resting orders at one price in arrival order.
// orders[head:] is the live queue; the prefix is reclaimed lazily.
type priceLevel struct {
	price  int64
	total  int64
	orders []*domain.Order
	head   int
}

func (l *priceLevel) len() int {
	return len(l.orders) - l.head
}

func (l *priceLevel) front() *domain.Order {
	return l.orders[l.head]
}

func (l *priceLevel) push(o *domain.Order) {
	l.orders = append(l.orders, o)
	l.total += o.RemainingQuantity
}

func (l *priceLevel) pop() {
	l.orders[l.head] = nil
	l.head++
	if l.head >= 32 && l.head*2 >= len(l.orders) {
		n := copy(l.orders, l.orders[l.head:])
		clear(l.orders[n:])
		l.orders = l.orders[:n]
		l.head = 0
	}
}

// bidLess orders bid levels by price descending, so Min() is the
// highest bid.
func bidLess(a, b *priceLevel) bool {
	return a.price > b.price
}

// askLess orders ask levels by price ascending, so Min() is the
// lowest ask.
func askLess(a, b *priceLevel) bool {
	return a.price < b.price
}

// BookSide maintains the resting orders of one side of the book as a
// B-tree of price levels, best price first, each level a FIFO queue.
//
// BookSide is not safe for concurrent use; see Exchange.
type BookSide struct {
	side   domain.Side
	levels *btree.BTreeG[*priceLevel]
	orders int
}

// NewBookSide creates an empty side. Buy sides rank higher prices first,
// sell sides lower prices first.
func NewBookSide(side domain.Side) *BookSide {
	const degree = 32
	less := askLess
	if side == domain.SideBuy {
		less = bidLess
	}
	return &BookSide{
		side:   side,
		levels: btree.NewG[*priceLevel](degree, less),
	}
}

// BestLevel returns the best price and the total remaining quantity
// resting at it, or false if the side is empty.
func (s *BookSide) BestLevel() (domain.BestPrice, bool) {
	level, ok := s.levels.Min()
	if !ok {
		return domain.BestPrice{}, false
	}
	return domain.BestPrice{Price: level.price, TotalQuantity: level.total}, true
}

// PeekFront returns the earliest order at the best price without
// removing it, or false if there is none.
func (s *BookSide) PeekFront() (*domain.Order, bool) {
	level, ok := s.levels.Min()
	if !ok || level.len() == 0 {
		return nil, false
	}
	return level.front(), true
}

// ReduceFront fills quantity from the front order of the best level.
// An order reduced to zero is removed, along with its level if that was
// the last order there; a partially filled order keeps its position.
// It returns the front order as it stands after the reduction.
func (s *BookSide) ReduceFront(quantity int64) (*domain.Order, error) {
	level, ok := s.levels.Min()
	if !ok || level.len() == 0 {
		return nil, fmt.Errorf("reduce front of empty %s side: %w", s.side, domain.ErrInvariantViolation)
	}
	o := level.front()
	if quantity <= 0 || quantity > o.RemainingQuantity {
		return nil, fmt.Errorf("reduce order %d (remaining %d) by %d: %w",
			o.ID, o.RemainingQuantity, quantity, domain.ErrInvariantViolation)
	}

	o.RemainingQuantity -= quantity
	level.total -= quantity
	if o.RemainingQuantity > 0 {
		return o, nil
	}

	level.pop()
	s.orders--
	if level.len() == 0 {
		s.levels.Delete(level)
	}
	return o, nil
}

// LevelTotal returns the total remaining quantity resting at price, or 0
// if there is no such level.
func (s *BookSide) LevelTotal(price int64) int64 {
	level, ok := s.levels.Get(&priceLevel{price: price})
	if !ok {
		return 0
	}
	return level.total
}

// Insert appends o to the back of its price level, creating the level
// if needed.
func (s *BookSide) Insert(o *domain.Order) {
	level, ok := s.levels.Get(&priceLevel{price: o.Price})
	if !ok {
		level = &priceLevel{price: o.Price}
		s.levels.ReplaceOrInsert(level)
	}
	level.push(o)
	s.orders++
}

// Len returns the number of resting orders on this side.
func (s *BookSide) Len() int {
	return s.orders
}

// LevelCount returns the number of distinct price levels on this side.
func (s *BookSide) LevelCount() int {
	return s.levels.Len()
}

// TopLevels returns up to n aggregated price levels, best first.
func (s *BookSide) TopLevels(n int) []domain.PriceLevel {
	if n <= 0 {
		return []domain.PriceLevel{}
	}
	levels := make([]domain.PriceLevel, 0, min(n, s.levels.Len()))
	s.levels.Ascend(func(l *priceLevel) bool {
		levels = append(levels, domain.PriceLevel{
			Price:         l.price,
			TotalQuantity: l.total,
			OrderCount:    l.len(),
		})
		return len(levels) < n
	})
	return levels
}

// WalkOrders visits resting orders best price first, oldest first within
// a price. The callback returns false to stop.
func (s *BookSide) WalkOrders(fn func(*domain.Order) bool) {
	s.levels.Ascend(func(l *priceLevel) bool {
		for _, o := range l.orders[l.head:] {
			if !fn(o) {
				return false
			}
		}
		return true
	})
}
