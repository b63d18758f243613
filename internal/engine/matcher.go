package engine

import (
	"fmt"
	"math"

	"github.com/efreitasn/limitbook/internal/domain"
)

// Matcher implements price-time priority matching of limit orders. It
// holds no state of its own; everything it reads and mutates lives in
// the OrderBook it is given.
type Matcher struct{}

// NewMatcher creates a new Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// PlaceOrder validates incoming, crosses it against the opposite side of
// book for as long as prices cross, and rests any unfilled remainder on
// its own side. Trades are returned in the order they executed and are
// always priced at the resting order's price.
//
// A validation failure returns a *domain.ValidationError or
// domain.ErrDuplicateOrderID and leaves book untouched. An error wrapping
// domain.ErrInvariantViolation means the book is inconsistent and no
// trades are reported.
func (m *Matcher) PlaceOrder(book *OrderBook, incoming *domain.Order) ([]domain.Trade, error) {
	// Step 1: Validate before touching the book.
	if err := validate(incoming); err != nil {
		return nil, err
	}
	own := book.Side(incoming.Side)
	if total := own.LevelTotal(incoming.Price); total > math.MaxInt64-incoming.Quantity {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("quantity %d would overflow the %d resting at price %d", incoming.Quantity, total, incoming.Price),
		}
	}
	if book.Contains(incoming.ID) {
		return nil, fmt.Errorf("order %d: %w", incoming.ID, domain.ErrDuplicateOrderID)
	}

	// Step 2: Match loop against the opposite side.
	opposite := book.Side(incoming.Side.Opposite())
	trades := make([]domain.Trade, 0)
	for incoming.RemainingQuantity > 0 {
		best, ok := opposite.BestLevel()
		if !ok || !crosses(incoming, best.Price) {
			break
		}
		resting, ok := opposite.PeekFront()
		if !ok {
			return nil, fmt.Errorf("best %s level %d has no front order: %w",
				opposite.side, best.Price, domain.ErrInvariantViolation)
		}

		fill := min(incoming.RemainingQuantity, resting.RemainingQuantity)
		if fill <= 0 {
			return nil, fmt.Errorf("fill %d between taker %d and maker %d: %w",
				fill, incoming.ID, resting.ID, domain.ErrInvariantViolation)
		}

		trades = append(trades, domain.Trade{
			MakerID:  resting.ID,
			TakerID:  incoming.ID,
			Price:    resting.Price,
			Quantity: fill,
		})
		incoming.RemainingQuantity -= fill
		if err := book.fillFront(opposite, fill); err != nil {
			return nil, err
		}
	}

	// Step 3: Rest the remainder.
	if incoming.RemainingQuantity > 0 {
		if err := book.Rest(incoming); err != nil {
			return nil, err
		}
	}
	return trades, nil
}

// crosses reports whether incoming is willing to trade at price.
func crosses(incoming *domain.Order, price int64) bool {
	if incoming.Side == domain.SideBuy {
		return incoming.Price >= price
	}
	return incoming.Price <= price
}

func validate(o *domain.Order) error {
	if !o.Side.Valid() {
		return &domain.ValidationError{
			Message: fmt.Sprintf("side must be 'buy' or 'sell', got %q", o.Side),
		}
	}
	if o.Price <= 0 || o.Price > domain.MaxPrice {
		return &domain.ValidationError{
			Message: fmt.Sprintf("price must be a positive integer no greater than %d", domain.MaxPrice),
		}
	}
	if o.Quantity <= 0 || o.Quantity > domain.MaxQuantity {
		return &domain.ValidationError{
			Message: fmt.Sprintf("quantity must be a positive integer no greater than %d", domain.MaxQuantity),
		}
	}
	if o.FilledQuantity() != 0 {
		return &domain.ValidationError{Message: "order must be submitted unfilled"}
	}
	return nil
}
