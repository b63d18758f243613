package domain

// MaxPrice and MaxQuantity bound order fields so every value, and every
// sum of quantities a single order can produce, stays exact in int64 and
// in JSON clients that decode numbers as float64.
const (
	MaxPrice    int64 = 1 << 53
	MaxQuantity int64 = 1 << 53
)

// Side indicates whether an order buys or sells.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the side an order of side s matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Order is a limit order for the single instrument traded by the book.
//
// Price and Quantity are fixed at submission. RemainingQuantity starts at
// Quantity and only decreases as the order is filled. Sequence is assigned
// when the order first rests on the book and breaks ties at equal price.
type Order struct {
	ID                uint64
	Side              Side
	Price             int64
	Quantity          int64
	RemainingQuantity int64
	Sequence          uint64
}

// NewOrder creates an order with its full quantity remaining.
func NewOrder(id uint64, side Side, price, quantity int64) *Order {
	return &Order{
		ID:                id,
		Side:              side,
		Price:             price,
		Quantity:          quantity,
		RemainingQuantity: quantity,
	}
}

// FilledQuantity returns how much of the order has traded so far.
func (o *Order) FilledQuantity() int64 {
	return o.Quantity - o.RemainingQuantity
}

// BestPrice is the aggregate snapshot of one side's best price level.
type BestPrice struct {
	Price         int64
	TotalQuantity int64
}

// PriceLevel is an aggregated price level used in depth snapshots.
type PriceLevel struct {
	Price         int64
	TotalQuantity int64
	OrderCount    int
}
