package domain

import "time"

// Trade is a single match between a resting (maker) order and the
// incoming (taker) order. Price is always the maker's price.
type Trade struct {
	MakerID  uint64
	TakerID  uint64
	Price    int64
	Quantity int64
}

// Execution is a trade as recorded in the trade history.
type Execution struct {
	TradeID    string
	Trade      Trade
	ExecutedAt time.Time
}
