package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/efreitasn/limitbook/internal/engine"
	"github.com/efreitasn/limitbook/internal/store"
)

// defaultTradeLimit is how many trades RecentTrades returns when the
// caller does not ask for a specific number.
const defaultTradeLimit = 100

// PlaceOrderRequest represents the input for order placement.
type PlaceOrderRequest struct {
	ID       uint64
	Side     string
	Price    int64
	Quantity int64
}

// BookResponse is an aggregated depth snapshot of both sides.
type BookResponse struct {
	Bids       []domain.PriceLevel
	Asks       []domain.PriceLevel
	Spread     *int64 // nil if either side empty
	SnapshotAt time.Time
}

// BookService handles order placement and read-only book queries.
type BookService struct {
	exchange   *engine.Exchange
	trades     *store.TradeStore
	depthLimit int
	logger     *slog.Logger
}

// NewBookService creates a new BookService with the given dependencies.
func NewBookService(
	exchange *engine.Exchange,
	trades *store.TradeStore,
	depthLimit int,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		exchange:   exchange,
		trades:     trades,
		depthLimit: depthLimit,
		logger:     logger,
	}
}

// PlaceOrder validates the request and submits it to the exchange. The
// returned slice is never nil on success.
func (s *BookService) PlaceOrder(req PlaceOrderRequest) ([]domain.Trade, error) {
	side := domain.Side(req.Side)
	if !side.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("side must be 'buy' or 'sell', got %q", req.Side),
		}
	}

	trades, err := s.exchange.PlaceOrder(req.ID, side, req.Price, req.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			s.logger.Error("order book invariant violated",
				slog.Uint64("order_id", req.ID),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.Info("order rejected",
				slog.Uint64("order_id", req.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	var traded int64
	for _, t := range trades {
		traded += t.Quantity
	}
	s.logger.Debug("order placed",
		slog.Uint64("order_id", req.ID),
		slog.String("side", req.Side),
		slog.Int64("price", req.Price),
		slog.Int("trades", len(trades)),
		slog.Int64("traded_quantity", traded),
		slog.Int64("rested_quantity", req.Quantity-traded),
	)
	return trades, nil
}

// BestBuy returns the best bid snapshot, or nil if no buy orders rest.
func (s *BookService) BestBuy() *domain.BestPrice {
	if bp, ok := s.exchange.BestBuy(); ok {
		return &bp
	}
	return nil
}

// BestSell returns the best ask snapshot, or nil if no sell orders rest.
func (s *BookService) BestSell() *domain.BestPrice {
	if bp, ok := s.exchange.BestSell(); ok {
		return &bp
	}
	return nil
}

// GetBook returns up to depth aggregated levels per side. A depth of 0
// means the configured limit; larger depths are capped at it.
func (s *BookService) GetBook(depth int) (*BookResponse, error) {
	if depth < 0 {
		return nil, &domain.ValidationError{Message: "depth must be a positive integer"}
	}
	if depth == 0 || depth > s.depthLimit {
		depth = s.depthLimit
	}

	bids, asks := s.exchange.Depth(depth)
	resp := &BookResponse{
		Bids:       bids,
		Asks:       asks,
		SnapshotAt: time.Now(),
	}
	if len(bids) > 0 && len(asks) > 0 {
		spread := asks[0].Price - bids[0].Price
		resp.Spread = &spread
	}
	return resp, nil
}

// RecentTrades returns up to limit executed trades, newest first. A
// limit of 0 means defaultTradeLimit.
func (s *BookService) RecentTrades(limit int) ([]domain.Execution, error) {
	if limit < 0 {
		return nil, &domain.ValidationError{Message: "limit must be a positive integer"}
	}
	if limit == 0 {
		limit = defaultTradeLimit
	}
	return s.trades.Recent(limit), nil
}
