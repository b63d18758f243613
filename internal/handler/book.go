package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/efreitasn/limitbook/internal/service"
)

// BookHandler handles HTTP requests for the order book endpoints.
type BookHandler struct {
	bookSvc *service.BookService
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(bookSvc *service.BookService) *BookHandler {
	return &BookHandler{bookSvc: bookSvc}
}

// placeOrderRequest is the JSON request body for POST /place_order.
// Fields are pointers so a missing or null field can be told apart from
// a zero value.
type placeOrderRequest struct {
	ID       *uint64 `json:"id"`
	Side     *string `json:"side"`
	Price    *int64  `json:"price"`
	Quantity *int64  `json:"quantity"`
}

func (r placeOrderRequest) missingField() string {
	switch {
	case r.ID == nil:
		return "id"
	case r.Side == nil:
		return "side"
	case r.Price == nil:
		return "price"
	case r.Quantity == nil:
		return "quantity"
	}
	return ""
}

// tradeResponse is a single trade in the POST /place_order response.
type tradeResponse struct {
	MakerID  uint64 `json:"maker_id"`
	TakerID  uint64 `json:"taker_id"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// bestPriceResponse is the body of GET /best_buy and GET /best_sell.
type bestPriceResponse struct {
	Price         int64 `json:"price"`
	TotalQuantity int64 `json:"total_quantity"`
}

type levelResponse struct {
	Price         int64 `json:"price"`
	TotalQuantity int64 `json:"total_quantity"`
	OrderCount    int   `json:"order_count"`
}

type bookResponse struct {
	Bids       []levelResponse `json:"bids"`
	Asks       []levelResponse `json:"asks"`
	Spread     *int64          `json:"spread"`
	SnapshotAt string          `json:"snapshot_at"`
}

type executionResponse struct {
	TradeID    string `json:"trade_id"`
	MakerID    uint64 `json:"maker_id"`
	TakerID    uint64 `json:"taker_id"`
	Price      int64  `json:"price"`
	Quantity   int64  `json:"quantity"`
	ExecutedAt string `json:"executed_at"`
}

// PlaceOrder handles POST /place_order.
func (h *BookHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if field := req.missingField(); field != "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "missing field "+field)
		return
	}

	trades, err := h.bookSvc.PlaceOrder(service.PlaceOrderRequest{
		ID:       *req.ID,
		Side:     *req.Side,
		Price:    *req.Price,
		Quantity: *req.Quantity,
	})
	if err != nil {
		mapBookError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildTradeResponses(trades))
}

// BestBuy handles GET /best_buy.
func (h *BookHandler) BestBuy(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, buildBestPriceResponse(h.bookSvc.BestBuy()))
}

// BestSell handles GET /best_sell.
func (h *BookHandler) BestSell(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, buildBestPriceResponse(h.bookSvc.BestSell()))
}

// GetBook handles GET /book.
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	depth, ok := positiveQueryInt(w, r, "depth")
	if !ok {
		return
	}

	book, err := h.bookSvc.GetBook(depth)
	if err != nil {
		mapBookError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		Bids:       buildLevelResponses(book.Bids),
		Asks:       buildLevelResponses(book.Asks),
		Spread:     book.Spread,
		SnapshotAt: book.SnapshotAt.UTC().Format(time.RFC3339Nano),
	})
}

// ListTrades handles GET /trades.
func (h *BookHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit, ok := positiveQueryInt(w, r, "limit")
	if !ok {
		return
	}

	executions, err := h.bookSvc.RecentTrades(limit)
	if err != nil {
		mapBookError(w, err)
		return
	}

	resp := make([]executionResponse, len(executions))
	for i, e := range executions {
		resp[i] = executionResponse{
			TradeID:    e.TradeID,
			MakerID:    e.Trade.MakerID,
			TakerID:    e.Trade.TakerID,
			Price:      e.Trade.Price,
			Quantity:   e.Trade.Quantity,
			ExecutedAt: e.ExecutedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// positiveQueryInt reads an optional positive integer query parameter.
// It returns 0 when the parameter is absent, and writes a 400 and
// returns false when it is present but not a positive integer.
func positiveQueryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", name+" must be a positive integer")
		return 0, false
	}
	return n, true
}

// buildTradeResponses converts domain trades to response trades. An
// empty input encodes as [].
func buildTradeResponses(trades []domain.Trade) []tradeResponse {
	result := make([]tradeResponse, len(trades))
	for i, t := range trades {
		result[i] = tradeResponse{
			MakerID:  t.MakerID,
			TakerID:  t.TakerID,
			Price:    t.Price,
			Quantity: t.Quantity,
		}
	}
	return result
}

// buildBestPriceResponse returns nil, which encodes as null, for an
// empty side.
func buildBestPriceResponse(bp *domain.BestPrice) *bestPriceResponse {
	if bp == nil {
		return nil
	}
	return &bestPriceResponse{Price: bp.Price, TotalQuantity: bp.TotalQuantity}
}

func buildLevelResponses(levels []domain.PriceLevel) []levelResponse {
	result := make([]levelResponse, len(levels))
	for i, l := range levels {
		result[i] = levelResponse{
			Price:         l.Price,
			TotalQuantity: l.TotalQuantity,
			OrderCount:    l.OrderCount,
		}
	}
	return result
}

// mapBookError maps domain errors to HTTP responses for book endpoints.
func mapBookError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrDuplicateOrderID):
		WriteError(w, http.StatusConflict, "duplicate_order_id", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
