package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/efreitasn/limitbook/internal/domain"
	"pgregory.net/rapid"
)

// refBook is a deliberately naive price-time book: a flat slice scanned
// in full for every fill. The matcher must agree with it exactly.
type refBook struct {
	orders []*refOrder
	seq    int
}

type refOrder struct {
	id    uint64
	side  domain.Side
	price int64
	rem   int64
	seq   int
}

func refBetter(a, b *refOrder) bool {
	if a.price != b.price {
		if a.side == domain.SideBuy {
			return a.price > b.price
		}
		return a.price < b.price
	}
	return a.seq < b.seq
}

func (r *refBook) place(id uint64, side domain.Side, price, qty int64) []domain.Trade {
	trades := []domain.Trade{}
	rem := qty
	for rem > 0 {
		bestIdx := -1
		for i, o := range r.orders {
			if o.side == side {
				continue
			}
			if side == domain.SideBuy && o.price > price || side == domain.SideSell && o.price < price {
				continue
			}
			if bestIdx < 0 || refBetter(o, r.orders[bestIdx]) {
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		best := r.orders[bestIdx]
		fill := min(rem, best.rem)
		trades = append(trades, domain.Trade{MakerID: best.id, TakerID: id, Price: best.price, Quantity: fill})
		rem -= fill
		best.rem -= fill
		if best.rem == 0 {
			r.orders = append(r.orders[:bestIdx], r.orders[bestIdx+1:]...)
		}
	}
	if rem > 0 {
		r.seq++
		r.orders = append(r.orders, &refOrder{id: id, side: side, price: price, rem: rem, seq: r.seq})
	}
	return trades
}

func (r *refBook) best(side domain.Side) (domain.BestPrice, bool) {
	var best *refOrder
	for _, o := range r.orders {
		if o.side == side && (best == nil || refBetter(o, best)) {
			best = o
		}
	}
	if best == nil {
		return domain.BestPrice{}, false
	}
	bp := domain.BestPrice{Price: best.price}
	for _, o := range r.orders {
		if o.side == side && o.price == best.price {
			bp.TotalQuantity += o.rem
		}
	}
	return bp, true
}

type orderParams struct {
	side  domain.Side
	price int64
	qty   int64
}

// genOrderParams draws orders from a narrow price band so that crossing,
// multi-level sweeps and same-price queues are all common.
func genOrderParams() *rapid.Generator[orderParams] {
	return rapid.Custom(func(t *rapid.T) orderParams {
		return orderParams{
			side:  rapid.SampledFrom([]domain.Side{domain.SideBuy, domain.SideSell}).Draw(t, "side"),
			price: rapid.Int64Range(95, 105).Draw(t, "price"),
			qty:   rapid.Int64Range(1, 20).Draw(t, "qty"),
		}
	})
}

func TestProperty_MatchesReferenceBook(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		params := rapid.SliceOfN(genOrderParams(), 1, 80).Draw(t, "orders")
		m, ob := NewMatcher(), NewOrderBook()
		ref := &refBook{}

		for i, s := range params {
			id := uint64(i + 1)
			got, err := m.PlaceOrder(ob, domain.NewOrder(id, s.side, s.price, s.qty))
			if err != nil {
				t.Fatalf("order %d: unexpected error: %v", id, err)
			}
			want := ref.place(id, s.side, s.price, s.qty)
			if len(got) != len(want) {
				t.Fatalf("order %d: got %d trades %+v, want %d %+v", id, len(got), got, len(want), want)
			}
			for j := range want {
				if got[j] != want[j] {
					t.Fatalf("order %d trade %d: got %+v, want %+v", id, j, got[j], want[j])
				}
			}

			for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
				gotBest, gotOK := ob.Side(side).BestLevel()
				wantBest, wantOK := ref.best(side)
				if gotOK != wantOK || gotBest != wantBest {
					t.Fatalf("after order %d, best %s = %+v/%v, want %+v/%v", id, side, gotBest, gotOK, wantBest, wantOK)
				}
			}
		}
	})
}

func TestProperty_PricePriorityWithinPlacement(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		params := rapid.SliceOfN(genOrderParams(), 1, 60).Draw(t, "orders")
		m, ob := NewMatcher(), NewOrderBook()

		for i, s := range params {
			trades, err := m.PlaceOrder(ob, domain.NewOrder(uint64(i+1), s.side, s.price, s.qty))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for j := 1; j < len(trades); j++ {
				prev, cur := trades[j-1].Price, trades[j].Price
				if s.side == domain.SideBuy && cur < prev {
					t.Fatalf("buy taker traded at %d after %d", cur, prev)
				}
				if s.side == domain.SideSell && cur > prev {
					t.Fatalf("sell taker traded at %d after %d", cur, prev)
				}
			}
			for _, tr := range trades {
				if s.side == domain.SideBuy && tr.Price > s.price || s.side == domain.SideSell && tr.Price < s.price {
					t.Fatalf("trade at %d violates taker limit %d (%s)", tr.Price, s.price, s.side)
				}
			}
		}
	})
}

func TestProperty_QuantityConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		params := rapid.SliceOfN(genOrderParams(), 1, 60).Draw(t, "orders")
		m, ob := NewMatcher(), NewOrderBook()
		resting := make(map[uint64]int64) // id → remaining, tracked from trades

		for i, s := range params {
			id := uint64(i + 1)
			order := domain.NewOrder(id, s.side, s.price, s.qty)
			trades, err := m.PlaceOrder(ob, order)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			takerRemaining := s.qty
			for _, tr := range trades {
				if tr.TakerID != id {
					t.Fatalf("trade taker %d, want %d", tr.TakerID, id)
				}
				if tr.Quantity <= 0 || tr.Quantity > takerRemaining || tr.Quantity > resting[tr.MakerID] {
					t.Fatalf("trade %+v exceeds taker remaining %d or maker remaining %d",
						tr, takerRemaining, resting[tr.MakerID])
				}
				takerRemaining -= tr.Quantity
				resting[tr.MakerID] -= tr.Quantity
				if resting[tr.MakerID] == 0 {
					delete(resting, tr.MakerID)
				}
			}

			if order.RemainingQuantity != takerRemaining {
				t.Fatalf("order %d remaining %d, want %d", id, order.RemainingQuantity, takerRemaining)
			}
			if takerRemaining > 0 {
				resting[id] = takerRemaining
				if !ob.Contains(id) {
					t.Fatalf("order %d with remainder %d not resting", id, takerRemaining)
				}
			} else if ob.Contains(id) {
				t.Fatalf("fully filled order %d is resting", id)
			}
		}

		var bookTotal, modelTotal int64
		for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
			ob.Side(side).WalkOrders(func(o *domain.Order) bool {
				if o.RemainingQuantity <= 0 {
					t.Fatalf("order %d resting with remaining %d", o.ID, o.RemainingQuantity)
				}
				if o.RemainingQuantity != resting[o.ID] {
					t.Fatalf("order %d remaining %d, want %d", o.ID, o.RemainingQuantity, resting[o.ID])
				}
				bookTotal += o.RemainingQuantity
				return true
			})
		}
		for _, q := range resting {
			modelTotal += q
		}
		if bookTotal != modelTotal {
			t.Fatalf("book holds %d units, trades imply %d", bookTotal, modelTotal)
		}
	})
}

func TestProperty_BookSideOrderingInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		params := rapid.SliceOfN(genOrderParams(), 1, 60).Draw(t, "orders")
		m, ob := NewMatcher(), NewOrderBook()
		for i, s := range params {
			if _, err := m.PlaceOrder(ob, domain.NewOrder(uint64(i+1), s.side, s.price, s.qty)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
			var prev *domain.Order
			ob.Side(side).WalkOrders(func(o *domain.Order) bool {
				if prev != nil {
					if side == domain.SideBuy && o.Price > prev.Price {
						t.Fatalf("bid side: price should be descending, got %d after %d", o.Price, prev.Price)
					}
					if side == domain.SideSell && o.Price < prev.Price {
						t.Fatalf("ask side: price should be ascending, got %d after %d", o.Price, prev.Price)
					}
					if o.Price == prev.Price && o.Sequence <= prev.Sequence {
						t.Fatalf("%s side: same price %d, sequence should be ascending, got %d after %d",
							side, o.Price, o.Sequence, prev.Sequence)
					}
				}
				prev = o
				return true
			})
		}

		// The book never rests crossed.
		bb, hasBid := ob.BestBuy()
		bs, hasAsk := ob.BestSell()
		if hasBid && hasAsk && bb.Price >= bs.Price {
			t.Fatalf("book is crossed: best bid %d >= best ask %d", bb.Price, bs.Price)
		}
	})
}

func TestProperty_RejectionIsInert(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		params := rapid.SliceOfN(genOrderParams(), 1, 40).Draw(t, "orders")
		m, ob := NewMatcher(), NewOrderBook()
		for i, s := range params {
			if _, err := m.PlaceOrder(ob, domain.NewOrder(uint64(i+1), s.side, s.price, s.qty)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		bidsBefore, asksBefore := ob.Depth(100)
		lenBefore := ob.Len()

		var bad *domain.Order
		switch rapid.IntRange(0, 3).Draw(t, "kind") {
		case 0:
			bad = domain.NewOrder(1000, domain.SideBuy, rapid.Int64Range(-100, 0).Draw(t, "price"), 5)
		case 1:
			bad = domain.NewOrder(1000, domain.SideSell, 100, rapid.Int64Range(-100, 0).Draw(t, "qty"))
		case 2:
			bad = domain.NewOrder(1000, domain.Side("short"), 100, 5)
		default:
			if lenBefore == 0 {
				return
			}
			var liveID uint64
			ob.bids.WalkOrders(func(o *domain.Order) bool { liveID = o.ID; return false })
			if liveID == 0 {
				ob.asks.WalkOrders(func(o *domain.Order) bool { liveID = o.ID; return false })
			}
			side := rapid.SampledFrom([]domain.Side{domain.SideBuy, domain.SideSell}).Draw(t, "dupSide")
			bad = domain.NewOrder(liveID, side, 100, 50)
		}

		trades, err := m.PlaceOrder(ob, bad)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) && !errors.Is(err, domain.ErrDuplicateOrderID) {
			t.Fatalf("expected rejection, got trades %+v err %v", trades, err)
		}
		if trades != nil {
			t.Fatalf("rejection returned trades %+v", trades)
		}

		bidsAfter, asksAfter := ob.Depth(100)
		if ob.Len() != lenBefore || fmt.Sprint(bidsBefore) != fmt.Sprint(bidsAfter) || fmt.Sprint(asksBefore) != fmt.Sprint(asksAfter) {
			t.Fatalf("book changed after rejection: bids %v → %v, asks %v → %v", bidsBefore, bidsAfter, asksBefore, asksAfter)
		}
	})
}
