package store

import (
	"sync"
	"time"

	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/google/uuid"
)

// TradeStore is a thread-safe, bounded in-memory history of executed
// trades. Once capacity is reached the oldest trades are evicted.
type TradeStore struct {
	mu       sync.RWMutex
	trades   []domain.Execution // ring buffer
	next     int                // slot for the next append
	size     int
	capacity int
	now      func() time.Time
}

// NewTradeStore creates an empty TradeStore holding at most capacity
// trades. A non-positive capacity is treated as 1.
func NewTradeStore(capacity int) *TradeStore {
	if capacity < 1 {
		capacity = 1
	}
	return &TradeStore{
		trades:   make([]domain.Execution, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Record assigns each trade an id and the current time and appends them
// in order. It implements engine.TradeRecorder.
func (s *TradeStore) Record(trades []domain.Trade) {
	executedAt := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		s.trades[s.next] = domain.Execution{
			TradeID:    uuid.New().String(),
			Trade:      t,
			ExecutedAt: executedAt,
		}
		s.next = (s.next + 1) % s.capacity
		if s.size < s.capacity {
			s.size++
		}
	}
}

// Recent returns up to limit trades, newest first. A non-positive limit
// returns every retained trade.
func (s *TradeStore) Recent(limit int) []domain.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.size
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]domain.Execution, n)
	for i := 0; i < n; i++ {
		idx := (s.next - 1 - i + s.capacity) % s.capacity
		result[i] = s.trades[idx]
	}
	return result
}

// Len returns the number of retained trades.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
