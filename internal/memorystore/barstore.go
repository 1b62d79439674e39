package memorystore

import (
	"sync"

	"quantviz/pkg/alpaca"
)

// BarStore buffers streamed bars per symbol until the next flush.
type BarStore struct {
	globalMu sync.RWMutex
	data     map[string]*symbolBars
}

type symbolBars struct {
	mu   sync.Mutex
	bars []alpaca.Bar
}

func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*symbolBars),
	}
}

func (s *BarStore) Add(symbol string, bar alpaca.Bar) {
	// Fast path: lock per-symbol store only
	s.globalMu.RLock()
	store, ok := s.data[symbol]
	s.globalMu.RUnlock()

	if !ok {
		s.globalMu.Lock()
		if store, ok = s.data[symbol]; !ok {
			store = &symbolBars{}
			s.data[symbol] = store
		}
		s.globalMu.Unlock()
	}

	store.mu.Lock()
	store.bars = append(store.bars, bar)
	store.mu.Unlock()
}

// Drain returns every buffered bar and empties the buffers. Symbols with nothing
// buffered are left out.
func (s *BarStore) Drain() map[string][]alpaca.Bar {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	result := make(map[string][]alpaca.Bar)
	for sym, store := range s.data {
		store.mu.Lock()
		if len(store.bars) > 0 {
			result[sym] = store.bars
			store.bars = nil
		}
		store.mu.Unlock()
	}
	return result
}

// Counts returns the number of buffered bars per symbol. Symbols with nothing
// buffered are left out.
func (s *BarStore) Counts() map[string]int {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	result := make(map[string]int)
	for sym, store := range s.data {
		store.mu.Lock()
		if n := len(store.bars); n > 0 {
			result[sym] = n
		}
		store.mu.Unlock()
	}
	return result
}

// CountAll returns the number of bars buffered across all symbols.
func (s *BarStore) CountAll() int {
	total := 0
	for _, n := range s.Counts() {
		total += n
	}
	return total
}
