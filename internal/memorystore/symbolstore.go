package memorystore

import "sync"

// SymbolStore keeps the subscription list in arrival order, without repeats.
type SymbolStore struct {
	mu      sync.Mutex
	symbols []string
	seen    map[string]struct{}
}

func NewSymbolStore() *SymbolStore {
	return &SymbolStore{
		symbols: make([]string, 0),
		seen:    make(map[string]struct{}),
	}
}

func (s *SymbolStore) Add(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[symbol]; ok {
		return
	}
	s.seen[symbol] = struct{}{}
	s.symbols = append(s.symbols, symbol)
}

// StartWorker drains ch into the store. The returned channel closes once ch is closed.
func (s *SymbolStore) StartWorker(ch <-chan string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for symbol := range ch {
			s.Add(symbol)
		}
	}()
	return done
}

func (s *SymbolStore) GetAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}
