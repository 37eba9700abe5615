package vars

import "sync"

// Store holds the variables of one exploration session: preset values seeded
// at session creation plus everything saved by successful extractions. Names
// are never removed during a session, only overwritten by later extractions.
type Store struct {
	mu   sync.RWMutex
	vals map[string]any
}

// NewStore creates an empty variable store.
func NewStore() *Store {
	return &Store{vals: make(map[string]any)}
}

// Set stores a variable.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = value
}

// Get retrieves a variable.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.vals[key]
	return val, ok
}

// Has reports whether a variable is present.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// GetAll returns a copy of all variables.
func (s *Store) GetAll() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make(map[string]any, len(s.vals))
	for k, v := range s.vals {
		copied[k] = v
	}
	return copied
}

// MergeMap adds all key-value pairs from the given map to the store,
// potentially overwriting existing keys. Used to seed preset variables.
func (s *Store) MergeMap(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.vals[k] = v
	}
}

// Len returns the number of stored variables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vals)
}
