package service

import "sync"

// userLocks hands out one mutex per user id. Used to serialize distribution
// passes triggered by the same payer; passes for different payers are
// commutative (idempotent keyed ledger writes, max-based activity extension)
// and run concurrently.
type userLocks struct {
	mu sync.Mutex
	m  map[uint]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[uint]*sync.Mutex)}
}

// Lock acquires the mutex for id and returns the unlock func.
func (l *userLocks) Lock(id uint) func() {
	l.mu.Lock()
	mu, ok := l.m[id]
	if !ok {
		mu = &sync.Mutex{}
		l.m[id] = mu
	}
	l.mu.Unlock()
	mu.Lock()
	return mu.Unlock
}
