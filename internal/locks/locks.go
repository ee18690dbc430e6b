package locks

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// KeyedLimiter provides per-key non-blocking mutual exclusion. It guards
// expensive one-time artifact generation against duplicate concurrent work;
// it is not a correctness mechanism for progress state. Instances are owned
// and injected by the service that needs them, never shared globally, and
// hold no state across process restarts.
type KeyedLimiter struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// NewKeyedLimiter creates an empty limiter
func NewKeyedLimiter() *KeyedLimiter {
	return &KeyedLimiter{
		locks: make(map[string]*semaphore.Weighted),
	}
}

// TryAcquire attempts to take the lock for key without blocking. A false
// return means another request holds it; callers should report "try again
// shortly" rather than wait.
func (l *KeyedLimiter) TryAcquire(key string) bool {
	l.mu.Lock()
	sem, ok := l.locks[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[key] = sem
	}
	l.mu.Unlock()

	return sem.TryAcquire(1)
}

// Release returns the lock for key. Only a caller whose TryAcquire returned
// true may call Release.
func (l *KeyedLimiter) Release(key string) {
	l.mu.Lock()
	sem, ok := l.locks[key]
	l.mu.Unlock()

	if ok {
		sem.Release(1)
	}
}
