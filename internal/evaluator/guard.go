package evaluator

import (
	"strings"
	"sync"
)

// Guard enforces at most one in-flight evaluation per symbol
type Guard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewGuard creates an empty guard
func NewGuard() *Guard {
	return &Guard{busy: make(map[string]struct{})}
}

// TryAcquire marks symbol busy. It returns false when it already is.
func (g *Guard) TryAcquire(symbol string) bool {
	key := strings.ToUpper(symbol)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.busy[key]; ok {
		return false
	}
	g.busy[key] = struct{}{}
	return true
}

// Release frees symbol
func (g *Guard) Release(symbol string) {
	g.mu.Lock()
	delete(g.busy, strings.ToUpper(symbol))
	g.mu.Unlock()
}

// Busy reports whether symbol is being evaluated
func (g *Guard) Busy(symbol string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[strings.ToUpper(symbol)]
	return ok
}
