package workflow

import "sync"

// guardState tracks whether an orchestrator has an operation in flight.
type guardState int

const (
	guardIdle guardState = iota
	guardRunning
)

// guard is a process-local concurrency fence. Each orchestrator owns one;
// it is never persisted and resets to idle in every exit path.
type guard struct {
	mu    sync.Mutex
	state guardState
}

// tryAcquire moves the guard to running. It reports false, without
// blocking, when an operation is already in flight.
func (g *guard) tryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == guardRunning {
		return false
	}
	g.state = guardRunning
	return true
}

// release returns the guard to idle. Releasing an idle guard is a no-op.
func (g *guard) release() {
	g.mu.Lock()
	g.state = guardIdle
	g.mu.Unlock()
}

// running reports whether an operation is in flight.
func (g *guard) running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == guardRunning
}
