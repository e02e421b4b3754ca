package database

import "sync/atomic"

// initGate serializes structural operations (Initialize, Reset) within one
// Manager. Acquisition never blocks: a contended caller observes failure
// immediately and must retry explicitly. Each Manager owns its own gate so
// independent managers never interfere.
type initGate struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the gate without blocking.
// Returns true if the gate was successfully acquired, false otherwise.
func (g *initGate) TryAcquire() bool {
	return g.state.CompareAndSwap(0, 1)
}

// Release releases the gate.
// Must only be called by the goroutine that successfully acquired it.
func (g *initGate) Release() {
	g.state.Store(0)
}
