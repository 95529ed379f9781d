package sink

import (
	"sync"

	"github.com/cuemby/persistsink/pkg/types"
)

// frontierCell is a mutex-guarded, monotonically advancing frontier
// value with a wake channel readers can select on. It emulates the "disconnected
// input frontier" and "shared write frontier" primitives of the source
// dataflow without a real dataflow scheduler: instead of
// the operator being woken by scheduler progress events, it is woken by
// this channel closing.
type frontierCell struct {
	mu   sync.Mutex
	f    types.Frontier
	wake chan struct{}
}

func newFrontierCell(initial types.Frontier) *frontierCell {
	return &frontierCell{f: initial, wake: make(chan struct{})}
}

// Get returns the cell's current value.
func (c *frontierCell) Get() types.Frontier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f
}

// Wait returns a channel that closes the next time the cell's value
// changes. Call it again after it fires to keep waiting — each call
// captures the generation current at call time.
func (c *frontierCell) Wait() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wake
}

// Advance replaces the cell's value if f is strictly further along than
// the current value, and wakes every waiter. Replacing rather than
// joining matches the shared write frontier's rule: it is set to the
// persist frontier, not merged with it.
func (c *frontierCell) Advance(f types.Frontier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.f.Less(f) {
		return
	}
	c.f = f
	close(c.wake)
	c.wake = make(chan struct{})
}
