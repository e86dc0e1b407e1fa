package clock

import (
	"sync"
	"time"
)

// Clock abstracts the ledger's time source so streak and cooldown arithmetic
// can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Simulated is a Clock that starts at a fixed instant and only moves when
// advanced.
type Simulated struct {
	mu  sync.RWMutex
	now time.Time
}

// NewSimulated creates a simulated clock set to the given instant.
func NewSimulated(start time.Time) *Simulated {
	return &Simulated{now: start}
}

// Now returns the current simulated time.
func (c *Simulated) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the simulated clock forward by the given duration.
func (c *Simulated) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the simulated clock to an absolute instant.
func (c *Simulated) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
