package cell

import (
	"sync"

	"github.com/buildcell/cellctl/internal/logging"
)

// Cleanups is an explicit stack of teardown actions for one run.
// Resources register themselves at acquisition; Run releases them in
// reverse order. The stack replaces ambient trap state: the command
// layer arranges for Run to execute on normal return and on signal-
// driven cancellation alike.
type Cleanups struct {
	mu    sync.Mutex
	items []cleanupItem
	ran   bool
}

type cleanupItem struct {
	name string
	fn   func()
}

// NewCleanups returns an empty cleanup stack
func NewCleanups() *Cleanups {
	return &Cleanups{}
}

// Push registers a teardown action. Later pushes run first.
func (c *Cleanups) Push(name string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, cleanupItem{name: name, fn: fn})
}

// Len returns the number of registered actions
func (c *Cleanups) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Run executes all registered actions in reverse order, exactly once.
// Subsequent calls are no-ops, so it is safe to both defer Run and call
// it from a signal path.
func (c *Cleanups) Run() {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return
	}
	c.ran = true
	items := c.items
	c.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		logging.Debug("running cleanup", "name", items[i].name)
		items[i].fn()
	}
}
