package editor

import (
	"sync"

	"github.com/easyref/easyref-api/internal/core/domain"
)

// Confirmations tracks the per-item armed state of a two-step delete.
type Confirmations struct {
	mu    sync.Mutex
	armed map[string]struct{}
}

func NewConfirmations() *Confirmations {
	return &Confirmations{armed: make(map[string]struct{})}
}

// Request arms the delete of id.
func (c *Confirmations) Request(id string) {
	c.mu.Lock()
	c.armed[id] = struct{}{}
	c.mu.Unlock()
}

// Dismiss disarms id.
func (c *Confirmations) Dismiss(id string) {
	c.mu.Lock()
	delete(c.armed, id)
	c.mu.Unlock()
}

// Armed reports whether id awaits confirmation.
func (c *Confirmations) Armed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.armed[id]
	return ok
}

// Confirm consumes the armed state of id. It fails with
// ErrConfirmationRequired when id was never armed.
func (c *Confirmations) Confirm(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.armed[id]; !ok {
		return domain.ErrConfirmationRequired
	}
	delete(c.armed, id)
	return nil
}
