package session

import (
	"sync"

	"medequip/internal/shared/models"
)

// Context is one authenticated session, from login or validation until
// logout or rejection.
type Context struct {
	token string
	epoch uint64

	mu      sync.RWMutex
	profile models.UserProfile
	once    sync.Once
	done    chan struct{}
}

func newContext(token string, epoch uint64, profile models.UserProfile) *Context {
	return &Context{token: token, epoch: epoch, profile: profile, done: make(chan struct{})}
}

func (c *Context) Token() string { return c.token }
func (c *Context) Epoch() uint64 { return c.epoch }

func (c *Context) Profile() models.UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

func (c *Context) setProfile(p models.UserProfile) {
	c.mu.Lock()
	c.profile = p
	c.mu.Unlock()
}

// Alive reports whether the session is still current.
func (c *Context) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed when the session ends.
func (c *Context) Done() <-chan struct{} { return c.done }

func (c *Context) end() { c.once.Do(func() { close(c.done) }) }
