// Package notify holds the single transient outcome message shown to the
// user.
package notify

import (
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// DefaultTTL is how long a message stays visible.
const DefaultTTL = 5 * time.Second

type Message struct {
	Text    string
	Kind    Kind
	ShownAt time.Time
	// Seq increases with every Show; renderers can use it to drop
	// out-of-order updates.
	Seq uint64
}

// Timer is the subset of *time.Timer the channel needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

// Observer is called after every change; visible is false once the slot
// is empty, and msg.Seq then names the generation that was cleared.
// Observers are called in the order the changes happened and must not
// call back into the Channel that notifies them.
type Observer func(msg Message, visible bool)

type Option func(*Channel)

func WithAfterFunc(fn AfterFunc) Option { return func(c *Channel) { c.after = fn } }
func WithClock(now func() time.Time) Option { return func(c *Channel) { c.now = now } }
func WithObserver(fn Observer) Option {
	return func(c *Channel) { c.observers = append(c.observers, fn) }
}

// Channel is a one-slot message holder with automatic expiry. A new
// message replaces the old one and stops its timer; a timer that fires
// anyway only clears the message it was started for.
type Channel struct {
	ttl       time.Duration
	after     AfterFunc
	now       func() time.Time
	observers []Observer

	// emitMu is taken before mu is released so observers see changes in
	// the order they were made.
	emitMu sync.Mutex

	mu      sync.Mutex
	current Message
	visible bool
	seq     uint64
	timer   Timer
}

func New(ttl time.Duration, opts ...Option) *Channel {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Channel{
		ttl:   ttl,
		after: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) TTL() time.Duration { return c.ttl }

// Show replaces the visible message and restarts the expiry timer.
func (c *Channel) Show(text string, kind Kind) Message {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.seq++
	seq := c.seq
	c.current = Message{Text: text, Kind: kind, ShownAt: c.now(), Seq: seq}
	c.visible = true
	msg := c.current
	c.timer = c.after(c.ttl, func() { c.expire(seq) })
	c.emitMu.Lock()
	c.mu.Unlock()

	c.emitLocked(msg, true)
	return msg
}

func (c *Channel) Success(text string) Message { return c.Show(text, KindSuccess) }
func (c *Channel) Error(text string) Message   { return c.Show(text, KindError) }
func (c *Channel) Info(text string) Message    { return c.Show(text, KindInfo) }

// Current returns the visible message, if any.
func (c *Channel) Current() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.visible
}

// Clear empties the slot immediately.
func (c *Channel) Clear() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if !c.visible {
		c.mu.Unlock()
		return
	}
	c.current, c.visible = Message{}, false
	seq := c.seq
	c.emitMu.Lock()
	c.mu.Unlock()
	c.emitLocked(Message{Seq: seq}, false)
}

func (c *Channel) expire(seq uint64) {
	c.mu.Lock()
	if seq != c.seq || !c.visible {
		c.mu.Unlock()
		return
	}
	c.current, c.visible, c.timer = Message{}, false, nil
	c.emitMu.Lock()
	c.mu.Unlock()
	c.emitLocked(Message{Seq: seq}, false)
}

// emitLocked notifies observers and releases emitMu.
func (c *Channel) emitLocked(msg Message, visible bool) {
	defer c.emitMu.Unlock()
	for _, fn := range c.observers {
		fn(msg, visible)
	}
}
