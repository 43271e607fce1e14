package notify

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
	ttls   []time.Duration
}

func (m *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{fn: f}
	m.timers = append(m.timers, t)
	m.ttls = append(m.ttls, d)
	return t
}

// fire runs timer i even if it was stopped, the way a timer that already
// fired before Stop would.
func (m *manualClock) fire(i int) { m.timers[i].fn() }

func TestShowAndExpire(t *testing.T) {
	clock := &manualClock{}
	c := New(0, WithAfterFunc(clock.AfterFunc))

	_, ok := c.Current()
	assert.False(t, ok)

	c.Success("Equipment added successfully!")
	msg, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, KindSuccess, msg.Kind)
	assert.Equal(t, DefaultTTL, clock.ttls[0])

	clock.fire(0)
	_, ok = c.Current()
	assert.False(t, ok)
}

func TestNewerMessageSurvivesStaleTimer(t *testing.T) {
	clock := &manualClock{}
	c := New(5*time.Second, WithAfterFunc(clock.AfterFunc))

	c.Info("first")
	c.Error("second")
	assert.True(t, clock.timers[0].stopped, "previous timer is cancelled")

	clock.fire(0)
	msg, ok := c.Current()
	require.True(t, ok, "stale timer must not clear a newer message")
	assert.Equal(t, "second", msg.Text)
	assert.Equal(t, KindError, msg.Kind)

	clock.fire(1)
	_, ok = c.Current()
	assert.False(t, ok)
}

func TestRapidShowsKeepOnlyLatest(t *testing.T) {
	clock := &manualClock{}
	var (
		mu      sync.Mutex
		visible []string
	)
	c := New(time.Second, WithAfterFunc(clock.AfterFunc), WithObserver(func(m Message, v bool) {
		mu.Lock()
		defer mu.Unlock()
		if v {
			visible = append(visible, m.Text)
		}
	}))

	for i := 0; i < 10; i++ {
		c.Info(fmt.Sprintf("m%d", i))
		msg, ok := c.Current()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Text)
	}
	for i := 0; i < 9; i++ {
		clock.fire(i)
		msg, ok := c.Current()
		require.True(t, ok)
		assert.Equal(t, "m9", msg.Text)
	}
	assert.Len(t, visible, 10)
}

func TestClear(t *testing.T) {
	clock := &manualClock{}
	cleared := 0
	c := New(time.Second, WithAfterFunc(clock.AfterFunc), WithObserver(func(_ Message, v bool) {
		if !v {
			cleared++
		}
	}))
	c.Info("x")
	c.Clear()
	c.Clear()
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Equal(t, 1, cleared)
	clock.fire(0)
	assert.Equal(t, 1, cleared)
}

func TestRealTimerExpires(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Info("short")
	assert.Eventually(t, func() bool {
		_, ok := c.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestConcurrentShows(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Info(fmt.Sprintf("m%d", i))
		}(i)
	}
	wg.Wait()
	msg, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(20), msg.Seq)
	c.Clear()
}

func TestExpiryRacingShowKeepsObserverOrder(t *testing.T) {
	clock := &manualClock{}
	type event struct {
		text    string
		seq     uint64
		visible bool
	}
	var (
		mu     sync.Mutex
		events []event
	)
	clearing := make(chan struct{})
	release := make(chan struct{})
	c := New(time.Second, WithAfterFunc(clock.AfterFunc), WithObserver(func(m Message, v bool) {
		if !v {
			close(clearing)
			<-release
		}
		mu.Lock()
		events = append(events, event{text: m.Text, seq: m.Seq, visible: v})
		mu.Unlock()
	}))

	c.Info("A")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		clock.fire(0)
	}()
	<-clearing
	go func() {
		defer wg.Done()
		c.Info("B")
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	msg, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "B", msg.Text)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.Equal(t, event{text: "A", seq: 1, visible: true}, events[0])
	assert.Equal(t, event{seq: 1, visible: false}, events[1], "clear names the generation it removed")
	assert.Equal(t, event{text: "B", seq: 2, visible: true}, events[2], "the last event describes the visible message")
}

func TestClearEventCarriesSeq(t *testing.T) {
	var got []Message
	c := New(time.Minute, WithAfterFunc((&manualClock{}).AfterFunc), WithObserver(func(m Message, v bool) {
		if !v {
			got = append(got, m)
		}
	}))
	c.Info("one")
	c.Info("two")
	c.Clear()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].Seq)
	assert.Empty(t, got[0].Text)
}
