package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced clock. Timers are driven by elapsed (monotonic) time while
// Now reports the wall clock, so tests can make the two diverge with Jump.
type Fake struct {
	mu      sync.Mutex
	wall    time.Time
	elapsed time.Duration
	seq     uint64
	timers  []*fakeTimer
}

type fakeTimer struct {
	clock   *Fake
	due     time.Duration
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

// NewFake returns a Fake whose wall clock starts at now.
func NewFake(now time.Time) *Fake {
	return &Fake{wall: now}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wall
}

func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	c.seq++
	t := &fakeTimer{clock: c, due: c.elapsed + d, seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves both clocks forward by d, running due callbacks in due order and, for
// equal due times, in registration order. Callbacks run without the clock lock held and
// may register further timers; those run too if they fall due within d.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.elapsed + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.wall = c.wall.Add(target - c.elapsed)
			c.elapsed = target
			c.mu.Unlock()
			return
		}
		c.wall = c.wall.Add(next.due - c.elapsed)
		c.elapsed = next.due
		next.fired = true
		c.mu.Unlock()

		next.fn()
	}
}

// AdvanceTo advances until the wall clock reads t. It is a no-op if t is not after Now.
func (c *Fake) AdvanceTo(t time.Time) {
	if d := t.Sub(c.Now()); d > 0 {
		c.Advance(d)
	}
}

// Jump shifts the wall clock by d without touching elapsed time or firing timers.
func (c *Fake) Jump(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wall = c.wall.Add(d)
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *Fake) nextDueLocked(limit time.Duration) *fakeTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].due != c.timers[j].due {
			return c.timers[i].due < c.timers[j].due
		}
		return c.timers[i].seq < c.timers[j].seq
	})
	if len(c.timers) == 0 || c.timers[0].due > limit {
		return nil
	}
	return c.timers[0]
}
