// Package timer provides the second-granularity clocks used by a workout
// session: a rest countdown and an elapsed-time stopwatch.
//
// Both clocks are driven by a goroutine around a time.Ticker. The state change
// of one tick lives in Tick so it can be driven synchronously. Stop cancels the
// goroutine and waits for it to return.
package timer

import (
	"sync"
	"time"
)

// DefaultInterval is the tick interval used in production.
const DefaultInterval = time.Second

// loop runs tick on every interval until tick returns false or halt is called.
type loop struct {
	stop chan struct{}
	done chan struct{}
}

func startLoop(interval time.Duration, tick func() bool) *loop {
	l := &loop{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(l.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-t.C:
				if !tick() {
					return
				}
			}
		}
	}()
	return l
}

func (l *loop) halt() {
	close(l.stop)
	<-l.done
}

// Countdown counts a labelled rest period down to zero.
// Starting a new countdown supersedes the running one.
type Countdown struct {
	interval time.Duration
	onExpire func(label string)

	ctl sync.Mutex // serialises Start and Stop
	lp  *loop

	mu        sync.Mutex
	remaining int
	label     string
	running   bool
}

// NewCountdown creates a stopped countdown. onExpire, if set, is called from
// the timer goroutine when a countdown reaches zero.
func NewCountdown(interval time.Duration, onExpire func(label string)) *Countdown {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Countdown{interval: interval, onExpire: onExpire}
}

// Start begins counting down from seconds. A non-positive duration leaves the
// countdown stopped.
func (c *Countdown) Start(seconds int, label string) {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	c.haltLocked()

	c.mu.Lock()
	c.remaining = max(seconds, 0)
	c.label = label
	c.running = seconds > 0
	running := c.running
	c.mu.Unlock()

	if running {
		c.lp = startLoop(c.interval, c.Tick)
	}
}

// Stop halts the countdown and clears it.
func (c *Countdown) Stop() {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	c.haltLocked()

	c.mu.Lock()
	c.remaining = 0
	c.running = false
	c.mu.Unlock()
}

func (c *Countdown) haltLocked() {
	if c.lp != nil {
		c.lp.halt()
		c.lp = nil
	}
}

// Tick advances the countdown by one second and reports whether it is still running.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		return true
	}
	c.remaining = 0
	c.running = false
	label := c.label
	c.mu.Unlock()

	if c.onExpire != nil {
		c.onExpire(label)
	}
	return false
}

// Remaining returns the seconds left, the label and whether the countdown runs.
func (c *Countdown) Remaining() (seconds int, label string, running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining, c.label, c.running
}

// Stopwatch counts elapsed seconds from zero.
type Stopwatch struct {
	interval time.Duration

	ctl sync.Mutex
	lp  *loop

	mu      sync.Mutex
	elapsed int
	running bool
}

// NewStopwatch creates a stopped stopwatch.
func NewStopwatch(interval time.Duration) *Stopwatch {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Stopwatch{interval: interval}
}

// Start resets the stopwatch to zero and starts it.
func (s *Stopwatch) Start() {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if s.lp != nil {
		s.lp.halt()
	}
	s.mu.Lock()
	s.elapsed = 0
	s.running = true
	s.mu.Unlock()
	s.lp = startLoop(s.interval, s.Tick)
}

// Stop halts the stopwatch. The elapsed value is kept.
func (s *Stopwatch) Stop() {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if s.lp != nil {
		s.lp.halt()
		s.lp = nil
	}
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Tick advances the stopwatch by one second. It returns false once stopped.
func (s *Stopwatch) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.elapsed++
	return true
}

// Elapsed returns the elapsed seconds.
func (s *Stopwatch) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}
