// Package timer drives per-item countdowns and provides the clock
// abstraction shared by the delivery core.
package timer

import (
	"sort"
	"sync"
	"time"
)

// Clock tells time and creates tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks at a fixed period until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// FakeClock is a manually advanced clock for tests. Ticks are delivered
// synchronously: Advance returns only after every due tick has been
// received or its ticker stopped.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

// NewFakeClock returns a FakeClock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *FakeClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("timer: non-positive ticker period")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{
		c:       make(chan time.Time),
		period:  d,
		next:    f.now.Add(d),
		stopped: make(chan struct{}),
	}
	f.tickers = append(f.tickers, t)
	return t
}

// Tickers returns the number of live tickers.
func (f *FakeClock) Tickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing due tickers in time order.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		f.prune()
		due := f.dueBefore(target)
		if len(due) == 0 {
			f.now = target
			f.mu.Unlock()
			return
		}
		at := due[0].next
		f.now = at
		var fire []*fakeTicker
		for _, t := range due {
			if t.next.Equal(at) {
				t.next = t.next.Add(t.period)
				fire = append(fire, t)
			}
		}
		f.mu.Unlock()

		for _, t := range fire {
			select {
			case t.c <- at:
			case <-t.stopped:
			}
		}
	}
}

// dueBefore returns live tickers whose next tick is at or before target,
// earliest first. Callers hold f.mu.
func (f *FakeClock) dueBefore(target time.Time) []*fakeTicker {
	var due []*fakeTicker
	for _, t := range f.tickers {
		if !t.next.After(target) {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].next.Before(due[j].next) })
	return due
}

func (f *FakeClock) prune() {
	live := f.tickers[:0]
	for _, t := range f.tickers {
		if !t.isStopped() {
			live = append(live, t)
		}
	}
	f.tickers = live
}

type fakeTicker struct {
	c       chan time.Time
	period  time.Duration
	next    time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() { t.once.Do(func() { close(t.stopped) }) }

func (t *fakeTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}
