package timer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/candidus/assessor/internal/apperr"
)

// EventKind distinguishes countdown events.
type EventKind int

const (
	EventTick EventKind = iota
	EventExpired
)

func (k EventKind) String() string {
	if k == EventExpired {
		return "expired"
	}
	return "tick"
}

// Event is emitted by a Countdown once per second. Item and Epoch identify
// the countdown that produced it.
type Event struct {
	Kind      EventKind
	Item      int
	Epoch     uint64
	Remaining int
}

// Level is the urgency shown next to a countdown.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

// LevelFor maps remaining seconds to an urgency level: 30 seconds or less
// is a warning, 10 or less is critical.
func LevelFor(remaining int) Level {
	switch {
	case remaining <= 10:
		return LevelCritical
	case remaining <= 30:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// Countdown decrements from its starting value once per second and emits
// exactly one EventExpired on reaching zero, then stops.
type Countdown struct {
	item      int
	epoch     uint64
	remaining atomic.Int64
	cancel    context.CancelFunc
	done      chan struct{}
}

// Start begins a countdown of seconds for item. Events go to out; a send
// that cannot complete is abandoned once the countdown is stopped.
// The ticker is registered before Start returns.
func Start(clock Clock, item int, epoch uint64, seconds int, out chan<- Event) *Countdown {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Countdown{
		item:   item,
		epoch:  epoch,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.remaining.Store(int64(seconds))

	tk := clock.NewTicker(time.Second)
	go c.run(ctx, tk, out)
	return c
}

func (c *Countdown) run(ctx context.Context, tk Ticker, out chan<- Event) {
	defer close(c.done)
	defer tk.Stop()

	for c.remaining.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-tk.C():
		}

		rem := c.remaining.Add(-1)
		ev := Event{Kind: EventTick, Item: c.item, Epoch: c.epoch, Remaining: int(rem)}
		if rem == 0 {
			ev.Kind = EventExpired
		}
		select {
		case out <- ev:
			continue
		default:
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the countdown and waits for its goroutine to exit. No event
// is sent after Stop returns. Stop is idempotent.
func (c *Countdown) Stop() {
	c.cancel()
	<-c.done
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int { return int(c.remaining.Load()) }

// Item returns the item index the countdown belongs to.
func (c *Countdown) Item() int { return c.item }

// Epoch returns the countdown's epoch.
func (c *Countdown) Epoch() uint64 { return c.epoch }

// Guard rejects an event that does not belong to the current item and epoch.
func Guard(ev Event, currentItem int, currentEpoch uint64) error {
	if ev.Item != currentItem || ev.Epoch != currentEpoch {
		return &apperr.TimerRaceError{Item: ev.Item, CurrentItem: currentItem}
	}
	return nil
}
