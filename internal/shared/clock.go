package shared

import (
	"sync"
	"time"
)

// Stopper cancels a scheduled callback. Stop reports whether the call stopped an active schedule.
type Stopper interface {
	Stop() bool
}

// Clock abstracts wall time and callback scheduling so timer-driven code can run against a fake in tests.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f once, on its own goroutine, after d elapses.
	AfterFunc(d time.Duration, f func()) Stopper
	// Every calls f every d until stopped.
	Every(d time.Duration, f func()) Stopper
}

// SystemClock is the [Clock] backed by the time package.
type SystemClock struct{}

var _ Clock = SystemClock{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

func (SystemClock) Every(d time.Duration, f func()) Stopper {
	t := &ticker{ticker: time.NewTicker(d), done: make(chan struct{})}
	go t.run(f)
	return t
}

// ticker runs a callback on every tick of a [time.Ticker] until stopped.
type ticker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *ticker) run(f func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			select {
			case <-t.done:
				return
			default:
			}
			f()
		}
	}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}
