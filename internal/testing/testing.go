// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
)

// FakeClock is a deterministic [shared.Clock]. Scheduled callbacks only run inside [FakeClock.Advance],
// synchronously, in due-time order; callbacks due at the same instant run in scheduling order.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*FakeTimer
}

var _ shared.Clock = (*FakeClock)(nil)

// NewFakeClock creates a FakeClock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// FakeTimer is a schedule created by a [FakeClock].
type FakeTimer struct {
	clock  *FakeClock
	when   time.Time
	period time.Duration
	seq    int
	fn     func()
	active bool
}

// Stop cancels the schedule.
func (t *FakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) shared.Stopper {
	return c.schedule(d, 0, f)
}

func (c *FakeClock) Every(d time.Duration, f func()) shared.Stopper {
	return c.schedule(d, d, f)
}

func (c *FakeClock) schedule(d, period time.Duration, f func()) *FakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &FakeTimer{clock: c, when: c.now.Add(d), period: period, seq: c.seq, fn: f, active: true}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every callback that falls due on the way.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	end := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(end)
		if next == nil {
			c.now = end
			c.mu.Unlock()
			return
		}
		c.now = next.when
		if next.period > 0 {
			next.when = next.when.Add(next.period)
		} else {
			next.active = false
		}
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

// Pending returns the number of active schedules.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.active {
			n++
		}
	}
	return n
}

// nextDue returns the earliest active schedule due at or before end. Callers hold c.mu.
func (c *FakeClock) nextDue(end time.Time) *FakeTimer {
	active := c.timers[:0]
	for _, t := range c.timers {
		if t.active {
			active = append(active, t)
		}
	}
	c.timers = active

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].when.Equal(active[j].when) {
			return active[i].seq < active[j].seq
		}
		return active[i].when.Before(active[j].when)
	})

	if len(active) == 0 || active[0].when.After(end) {
		return nil
	}
	return active[0]
}

// ExerciseCall is one recorded PatchExercise invocation.
type ExerciseCall struct {
	SongID     string
	ExerciseID string
	Patch      models.ExercisePatch
}

// DailyLogCall is one recorded PatchDailyLog invocation.
type DailyLogCall struct {
	SongID string
	Delta  models.DailyLogDelta
}

// RecordingStore records every save it receives and optionally fails them.
type RecordingStore struct {
	mu        sync.Mutex
	Exercises []ExerciseCall
	DailyLogs []DailyLogCall
	Err       error
}

func (s *RecordingStore) PatchExercise(ctx context.Context, songID, exerciseID string, patch models.ExercisePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Exercises = append(s.Exercises, ExerciseCall{SongID: songID, ExerciseID: exerciseID, Patch: patch})
	return s.Err
}

func (s *RecordingStore) PatchDailyLog(ctx context.Context, songID string, delta models.DailyLogDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DailyLogs = append(s.DailyLogs, DailyLogCall{SongID: songID, Delta: delta})
	return s.Err
}

// ExerciseCalls returns a copy of the recorded exercise updates.
func (s *RecordingStore) ExerciseCalls() []ExerciseCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ExerciseCall(nil), s.Exercises...)
}

// DailyLogCalls returns a copy of the recorded daily-log deltas.
func (s *RecordingStore) DailyLogCalls() []DailyLogCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DailyLogCall(nil), s.DailyLogs...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
