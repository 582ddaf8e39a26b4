package practice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
)

const (
	// DefaultSaveInterval is the number of unsaved seconds that triggers a checkpoint.
	DefaultSaveInterval = 30
	// DefaultInactivityLimit is how long a session runs without input before it stops itself.
	DefaultInactivityLimit = 120 * time.Second
	// DefaultTickInterval is the stopwatch resolution.
	DefaultTickInterval = time.Second
	// DefaultSaveTimeout bounds each fire-and-forget save request.
	DefaultSaveTimeout = 10 * time.Second
)

// Store persists practice progress. [services.APIService] implements it against the HTTP API.
type Store interface {
	// PatchExercise overwrites the named fields of an exercise record.
	PatchExercise(ctx context.Context, songID, exerciseID string, patch models.ExercisePatch) error
	// PatchDailyLog adds delta to the exercise's entry for delta.Date.
	PatchDailyLog(ctx context.Context, songID string, delta models.DailyLogDelta) error
}

// State is the engine's coarse state.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a point-in-time copy of the active session.
type Snapshot struct {
	State        State
	Card         CardKey
	LocalSeconds int
	LastSaveMark int
}

// EngineOpts contains configuration options for creating an [Engine].
type EngineOpts struct {
	Store           Store
	Clock           shared.Clock
	Logger          *log.Logger
	SaveInterval    int
	InactivityLimit time.Duration
	TickInterval    time.Duration
	SaveTimeout     time.Duration
	// Dispatch runs a save. Defaults to a new goroutine per save.
	Dispatch func(save func())
}

// session is the single active practice session.
type session struct {
	card         Card
	key          CardKey
	localSeconds int
	lastSaveMark int
	running      bool
	gen          uint64
	ticker       shared.Stopper
	watchdog     shared.Stopper
}

// Engine tracks practice time for at most one card at a time.
type Engine struct {
	mu      sync.Mutex
	active  *session
	gen     uint64
	pending sync.WaitGroup

	store           Store
	clock           shared.Clock
	logger          *log.Logger
	saveInterval    int
	inactivityLimit time.Duration
	tickInterval    time.Duration
	saveTimeout     time.Duration
	dispatch        func(func())
}

// NewEngine creates an idle Engine, filling unset options with defaults.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Clock == nil {
		opts.Clock = shared.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = DefaultSaveInterval
	}
	if opts.InactivityLimit <= 0 {
		opts.InactivityLimit = DefaultInactivityLimit
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(save func()) { go save() }
	}

	return &Engine{
		store:           opts.Store,
		clock:           opts.Clock,
		logger:          shared.WithLogger(opts.Logger, "component", "practice"),
		saveInterval:    opts.SaveInterval,
		inactivityLimit: opts.InactivityLimit,
		tickInterval:    opts.TickInterval,
		saveTimeout:     opts.SaveTimeout,
		dispatch:        opts.Dispatch,
	}
}

// StartOrResume starts timing card.
//
// A session running for another card is stopped and flushed first. Calling it again for the card that is
// already running does nothing.
func (e *Engine) StartOrResume(card Card) {
	if card == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked(card)
}

// Toggle stops card if it is the running session and starts it otherwise.
func (e *Engine) Toggle(card Card) {
	if card == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil && e.active.running && e.active.key == keyOf(card) {
		e.stopLocked()
		return
	}
	e.startLocked(card)
}

// Stop ends the session for card, flushing unsaved time. It does nothing if card is not the active card.
func (e *Engine) Stop(card Card) {
	if card == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.key != keyOf(card) {
		return
	}
	e.stopLocked()
}

// StopActive ends whichever session is active.
func (e *Engine) StopActive() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		e.stopLocked()
	}
}

// NotifyActivity reschedules the inactivity watchdog. It is a no-op while nothing is running.
func (e *Engine) NotifyActivity() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || !e.active.running {
		return
	}
	e.armWatchdogLocked(e.active)
}

// AddReps adds count repetitions to card and saves them immediately, independent of any running timer.
func (e *Engine) AddReps(card Card, count int) error {
	if card == nil {
		return fmt.Errorf("%w: card is required", shared.ErrMissingArgument)
	}
	if count <= 0 {
		return fmt.Errorf("%w: reps must be positive, got %d", shared.ErrInvalidInput, count)
	}

	total := card.TotalReps() + count
	card.SetTotalReps(total)

	now := e.clock.Now()
	stamp := now.UTC().Format(time.RFC3339)
	songID, exerciseID := card.SongID(), card.ExerciseID()

	e.save(songID, exerciseID, models.ExercisePatch{TotalReps: &total, LastPracticedAt: &stamp},
		models.DailyLogDelta{Date: now.Format(shared.DateLayout), ExerciseID: exerciseID, Reps: count})

	return nil
}

// Snapshot returns a copy of the active session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return Snapshot{State: Idle}
	}

	state := Idle
	if e.active.running {
		state = Running
	}
	return Snapshot{
		State:        state,
		Card:         e.active.key,
		LocalSeconds: e.active.localSeconds,
		LastSaveMark: e.active.lastSaveMark,
	}
}

// State reports whether a session is running.
func (e *Engine) State() State {
	return e.Snapshot().State
}

// IsRunning reports whether card is the running session.
func (e *Engine) IsRunning(card Card) bool {
	snap := e.Snapshot()
	return card != nil && snap.State == Running && snap.Card == keyOf(card)
}

// Close flushes the active session and waits for in-flight saves until ctx is done.
//
// It is the shutdown path: a save still in flight when ctx expires is abandoned.
func (e *Engine) Close(ctx context.Context) error {
	e.StopActive()

	done := make(chan struct{})
	go func() {
		e.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for practice saves: %v", shared.ErrTimeout, ctx.Err())
	}
}

func (e *Engine) startLocked(card Card) {
	key := keyOf(card)

	if e.active != nil && e.active.key != key {
		e.stopLocked()
	}
	if e.active != nil && e.active.running {
		return
	}

	seconds := card.TotalSeconds()
	if seconds < 0 {
		seconds = 0
	}

	e.gen++
	s := &session{
		card:         card,
		key:          key,
		localSeconds: seconds,
		lastSaveMark: seconds,
		running:      true,
		gen:          e.gen,
	}
	e.active = s

	e.armWatchdogLocked(s)
	gen := s.gen
	s.ticker = e.clock.Every(e.tickInterval, func() { e.tick(gen) })

	card.SetTiming(true)
	card.Display(shared.FormatClock(s.localSeconds))

	e.logger.Debug("session started", "song", key.SongID, "exercise", key.ExerciseID, "seconds", seconds)
}

// stopLocked cancels the active session's schedules, flushes unsaved time and clears the active card.
func (e *Engine) stopLocked() {
	s := e.active
	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}

	if s.localSeconds > s.lastSaveMark {
		e.checkpointLocked(s)
	}

	s.card.SetTiming(false)
	e.active = nil

	e.logger.Debug("session stopped", "song", s.key.SongID, "exercise", s.key.ExerciseID, "seconds", s.localSeconds)
}

func (e *Engine) armWatchdogLocked(s *session) {
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
	gen := s.gen
	s.watchdog = e.clock.AfterFunc(e.inactivityLimit, func() { e.inactive(gen) })
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.active
	if s == nil || s.gen != gen || !s.running {
		return
	}

	s.localSeconds++
	s.card.SetTotalSeconds(s.localSeconds)
	s.card.Display(shared.FormatClock(s.localSeconds))

	if s.localSeconds-s.lastSaveMark >= e.saveInterval {
		e.checkpointLocked(s)
	}
}

func (e *Engine) inactive(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.active
	if s == nil || s.gen != gen || !s.running {
		return
	}

	e.logger.Info("stopping idle session", "song", s.key.SongID, "exercise", s.key.ExerciseID, "limit", e.inactivityLimit)
	e.stopLocked()
}

// checkpointLocked dispatches the unsaved delta and advances the save mark without waiting for the result.
func (e *Engine) checkpointLocked(s *session) {
	delta := s.localSeconds - s.lastSaveMark
	if delta <= 0 {
		return
	}

	now := e.clock.Now()
	stamp := now.UTC().Format(time.RFC3339)
	total := s.localSeconds

	e.save(s.key.SongID, s.key.ExerciseID,
		models.ExercisePatch{TotalPracticedSeconds: &total, LastPracticedAt: &stamp},
		models.DailyLogDelta{Date: now.Format(shared.DateLayout), ExerciseID: s.key.ExerciseID, Seconds: delta})

	s.lastSaveMark = s.localSeconds

	e.logger.Debug("checkpoint dispatched", "song", s.key.SongID, "exercise", s.key.ExerciseID, "total", total, "delta", delta)
}

// save dispatches the exercise overwrite and the daily-log delta as two independent fire-and-forget requests.
func (e *Engine) save(songID, exerciseID string, patch models.ExercisePatch, delta models.DailyLogDelta) {
	if e.store == nil {
		return
	}

	e.fire(func(ctx context.Context) error {
		return e.store.PatchExercise(ctx, songID, exerciseID, patch)
	}, "exercise update failed", songID, exerciseID)

	e.fire(func(ctx context.Context) error {
		return e.store.PatchDailyLog(ctx, songID, delta)
	}, "daily log update failed", songID, exerciseID)
}

func (e *Engine) fire(call func(context.Context) error, failure, songID, exerciseID string) {
	e.pending.Add(1)
	e.dispatch(func() {
		defer e.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.saveTimeout)
		defer cancel()

		if err := call(ctx); err != nil {
			e.logger.Warn(failure, "song", songID, "exercise", exerciseID, "error", err)
		}
	})
}
