package practice

import "sync"

// Card is the host's handle on one exercise card.
//
// The engine reads TotalSeconds once when a session starts, writes the running total back on every tick and
// pushes display text through Display. Implementations must not call back into the [Engine].
type Card interface {
	SongID() string
	ExerciseID() string
	TotalSeconds() int
	TotalReps() int
	SetTotalSeconds(seconds int)
	SetTotalReps(reps int)
	// Display receives the formatted elapsed time.
	Display(elapsed string)
	// SetTiming toggles the card's "timing" state.
	SetTiming(timing bool)
}

// CardKey identifies a card by its song and exercise.
type CardKey struct {
	SongID     string
	ExerciseID string
}

func keyOf(c Card) CardKey {
	return CardKey{SongID: c.SongID(), ExerciseID: c.ExerciseID()}
}

// CardState is a [Card] safe for concurrent reads by a renderer while the engine updates it.
type CardState struct {
	mu           sync.RWMutex
	songID       string
	exerciseID   string
	name         string
	totalSeconds int
	totalReps    int
	display      string
	timing       bool
}

var _ Card = (*CardState)(nil)

// NewCardState creates a card seeded with the exercise's persisted totals.
func NewCardState(songID, exerciseID, name string, totalSeconds, totalReps int) *CardState {
	return &CardState{
		songID:       songID,
		exerciseID:   exerciseID,
		name:         name,
		totalSeconds: totalSeconds,
		totalReps:    totalReps,
	}
}

func (c *CardState) SongID() string     { return c.songID }
func (c *CardState) ExerciseID() string { return c.exerciseID }
func (c *CardState) Name() string       { return c.name }

func (c *CardState) TotalSeconds() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalSeconds
}

func (c *CardState) TotalReps() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalReps
}

func (c *CardState) SetTotalSeconds(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalSeconds = seconds
}

func (c *CardState) SetTotalReps(reps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalReps = reps
}

func (c *CardState) Display(elapsed string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display = elapsed
}

func (c *CardState) SetTiming(timing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timing = timing
}

// Elapsed returns the last display text pushed by the engine.
func (c *CardState) Elapsed() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.display
}

// Timing reports whether the engine currently times this card.
func (c *CardState) Timing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timing
}
