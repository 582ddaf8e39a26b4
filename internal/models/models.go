// package models defines the data model for the practice tracker
package models

import (
	"fmt"
	"strings"
	"time"
)

// Stage bounds. Stage 1 is "not started", stage 5 is "mastered".
const (
	MinStage = 1
	MaxStage = 5
)

// DefaultStageNames are the display names of the five practice stages.
var DefaultStageNames = [MaxStage]string{
	"Not started",
	"Learning",
	"Slow & clean",
	"Up to tempo",
	"Mastered",
}

// StageName returns the display name for stage, or "Unknown".
func StageName(stage int) string {
	if stage < MinStage || stage > MaxStage {
		return "Unknown"
	}
	return DefaultStageNames[stage-1]
}

// Exercise is one practice unit of a song with its accumulated practice totals.
type Exercise struct {
	ID                    string  `json:"id" yaml:"id"`
	Name                  string  `json:"name" yaml:"name"`
	SectionID             string  `json:"sectionId" yaml:"sectionId"`
	Difficulty            int     `json:"difficulty" yaml:"difficulty"`
	Stage                 int     `json:"stage" yaml:"stage"`
	TotalPracticedSeconds int     `json:"totalPracticedSeconds" yaml:"totalPracticedSeconds"`
	TotalReps             int     `json:"totalReps" yaml:"totalReps"`
	LastPracticedAt       *string `json:"lastPracticedAt" yaml:"lastPracticedAt"`
	CreatedAt             string  `json:"createdAt" yaml:"createdAt"`

	// Transition exercises time the move between two other exercises of the same song.
	IsTransition      bool      `json:"isTransition,omitempty" yaml:"isTransition,omitempty"`
	TransitionBetween [2]string `json:"transitionBetween,omitempty" yaml:"transitionBetween,omitempty"`
	IsTracked         bool      `json:"isTracked,omitempty" yaml:"isTracked,omitempty"`
}

// Connects reports whether ex is a transition between a and b, in either order.
func (ex *Exercise) Connects(a, b string) bool {
	if !ex.IsTransition {
		return false
	}
	from, to := ex.TransitionBetween[0], ex.TransitionBetween[1]
	return (from == a && to == b) || (from == b && to == a)
}

// TransitionName is the display name of the transition from a to b.
func TransitionName(a, b string) string {
	return a + " → " + b
}

// Song is the top-level domain model.
type Song struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Artist    string     `json:"artist" yaml:"artist"`
	Tempo     *float64   `json:"tempo" yaml:"tempo"`
	Exercises []Exercise `json:"exercises" yaml:"exercises"`
	CreatedAt string     `json:"createdAt" yaml:"createdAt"`
}

// Validate checks the fields required to persist a song.
func (s *Song) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("song id is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("song title is required")
	}
	seen := make(map[string]bool, len(s.Exercises))
	for i, ex := range s.Exercises {
		if strings.TrimSpace(ex.ID) == "" {
			return fmt.Errorf("exercise %d: id is required", i)
		}
		if seen[ex.ID] {
			return fmt.Errorf("exercise %d: duplicate id %q", i, ex.ID)
		}
		seen[ex.ID] = true
	}
	return nil
}

// Normalize clamps out-of-range stage and difficulty values and fills missing timestamps.
func (s *Song) Normalize(now time.Time) {
	stamp := now.UTC().Format(time.RFC3339)
	if s.CreatedAt == "" {
		s.CreatedAt = stamp
	}
	if s.Exercises == nil {
		s.Exercises = []Exercise{}
	}
	for i := range s.Exercises {
		ex := &s.Exercises[i]
		if ex.Stage < MinStage || ex.Stage > MaxStage {
			ex.Stage = MinStage
		}
		if ex.Difficulty < 1 || ex.Difficulty > 5 {
			ex.Difficulty = 1
		}
		if ex.CreatedAt == "" {
			ex.CreatedAt = stamp
		}
	}
}

// Exercise returns the exercise with the given id, or nil.
func (s *Song) Exercise(id string) *Exercise {
	for i := range s.Exercises {
		if s.Exercises[i].ID == id {
			return &s.Exercises[i]
		}
	}
	return nil
}

// LastPracticed returns the most recent lastPracticedAt across exercises.
func (s *Song) LastPracticed() *string {
	var latest *string
	for _, ex := range s.Exercises {
		if ex.LastPracticedAt != nil {
			if latest == nil || *ex.LastPracticedAt > *latest {
				latest = ex.LastPracticedAt
			}
		}
	}
	return latest
}

// SongSummary is used for the browse/list view.
type SongSummary struct {
	ID                    string  `json:"id"`
	Title                 string  `json:"title"`
	Artist                string  `json:"artist"`
	CreatedAt             string  `json:"createdAt"`
	ExerciseCount         int     `json:"exerciseCount"`
	MasteredCount         int     `json:"masteredCount"`
	StageCounts           [5]int  `json:"stageCounts"`
	TotalPracticedSeconds int     `json:"totalPracticedSeconds"`
	LastPracticedAt       *string `json:"lastPracticedAt"`
}

// ToSummary converts a Song to a SongSummary.
func (s *Song) ToSummary() SongSummary {
	summary := SongSummary{
		ID:              s.ID,
		Title:           s.Title,
		Artist:          s.Artist,
		CreatedAt:       s.CreatedAt,
		ExerciseCount:   len(s.Exercises),
		LastPracticedAt: s.LastPracticed(),
	}
	for _, ex := range s.Exercises {
		if ex.Stage >= MaxStage {
			summary.MasteredCount++
		}
		if ex.Stage >= MinStage && ex.Stage <= MaxStage {
			summary.StageCounts[ex.Stage-1]++
		}
		summary.TotalPracticedSeconds += ex.TotalPracticedSeconds
	}
	return summary
}

// ExercisePatch is a partial update of an exercise. Present fields overwrite the stored value.
type ExercisePatch struct {
	Stage                 *int    `json:"stage,omitempty"`
	TotalPracticedSeconds *int    `json:"totalPracticedSeconds,omitempty"`
	TotalReps             *int    `json:"totalReps,omitempty"`
	LastPracticedAt       *string `json:"lastPracticedAt,omitempty"`
}

// Validate rejects negative totals, out-of-range stages and malformed timestamps.
func (p ExercisePatch) Validate() error {
	if p.Stage != nil && (*p.Stage < MinStage || *p.Stage > MaxStage) {
		return fmt.Errorf("stage must be between %d and %d", MinStage, MaxStage)
	}
	if p.TotalPracticedSeconds != nil && *p.TotalPracticedSeconds < 0 {
		return fmt.Errorf("totalPracticedSeconds must be >= 0")
	}
	if p.TotalReps != nil && *p.TotalReps < 0 {
		return fmt.Errorf("totalReps must be >= 0")
	}
	if p.LastPracticedAt != nil {
		if _, err := time.Parse(time.RFC3339, *p.LastPracticedAt); err != nil {
			return fmt.Errorf("lastPracticedAt must be an RFC 3339 timestamp")
		}
	}
	return nil
}

// IsEmpty reports whether the patch carries no fields.
func (p ExercisePatch) IsEmpty() bool {
	return p.Stage == nil && p.TotalPracticedSeconds == nil && p.TotalReps == nil && p.LastPracticedAt == nil
}

// DailyLogEntry records practice time and reps for one exercise on one day.
type DailyLogEntry struct {
	ExerciseID string `json:"exerciseId"`
	Seconds    int    `json:"seconds"`
	Reps       int    `json:"reps"`
}

// DailyLog records all practice for a single day.
type DailyLog struct {
	Date    string          `json:"date"` // "2025-02-20"
	Entries []DailyLogEntry `json:"entries"`
}

// Totals sums seconds and reps across the day's entries.
func (d DailyLog) Totals() (seconds, reps int) {
	for _, e := range d.Entries {
		seconds += e.Seconds
		reps += e.Reps
	}
	return seconds, reps
}

// DailyLogDelta is an additive increment to one exercise's entry on one date.
type DailyLogDelta struct {
	Date       string `json:"date"`
	ExerciseID string `json:"exerciseId"`
	Seconds    int    `json:"seconds"`
	Reps       int    `json:"reps"`
}

// Validate requires a calendar date and exercise id and non-negative increments.
func (d DailyLogDelta) Validate() error {
	if d.Date == "" || d.ExerciseID == "" {
		return fmt.Errorf("missing required fields (date, exerciseId)")
	}
	if _, err := time.Parse("2006-01-02", d.Date); err != nil {
		return fmt.Errorf("date must be formatted YYYY-MM-DD")
	}
	if d.Seconds < 0 || d.Reps < 0 {
		return fmt.Errorf("seconds and reps must be >= 0")
	}
	return nil
}

// StageLogEntry records a stage change for an exercise.
type StageLogEntry struct {
	ExerciseID string `json:"exerciseId"`
	Stage      int    `json:"stage"`
	Timestamp  string `json:"timestamp"` // ISO 8601
}
