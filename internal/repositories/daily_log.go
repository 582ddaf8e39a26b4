package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
)

// DailyLogRepository stores per-day practice totals, one row per song, date and exercise.
type DailyLogRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewDailyLogRepository creates a new DailyLogRepository with the given database connection
func NewDailyLogRepository(db *sql.DB) *DailyLogRepository {
	return &DailyLogRepository{db: db, now: time.Now}
}

// Upsert adds the seconds and reps of delta to the exercise's entry for delta.Date, creating it if absent.
//
// The increment happens in one statement so concurrent deltas for the same entry are all counted.
func (r *DailyLogRepository) Upsert(songID string, delta models.DailyLogDelta) error {
	if err := delta.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO daily_log_entries (song_id, date, exercise_id, seconds, reps, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(song_id, date, exercise_id) DO UPDATE SET
			seconds = seconds + excluded.seconds,
			reps = reps + excluded.reps,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, songID, delta.Date, delta.ExerciseID, delta.Seconds, delta.Reps, timestamp(r.now()))
	if err != nil {
		return fmt.Errorf("failed to upsert daily log: %w", err)
	}
	return nil
}

// GetAll returns every daily log for a song, oldest date first.
func (r *DailyLogRepository) GetAll(songID string) ([]models.DailyLog, error) {
	return r.GetRange(songID, "", "")
}

// GetRange returns the song's daily logs with dates in [from, to]. An empty bound is open.
func (r *DailyLogRepository) GetRange(songID, from, to string) ([]models.DailyLog, error) {
	query := `
		SELECT date, exercise_id, seconds, reps
		FROM daily_log_entries
		WHERE song_id = ?
	`
	args := []any{songID}

	if from != "" {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date ASC, exercise_id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily logs: %w", err)
	}
	defer rows.Close()

	logs := []models.DailyLog{}
	for rows.Next() {
		var (
			date  string
			entry models.DailyLogEntry
		)
		if err := rows.Scan(&date, &entry.ExerciseID, &entry.Seconds, &entry.Reps); err != nil {
			return nil, fmt.Errorf("failed to scan daily log: %w", err)
		}

		if n := len(logs); n == 0 || logs[n-1].Date != date {
			logs = append(logs, models.DailyLog{Date: date, Entries: []models.DailyLogEntry{}})
		}
		last := &logs[len(logs)-1]
		last.Entries = append(last.Entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return logs, nil
}

// HasLogs reports whether any daily log entry exists for the song.
func (r *DailyLogRepository) HasLogs(songID string) (bool, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(1) FROM daily_log_entries WHERE song_id = ?`, songID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count daily logs: %w", err)
	}
	return n > 0, nil
}
