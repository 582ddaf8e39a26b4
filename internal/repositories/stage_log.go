package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
)

// StageLogRepository stores the append-only history of exercise stage changes.
type StageLogRepository struct {
	db *sql.DB
}

// NewStageLogRepository creates a new StageLogRepository with the given database connection
func NewStageLogRepository(db *sql.DB) *StageLogRepository {
	return &StageLogRepository{db: db}
}

// Append records a stage change for the song.
func (r *StageLogRepository) Append(songID string, entry models.StageLogEntry) error {
	return appendStage(r.db, songID, entry)
}

// BulkAppend records several stage changes atomically.
func (r *StageLogRepository) BulkAppend(songID string, entries []models.StageLogEntry) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		for _, entry := range entries {
			if err := appendStage(tx, songID, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetAll returns the song's stage changes in chronological order.
func (r *StageLogRepository) GetAll(songID string) ([]models.StageLogEntry, error) {
	query := `
		SELECT exercise_id, stage, timestamp
		FROM stage_log_entries
		WHERE song_id = ?
		ORDER BY timestamp ASC, rowid ASC
	`

	rows, err := r.db.Query(query, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage log: %w", err)
	}
	defer rows.Close()

	entries := []models.StageLogEntry{}
	for rows.Next() {
		var entry models.StageLogEntry
		if err := rows.Scan(&entry.ExerciseID, &entry.Stage, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan stage log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func appendStage(q execer, songID string, entry models.StageLogEntry) error {
	if entry.ExerciseID == "" || entry.Timestamp == "" {
		return fmt.Errorf("%w: stage log entry needs an exercise and timestamp", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO stage_log_entries (id, song_id, exercise_id, stage, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := q.Exec(query, shared.GenerateID(), songID, entry.ExerciseID, entry.Stage, entry.Timestamp); err != nil {
		return fmt.Errorf("failed to append stage log: %w", err)
	}
	return nil
}
