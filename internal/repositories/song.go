package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
)

const exerciseColumns = `id, name, section_id, difficulty, stage, total_practiced_seconds, total_reps, last_practiced_at, created_at,
	is_transition, transition_from, transition_to, is_tracked`

const insertExerciseQuery = `
	INSERT INTO exercises (song_id, ` + exerciseColumns + `, position)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// SongRepository persists songs together with their exercises.
type SongRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSongRepository creates a new SongRepository with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db, now: time.Now}
}

// Save creates or replaces a song and its exercise list.
//
// Exercises that already exist keep their stage, practice totals, last practiced time and creation time, so
// editing a song's structure never discards recorded practice. Exercises missing from song are removed.
func (r *SongRepository) Save(song *models.Song) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := r.now()
	return withTx(r.db, func(tx *sql.Tx) error {
		var createdAt string
		err := tx.QueryRow(`SELECT created_at FROM songs WHERE id = ?`, song.ID).Scan(&createdAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to query song: %w", err)
		default:
			song.CreatedAt = createdAt
		}

		existing, err := loadExercises(tx, song.ID)
		if err != nil {
			return err
		}
		previous := make(map[string]models.Exercise, len(existing))
		for _, ex := range existing {
			previous[ex.ID] = ex
		}

		song.Normalize(now)
		for i := range song.Exercises {
			ex := &song.Exercises[i]
			if old, ok := previous[ex.ID]; ok {
				ex.Stage = old.Stage
				ex.TotalPracticedSeconds = old.TotalPracticedSeconds
				ex.TotalReps = old.TotalReps
				ex.LastPracticedAt = old.LastPracticedAt
				ex.CreatedAt = old.CreatedAt
			}
		}

		query := `
			INSERT INTO songs (id, title, artist, tempo, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				artist = excluded.artist,
				tempo = excluded.tempo,
				updated_at = excluded.updated_at
		`
		if _, err := tx.Exec(query, song.ID, song.Title, song.Artist, song.Tempo, song.CreatedAt, timestamp(now)); err != nil {
			return fmt.Errorf("failed to save song: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM exercises WHERE song_id = ?`, song.ID); err != nil {
			return fmt.Errorf("failed to clear exercises: %w", err)
		}

		for i, ex := range song.Exercises {
			if err := insertExercise(tx, song.ID, ex, i); err != nil {
				return err
			}
		}

		return nil
	})
}

func insertExercise(tx *sql.Tx, songID string, ex models.Exercise, position int) error {
	_, err := tx.Exec(insertExerciseQuery,
		songID,
		ex.ID,
		ex.Name,
		ex.SectionID,
		ex.Difficulty,
		ex.Stage,
		ex.TotalPracticedSeconds,
		ex.TotalReps,
		ex.LastPracticedAt,
		ex.CreatedAt,
		ex.IsTransition,
		ex.TransitionBetween[0],
		ex.TransitionBetween[1],
		ex.IsTracked,
		position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert exercise %s: %w", ex.ID, err)
	}
	return nil
}

// Get retrieves a song with its exercises in their saved order.
func (r *SongRepository) Get(id string) (*models.Song, error) {
	song, err := scanSong(r.db.QueryRow(`SELECT id, title, artist, tempo, created_at FROM songs WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	exercises, err := loadExercises(r.db, id)
	if err != nil {
		return nil, err
	}
	song.Exercises = exercises

	return song, nil
}

// List retrieves every song ordered by title.
func (r *SongRepository) List() ([]*models.Song, error) {
	rows, err := r.db.Query(`SELECT id, title, artist, tempo, created_at FROM songs ORDER BY title ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}

	var songs []*models.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, song := range songs {
		if song.Exercises, err = loadExercises(r.db, song.ID); err != nil {
			return nil, err
		}
	}

	return songs, nil
}

// Delete removes a song, its exercises and both of its logs.
func (r *SongRepository) Delete(id string) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"exercises", "daily_log_entries", "stage_log_entries"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE song_id = ?`, id); err != nil {
				return fmt.Errorf("failed to delete from %s: %w", table, err)
			}
		}

		result, err := tx.Exec(`DELETE FROM songs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete song: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrSongNotFound, id)
		}
		return nil
	})
}

// PatchExercise overwrites the fields present in patch and returns the updated exercise.
//
// A stage change is appended to the stage log in the same transaction.
func (r *SongRepository) PatchExercise(songID, exerciseID string, patch models.ExercisePatch) (*models.Exercise, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := r.now()
	var updated *models.Exercise

	err := withTx(r.db, func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT `+exerciseColumns+` FROM exercises WHERE song_id = ? AND id = ?`, songID, exerciseID)
		ex, err := scanExercise(row)
		if errors.Is(err, sql.ErrNoRows) {
			return missingExercise(tx, songID, exerciseID)
		}
		if err != nil {
			return fmt.Errorf("failed to query exercise: %w", err)
		}

		if patch.Stage != nil && *patch.Stage != ex.Stage {
			ex.Stage = *patch.Stage
			entry := models.StageLogEntry{ExerciseID: exerciseID, Stage: ex.Stage, Timestamp: timestamp(now)}
			if err := appendStage(tx, songID, entry); err != nil {
				return err
			}
		}
		if patch.TotalPracticedSeconds != nil {
			ex.TotalPracticedSeconds = *patch.TotalPracticedSeconds
		}
		if patch.TotalReps != nil {
			ex.TotalReps = *patch.TotalReps
		}
		if patch.LastPracticedAt != nil {
			stamp := *patch.LastPracticedAt
			ex.LastPracticedAt = &stamp
		}

		query := `
			UPDATE exercises
			SET stage = ?, total_practiced_seconds = ?, total_reps = ?, last_practiced_at = ?
			WHERE song_id = ? AND id = ?
		`
		if _, err := tx.Exec(query, ex.Stage, ex.TotalPracticedSeconds, ex.TotalReps, ex.LastPracticedAt, songID, exerciseID); err != nil {
			return fmt.Errorf("failed to update exercise: %w", err)
		}
		if err := touchSong(tx, songID, now); err != nil {
			return err
		}

		updated = ex
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// ToggleTransition sets whether the transition between exercises a and b is tracked.
//
// An existing transition matches in either order and keeps its practice totals. When none exists and track is
// set, a new stage 1 transition named after both exercises is appended to the song. Untracking a transition that
// was never created is a no-op and returns a nil exercise.
func (r *SongRepository) ToggleTransition(songID, a, b string, track bool) (*models.Exercise, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return nil, fmt.Errorf("%w: both exercise ids are required", shared.ErrInvalidInput)
	}
	if a == b {
		return nil, fmt.Errorf("%w: a transition needs two different exercises", shared.ErrInvalidInput)
	}

	now := r.now()
	var result *models.Exercise

	err := withTx(r.db, func(tx *sql.Tx) error {
		ok, err := songExists(tx, songID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", shared.ErrSongNotFound, songID)
		}

		exercises, err := loadExercises(tx, songID)
		if err != nil {
			return err
		}

		var from, to *models.Exercise
		for i := range exercises {
			ex := &exercises[i]
			if ex.Connects(a, b) {
				ex.IsTracked = track
				query := `UPDATE exercises SET is_tracked = ? WHERE song_id = ? AND id = ?`
				if _, err := tx.Exec(query, track, songID, ex.ID); err != nil {
					return fmt.Errorf("failed to update transition: %w", err)
				}
				result = ex
				return touchSong(tx, songID, now)
			}
			switch ex.ID {
			case a:
				from = ex
			case b:
				to = ex
			}
		}

		if !track {
			return nil
		}
		if from == nil {
			return fmt.Errorf("%w: %s", shared.ErrExerciseNotFound, a)
		}
		if to == nil {
			return fmt.Errorf("%w: %s", shared.ErrExerciseNotFound, b)
		}

		ex := models.Exercise{
			ID:                shared.GenerateID(),
			Name:              models.TransitionName(from.Name, to.Name),
			Difficulty:        1,
			Stage:             models.MinStage,
			CreatedAt:         timestamp(now),
			IsTransition:      true,
			TransitionBetween: [2]string{a, b},
			IsTracked:         true,
		}
		if err := insertExercise(tx, songID, ex, len(exercises)); err != nil {
			return err
		}
		result = &ex
		return touchSong(tx, songID, now)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func touchSong(tx *sql.Tx, songID string, now time.Time) error {
	if _, err := tx.Exec(`UPDATE songs SET updated_at = ? WHERE id = ?`, timestamp(now), songID); err != nil {
		return fmt.Errorf("failed to touch song: %w", err)
	}
	return nil
}

// Exists reports whether a song with id is stored.
func (r *SongRepository) Exists(id string) (bool, error) {
	return songExists(r.db, id)
}

func songExists(q execer, id string) (bool, error) {
	var n int
	if err := q.QueryRow(`SELECT COUNT(1) FROM songs WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query song: %w", err)
	}
	return n > 0, nil
}

func missingExercise(q execer, songID, exerciseID string) error {
	ok, err := songExists(q, songID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSongNotFound, songID)
	}
	return fmt.Errorf("%w: %s", shared.ErrExerciseNotFound, exerciseID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSong(s scanner) (*models.Song, error) {
	var (
		song  models.Song
		tempo sql.NullFloat64
	)

	err := s.Scan(&song.ID, &song.Title, &song.Artist, &tempo, &song.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	if tempo.Valid {
		song.Tempo = &tempo.Float64
	}
	song.Exercises = []models.Exercise{}

	return &song, nil
}

func scanExercise(s scanner) (*models.Exercise, error) {
	var (
		ex   models.Exercise
		last sql.NullString
	)

	err := s.Scan(
		&ex.ID,
		&ex.Name,
		&ex.SectionID,
		&ex.Difficulty,
		&ex.Stage,
		&ex.TotalPracticedSeconds,
		&ex.TotalReps,
		&last,
		&ex.CreatedAt,
		&ex.IsTransition,
		&ex.TransitionBetween[0],
		&ex.TransitionBetween[1],
		&ex.IsTracked,
	)
	if err != nil {
		return nil, err
	}

	if last.Valid {
		ex.LastPracticedAt = &last.String
	}
	return &ex, nil
}

func loadExercises(q execer, songID string) ([]models.Exercise, error) {
	rows, err := q.Query(`SELECT `+exerciseColumns+` FROM exercises WHERE song_id = ? ORDER BY position ASC`, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exercises: %w", err)
	}
	defer rows.Close()

	exercises := []models.Exercise{}
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		exercises = append(exercises, *ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return exercises, nil
}
