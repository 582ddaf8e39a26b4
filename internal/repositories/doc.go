// Package repositories implements SQLite persistence for the practice tracker.
//
// Key Implementations:
//   - [SongRepository] : songs and their exercises, partial exercise updates
//   - [DailyLogRepository] : additive per-day practice totals
//   - [StageLogRepository] : append-only history of stage changes
//
// Exercise updates are absolute overwrites (last write wins per field), while daily-log writes are additive
// upserts performed in a single statement, so concurrent or reordered deltas for the same day never lose an
// increment.
//
// Lookups of missing songs or exercises return [shared.ErrSongNotFound] and [shared.ErrExerciseNotFound].
package repositories
