// Package models defines the practice-tracking domain types shared by the server, the HTTP client and the timer engine.
//
// Persistent records:
//   - [Song] : a piece of sheet music split into practice exercises
//   - [Exercise] : one practice unit with lifetime totals (seconds, reps, last practiced)
//   - [DailyLog] / [DailyLogEntry] : per-day, per-exercise practice deltas
//   - [StageLogEntry] : append-only history of stage changes
//
// Request payloads:
//   - [ExercisePatch] : partial, absolute-value overwrite of an exercise's fields
//   - [DailyLogDelta] : additive increment to one exercise's entry for one day
package models
