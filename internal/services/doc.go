// Package services implements the HTTP client for the practx API.
//
// [APIService] keeps the raw request helpers (Get, Post, Patch, Delete returning an [APIResponse]) and layers
// typed calls for songs, exercises and logs on top of them.
//
// # Practice Store
//
// APIService satisfies [practice.Store], so the practice engine saves through it:
//   - PatchExercise sends PATCH /api/songs/{songId}/exercises/{exerciseId} with absolute totals
//   - PatchDailyLog sends PATCH /api/songs/{songId}/daily-log with an additive delta
//
// # Error Handling
//
// Transport failures and non-2xx responses are returned as errors from the shared package:
//   - [shared.ErrAPIRequest] : request failed or the server answered with an error status
//   - [shared.ErrNotFound] : the server answered 404
//   - [shared.ErrServiceUnavailable] : the health check failed
package services
