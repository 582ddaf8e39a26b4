// Package server provides HTTP routing, middleware and the JSON API that stores practice progress.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so wildcards are read with
// [http.Request.PathValue] and a wrong method is answered with 405.
//
// # Routes
//
//	GET    /health
//	GET    /api/songs                                  → song summaries
//	POST   /api/songs                                  → create or replace a song
//	GET    /api/songs/{songId}
//	DELETE /api/songs/{songId}
//	PATCH  /api/songs/{songId}/exercises/{exerciseId}  → absolute overwrite of the given fields
//	GET    /api/songs/{songId}/daily-log[?from=&to=]
//	PATCH  /api/songs/{songId}/daily-log               → additive delta for one exercise and date
//	GET    /api/songs/{songId}/stage-log
//
// Errors are JSON objects of the form {"error": "..."}.
//
// # Middleware
//
//   - [RequestID] : tags requests with an X-Request-ID
//   - [Logging] : logs method, path, status and duration
//   - [Recover] : converts panics to 500 responses
//   - [RateLimit] : token bucket from golang.org/x/time/rate, 429 when empty
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
