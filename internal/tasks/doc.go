// Package tasks runs bulk operations against the song library with real-time progress reporting.
//
// # Core Operations
//
//  1. [LibraryEngine.BulkImport] : Import song definitions from files
//     - Expands directories to their .json, .yaml and .yml files
//     - Decodes one song or a list of songs per file
//     - Assigns ids to songs and exercises that lack one
//     - Saves through a rate-limited worker pool
//
//  2. [LibraryEngine.Dump] : Fetch the whole library
//     - Lists songs, then fetches each song with its daily log and stage log
//     - Records per-song failures without aborting
//     - [WriteDump] persists the result as JSON for backup or analysis
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [LibraryEngine] depends on a [Library], satisfied by services.APIService.
package tasks
