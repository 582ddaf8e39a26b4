// Package practice implements the practice-time accounting engine.
//
// An [Engine] owns at most one running per-exercise stopwatch. While a session runs it ticks once per
// [DefaultTickInterval], pushes the formatted elapsed time to the card's display, and checkpoints progress
// to a [Store] every [DefaultSaveInterval] seconds of unsaved time. Every exit path (explicit stop, switching
// to another card, inactivity, shutdown) flushes whatever was accumulated since the last checkpoint.
//
// # Saves
//
// A checkpoint sends two requests: an absolute overwrite of the exercise's totalPracticedSeconds and
// lastPracticedAt, and an additive delta to the day's practice log. Both are fire-and-forget: they run on
// their own goroutines, failures are logged and dropped, and the save mark advances on dispatch rather than
// on confirmation. A failed save therefore loses at most one interval of time, and the lost delta is never
// resent.
//
// # Inactivity
//
// A single-shot watchdog fires [DefaultInactivityLimit] after the last call to [Engine.NotifyActivity] and
// stops the session as if [Engine.Stop] had been called. Hosts call NotifyActivity for every qualifying input
// (key presses, clicks, touches, scrolling).
//
// # Concurrency
//
// Timer callbacks arrive on clock goroutines, so all session state sits behind the engine mutex. A
// generation counter ties each tick and watchdog wake to the session that scheduled it; callbacks belonging
// to a stopped session are discarded, so nothing acts on a session after Stop returns.
package practice
