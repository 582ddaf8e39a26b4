// Package ui implements the interactive practice timer using bubbletea's Elm architecture.
//
// The TUI loads one song and shows each exercise as a card in a [list.Model]:
//  1. [LoadingView] : fetch the song through a [SongLoader]
//  2. [CardsView] : start, pause or stop the timer on a card and add reps
//  3. [QuitView] : the active session has been stopped and flushed
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Timing itself lives in [practice.Engine]; the model forwards every key press and mouse event to
// [practice.Engine.NotifyActivity] and redraws on a one second tick.
//
// Keyboard navigation uses vim-style bindings (j/k, enter/space, s, +, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
