package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ReadSource Phase = iota
	SaveSong
	FetchSongs
	FetchSong
	FetchDailyLog
	FetchStageLog
)

func (p Phase) String() string {
	switch p {
	case ReadSource:
		return "read_source"
	case SaveSong:
		return "save_song"
	case FetchSongs:
		return "fetch_songs"
	case FetchSong:
		return "fetch_song"
	case FetchDailyLog:
		return "fetch_daily_log"
	case FetchStageLog:
		return "fetch_stage_log"
	default:
		return ""
	}
}

func readSourceUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Reading %s...", step, total, path),
	}
}

func readFailedUpdate(step, total int, path string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, path, err),
	}
}

func savingSongUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Importing: %s...", step, total, title),
	}
}

func saveCompletedUpdate(step, total int, res SongImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, res.Title, res.SongID),
		Data:    res,
	}
}

func saveFailedUpdate(step, total int, res SongImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func fetchSongsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSongs,
		Step:    1,
		Total:   1,
		Message: "Fetching song library...",
	}
}

func fetchSongUpdate(phase Phase, step, total int, title string) ProgressUpdate {
	var what string
	switch phase {
	case FetchDailyLog:
		what = "daily log"
	case FetchStageLog:
		what = "stage log"
	default:
		what = "song"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s for %s...", step, total, what, title),
	}
}
