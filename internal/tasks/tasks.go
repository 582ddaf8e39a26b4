// package tasks implements bulk operations against the song library.
//
// The core abstraction is LibraryEngine, which orchestrates song imports and library dumps.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
)

// Library is the subset of the server API the bulk operations need.
// [services.APIService] satisfies it.
type Library interface {
	ListSongs(ctx context.Context) ([]models.SongSummary, error)
	GetSong(ctx context.Context, songID string) (*models.Song, error)
	SaveSong(ctx context.Context, song *models.Song) (*models.Song, error)
	GetDailyLog(ctx context.Context, songID, from, to string) ([]models.DailyLog, error)
	GetStageLog(ctx context.Context, songID string) ([]models.StageLogEntry, error)
}

// EndpointResult represents a failed fetch for one song.
type EndpointResult struct {
	SongID   string
	Endpoint string
	Error    error
}

// SongDump is one song with its practice history.
type SongDump struct {
	Song      *models.Song           `json:"song"`
	DailyLogs []models.DailyLog      `json:"dailyLogs"`
	StageLog  []models.StageLogEntry `json:"stageLog"`
}

// DumpResult contains the whole library as fetched from the server.
type DumpResult struct {
	CreatedAt string           `json:"createdAt"`
	Songs     []SongDump       `json:"songs"`
	Errors    []EndpointResult `json:"-"`
}

type dumpError struct {
	SongID   string `json:"songId"`
	Endpoint string `json:"endpoint"`
	Error    string `json:"error"`
}

type dumpData struct {
	*DumpResult
	Errors []dumpError `json:"errors,omitempty"`
}

// LibraryEngine runs bulk operations against a [Library].
type LibraryEngine struct {
	library Library
	now     func() time.Time
}

// NewLibraryEngine creates a new LibraryEngine backed by library.
func NewLibraryEngine(library Library) *LibraryEngine {
	return &LibraryEngine{library: library, now: time.Now}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Dump fetches every song with its daily log and stage log.
//
// A failed fetch for one song is recorded in [DumpResult.Errors] and the dump continues.
// Only a failure to list the library aborts.
func (e *LibraryEngine) Dump(ctx context.Context, progress chan<- ProgressUpdate) (*DumpResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library client not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchSongsUpdate())
	summaries, err := e.library.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list songs: %v", shared.ErrAPIRequest, err)
	}

	result := &DumpResult{
		CreatedAt: e.now().UTC().Format(time.RFC3339),
		Songs:     make([]SongDump, 0, len(summaries)),
		Errors:    []EndpointResult{},
	}
	total := len(summaries)

	for i, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		e.sendProgress(progress, fetchSongUpdate(FetchSong, i+1, total, summary.Title))
		song, err := e.library.GetSong(ctx, summary.ID)
		if err != nil {
			result.Errors = append(result.Errors, EndpointResult{SongID: summary.ID, Endpoint: "song", Error: err})
			continue
		}

		entry := SongDump{Song: song, DailyLogs: []models.DailyLog{}, StageLog: []models.StageLogEntry{}}

		e.sendProgress(progress, fetchSongUpdate(FetchDailyLog, i+1, total, summary.Title))
		if logs, err := e.library.GetDailyLog(ctx, summary.ID, "", ""); err != nil {
			result.Errors = append(result.Errors, EndpointResult{SongID: summary.ID, Endpoint: "daily-log", Error: err})
		} else if logs != nil {
			entry.DailyLogs = logs
		}

		e.sendProgress(progress, fetchSongUpdate(FetchStageLog, i+1, total, summary.Title))
		if stages, err := e.library.GetStageLog(ctx, summary.ID); err != nil {
			result.Errors = append(result.Errors, EndpointResult{SongID: summary.ID, Endpoint: "stage-log", Error: err})
		} else if stages != nil {
			entry.StageLog = stages
		}

		result.Songs = append(result.Songs, entry)
	}

	return result, nil
}

// WriteDump writes result as indented JSON to path, creating parent directories.
// An empty path defaults to practx_dump_{epoch}.json.
func WriteDump(result *DumpResult, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("practx_dump_%d.json", time.Now().Unix())
	}

	data := dumpData{DumpResult: result}
	for _, e := range result.Errors {
		data.Errors = append(data.Errors, dumpError{SongID: e.SongID, Endpoint: e.Endpoint, Error: e.Error.Error()})
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal dump: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("failed to write dump: %w", err)
	}
	return path, nil
}
