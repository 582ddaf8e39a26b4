package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// BulkImportOpts contains configuration for bulk song imports.
type BulkImportOpts struct {
	NumWorkers int     // Concurrent workers (default: 4)
	RateLimit  float64 // Requests per second (default: 10)
}

// SongImportResult is the outcome of importing one song.
type SongImportResult struct {
	Path    string
	SongID  string
	Title   string
	Success bool
	Error   error

	order int
}

// BulkImportResult summarizes a bulk import.
type BulkImportResult struct {
	TotalFiles      int
	TotalSongs      int
	SuccessfulSongs int
	FailedSongs     int
	Results         []SongImportResult
}

type songImportJob struct {
	path  string
	song  *models.Song
	order int
}

// BulkImport reads song definitions from paths and saves them concurrently with rate limiting.
//
// Directories are expanded to the JSON and YAML files they contain. A file that cannot be read or a song that
// fails validation is recorded as a failed result; the rest of the import continues.
func (e *LibraryEngine) BulkImport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	paths []string,
	opts BulkImportOpts,
) (*BulkImportResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library client not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10.0
	}

	files, err := CollectSongFiles(paths)
	if err != nil {
		return nil, err
	}

	result := &BulkImportResult{TotalFiles: len(files)}

	var jobs []songImportJob
	for i, path := range files {
		e.sendProgress(prog, readSourceUpdate(i+1, len(files), path))

		songs, err := ReadSongFile(path)
		if err != nil {
			e.sendProgress(prog, readFailedUpdate(i+1, len(files), path, err))
			result.Results = append(result.Results, SongImportResult{Path: path, Error: err, order: len(jobs) + len(result.Results)})
			continue
		}
		for _, song := range songs {
			jobs = append(jobs, songImportJob{path: path, song: song, order: len(jobs) + len(result.Results)})
		}
	}
	result.TotalSongs = len(jobs)

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	queue := make(chan songImportJob, len(jobs))
	results := make(chan SongImportResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.importWorker(ctx, &wg, queue, results)
	}

	go func() {
		defer close(queue)
		for i, job := range jobs {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case queue <- job:
			}

			e.sendProgress(prog, savingSongUpdate(i+1, len(jobs), job.song.Title))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulSongs++
			e.sendProgress(prog, saveCompletedUpdate(completed, len(jobs), res))
		} else {
			result.FailedSongs++
			e.sendProgress(prog, saveFailedUpdate(completed, len(jobs), res))
		}
	}

	sort.SliceStable(result.Results, func(i, j int) bool {
		return result.Results[i].order < result.Results[j].order
	})

	return result, ctx.Err()
}

// importWorker is a worker goroutine that saves songs from the jobs channel.
func (e *LibraryEngine) importWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan songImportJob,
	results chan<- SongImportResult,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.importSong(ctx, job)
	}
}

func (e *LibraryEngine) importSong(ctx context.Context, job songImportJob) SongImportResult {
	res := SongImportResult{Path: job.path, Title: job.song.Title, order: job.order}

	PrepareSong(job.song)
	res.SongID = job.song.ID

	if err := job.song.Validate(); err != nil {
		res.Error = fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		return res
	}

	saved, err := e.library.SaveSong(ctx, job.song)
	if err != nil {
		res.Error = err
		return res
	}

	res.SongID = saved.ID
	res.Success = true
	return res
}

// PrepareSong assigns generated ids to a song and its exercises where they are missing.
func PrepareSong(song *models.Song) {
	if strings.TrimSpace(song.ID) == "" {
		song.ID = shared.GenerateID()
	}
	for i := range song.Exercises {
		if strings.TrimSpace(song.Exercises[i].ID) == "" {
			song.Exercises[i].ID = shared.GenerateID()
		}
	}
}

// ReadSongFile decodes one song or a list of songs from a JSON or YAML file.
// The format follows the extension; .yaml and .yml are YAML, everything else is JSON.
func ReadSongFile(path string) ([]*models.Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		unmarshal = json.Unmarshal
	}

	var songs []*models.Song
	if err := unmarshal(data, &songs); err == nil {
		return songs, nil
	}

	var song models.Song
	if err := unmarshal(data, &song); err != nil {
		return nil, fmt.Errorf("%w: %s is not a song definition: %v", shared.ErrInvalidInput, path, err)
	}
	return []*models.Song{&song}, nil
}

// CollectSongFiles expands directories in paths to the .json, .yaml and .yml files they contain.
// Files named explicitly are kept regardless of extension.
func CollectSongFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: at least one file or directory is required", shared.ErrMissingArgument)
	}

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrFileNotFound, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".json", ".yaml", ".yml":
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}
	return files, nil
}
