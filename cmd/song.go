package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
	"github.com/desertthunder/practx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SongList prints every song with its practice totals.
func (r *Runner) SongList(ctx context.Context, cmd *cli.Command) error {
	songs, err := r.api.ListSongs(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(songs, true)
	}

	if len(songs) == 0 {
		return r.writePlain("No songs yet. Import some with 'practx song import'.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Songs (%d)", len(songs)))
	for _, s := range songs {
		title := s.Title
		if s.Artist != "" {
			title = fmt.Sprintf("%s - %s", s.Title, s.Artist)
		}
		r.writePlain("%s\n", title)
		r.writePlain("  id: %s • %d exercises • %d mastered • %s practiced\n",
			s.ID, s.ExerciseCount, s.MasteredCount, shared.FormatDuration(s.TotalPracticedSeconds))
	}
	return nil
}

// SongShow prints one song and its exercises.
func (r *Runner) SongShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: song id is required", shared.ErrMissingArgument)
	}

	song, err := r.api.GetSong(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(song, true)
	}

	r.writePlainHeader(song.Title)
	if song.Artist != "" {
		r.writePlain("Artist: %s\n", song.Artist)
	}
	if song.Tempo != nil {
		r.writePlain("Tempo:  %.0f bpm\n", *song.Tempo)
	}
	r.writePlainln("Exercises:")
	for _, ex := range song.Exercises {
		if ex.IsTransition && !ex.IsTracked {
			continue
		}
		r.writePlain("  %-24s %-14s %8s %5d reps  (%s)\n",
			ex.Name, models.StageName(ex.Stage), shared.FormatClock(ex.TotalPracticedSeconds), ex.TotalReps, ex.ID)
	}
	return nil
}

// SongImport imports song definitions from files and directories.
func (r *Runner) SongImport(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one file or directory is required", shared.ErrMissingArgument)
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.library.BulkImport(ctx, progress, paths, tasks.BulkImportOpts{
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	})
	close(progress)
	<-done

	if result != nil {
		r.writePlainln("Imported %d of %d songs from %d files (%d failed)",
			result.SuccessfulSongs, result.TotalSongs, result.TotalFiles, len(result.Results)-result.SuccessfulSongs)
		for _, res := range result.Results {
			if !res.Success {
				r.logger.Warn("import failed", "path", res.Path, "title", res.Title, "error", res.Error)
			}
		}
	}
	return err
}

// SongDump writes the whole library with practice history to a JSON file.
func (r *Runner) SongDump(ctx context.Context, cmd *cli.Command) error {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
	}()

	result, err := r.library.Dump(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	for _, e := range result.Errors {
		r.logger.Warn("failed to fetch", "song", e.SongID, "endpoint", e.Endpoint, "error", e.Error)
	}

	path, err := tasks.WriteDump(result, cmd.String("output"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Dumped %d songs to %s\n", len(result.Songs), path)
}

// SongTransition tracks or untracks the transition between two exercises of a song.
func (r *Runner) SongTransition(ctx context.Context, cmd *cli.Command) error {
	songID, from, to := cmd.String("song"), cmd.String("from"), cmd.String("to")
	track := !cmd.Bool("untrack")

	ex, err := r.api.ToggleTransition(ctx, songID, from, to, track)
	if err != nil {
		return err
	}

	r.logger.Info("transition toggled", "song", songID, "from", from, "to", to, "track", track)
	switch {
	case ex == nil:
		return r.writePlain("No transition between %s and %s\n", from, to)
	case ex.IsTracked:
		return r.writePlain("✓ Tracking %s (%s)\n", ex.Name, ex.ID)
	default:
		return r.writePlain("✓ Stopped tracking %s\n", ex.Name)
	}
}

// SongDelete removes a song with its daily and stage logs.
func (r *Runner) SongDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: song id is required", shared.ErrMissingArgument)
	}

	if err := r.api.DeleteSong(ctx, id); err != nil {
		return err
	}

	r.logger.Info("song deleted", "song", id)
	return r.writePlain("✓ Deleted %s\n", id)
}
