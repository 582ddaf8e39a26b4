package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/practx/internal/practice"
	"github.com/desertthunder/practx/internal/shared"
	"github.com/desertthunder/practx/internal/ui"
	"github.com/urfave/cli/v3"
)

// newEngine builds a practice engine saving through the API client with the configured timings.
func (r *Runner) newEngine(logger *log.Logger) *practice.Engine {
	cfg := r.config.Practice
	return practice.NewEngine(practice.EngineOpts{
		Store:           r.api,
		Logger:          logger,
		SaveInterval:    cfg.SaveIntervalSeconds,
		InactivityLimit: cfg.InactivityLimit(),
		SaveTimeout:     cfg.SaveTimeout(),
	})
}

// closeEngine stops any active session and waits for in-flight saves, bounded by the unload timeout.
func (r *Runner) closeEngine(engine *practice.Engine) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.Practice.UnloadTimeout())
	defer cancel()
	return engine.Close(ctx)
}

// Practice launches the practice timer TUI for one song.
//
// Logs go to the configured file so they do not interfere with rendering. Quitting, or an interrupt signal,
// stops the running timer and flushes its unsaved time before returning.
func (r *Runner) Practice(ctx context.Context, cmd *cli.Command) error {
	songID := cmd.String("song")
	if songID == "" {
		return fmt.Errorf("%w: --song is required", shared.ErrMissingArgument)
	}

	fileLogger, err := shared.NewFileLogger(r.config.Practice.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	engine := r.newEngine(fileLogger)
	model := ui.NewModel(ctx, r.api, engine, songID)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion())

	_, runErr := p.Run()

	if err := r.closeEngine(engine); err != nil {
		fileLogger.Warn("unsaved practice time may be lost", "song", songID, "error", err)
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", runErr)
	}
	return nil
}

// RepsAdd records reps on one exercise through the practice engine.
func (r *Runner) RepsAdd(ctx context.Context, cmd *cli.Command) error {
	songID := cmd.String("song")
	exerciseID := cmd.String("exercise")
	count := int(cmd.Int("count"))

	song, err := r.api.GetSong(ctx, songID)
	if err != nil {
		return err
	}
	ex := song.Exercise(exerciseID)
	if ex == nil {
		return fmt.Errorf("%w: %s in song %s", shared.ErrExerciseNotFound, exerciseID, songID)
	}

	engine := r.newEngine(r.logger)
	card := practice.NewCardState(song.ID, ex.ID, ex.Name, ex.TotalPracticedSeconds, ex.TotalReps)
	if err := engine.AddReps(card, count); err != nil {
		return err
	}
	if err := r.closeEngine(engine); err != nil {
		return err
	}

	return r.writePlain("✓ %s: %d reps\n", ex.Name, card.TotalReps())
}
