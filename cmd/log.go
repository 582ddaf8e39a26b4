package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/practx/internal/formatter"
	"github.com/urfave/cli/v3"
)

// LogShow prints or writes a song's daily practice log in the requested format.
func (r *Runner) LogShow(ctx context.Context, cmd *cli.Command) error {
	songID := cmd.String("song")
	format := cmd.String("format")

	song, err := r.api.GetSong(ctx, songID)
	if err != nil {
		return err
	}

	logs, err := r.api.GetDailyLog(ctx, songID, cmd.String("from"), cmd.String("to"))
	if err != nil {
		return err
	}

	export := formatter.NewDailyLogExport(songID, song, logs)

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteDailyLogExport(export, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("daily log exported", "song", songID, "path", path)
		return r.writePlain("✓ Wrote %d days to %s\n", len(logs), path)
	}

	data, err := formatter.ExportDailyLogs(export, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// LogStages prints a song's stage change history.
func (r *Runner) LogStages(ctx context.Context, cmd *cli.Command) error {
	songID := cmd.String("song")

	song, err := r.api.GetSong(ctx, songID)
	if err != nil {
		return err
	}

	entries, err := r.api.GetStageLog(ctx, songID)
	if err != nil {
		return err
	}

	data, err := formatter.ExportStageLogToText(formatter.NewDailyLogExport(songID, song, nil), entries)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
