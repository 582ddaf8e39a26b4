// package formatter renders practice logs as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
)

// Supported export formats.
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// DailyLogExport pairs a song's daily logs with the names needed to label them.
type DailyLogExport struct {
	SongID    string
	Title     string
	Exercises map[string]string // exercise id → name
	Logs      []models.DailyLog
}

// NewDailyLogExport builds an export for song. A nil song leaves exercises labelled by id.
func NewDailyLogExport(songID string, song *models.Song, logs []models.DailyLog) *DailyLogExport {
	export := &DailyLogExport{SongID: songID, Title: songID, Exercises: map[string]string{}, Logs: logs}
	if song != nil {
		export.Title = song.Title
		for _, ex := range song.Exercises {
			export.Exercises[ex.ID] = ex.Name
		}
	}
	return export
}

// ExerciseName returns the exercise's name, falling back to its id.
func (e *DailyLogExport) ExerciseName(id string) string {
	if name := e.Exercises[id]; name != "" {
		return name
	}
	return id
}

// Totals sums seconds and reps across every day.
func (e *DailyLogExport) Totals() (seconds, reps int) {
	for _, day := range e.Logs {
		s, r := day.Totals()
		seconds += s
		reps += r
	}
	return seconds, reps
}

// ExportDailyLogsToCSV writes one row per day and exercise with columns: Date, ExerciseID, Exercise, Seconds, Reps
func ExportDailyLogsToCSV(export *DailyLogExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Date", "ExerciseID", "Exercise", "Seconds", "Reps"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, day := range export.Logs {
		for _, entry := range day.Entries {
			record := []string{
				day.Date,
				entry.ExerciseID,
				export.ExerciseName(entry.ExerciseID),
				strconv.Itoa(entry.Seconds),
				strconv.Itoa(entry.Reps),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportDailyLogsToMarkdown renders a section per day with a table of exercises and the day's total.
func ExportDailyLogsToMarkdown(export *DailyLogExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.Title))

	seconds, reps := export.Totals()
	buf.WriteString(fmt.Sprintf("**Days practiced**: %d\n", len(export.Logs)))
	buf.WriteString(fmt.Sprintf("**Total time**: %s\n", shared.FormatDuration(seconds)))
	buf.WriteString(fmt.Sprintf("**Total reps**: %d\n\n", reps))

	for _, day := range export.Logs {
		daySeconds, dayReps := day.Totals()
		buf.WriteString(fmt.Sprintf("## %s\n\n", day.Date))
		buf.WriteString("| Exercise | Time | Reps |\n")
		buf.WriteString("| --- | --- | --- |\n")
		for _, entry := range day.Entries {
			name := strings.ReplaceAll(export.ExerciseName(entry.ExerciseID), "|", `\|`)
			buf.WriteString(fmt.Sprintf("| %s | %s | %d |\n", name, shared.FormatClock(entry.Seconds), entry.Reps))
		}
		buf.WriteString(fmt.Sprintf("| **Total** | %s | %d |\n\n", shared.FormatClock(daySeconds), dayReps))
	}

	return buf.Bytes(), nil
}

// ExportDailyLogsToText converts daily logs to an indented plain text report.
func ExportDailyLogsToText(export *DailyLogExport) ([]byte, error) {
	var buf bytes.Buffer

	seconds, reps := export.Totals()
	buf.WriteString(fmt.Sprintf("Song: %s\n", export.Title))
	buf.WriteString(fmt.Sprintf("Days: %d  Time: %s  Reps: %d\n", len(export.Logs), shared.FormatDuration(seconds), reps))

	for _, day := range export.Logs {
		daySeconds, dayReps := day.Totals()
		buf.WriteString(fmt.Sprintf("\n%s  %s  %d reps\n", day.Date, shared.FormatClock(daySeconds), dayReps))
		for _, entry := range day.Entries {
			buf.WriteString(fmt.Sprintf("  %-24s %8s %4d\n", export.ExerciseName(entry.ExerciseID), shared.FormatClock(entry.Seconds), entry.Reps))
		}
	}

	return buf.Bytes(), nil
}

// ExportDailyLogs renders export in the named format.
func ExportDailyLogs(export *DailyLogExport, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText, "txt":
		return ExportDailyLogsToText(export)
	case FormatCSV:
		return ExportDailyLogsToCSV(export)
	case FormatMarkdown, "md":
		return ExportDailyLogsToMarkdown(export)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want text, csv or markdown)", shared.ErrInvalidFlag, format)
	}
}

// ExportStageLogToText lists stage changes oldest first with the stage's display name.
func ExportStageLogToText(export *DailyLogExport, entries []models.StageLogEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Song: %s\n", export.Title))
	buf.WriteString(fmt.Sprintf("Stage changes: %d\n\n", len(entries)))

	for _, entry := range entries {
		buf.WriteString(fmt.Sprintf("%s  %-24s %d (%s)\n",
			entry.Timestamp, export.ExerciseName(entry.ExerciseID), entry.Stage, models.StageName(entry.Stage)))
	}

	return buf.Bytes(), nil
}

// WriteDailyLogExport renders export in format and writes it to path.
//
// Defaults to {songID}_daily_log.{ext} as the filename.
func WriteDailyLogExport(export *DailyLogExport, format, path string) (string, error) {
	data, err := ExportDailyLogs(export, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("%s_daily_log.%s", export.SongID, extension(format))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case FormatCSV:
		return "csv"
	case FormatMarkdown, "md":
		return "md"
	default:
		return "txt"
	}
}
