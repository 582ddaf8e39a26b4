package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/repositories"
	"github.com/desertthunder/practx/internal/server"
	"github.com/desertthunder/practx/internal/services"
	"github.com/desertthunder/practx/internal/shared"
	tu "github.com/desertthunder/practx/internal/testing"
	"github.com/urfave/cli/v3"
)

type testEnv struct {
	runner    *Runner
	output    *bytes.Buffer
	songs     *repositories.SongRepository
	dailyLogs *repositories.DailyLogRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	env := &testEnv{
		output:    &bytes.Buffer{},
		songs:     repositories.NewSongRepository(db),
		dailyLogs: repositories.NewDailyLogRepository(db),
	}
	stores := server.Stores{
		Songs:     env.songs,
		DailyLogs: env.dailyLogs,
		StageLogs: repositories.NewStageLogRepository(db),
	}

	logger := shared.NewLogger(io.Discard)
	srv := httptest.NewServer(server.NewAPIRouter(stores, shared.ServerConfig{}, logger))
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})

	env.runner = NewRunner(RunnerOpts{
		API:    services.NewAPIService(srv.URL, srv.Client()),
		Logger: logger,
		Output: env.output,
	})

	song := &models.Song{
		ID:     "song-1",
		Title:  "Giant Steps",
		Artist: "Coltrane",
		Exercises: []models.Exercise{
			{ID: "ex-1", Name: "Head", Stage: 2, TotalPracticedSeconds: 600},
			{ID: "ex-2", Name: "Changes", Stage: 1},
		},
	}
	if err := env.songs.Save(song); err != nil {
		t.Fatalf("failed to seed song: %v", err)
	}
	return env
}

func (e *testEnv) run(args ...string) error {
	app := &cli.Command{
		Name:     "practx",
		Commands: e.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"practx"}, args...))
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			api := services.NewAPIService("http://example.test", nil)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "practx.toml",
				Logger:     logger,
				Output:     output,
				API:        api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "practx.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.library == nil {
				t.Error("expected library engine to be created")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil api uses client config", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Client.BaseURL = "http://10.0.0.5:9000"
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.api == nil {
				t.Fatal("expected api to be created")
			}
			if runner.api.BaseURL() != "http://10.0.0.5:9000" {
				t.Errorf("expected base URL from config, got %s", runner.api.BaseURL())
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "serve", "song", "practice", "reps", "log"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})
}

func TestSongCommands(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("song", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := env.output.String()
		if !strings.Contains(out, "Giant Steps - Coltrane") {
			t.Errorf("expected song title, got %s", out)
		}
		if !strings.Contains(out, "2 exercises") || !strings.Contains(out, "10m 00s practiced") {
			t.Errorf("expected totals, got %s", out)
		}
	})

	t.Run("List JSON", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("song", "list", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var summaries []models.SongSummary
		if err := json.Unmarshal(env.output.Bytes(), &summaries); err != nil {
			t.Fatalf("expected JSON output: %v", err)
		}
		if len(summaries) != 1 || summaries[0].ExerciseCount != 2 {
			t.Errorf("unexpected summaries: %+v", summaries)
		}
	})

	t.Run("Show", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("song", "show", "song-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := env.output.String()
		for _, want := range []string{"Giant Steps", "Head", "Learning", "10:00", "Changes"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %s", want, out)
			}
		}
	})

	t.Run("Show Missing Song", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.run("song", "show", "nope")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Import", func(t *testing.T) {
		env := newTestEnv(t)
		path := writeTestFile(t, "blue.yaml", "title: Blue Bossa\nexercises:\n  - name: Head\n  - name: Solo\n")

		if err := env.run("song", "import", "--rate", "1000", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(env.output.String(), "Imported 1 of 1 songs") {
			t.Errorf("expected import summary, got %s", env.output.String())
		}
		songs, err := env.songs.List()
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(songs) != 2 {
			t.Fatalf("expected 2 songs, got %d", len(songs))
		}
		for _, s := range songs {
			if s.Title == "Blue Bossa" && len(s.Exercises) != 2 {
				t.Errorf("expected 2 imported exercises, got %d", len(s.Exercises))
			}
		}
	})

	t.Run("Import Without Paths", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.run("song", "import")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Dump", func(t *testing.T) {
		env := newTestEnv(t)
		path := filepath.Join(t.TempDir(), "dump.json")

		if err := env.run("song", "dump", "--output", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "Giant Steps") {
			t.Error("expected dump to contain the song")
		}
		if !strings.Contains(env.output.String(), "Dumped 1 songs") {
			t.Errorf("expected dump summary, got %s", env.output.String())
		}
	})

	t.Run("Transition", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("song", "transition", "--song", "song-1", "--from", "ex-1", "--to", "ex-2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "Tracking Head → Changes") {
			t.Errorf("expected tracking confirmation, got %s", env.output.String())
		}

		if err := env.run("song", "transition", "--song", "song-1", "--from", "ex-2", "--to", "ex-1", "--untrack"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "Stopped tracking Head → Changes") {
			t.Errorf("expected untrack confirmation, got %s", env.output.String())
		}

		song, err := env.songs.Get("song-1")
		if err != nil {
			t.Fatalf("failed to get song: %v", err)
		}
		if len(song.Exercises) != 3 || !song.Exercises[2].IsTransition || song.Exercises[2].IsTracked {
			t.Errorf("expected one untracked transition, got %+v", song.Exercises)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("song", "delete", "song-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := env.songs.Get("song-1"); !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("expected song to be deleted, got %v", err)
		}
	})
}

func TestRepsCommand(t *testing.T) {
	t.Run("Adds Reps Through Engine", func(t *testing.T) {
		env := newTestEnv(t)

		if err := env.run("reps", "add", "--song", "song-1", "--exercise", "ex-2", "--count", "3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(env.output.String(), "Changes: 3 reps") {
			t.Errorf("expected confirmation, got %s", env.output.String())
		}

		song, err := env.songs.Get("song-1")
		if err != nil {
			t.Fatalf("failed to get song: %v", err)
		}
		ex := song.Exercise("ex-2")
		if ex.TotalReps != 3 {
			t.Errorf("expected 3 reps, got %d", ex.TotalReps)
		}
		if ex.LastPracticedAt == nil {
			t.Error("expected lastPracticedAt to be set")
		}

		logs, err := env.dailyLogs.GetAll("song-1")
		if err != nil {
			t.Fatalf("failed to get daily logs: %v", err)
		}
		if len(logs) != 1 || logs[0].Entries[0].Reps != 3 {
			t.Errorf("expected one daily entry with 3 reps, got %+v", logs)
		}
	})

	t.Run("Rejects Non Positive Count", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.run("reps", "add", "--song", "song-1", "--exercise", "ex-1", "--count", "0")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Unknown Exercise", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.run("reps", "add", "--song", "song-1", "--exercise", "nope")
		if !errors.Is(err, shared.ErrExerciseNotFound) {
			t.Errorf("expected ErrExerciseNotFound, got %v", err)
		}
	})
}

func TestLogCommands(t *testing.T) {
	seed := func(t *testing.T, env *testEnv) {
		t.Helper()
		for _, d := range []models.DailyLogDelta{
			{Date: "2025-03-13", ExerciseID: "ex-1", Seconds: 300},
			{Date: "2025-03-14", ExerciseID: "ex-1", Seconds: 90, Reps: 2},
			{Date: "2025-03-14", ExerciseID: "ex-2", Seconds: 30},
		} {
			if err := env.dailyLogs.Upsert("song-1", d); err != nil {
				t.Fatalf("failed to seed daily log: %v", err)
			}
		}
	}

	t.Run("Show Text", func(t *testing.T) {
		env := newTestEnv(t)
		seed(t, env)

		if err := env.run("log", "show", "--song", "song-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := env.output.String()
		if !strings.Contains(out, "Days: 2") || !strings.Contains(out, "2025-03-14  2:00  2 reps") {
			t.Errorf("unexpected text report: %s", out)
		}
	})

	t.Run("Show Range CSV", func(t *testing.T) {
		env := newTestEnv(t)
		seed(t, env)

		if err := env.run("log", "show", "--song", "song-1", "--from", "2025-03-14", "--format", "csv"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := env.output.String()
		if strings.Contains(out, "2025-03-13") {
			t.Errorf("expected range to exclude 2025-03-13, got %s", out)
		}
		if !strings.Contains(out, "2025-03-14,ex-1,Head,90,2") {
			t.Errorf("expected CSV row, got %s", out)
		}
	})

	t.Run("Show To File", func(t *testing.T) {
		env := newTestEnv(t)
		seed(t, env)
		path := filepath.Join(t.TempDir(), "log.md")

		if err := env.run("log", "show", "--song", "song-1", "--format", "markdown", "--output", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "## 2025-03-14") {
			t.Error("expected markdown day heading")
		}
	})

	t.Run("Show Unknown Format", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.run("log", "show", "--song", "song-1", "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("Stages", func(t *testing.T) {
		env := newTestEnv(t)
		stage := 4
		if _, err := env.songs.PatchExercise("song-1", "ex-1", models.ExercisePatch{Stage: &stage}); err != nil {
			t.Fatalf("failed to patch stage: %v", err)
		}

		if err := env.run("log", "stages", "--song", "song-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := env.output.String()
		if !strings.Contains(out, "Stage changes: 1") || !strings.Contains(out, "Up to tempo") {
			t.Errorf("unexpected stage report: %s", out)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("Config", func(t *testing.T) {
		env := newTestEnv(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := env.run("setup", "config", "--output", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := env.run("setup", "config", "--output", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
		}
		if err := env.run("setup", "config", "--output", path, "--force"); err != nil {
			t.Errorf("expected --force to overwrite, got %v", err)
		}

		cfg, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("written config does not load: %v", err)
		}
		if cfg.Practice.SaveIntervalSeconds != 30 {
			t.Errorf("expected default save interval, got %d", cfg.Practice.SaveIntervalSeconds)
		}
	})

	t.Run("Database", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "practx.db")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(io.Discard)})

		app := &cli.Command{Name: "practx", Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"practx", "setup", "database"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, config.Database.Path)
		if !strings.Contains(output.String(), "schema version") {
			t.Errorf("expected schema version, got %s", output.String())
		}
	})
}
