// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a default config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the config file to create",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// serveCommand runs the practice API server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the practice API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// songCommand handles song library operations
func songCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "song",
		Aliases: []string{"songs"},
		Usage:   "Song library operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List songs with practice totals",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SongList,
			},
			{
				Name:  "show",
				Usage: "Show a song and its exercises",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SongShow,
			},
			{
				Name:      "import",
				Usage:     "Import songs from JSON or YAML files or directories",
				ArgsUsage: "PATH...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent import workers",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Maximum save requests per second",
						Value: 10,
					},
				},
				Action: r.SongImport,
			},
			{
				Name:  "dump",
				Usage: "Dump every song with its daily and stage logs to JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: practx_dump_{epoch}.json)",
					},
				},
				Action: r.SongDump,
			},
			{
				Name:  "transition",
				Usage: "Track or untrack practising the move between two exercises",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song",
						Aliases:  []string{"s"},
						Usage:    "Song ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "from",
						Usage:    "Exercise ID the transition starts at",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Exercise ID the transition ends at",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "untrack",
						Usage: "Stop tracking the transition",
					},
				},
				Action: r.SongTransition,
			},
			{
				Name:  "delete",
				Usage: "Delete a song and its history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.SongDelete,
			},
		},
	}
}

// practiceCommand launches the practice timer TUI.
func practiceCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "practice",
		Aliases: []string{"p"},
		Usage:   "Launch the practice timer for a song",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "song",
				Aliases:  []string{"s"},
				Usage:    "Song ID",
				Required: true,
			},
		},
		Action: r.Practice,
	}
}

// repsCommand records repetitions without the TUI.
func repsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reps",
		Usage: "Record exercise repetitions",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add reps to an exercise",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song",
						Aliases:  []string{"s"},
						Usage:    "Song ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "exercise",
						Aliases:  []string{"e"},
						Usage:    "Exercise ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of reps",
						Value:   1,
					},
				},
				Action: r.RepsAdd,
			},
		},
	}
}

// logCommand reads practice history.
func logCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Practice history",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the daily practice log of a song",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song",
						Aliases:  []string{"s"},
						Usage:    "Song ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "First date to include (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "Last date to include (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, markdown",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.LogShow,
			},
			{
				Name:  "stages",
				Usage: "Show stage changes of a song",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "song",
						Aliases:  []string{"s"},
						Usage:    "Song ID",
						Required: true,
					},
				},
				Action: r.LogStages,
			},
		},
	}
}
