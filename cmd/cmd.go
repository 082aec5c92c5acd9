// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// scanCommand runs the fetch-and-reconcile pipeline over the library.
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Scan the library and fetch missing lyrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Library root to scan (overrides config)",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "Path to the processed-paths cache file (overrides config)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum concurrent lyrics lookups",
			},
			&cli.BoolFlag{
				Name:  "record",
				Usage: "Record the run in the history database (default: on when the database exists)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the summary as JSON",
			},
		},
		Action: r.Scan,
	}
}

// watchCommand keeps a library reconciled as files land in it.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Scan the library, then fetch lyrics for files as they appear",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Library root to watch (overrides config)",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "Path to the processed-paths cache file (overrides config)",
			},
			&cli.IntFlag{
				Name:  "debounce",
				Usage: "Quiet window in milliseconds before a batch is processed",
			},
		},
		Action: r.Watch,
	}
}

// embedCommand writes saved lyrics into MP3 tags.
func embedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "embed",
		Usage: "Embed saved .lrc lyrics into MP3 ID3v2 frames",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Library root to embed (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite lyric frames already present in files",
			},
		},
		Action: r.Embed,
	}
}

// historyCommand renders and exports recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded scan runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded runs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to return",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show one run with its per-file outcomes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Run ID to show",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "export",
				Usage: "Export one run to disk",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Run ID to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, or text",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.HistoryExport,
			},
		},
	}
}

// setupCommand handles setup operations for the run-history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
