package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/cache"
	"github.com/desertthunder/lrx/internal/lyrics"
	"github.com/desertthunder/lrx/internal/metadata"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/desertthunder/lrx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	extractor  metadata.Extractor
	provider   lyrics.Provider
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Extractor  metadata.Extractor
	Provider   lyrics.Provider
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Extractor == nil {
		opts.Extractor = metadata.NewTagExtractor()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		extractor:  opts.Extractor,
		provider:   opts.Provider,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		scanCommand, watchCommand, cacheCommand, embedCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configFor returns the configuration for one command invocation, reloading
// when --config names a different file than the one loaded at startup.
func (r *Runner) configFor(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" || path == r.configPath {
		return r.config
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using startup configuration", "path", path, "error", err)
		return r.config
	}

	return config
}

// storeFor builds the cache store for one command invocation: the --cache
// flag when given, the configured path otherwise.
func (r *Runner) storeFor(cmd *cli.Command, config *shared.Config) *cache.Store {
	path := cmd.String("cache")
	if path == "" {
		path = config.Cache.Path
	}

	return cache.NewStore(shared.ExpandPath(path))
}

// engineFor builds a scan engine bound to one command invocation's cache
// store and lookup limit.
func (r *Runner) engineFor(store *cache.Store, limit int) *tasks.LyricsEngine {
	return tasks.NewLyricsEngine(tasks.ScanEngineOpts{
		Store:       store,
		Extractor:   r.extractor,
		Provider:    r.provider,
		Logger:      r.logger,
		Concurrency: limit,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
