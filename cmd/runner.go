package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/exportify/internal/services"
	"github.com/desertthunder/exportify/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyClient
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    *services.SpotifyClient
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
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
		spotify:    opts.Spotify,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, exportCommand, playlistsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// spotifyClient returns the injected client or builds one from config credentials.
func (r *Runner) spotifyClient() (*services.SpotifyClient, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	client, err := services.NewSpotifyClient(services.SpotifyClientOpts{
		ClientID:     r.config.Credentials.Spotify.ClientID,
		ClientSecret: r.config.Credentials.Spotify.ClientSecret,
		RateLimit:    r.config.Server.RateLimit,
		Logger:       r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify client: %w", err)
	}

	r.spotify = client
	return client, nil
}

// loadConfig resolves the runner's config from the --config flag, falling
// back to whatever the runner was constructed with.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if configPath == "" {
		return r.config
	}

	if _, err := os.Stat(configPath); err == nil {
		if config, err := shared.LoadConfig(configPath); err == nil {
			r.config = config
			r.configPath = configPath
			return config
		} else {
			r.logger.Warn("failed to load config, using existing", "path", configPath, "error", err)
		}
	}

	return r.config
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
