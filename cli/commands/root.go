// Package commands implements the CLI command structure using Cobra.
package commands

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petrel-labs/petrel/cli/config"
)

var (
	// Global flags
	cfgFile    string
	endpoint   string
	model      string
	jsonOutput bool
	verbose    bool

	// Loaded configuration
	cfg *config.Config
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "petrel",
	Short: "Petrel - streaming SDK test harness",
	Long: `Petrel exercises the streaming SDK against an OpenAI-compatible API.

Use it to send one-shot requests, watch a response stream frame by frame,
and inspect how failures are classified.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		return initConfig()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.petrel/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "endpoint family (responses, chat)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model ID (e.g. gpt-4o)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

// initLogging routes slog through a zerolog console writer so SDK
// telemetry and the CLI share one log stream.
func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	logger := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(logger, &zeroslog.HandlerOptions{Level: level}),
	))
}

// initConfig reads the config file and applies its defaults, after giving
// a local .env file the chance to populate the environment.
func initConfig() error {
	_ = godotenv.Load()

	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}

	if endpoint == "" {
		endpoint = cfg.Endpoint
	}
	if endpoint == "" {
		endpoint = "responses"
	}
	if model == "" {
		model = cfg.Model
	}
	return nil
}
