package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/livescore/internal/config"
	"github.com/riskibarqy/livescore/internal/platform/logging"
	"github.com/spf13/cobra"
)

var (
	// Version is set with -ldflags at build time.
	Version = "dev"

	logLevel  string
	logFormat string

	cfg    config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:           "livescore",
	Short:         "Live cricket scores and over-by-over history",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if v := strings.TrimSpace(logLevel); v != "" {
			loaded.LogLevel = logging.ParseLevel(v)
		}
		switch v := strings.TrimSpace(logFormat); v {
		case "":
		case config.LogFormatJSON, config.LogFormatConsole:
			loaded.LogFormat = v
		default:
			return fmt.Errorf("invalid --log-format %q", v)
		}
		cfg = loaded

		// Terminal commands keep stdout for match output.
		logger = logging.NewConsole(cmd.ErrOrStderr(), cfg.LogLevel)
		return nil
	},
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override LOG_FORMAT for serve (json, console)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(serveCmd)
}
