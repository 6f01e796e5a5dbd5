package cli

import (
	"github.com/riskibarqy/livescore/internal/app"
	"github.com/riskibarqy/livescore/internal/platform/logging"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		serviceLogger := app.NewLogger(cfg)
		logging.SetDefault(serviceLogger)
		defer func() { _ = serviceLogger.Sync() }()

		return app.Serve(cmd.Context(), cfg, serviceLogger)
	},
}
