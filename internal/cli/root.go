package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	var port string

	cmd := &cobra.Command{
		Use:          "trivia",
		Short:        "Chat trivia engine for Discord and WebSocket channels",
		SilenceUsage: true,
	}

	// Empty --port defers to server.port in the config file, then PORT.
	cmd.PersistentFlags().StringVar(&port, "port", "", "port to listen on (overrides server.port and PORT)")
	cmd.PersistentFlags().StringVar(&configPath, "config", configPath, "path to YAML config")
	cmd.AddCommand(
		NewStartCmd(&configPath, &port),
		NewMigrateCmd(&configPath),
		NewSeedCmd(&configPath),
		NewHistoryCmd(&configPath),
	)
	return cmd
}
