package command

import (
	"github.com/spf13/cobra"
	"github.com/tidepool-org/intake/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the intake http service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Keep the log level of the environment
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		api.MainLoop()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
