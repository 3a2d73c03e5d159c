package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/shopagent/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize shopagent configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to pick the model provider, quality tier, port and web search, and writes the result to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
