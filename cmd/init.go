package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize pluginassist configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the language model, Dataverse connection file and solution, and writes a .pluginassist.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.RunWizard(cfgFile); err != nil {
			return err
		}
		fmt.Println("Next: run `pluginassist catalog sync` to fetch the table and column catalog.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
