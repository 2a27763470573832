// Command autocraft runs an autonomous game agent: natural-language commands
// from players or the terminal are turned into one structured action by a
// decision engine, and persistent tasks (follow, attack, gather) are
// supervised against the live world.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autocraft/internal/config"
	"autocraft/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "autocraft",
	Short: "autocraft - autonomous game agent driven by a language model",
	Long: `autocraft connects an agent to a game world and lets a language model
decide what it does next.

Every chat message, terminal line, idle moment or hit taken becomes a
decision request. At most one decision is in flight at a time, at most one
persistent task (follow, attack, gather) runs at a time, and damage always
gets an answer, even while the model is still thinking.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		if err := logging.Initialize(loggingOptions(cfg.Logging)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Boot("log level %s", logging.Level())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func loggingOptions(lc config.LoggingConfig) logging.Options {
	return logging.Options{
		Level:      lc.Level,
		Format:     lc.Format,
		File:       lc.File,
		Categories: lc.Categories,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(simCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
