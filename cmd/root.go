package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/profilebot/internal/config"
	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "profilebot",
	Short: "Psychometric assessment bot",
	Long: "profilebot runs the PAEI, SOFT, HEXACO and DISC questionnaires in a chat, " +
		"scores them and archives short and full PDF reports.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default ./profilebot.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite audit database (overrides store.path)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.Path = p
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logging.Init(level, cfg.Log.Format)
	return cfg, nil
}

// openStore opens the audit database named by the config, falling back to
// the default XDG path.
func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		path = p
	} else if err := store.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}

	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
