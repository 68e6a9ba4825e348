// Package commands implements the shelfctl subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/badgerdb"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

var (
	// Global flags
	dataPath string
	backend  string
	verbose  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shelfctl",
	Short: "Shelfwise administration tool",
	Long: `shelfctl manages a Shelfwise data directory directly.

Commands that open the database must run while the server is stopped.
The data directory and store backend default to the server's configuration
(DATA_PATH and STORE_BACKEND from the environment or .env).`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data-path", "", "Data directory (default: server configuration)")
	rootCmd.PersistentFlags().StringVar(&backend, "store", "", "Store backend: badger or sqlite (default: server configuration)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// loadConfig resolves the server configuration with the global flags applied on top.
func loadConfig() (*config.Config, error) {
	var args []string
	if dataPath != "" {
		args = append(args, "-data-path", dataPath)
	}
	if backend != "" {
		args = append(args, "-store", backend)
	}
	return config.Load(args)
}

func newLogger() *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Config{
		Writer:      os.Stderr,
		Level:       logger.ParseLevel(level),
		Environment: "development",
	}).Logger
}

// openStore opens the configured backend. The caller closes it.
func openStore(cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if cfg.Storage.Backend == config.BackendSQLite {
		return sqlite.Open(cfg.DatabasePath(), log)
	}
	return badgerdb.New(cfg.DatabasePath(), log)
}
