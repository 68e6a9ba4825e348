package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// reindexCmd rebuilds the search index
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the database",
	Long: `Drop every document from the search index and index each book in the
database again. Run it with the server stopped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()

		st, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer st.Close()

		index, err := search.NewSearchIndex(search.Options{DataPath: cfg.Storage.DataPath, Logger: log})
		if err != nil {
			return err
		}
		defer index.Close()

		count, err := service.NewSearchService(index, st, log).Reindex(context.Background())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d books\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
