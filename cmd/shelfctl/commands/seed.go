package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/sanitize"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

var seedOwner string

// seedCmd loads books from a JSON file
var seedCmd = &cobra.Command{
	Use:   "seed <books.json>",
	Short: "Load sample books from a JSON file",
	Long: `Load books from a JSON array of objects with isbn, title, author, genre
and description fields. Books go through the same validation and sanitizing
as the API and are indexed for search. Books whose ISBN already exists are
skipped.

The owner account must already exist.

Examples:
  shelfctl seed testdata/books.json --owner admin@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedOwner, "owner", "", "Email of the account recorded as the books' creator (required)")
	_ = seedCmd.MarkFlagRequired("owner")
}

func runSeed(cmd *cobra.Command, path string) error {
	//#nosec G304 -- path is the operator's own argument
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var books []service.CreateBookRequest
	if err := json.Unmarshal(data, &books); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

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

	ctx := context.Background()

	owner, err := st.GetUserByEmail(ctx, seedOwner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no account with email %s; register it first", seedOwner)
		}
		return fmt.Errorf("lookup owner: %w", err)
	}

	sanitizer := sanitize.New()
	ratings := service.NewRatingAggregator(st, nil, log)
	reviews := service.NewReviewService(st, ratings, sanitizer, log)
	catalog := service.NewBookService(st, reviews, service.NewSearchService(index, st, log), sanitizer, log)

	out := cmd.OutOrStdout()
	var added, skipped int
	for i, req := range books {
		book, err := catalog.Add(ctx, owner.ID, req)
		switch {
		case err == nil:
			added++
			fmt.Fprintf(out, "  + %s  %s\n", book.ISBN, book.Title)
		case errors.Is(err, domainerrors.ErrConflict):
			skipped++
			fmt.Fprintf(out, "  = %s  already in catalog\n", req.ISBN)
		default:
			return fmt.Errorf("book %d (%q): %w", i+1, req.Title, err)
		}
	}

	fmt.Fprintf(out, "Seeded %d books, skipped %d\n", added, skipped)
	return nil
}
