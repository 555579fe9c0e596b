// Package catalog holds the CLI commands for maintaining the evidence
// catalog: seeding it from YAML and refreshing embeddings.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"dcia/internal/ai"
	"dcia/internal/db"
	"dcia/internal/logging"
	"dcia/internal/repositories"
	"dcia/internal/semsearch"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "catalog",
	Title: "Evidence catalog operations",
}

func init() {
	Ingest.Flags().String("sqlite-url", "./dcia.sqlite", "SQLite URL")
	Ingest.Flags().Bool("embed", false, "refresh embeddings after ingesting")
	Embed.Flags().String("sqlite-url", "./dcia.sqlite", "SQLite URL")
}

func newLogger() *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{ //nolint:exhaustruct
		Level: slog.LevelInfo,
	})))
}

var Ingest = &cobra.Command{ //nolint:exhaustruct // this is better for readability
	Use:     "ingest [seed.yaml]",
	GroupID: "catalog",
	Short:   "Ingest a catalog seed",
	Long:    `Replaces the evidence catalog with the contents of a YAML seed file.`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger()
		sqliteURL, _ := cmd.Flags().GetString("sqlite-url")
		withEmbeddings, _ := cmd.Flags().GetBool("embed")

		dbs, err := db.NewDatabase(ctx, sqliteURL, logger)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Database error: %v\n", err)
			return
		}
		defer func() {
			_ = dbs.Close()
		}()

		repo := repositories.NewEvidenceRepository(dbs, logger)
		seed, err := repositories.LoadSeed(args[0])
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Seed error: %v\n", err)
			return
		}
		if err = repo.ReplaceCatalog(ctx, seed); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Ingest error: %v\n", err)
			return
		}
		fmt.Printf("Ingested %d crime subtypes\n", len(seed.Subtypes))

		if withEmbeddings {
			refreshEmbeddings(ctx, logger, repo)
		}
	},
}

var Embed = &cobra.Command{ //nolint:exhaustruct // this is better for readability
	Use:     "embed",
	GroupID: "catalog",
	Short:   "Refresh embeddings",
	Long:    `Generates embeddings for catalog entries that do not have one yet.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger := newLogger()
		sqliteURL, _ := cmd.Flags().GetString("sqlite-url")

		dbs, err := db.NewDatabase(ctx, sqliteURL, logger)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Database error: %v\n", err)
			return
		}
		defer func() {
			_ = dbs.Close()
		}()

		refreshEmbeddings(ctx, logger, repositories.NewEvidenceRepository(dbs, logger))
	},
}

func refreshEmbeddings(ctx context.Context, logger *slog.Logger, repo *repositories.EvidenceRepository) {
	aiClient := ai.NewClient(os.Getenv("OPENAI_API_KEY"))
	search := semsearch.NewService(repo, aiClient, aiClient, logger)
	count, err := search.RefreshEmbeddings(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		return
	}
	fmt.Printf("Embedded %d catalog entries\n", count)
}
