// Command assistantd serves the investigation assistant API: the evidence
// catalog and semantic question answering backed by OpenAI.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"dcia/internal/ai"
	"dcia/internal/cache"
	"dcia/internal/db"
	"dcia/internal/envstruct"
	"dcia/internal/errors"
	"dcia/internal/logging"
	"dcia/internal/pprofserver"
	"dcia/internal/repositories"
	"dcia/internal/semsearch"
	"dcia/internal/watcher"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

type config struct {
	Addr      string `env:"DCIA_ASSISTANT_ADDR" envDefault:"localhost:4001"`
	PprofPort string `env:"DCIA_ASSISTANT_PPROF_PORT" envDefault:":6061"`
	SQLiteURL string `env:"DCIA_SQLITE_URL" envDefault:"./dcia.sqlite"`
	OpenAIKey string `env:"OPENAI_API_KEY"`
	// RedisAddr enables the answer cache when set.
	RedisAddr string `env:"DCIA_REDIS_ADDR" envDefault:""`
	// SeedPath enables catalog hot-reload when set.
	SeedPath string `env:"DCIA_CATALOG_SEED" envDefault:""`
}

type application struct {
	logger  *slog.Logger
	repo    *repositories.EvidenceRepository
	search  *semsearch.Service
	answers *cache.AnswerCache
}

const answerCacheTTL = time.Hour

func main() {
	// A missing .env file is fine, the environment may be set by other means.
	_ = godotenv.Load()

	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})))

	ctx := context.Background()
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "assistantd failed", errors.SlogError(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "parse environment")
	}

	pprofserver.Launch(cfg.PprofPort, logger)

	dbs, err := db.NewDatabase(ctx, cfg.SQLiteURL, logger)
	if err != nil {
		return errors.Wrap(err, "connect database")
	}
	defer func() {
		_ = dbs.Close()
	}()
	go dbs.StartOptimizer(ctx)

	repo := repositories.NewEvidenceRepository(dbs, logger)
	aiClient := ai.NewClient(cfg.OpenAIKey)
	search := semsearch.NewService(repo, aiClient, aiClient, logger)

	var answers *cache.AnswerCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}) //nolint:exhaustruct // defaults are fine
		answers = cache.NewAnswerCache(redisClient, answerCacheTTL, logger)
		logger.LogAttrs(ctx, slog.LevelInfo, "answer cache enabled", slog.String("redis_addr", cfg.RedisAddr))
	}

	app := application{
		logger:  logger,
		repo:    repo,
		search:  search,
		answers: answers,
	}

	if cfg.SeedPath != "" {
		if err = app.ingestSeed(ctx, cfg.SeedPath); err != nil {
			return err
		}
		go func() {
			if watchErr := watcher.Watch(ctx, cfg.SeedPath, logger, func(ctx context.Context) error {
				return app.ingestSeed(ctx, cfg.SeedPath)
			}); watchErr != nil {
				logger.LogAttrs(ctx, slog.LevelError, "seed watcher stopped", errors.SlogError(watchErr))
			}
		}()
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}

// ingestSeed replaces the catalog from the seed file and embeds any new
// entries.
func (app *application) ingestSeed(ctx context.Context, path string) error {
	seed, err := repositories.LoadSeed(path)
	if err != nil {
		return err
	}
	if err = app.repo.ReplaceCatalog(ctx, seed); err != nil {
		return err
	}
	count, err := app.search.RefreshEmbeddings(ctx)
	if err != nil {
		return err
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "catalog ingested",
		slog.String("path", path), slog.Int("embedded", count))
	return nil
}
