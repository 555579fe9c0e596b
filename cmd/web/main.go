// Command web serves the investigator-facing front-end: crime subtype
// selection, the evidence browser and the assistant chat. Evidence and
// answers come from the assistantd collaborator service.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"dcia/internal/catalog"
	"dcia/internal/db"
	"dcia/internal/envstruct"
	"dcia/internal/errors"
	"dcia/internal/investigation"
	"dcia/internal/logging"
	"dcia/internal/pprofserver"
	"dcia/internal/qa"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
)

type config struct {
	Addr         string `env:"DCIA_ADDR" envDefault:"localhost:4000"`
	PprofPort    string `env:"DCIA_PPROF_PORT" envDefault:":6060"`
	SQLiteURL    string `env:"DCIA_SQLITE_URL" envDefault:"./dcia.sqlite"`
	AssistantURL string `env:"DCIA_ASSISTANT_URL" envDefault:"http://localhost:4001"`
}

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	sessions       *investigation.Registry
	htmx           *htmx.HTMX
}

func main() {
	// A missing .env file is fine, the environment may be set by other means.
	_ = godotenv.Load()

	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})))

	ctx := context.Background()
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "web server failed", errors.SlogError(err))
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

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite.DB, 24*time.Hour)
	sessionManager.Lifetime = 12 * time.Hour

	catalogClient := catalog.NewClient(cfg.AssistantURL, logger)
	qaClient := qa.NewClient(cfg.AssistantURL, logger)
	sessions := investigation.NewRegistry(func() *investigation.Session {
		return investigation.NewSession(catalogClient, qaClient, logger)
	})

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		sessions:       sessions,
		htmx:           htmx.New(),
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}
