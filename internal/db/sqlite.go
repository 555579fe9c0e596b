package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dcia/internal/errors"
	"dcia/internal/random"
	"github.com/jmoiron/sqlx"

	_ "embed"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
)

//go:embed schema.sql
var schemaDefinition string

// Database bundles two connection pools, one for read/write operations and
// one for read-only operations. This is a best practice mentioned in
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
type Database struct {
	ReadWrite *sqlx.DB
	ReadOnly  *sqlx.DB
	logger    *slog.Logger
}

// NewDatabase connects to the database and initializes the schema.
//
// The url parameter is the path to the SQLite database file or ":memory:"
// for an in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	var (
		err         error
		readWriteDB *sqlx.DB
		readOnlyDB  *sqlx.DB
	)

	// For in-memory databases, we need shared cache mode so that both pools
	// access the same data. Parallel tests additionally need a unique name
	// per database to avoid sharing data. See https://www.sqlite.org/inmemorydb.html.
	connConfig := "cache=private"
	if url == ":memory:" {
		var randomID string
		if randomID, err = random.Letters(20); err != nil {
			return nil, errors.Wrap(err, "generate random database name")
		}
		url = randomID
		connConfig = "mode=memory&cache=shared"
	}

	if readWriteDB, err = sqlx.ConnectContext(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_txlock=immediate&%s", url, connConfig)); err != nil {
		return nil, errors.Wrap(err, "connect read-write pool", slog.String("url", url))
	}

	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)
	readWriteDB.MustExec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;
		PRAGMA synchronous = NORMAL;
	`)

	readWriteDB.MustExec(schemaDefinition)

	if readOnlyDB, err = sqlx.ConnectContext(ctx, "sqlite3",
		fmt.Sprintf("file:%s?%s", url, connConfig)); err != nil {
		return nil, errors.Wrap(err, "connect read-only pool", slog.String("url", url))
	}

	readOnlyDB.SetMaxOpenConns(10)
	readOnlyDB.SetMaxIdleConns(10)
	readOnlyDB.SetConnMaxLifetime(time.Hour)
	readOnlyDB.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readOnlyDB,
		logger:    logger.With("source", "db.Database"),
	}, nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(db.ReadWrite.Close(), db.ReadOnly.Close())
}

// StartOptimizer runs PRAGMA optimize once per hour until the context is
// cancelled. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) StartOptimizer(ctx context.Context) {
	for {
		start := time.Now()
		if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			err = errors.Wrap(err, "optimize database")
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
		} else {
			db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database",
				slog.Duration("duration", time.Since(start)))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Hour):
			continue
		}
	}
}
