package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/util"
)

// Migrate creates the tables of the entities, referenced tables first, and returns the number
// of statements run. Tables that already exist are left untouched. In dry run mode the
// statements are only logged.
func Migrate(ctx context.Context, config Config) (int, error) {
	logger := config.Logger.WithPrefix("[migrator]")
	statements := config.Dialect.CreateSQL(config.Entities.Sorted())
	executer := util.SQLExecuter(ctx, logger, config.DB, config.DryRun)
	total := len(statements)

	started := time.Now()
	logger.Info("running %d migrations ...", total)
	var offset int
	for _, sql := range statements {
		if err := ctx.Err(); err != nil {
			return offset, err
		}
		smsg := shortSQL(sql, 70)
		if err := executer(sql); err != nil {
			logger.Error("error executing: %s. %s", smsg, err)
			return offset, fmt.Errorf("error executing: %s: %w", smsg, err)
		}
		offset++
		if config.Progress != nil {
			config.Progress(offset, total, fmt.Sprintf("[%d/%d] %s", offset, total, smsg))
		}
	}
	logger.Info("executed %d sql statements in %v", offset, time.Since(started))
	return offset, nil
}

// Open connects to the database url with the driver of its dialect and checks the connection.
func Open(ctx context.Context, urlString string) (*sql.DB, internal.Dialect, error) {
	dialect, err := internal.GetDialectForURL(urlString)
	if err != nil {
		return nil, nil, err
	}
	dsn, err := dialect.DSN(urlString)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create connection string: %w", err)
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create connection: %w", err)
	}
	pingctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("unable to ping db: %w", err)
	}
	return db, dialect, nil
}
