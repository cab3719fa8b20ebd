package database

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mbolis/survey3/log"
	"github.com/pkg/errors"
)

//go:embed migrations
var dbMigrations embed.FS

// migrateDB brings the schema to the latest embedded version and returns it.
func migrateDB(db *sql.DB) (uint, error) {
	src, err := iofs.New(dbMigrations, "migrations")
	if err != nil {
		return 0, errors.Wrap(err, "db.migrate.source")
	}

	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, errors.Wrap(err, "db.migrate.driver")
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite3", dst)
	if err != nil {
		return 0, errors.Wrap(err, "db.migrate.init")
	}
	migrator.Log = migrateLogger{}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		// db already up to date
		break
	case err != nil:
		return 0, errors.Wrap(err, "db.migrate.up")
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return 0, errors.Wrap(err, "db.migrate.version")
	}
	if dirty {
		return version, fmt.Errorf("db.migrate: schema version %d is dirty", version)
	}
	return version, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	log.Debugf("db.migrate: "+strings.TrimSuffix(format, "\n"), v...)
}

func (migrateLogger) Verbose() bool {
	return log.IsDebug()
}
