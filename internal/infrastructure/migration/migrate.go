// Package migration applies the SQL schema under MIGRATIONS_PATH.
package migration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/exp/slog"
)

// Migrator is the part of *migrate.Migrate used here.
type Migrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
	Close() (source error, database error)
}

// Engine opens a Migrator; tests swap it out.
type Engine func(sourceURL, databaseURL string) (Migrator, error)

func DefaultEngine(sourceURL, databaseURL string) (Migrator, error) {
	return migrate.New(sourceURL, databaseURL)
}

type Migration struct {
	dir    string
	dsn    string
	engine Engine
	log    *slog.Logger
}

func New(dir, dsn string, engine Engine, log *slog.Logger) *Migration {
	if engine == nil {
		engine = DefaultEngine
	}
	return &Migration{
		dir:    dir,
		dsn:    dsn,
		engine: engine,
		log:    log.With("component", "migration"),
	}
}

// databaseURL points golang-migrate at its pgx v5 driver.
func databaseURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

func (mg *Migration) Up() (err error) {
	m, err := mg.engine("file://"+mg.dir, databaseURL(mg.dsn))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			err = errors.Join(err, fmt.Errorf("migration source: %w", serr))
		}
		if dberr != nil {
			err = errors.Join(err, fmt.Errorf("migration database: %w", dberr))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	if v, dirty, verr := m.Version(); verr == nil {
		mg.log.Info("schema is up to date", "version", v, "dirty", dirty)
	}
	return nil
}
