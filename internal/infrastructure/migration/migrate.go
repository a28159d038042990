package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Migrator applies the numbered SQL migrations of one dialect
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// SourcePath returns the migrations directory of driver under root. SQLite
// has none, its schema comes from AutoMigrate.
func SourcePath(root, driver string) (string, error) {
	switch driver {
	case config.DriverPostgres, config.DriverMySQL:
		return filepath.Join(root, driver), nil
	}
	return "", fmt.Errorf("no SQL migrations for driver %q; sqlite schemas come from AutoMigrate", driver)
}

// New wraps an open connection. Closing the Migrator closes db.
func New(db *sql.DB, driver, root string, log *zap.Logger) (*Migrator, error) {
	dir, err := SourcePath(root, driver)
	if err != nil {
		return nil, err
	}

	var target database.Driver
	if driver == config.DriverMySQL {
		target, err = mysql.WithInstance(db, &mysql.Config{})
	} else {
		target, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s migration target: %w", driver, err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(dir), driver, target)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations from %s: %w", dir, err)
	}
	log = log.With(zap.String("driver", driver))
	m.Log = migrateLogger{log: log}
	return &Migrator{m: m, log: log}, nil
}

// run performs one schema change. ErrNoChange is success.
func (mg *Migrator) run(action string, fn func() error) error {
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.log.Info("Schema already up to date", zap.String("action", action))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", action, err)
	}
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.log.Info("Schema migrated",
		zap.String("action", action),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error { return mg.run("up", mg.m.Up) }

// Down rolls back every migration
func (mg *Migrator) Down() error { return mg.run("down", mg.m.Down) }

// Steps applies n migrations, rolling back when n is negative
func (mg *Migrator) Steps(n int) error {
	return mg.run(fmt.Sprintf("step %d", n), func() error { return mg.m.Steps(n) })
}

// GoTo migrates up or down to version
func (mg *Migrator) GoTo(version uint) error {
	return mg.run(fmt.Sprintf("goto %d", version), func() error { return mg.m.Migrate(version) })
}

// Version returns the applied version, 0 when the schema is empty
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running it. It clears the dirty
// flag a failed migration leaves behind.
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Drop deletes every ledger table together with the migration history
func (mg *Migrator) Drop() error {
	mg.log.Warn("Dropping every ledger table")
	if err := mg.m.Drop(); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrateLogger forwards golang-migrate's progress lines to zap at debug
type migrateLogger struct {
	log *zap.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.log.Core().Enabled(zap.DebugLevel)
}
