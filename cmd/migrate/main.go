package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"github.com/mfgorder/backend/internal/infrastructure/logger"
	"github.com/mfgorder/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

var errUsage = errors.New("invalid usage")

// migrator is the part of migration.Migrator the commands drive
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	GoTo(version uint) error
	Version() (uint, bool, error)
	Force(version int) error
	Drop() error
}

type dbCommand struct {
	usage string
	args  int
	run   func(m migrator, args []string, log *zap.Logger) error
}

var dbCommands = map[string]dbCommand{
	"up": {
		usage: "up                    Apply all pending migrations",
		run:   func(m migrator, _ []string, _ *zap.Logger) error { return m.Up() },
	},
	"down": {
		usage: "down                  Roll back all migrations",
		run:   func(m migrator, _ []string, _ *zap.Logger) error { return m.Down() },
	},
	"step": {
		usage: "step <n>              Apply n migrations (negative rolls back)",
		args:  1,
		run: func(m migrator, args []string, _ *zap.Logger) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return fmt.Errorf("%w: step count %q", errUsage, args[0])
			}
			return m.Steps(n)
		},
	},
	"goto": {
		usage: "goto <version>        Migrate up or down to version",
		args:  1,
		run: func(m migrator, args []string, _ *zap.Logger) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("%w: version %q", errUsage, args[0])
			}
			return m.GoTo(uint(v))
		},
	},
	"version": {
		usage: "version               Show the applied version",
		run: func(m migrator, _ []string, log *zap.Logger) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if v == 0 {
				log.Info("No migrations applied")
				return nil
			}
			log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
			return nil
		},
	},
	"force": {
		usage: "force <version>       Mark version as applied without running it",
		args:  1,
		run: func(m migrator, args []string, _ *zap.Logger) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: version %q", errUsage, args[0])
			}
			return m.Force(v)
		},
	},
	"drop": {
		usage: "drop -confirm         Drop every ledger table",
		args:  1,
		run: func(m migrator, args []string, _ *zap.Logger) error {
			if args[0] != "-confirm" && args[0] != "--confirm" {
				return fmt.Errorf("%w: drop needs -confirm", errUsage)
			}
			return m.Drop()
		},
	},
}

// runDBCommand runs name against m after checking its argument count
func runDBCommand(m migrator, name string, args []string, log *zap.Logger) error {
	cmd, ok := dbCommands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	if len(args) < cmd.args {
		return fmt.Errorf("%w: %s", errUsage, cmd.usage)
	}
	return cmd.run(m, args, log)
}

// runFileCommand handles the commands that only touch migration files. It
// reports false for any other command.
func runFileCommand(name string, args []string, root, driver string, out io.Writer, log *zap.Logger) (bool, error) {
	switch name {
	case "create":
		if len(args) < 1 {
			return true, fmt.Errorf("%w: create <name> [description]", errUsage)
		}
		description := ""
		if len(args) > 1 {
			description = args[1]
		}
		files, err := migration.CreateMigration(root, args[0], description)
		if err != nil {
			return true, err
		}
		log.Info("Migration created",
			zap.Uint("version", files.Version),
			zap.String("name", files.Name),
			zap.Strings("files", files.Paths),
		)
		return true, nil

	case "list":
		names, err := migration.ListMigrations(root, driver)
		if err != nil {
			return true, err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		log.Info("Migrations listed", zap.String("driver", driver), zap.Int("count", len(names)))
		return true, nil
	}
	return false, nil
}

func main() {
	var migrationsPath, logLevel string
	flag.StringVar(&migrationsPath, "path", "", "Migrations root directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stderr", TimeFormat: "2006-01-02 15:04:05"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := run(args[0], args[1:], migrationsPath, log); err != nil {
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		if errors.Is(err, errUsage) {
			printUsage()
		}
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func run(name string, args []string, migrationsPath string, log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	root, err := resolveMigrationsPath(migrationsPath)
	if err != nil {
		return err
	}
	driver := cfg.Database.Driver
	log.Debug("Migration CLI started",
		zap.String("command", name),
		zap.String("driver", driver),
		zap.String("migrations_path", root),
	)

	if handled, err := runFileCommand(name, args, root, driver, os.Stdout, log); handled {
		return err
	}
	if _, ok := dbCommands[name]; !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	db, err := sql.Open(driver, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	m, err := migration.New(db, driver, root, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return runDBCommand(m, name, args, log)
}

// resolveMigrationsPath defaults to ./migrations, then to the repository
// migrations directory relative to the executable
func resolveMigrationsPath(path string) (string, error) {
	if path != "" {
		return filepath.Abs(path)
	}
	if _, err := os.Stat(defaultMigrationsPath); err == nil {
		return filepath.Abs(defaultMigrationsPath)
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}
	return filepath.Abs(defaultMigrationsPath)
}

func printUsage() {
	names := make([]string, 0, len(dbCommands))
	for name := range dbCommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "Usage: migrate [-path dir] [-log-level level] <command> [arguments]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	for _, name := range names {
		fmt.Fprintln(os.Stderr, "  "+dbCommands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "  create <name> [desc]  Create an up/down file pair in every dialect")
	fmt.Fprintln(os.Stderr, "  list                  List the migrations of the configured driver")
	fmt.Fprintln(os.Stderr, "\nThe driver and connection come from config.toml or LEDGER_DATABASE_* variables.")
}
