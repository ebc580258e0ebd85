package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/wolfman30/trading-academy/migrations"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// migrator is the subset of *migrate.Migrate the commands use.
type migrator interface {
	Up() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

// Usage: migrate [up | down [n] | force <version> | version]
func main() {
	_ = godotenv.Load()
	logger := logging.New(os.Getenv("LOG_LEVEL"))

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("ping db", "error", err)
		os.Exit(1)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		logger.Error("db driver", "error", err)
		os.Exit(1)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Error("source driver", "error", err)
		os.Exit(1)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		logger.Error("create migrator", "error", err)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	msg, err := run(m, os.Args[1:])
	if err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info(msg)
}

func run(m migrator, args []string) (string, error) {
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return "", fmt.Errorf("migrate up: %w", err)
		}
		return "migrations complete", nil
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return "", fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return "", fmt.Errorf("migrate down: %w", err)
		}
		return fmt.Sprintf("rolled back %d migration(s)", steps), nil
	case "force":
		if len(args) < 2 {
			return "", errors.New("force requires a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return "", fmt.Errorf("invalid version: %w", err)
		}
		if err := m.Force(version); err != nil {
			return "", fmt.Errorf("force version: %w", err)
		}
		return fmt.Sprintf("forced version to %d", version), nil
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return "no migrations applied", nil
		}
		if err != nil {
			return "", fmt.Errorf("read version: %w", err)
		}
		return fmt.Sprintf("version %d (dirty=%t)", v, dirty), nil
	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
}
