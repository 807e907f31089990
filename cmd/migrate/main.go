package main

import (
	"database/sql"
	"errors"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"vet-clinic-web/internal/platform/config"
	"vet-clinic-web/internal/platform/logger"
	appmigrations "vet-clinic-web/migrations"
)

// Uso: migrate [up|down|force <version>]. Sin argumentos aplica up.
func main() {
	cfg := config.Load()
	log := logger.NewFromStrings(cfg.LogLevel, cfg.LogFormat, cfg.AppName+"-migrate")

	if cfg.DatabaseURL == "" {
		fatal(log, "DATABASE_URL is required", nil)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		fatal(log, "open db", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		fatal(log, "ping db", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		fatal(log, "db driver", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		fatal(log, "source driver", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		fatal(log, "create migrator", err)
	}
	defer func() { _, _ = m.Close() }()

	cmd := "up"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "force":
		if len(os.Args) < 3 {
			fatal(log, "force requires a version", nil)
		}
		version, convErr := strconv.Atoi(os.Args[2])
		if convErr != nil {
			fatal(log, "invalid version", convErr)
		}
		err = m.Force(version)
	default:
		fatal(log, "unknown command "+cmd, nil)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fatal(log, "migrate "+cmd, err)
	}

	version, dirty, _ := m.Version()
	log.Info("migrations complete", logger.Fields{"command": cmd, "version": version, "dirty": dirty})
}

func fatal(log logger.Logger, msg string, err error) {
	fields := logger.Fields{}
	if err != nil {
		fields["err"] = err
	}
	log.Error(msg, fields)
	os.Exit(1)
}
