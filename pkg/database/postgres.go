package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/uptrace/bun/driver/pgdriver"
)

//go:embed migrations/*.sql
var migrations embed.FS

func NewPostgres(url, host string) (*sql.DB, error) {
	var opts []pgdriver.Option
	if url != "" {
		opts = append(opts, pgdriver.WithDSN(url))
	} else {
		opts = append(opts,
			pgdriver.WithAddr(host),
			pgdriver.WithUser("postgres"),
			pgdriver.WithPassword("postgres"),
			pgdriver.WithDatabase("postgres"),
			pgdriver.WithInsecure(true),
		)
	}
	opts = append(opts, pgdriver.WithTimeout(5*time.Second))

	db := sql.OpenDB(pgdriver.NewConnector(opts...))
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	n, err := Migrate(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("database migrations applied", "count", n)

	return db, nil
}

// Migrate applies the embedded migrations and returns how many were run.
func Migrate(db *sql.DB) (int, error) {
	src := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       "migrations",
	}

	n, err := migrate.Exec(db, "postgres", src, migrate.Up)
	if err != nil {
		return 0, fmt.Errorf("applying migrations: %w", err)
	}
	return n, nil
}
