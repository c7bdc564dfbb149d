package store

import (
	"database/sql"
	"embed"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	goose.SetBaseFS(migrations)
}

// Migrate applies the embedded schema migrations. command is one of up,
// down or status.
func Migrate(db *sql.DB, command string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	switch command {
	case "", "up":
		return errors.Wrap(goose.Up(db, "migrations"), "migrate up")
	case "down":
		return errors.Wrap(goose.Down(db, "migrations"), "migrate down")
	case "status":
		return errors.Wrap(goose.Status(db, "migrations"), "migrate status")
	default:
		return errors.Errorf("unknown migrate command %q", command)
	}
}
