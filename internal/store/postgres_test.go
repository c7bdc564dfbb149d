//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Run with:
//
//	CLUBHUB_TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/store/
func openPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("CLUBHUB_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CLUBHUB_TEST_DATABASE_URL not set")
	}
	db, err := NewDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db, "up"))
	_, err = db.ExecContext(context.Background(),
		`TRUNCATE users, projects, project_contributors, events, attendance, tasks RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return NewPostgres(db)
}

func TestPostgres(t *testing.T) {
	for _, c := range backendChecks {
		t.Run(c.name, func(t *testing.T) {
			c.fn(t, openPostgres(t))
		})
	}
}
