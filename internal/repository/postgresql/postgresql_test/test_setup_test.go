package postgresql_test

import (
	"context"
	"os"
	"testing"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newTestDB connects to TEST_DATABASE_URL, migrates it and truncates every
// table. Tests are skipped when the variable is unset.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, database.RunMigrations(dsn))

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Exec(ctx, `TRUNCATE TABLE
		notifications, activity_stages, daily_activities, attendance_sessions,
		audit_log, ticket_status_history, tickets, users, zones CASCADE`)
	require.NoError(t, err)

	return db
}

func createZone(t *testing.T, db *database.DB, name string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(context.Background(), `INSERT INTO zones (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)
	return id
}
