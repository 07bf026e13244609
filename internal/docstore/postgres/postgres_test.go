package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/docstore/storetest"
	"foro/internal/log"
)

// testStore connects to TEST_DATABASE_URL and empties the documents table.
// Skips the test if TEST_DATABASE_URL is not set.
func testStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := Connect(ctx, url, log.Discard())
	require.NoError(t, err)
	_, err = s.pool.Exec(ctx, "TRUNCATE TABLE documents")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store { return testStore(t) })
}

func TestNotificationsReachOtherStores(t *testing.T) {
	ctx := context.Background()
	reader := testStore(t)

	writer, err := Connect(ctx, os.Getenv("TEST_DATABASE_URL"), log.Discard())
	require.NoError(t, err)
	defer writer.Close()

	sub, err := reader.Watch(ctx, core.EventsCollection, docstore.Query{})
	require.NoError(t, err)
	defer sub.Cancel()
	require.Empty(t, storetest.Next(t, sub))

	_, err = writer.Create(ctx, core.EventsCollection, core.Document{"title": "Feria"})
	require.NoError(t, err)

	got := storetest.Until(t, sub, func(snaps []docstore.Snapshot) bool { return len(snaps) == 1 })
	require.Equal(t, "Feria", got[0].Data.GetString("title"))
}

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/foro", migrateURL("postgres://u:p@localhost:5432/foro"))
	require.Equal(t, "pgx5://localhost/foro", migrateURL("postgresql://localhost/foro"))
	require.Equal(t, "pgx5://localhost/foro", migrateURL("pgx5://localhost/foro"))
}

func TestBackoff(t *testing.T) {
	require.Equal(t, 1e9, float64(backoff(0)))
	require.Equal(t, 32e9, float64(backoff(5)))
	require.Equal(t, 32e9, float64(backoff(50)))
}
