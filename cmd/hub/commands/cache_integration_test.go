//go:build integration
// +build integration

package commands

import (
	"context"
	"os"
	"testing"
	"time"

	"translatorhub/internal/cache"
	"translatorhub/internal/config"
	"translatorhub/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheCleanup_Integration(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Default().Cache
	cfg.DatabaseURL = databaseURL
	ctx := context.Background()

	store, err := cache.Open(ctx, cfg, observability.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	// Start from a table with nothing expired
	_, err = store.CleanupExpired(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "cli-cleanup-a", "Hello", "en", "si", "හෙලෝ", time.Nanosecond))
	require.NoError(t, store.Put(ctx, "cli-cleanup-b", "Bye", "en", "si", "ආයුබෝවන්", time.Nanosecond))
	require.NoError(t, store.Put(ctx, "cli-cleanup-c", "Thanks", "en", "si", "ස්තූතියි", time.Hour))
	time.Sleep(10 * time.Millisecond)

	out, err := execute(t, "", "cache", "cleanup", "--dry-run", "--database-url", databaseURL)
	require.NoError(t, err)
	assert.Equal(t, "2 expired translations would be deleted\n", out)

	out, err = execute(t, "", "cache", "cleanup", "--database-url", databaseURL)
	require.NoError(t, err)
	assert.Equal(t, "Deleted 2 expired translations\n", out)

	_, found, err := store.Get(ctx, "cli-cleanup-c", "en", "si")
	require.NoError(t, err)
	assert.True(t, found)
}
