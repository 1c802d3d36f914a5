package cache

import (
	"context"
	"io/fs"
	"testing"

	"translatorhub/internal/backend"
	"translatorhub/internal/config"
	contextutils "translatorhub/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ backend.Store = (*Store)(nil)

func TestExtractDatabaseName(t *testing.T) {
	assert.Equal(t, "hub_cache", extractDatabaseName("postgres://u:p@localhost:5432/hub_cache?sslmode=disable"))
	assert.Equal(t, "translatorhub", extractDatabaseName("postgres://localhost:5432"))
	assert.Equal(t, "translatorhub", extractDatabaseName(""))
}

func TestEmbeddedMigrations(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestOpen_RequiresDatabaseURL(t *testing.T) {
	_, err := Open(context.Background(), config.CacheConfig{Enabled: true}, nil)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeConfigInvalid, contextutils.GetErrorCode(err))
}
