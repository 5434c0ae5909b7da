package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"bucket-list-backend/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(context.Background()))
	repotest.Run(t, store)
}

func TestPingAfterClose(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.Error(t, store.Ping(context.Background()))
}

func TestWithBusyTimeout(t *testing.T) {
	assert.Equal(t, "app.db?_busy_timeout=5000", withBusyTimeout("app.db"))
	assert.Equal(t, "file:app.db?cache=shared&_busy_timeout=5000", withBusyTimeout("file:app.db?cache=shared"))
	assert.Equal(t, "app.db?_busy_timeout=100", withBusyTimeout("app.db?_busy_timeout=100"))
}
