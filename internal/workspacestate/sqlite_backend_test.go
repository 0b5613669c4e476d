package workspacestate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStateBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "state.db")

	backend, err := OpenSQLiteStateBackend(path)
	require.NoError(t, err)

	doc, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, doc)

	store := NewStore(StoreOptions{Backend: backend})
	_, err = store.TrackWorkspace(ctx, TrackWorkspaceInput{WorkspacePath: "/w", Action: ActionInit})
	require.NoError(t, err)
	_, err = store.TrackWorkspace(ctx, TrackWorkspaceInput{WorkspacePath: "/w", Action: ActionAudit})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStateBackend(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	ws := loaded.Workspaces[DeriveKey("/w")]
	require.NotNil(t, ws)
	assert.Len(t, ws.Actions, 2)
	assert.Equal(t, ActionAudit, ws.LastAction)
}

func TestSQLiteStateBackendSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	backend, err := OpenSQLiteStateBackend(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	var version int
	require.NoError(t, backend.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, sqliteSchemaVersion, version)

	// Reopening an up-to-date database must not reapply the schema.
	again, err := OpenSQLiteStateBackend(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestOpenSQLiteStateBackendRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLiteStateBackend(" ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
