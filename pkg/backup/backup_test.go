package backup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/ticktrack/pkg/store"
)

func TestSnapshotCopiesDocumentsAndSkipsUnchanged(t *testing.T) {
	st, err := store.New(t.TempDir(), 0)
	require.NoError(t, err)
	require.NoError(t, st.Write(store.KindSuggestions, []byte(`["Work / Email"]`)))

	db, err := Open(filepath.Join(t.TempDir(), "backup.sqlite3"))
	require.NoError(t, err)
	defer db.Close()

	runner, err := New(db, st, time.Minute)
	require.NoError(t, err)
	runner.Snapshot(context.Background())

	var content string
	require.NoError(t, db.QueryRow(
		`SELECT content FROM backups WHERE kind = ?`, string(store.KindSuggestions),
	).Scan(&content))
	assert.Equal(t, `["Work / Email"]`, content)

	var savedAt string
	require.NoError(t, db.QueryRow(
		`SELECT saved_at FROM backups WHERE kind = ?`, string(store.KindSuggestions),
	).Scan(&savedAt))

	// a second snapshot with identical content must not rewrite the row
	runner.Snapshot(context.Background())
	var savedAtAfter string
	require.NoError(t, db.QueryRow(
		`SELECT saved_at FROM backups WHERE kind = ?`, string(store.KindSuggestions),
	).Scan(&savedAtAfter))
	assert.Equal(t, savedAt, savedAtAfter)

	// unwritten documents are backed up as their defaults
	require.NoError(t, db.QueryRow(
		`SELECT content FROM backups WHERE kind = ?`, string(store.KindActive),
	).Scan(&content))
	assert.Equal(t, "{}", content)
}
