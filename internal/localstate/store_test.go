package localstate_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mviana-dev/sebo/internal/localstate"
)

func openStore(t *testing.T) (*localstate.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "sebo.db")
	store, err := localstate.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	store, path := openStore(t)
	require.NotNil(t, store)
	assert.FileExists(t, path)
}

func TestOpenIsIdempotent(t *testing.T) {
	_, path := openStore(t)

	again, err := localstate.Open(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := openStore(t)

	token, err := store.LoadSession()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.SaveSession("token-one"))
	token, err = store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "token-one", token)

	// A new token replaces the old one; there is only ever one session row.
	require.NoError(t, store.SaveSession("token-two"))
	token, err = store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "token-two", token)

	require.NoError(t, store.ClearSession())
	token, err = store.LoadSession()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSessionSurvivesReopen(t *testing.T) {
	_, path := openStore(t)

	first, err := localstate.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveSession("persisted"))
	require.NoError(t, first.Close())

	second, err := localstate.Open(path)
	require.NoError(t, err)
	defer second.Close()

	token, err := second.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
}

func TestJournalRecordsAndListsNewestFirst(t *testing.T) {
	store, _ := openStore(t)

	require.NoError(t, store.Record("add", "b1", 2, "applied"))
	require.NoError(t, store.Record("add", "b1", 2, "confirmed"))
	require.NoError(t, store.Record("set_quantity", "b1", 5, "applied"))
	require.NoError(t, store.Record("set_quantity", "b1", 5, "rolled_back"))

	mutations, err := store.ListMutations(10)
	require.NoError(t, err)
	require.Len(t, mutations, 4)

	assert.Equal(t, "set_quantity", mutations[0].Op)
	assert.Equal(t, "rolled_back", mutations[0].Outcome)
	assert.Equal(t, 5, mutations[0].Quantity)
	assert.Equal(t, "add", mutations[3].Op)
	assert.Equal(t, "applied", mutations[3].Outcome)
	assert.False(t, mutations[0].CreatedAt.IsZero())

	// Sequence numbers are strictly descending in the listing.
	for i := 1; i < len(mutations); i++ {
		assert.Greater(t, mutations[i-1].Seq, mutations[i].Seq)
	}
}

func TestJournalLimit(t *testing.T) {
	store, _ := openStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record("add", "b1", 1, "confirmed"))
	}

	mutations, err := store.ListMutations(3)
	require.NoError(t, err)
	assert.Len(t, mutations, 3)

	// A non-positive limit falls back to the default instead of listing
	// nothing.
	mutations, err = store.ListMutations(0)
	require.NoError(t, err)
	assert.Len(t, mutations, 5)
}

func TestJournalEmpty(t *testing.T) {
	store, _ := openStore(t)

	mutations, err := store.ListMutations(10)
	require.NoError(t, err)
	assert.Empty(t, mutations)
}
