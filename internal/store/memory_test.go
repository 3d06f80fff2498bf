package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreOrderAndCRUD(t *testing.T) {
	m := NewMemoryStore()

	a := testRecord(8, 0, "a")
	b := testRecord(8, 0, "b")
	require.NoError(t, m.Upsert(a))
	require.NoError(t, m.Upsert(b))

	// Re-upserting a keeps it first.
	a.Label = "a2"
	require.NoError(t, m.Upsert(a))

	got, err := m.List()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].Label)
	assert.Equal(t, "b", got[1].Label)

	require.NoError(t, m.SetEnabled(a.ID, false))
	r, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.False(t, r.Enabled)

	require.NoError(t, m.Remove(a.ID))
	_, err = m.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = m.List()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestMemoryStoreErrors(t *testing.T) {
	m := NewMemoryStore()

	assert.ErrorIs(t, m.Remove("missing"), ErrNotFound)
	assert.ErrorIs(t, m.SetEnabled("missing", true), ErrNotFound)

	bad := testRecord(8, 0, "bad")
	bad.Minute = 99
	assert.Error(t, m.Upsert(bad))
}
