package dict

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMemoryInterning(t *testing.T) {
	m := NewMemory()

	a := m.Intern("<A>")
	b := m.Intern("<B>")
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, m.Intern("<A>"))
	assert.Equal(t, "<B>", m.String(b))
	assert.Equal(t, 2, m.Len())

	_, ok := m.Lookup("<C>")
	assert.False(t, ok)
	_, err := m.GetID("<C>")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetString(0)
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := m.GetIDs([]string{"<A>", "<C>", "<A>"})
	require.NoError(t, err)
	assert.Equal(t, ids[0], ids[2])
	assert.Equal(t, 3, m.Len())
}

func TestEncoderRoundTrip(t *testing.T) {
	db := openInMemory(t)
	enc, err := NewEncoder(db, 16)
	require.NoError(t, err)
	defer enc.Close()

	ids, err := enc.GetIDs([]string{"<A>", "<B>", "<A>"})
	require.NoError(t, err)
	assert.Equal(t, ids[0], ids[2])
	assert.NotEqual(t, ids[0], ids[1])

	id, err := enc.GetOrCreateID("<B>")
	require.NoError(t, err)
	assert.Equal(t, ids[1], id)

	s, err := enc.GetString(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "<A>", s)

	_, err = enc.GetID("<missing>")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEncoderSurvivesReopen(t *testing.T) {
	db := openInMemory(t)
	first, err := NewEncoder(db, 4)
	require.NoError(t, err)
	a, err := first.GetOrCreateID("<A>")
	require.NoError(t, err)

	// A fresh encoder on the same DB sees persisted entries and never reuses IDs.
	second, err := NewEncoder(db, 4)
	require.NoError(t, err)
	got, err := second.GetID("<A>")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	b, err := second.GetOrCreateID("<B>")
	require.NoError(t, err)
	assert.Greater(t, b, a)
}

func TestRangeAllocatorBatches(t *testing.T) {
	db := openInMemory(t)
	r, err := NewRangeAllocator(db, 2)
	require.NoError(t, err)

	start, err := r.AllocateBatch(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), start)

	next, err := r.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), next)
	assert.Equal(t, uint64(6), r.CurrentID())
}
