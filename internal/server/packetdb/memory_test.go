package packetdb

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDatabase_ReadWriteCommit(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()

	_, err := db.ReadRecord(ctx, testKey)
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	data := []byte("abc")
	require.NoError(t, db.WriteRecord(ctx, Record{Key: testKey, Data: data}))
	data[0] = 'z'

	got, err := db.ReadRecord(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got), "stored bytes must not alias the caller's slice")

	n, err := db.RecordSize(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	other := bulletin.DraftKey(bulletin.NewUniversalID("acct", "F-1"))
	require.NoError(t, db.Commit(ctx, []bulletin.DatabaseKey{testKey}, []Record{{Key: other, Data: []byte("f")}}))

	ok, err := db.RecordExists(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = db.RecordExists(ctx, other)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryDatabase_CommitNeverReplacesSealed(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()
	sealed := bulletin.SealedKey(bulletin.NewUniversalID("acct", "F-1"))
	require.NoError(t, db.Commit(ctx, nil, []Record{{Key: sealed, Data: []byte("first")}}))

	draft := bulletin.DraftKey(bulletin.NewUniversalID("acct", "F-2"))
	err := db.Commit(ctx, nil, []Record{{Key: draft, Data: []byte("d")}, {Key: sealed, Data: []byte("second")}})
	require.ErrorIs(t, err, common.ErrSealedPacketExists)

	got, err := db.ReadRecord(ctx, sealed)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	ok, err := db.RecordExists(ctx, draft)
	require.NoError(t, err)
	assert.False(t, ok, "a refused commit must write nothing")

	require.NoError(t, db.Commit(ctx, []bulletin.DatabaseKey{sealed}, []Record{{Key: sealed, Data: []byte("second")}}))
}

func TestMemoryDatabase_VisitSorted(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDatabase()
	for _, k := range []bulletin.DatabaseKey{
		bulletin.SealedKey(bulletin.NewUniversalID("b", "B-2")),
		bulletin.DraftKey(bulletin.NewUniversalID("a", "B-9")),
		bulletin.SealedKey(bulletin.NewUniversalID("a", "B-1")),
	} {
		require.NoError(t, db.WriteRecord(ctx, Record{Key: k, Data: []byte("x")}))
	}

	var got []string
	require.NoError(t, db.Visit(ctx, func(k bulletin.DatabaseKey) error {
		got = append(got, k.UID.AccountID+"/"+k.UID.LocalID)
		return nil
	}))
	assert.Equal(t, []string{"a/B-1", "a/B-9", "b/B-2"}, got)
}

func TestMemoryDatabase_VisitHonoursCancel(t *testing.T) {
	db := NewMemoryDatabase()
	require.NoError(t, db.WriteRecord(context.Background(), Record{Key: testKey, Data: []byte("x")}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := db.Visit(ctx, func(bulletin.DatabaseKey) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
