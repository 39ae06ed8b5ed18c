package store

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin/bulletintest"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/packetdb"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

func newTestStore(t *testing.T) (*Store, *packetdb.MemoryDatabase) {
	t.Helper()
	db := packetdb.NewMemoryDatabase()
	s, err := New(db, bulletintest.NewAccount(t), t.TempDir(), nopLogger{})
	require.NoError(t, err)
	return s, db
}

func TestSaveBundle_SealedThenDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	author := bulletintest.NewAccount(t)
	b := bulletintest.Build(t, author, bulletintest.Options{})

	require.NoError(t, s.SaveBundle(ctx, b.Bundle))

	err := s.SaveBundle(ctx, b.Bundle)
	assert.True(t, errors.Is(err, common.ErrSealedPacketExists))

	key, err := s.FindHeaderKey(ctx, b.Header.UID())
	require.NoError(t, err)
	assert.True(t, key.IsSealed())

	h, err := s.LoadHeader(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(b.Header, h))
}

func TestSaveBundle_IdenticalDraftIsDuplicate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	author := bulletintest.NewAccount(t)
	b := bulletintest.Build(t, author, bulletintest.Options{Status: bulletin.StatusDraft})

	require.NoError(t, s.SaveBundle(ctx, b.Bundle))
	assert.True(t, errors.Is(s.SaveBundle(ctx, b.Bundle), common.ErrDuplicatePacket))
}

func TestSaveBundle_SealedReplacesDraft(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)
	author := bulletintest.NewAccount(t)
	draft := bulletintest.Build(t, author, bulletintest.Options{Status: bulletin.StatusDraft})
	require.NoError(t, s.SaveBundle(ctx, draft.Bundle))
	require.NoError(t, s.WriteReceipt(ctx, draft.Header))

	sealed := bulletintest.Build(t, author, bulletintest.Options{LocalID: draft.Header.LocalID})
	require.NoError(t, s.SaveBundle(ctx, sealed.Bundle))

	var keys []bulletin.DatabaseKey
	require.NoError(t, db.Visit(ctx, func(k bulletin.DatabaseKey) error {
		keys = append(keys, k)
		return nil
	}))
	for _, k := range keys {
		assert.True(t, k.IsSealed(), "draft record %v survived", k)
	}
	assert.Len(t, keys, 2)
}

func TestSaveBundle_ForeignPacketRejected(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	author := bulletintest.NewAccount(t)
	b := bulletintest.Build(t, author, bulletintest.Options{})
	require.NoError(t, b.Bundle.Packets[0].Sign(bulletintest.NewAccount(t)))

	assert.True(t, errors.Is(s.SaveBundle(ctx, b.Bundle), common.ErrWrongAccount))
}

func TestSaveBundle_SealedDataPacketNeverReplaced(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	author := bulletintest.NewAccount(t)
	first := bulletintest.Build(t, author, bulletintest.Options{Data: []byte("original sealed data")})
	require.NoError(t, s.SaveBundle(ctx, first.Bundle))

	fdp := &bulletin.Packet{
		Kind:    bulletin.KindFieldData,
		LocalID: first.Header.FieldDataPacketID,
		Payload: []byte("REPLACED"),
	}
	require.NoError(t, fdp.Sign(author))
	header := &bulletin.HeaderPacket{
		LocalID:           bulletin.NewLocalID(bulletin.HeaderPrefix),
		AccountID:         author.AccountID(),
		Status:            bulletin.StatusSealed,
		FieldDataPacketID: fdp.LocalID,
		LastSavedTime:     first.Header.LastSavedTime + 1,
	}
	hp, err := header.ToPacket(author)
	require.NoError(t, err)

	err = s.SaveBundle(ctx, &bulletin.Bundle{Header: header, HeaderPacket: hp, Packets: []*bulletin.Packet{fdp}})
	assert.True(t, errors.Is(err, common.ErrSealedPacketExists))

	_, err = s.FindHeaderKey(ctx, header.UID())
	assert.True(t, errors.Is(err, common.ErrorNotFound), "refused bulletin must leave no header behind")

	var buf bytes.Buffer
	require.NoError(t, s.ExportBundle(ctx, first.Header.Key(), &buf))
	back, err := bulletin.ReadBundle(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, back.Packets, 1)
	assert.Equal(t, "original sealed data", string(back.Packets[0].Payload))
}

func TestSaveBundle_ConcurrentSameBulletinCommitsOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	author := bulletintest.NewAccount(t)
	b := bulletintest.Build(t, author, bulletintest.Options{})

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.SaveBundle(ctx, b.Bundle)
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.True(t, errors.Is(err, common.ErrSealedPacketExists))
		}
	}
	assert.Equal(t, 1, ok)
}

func TestExportBundle_RoundTrips(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	author := bulletintest.NewAccount(t)
	b := bulletintest.Build(t, author, bulletintest.Options{Attachments: [][]byte{[]byte("photo")}})
	require.NoError(t, s.SaveBundle(ctx, b.Bundle))

	var buf bytes.Buffer
	require.NoError(t, s.ExportBundle(ctx, b.Header.Key(), &buf))

	back, err := bulletin.ReadBundle(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, back.VerifyHeader(author.AccountID()))
	require.NoError(t, back.VerifyPackets())
	assert.Empty(t, cmp.Diff(b.Header, back.Header))
}

func TestReceipt_WrittenAndVerifiable(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	author := bulletintest.NewAccount(t)
	b := bulletintest.Build(t, author, bulletintest.Options{})
	require.NoError(t, s.SaveBundle(ctx, b.Bundle))
	require.NoError(t, s.WriteReceipt(ctx, b.Header))

	r, err := s.ReadReceipt(ctx, b.Header.Key())
	require.NoError(t, err)
	assert.Equal(t, b.Header.LocalID, r.HeaderLocalID)
	assert.Equal(t, int64(1700000000000), r.ReceivedAt)
	require.NoError(t, r.Verify())

	r.ReceivedAt++
	assert.Error(t, r.Verify())
}

func TestVisitAllBulletinRevisions_OnlyHeaders(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	author := bulletintest.NewAccount(t)
	b := bulletintest.Build(t, author, bulletintest.Options{})
	require.NoError(t, s.SaveBundle(ctx, b.Bundle))
	require.NoError(t, s.WriteReceipt(ctx, b.Header))
	require.NoError(t, s.WriteContactInfo(ctx, author.AccountID(), []string{"x"}))

	var got []bulletin.DatabaseKey
	require.NoError(t, s.VisitAllBulletinRevisions(ctx, func(k bulletin.DatabaseKey) error {
		got = append(got, k)
		return nil
	}))
	assert.Equal(t, []bulletin.DatabaseKey{b.Header.Key()}, got)

	size, err := s.BulletinSize(ctx, b.Header.Key(), b.Header)
	require.NoError(t, err)
	assert.Positive(t, size)
}

func TestDeleteDraft(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	author := bulletintest.NewAccount(t)
	d := bulletintest.Build(t, author, bulletintest.Options{Status: bulletin.StatusDraft})
	require.NoError(t, s.SaveBundle(ctx, d.Bundle))

	require.NoError(t, s.DeleteDraft(ctx, d.Header.UID()))
	_, err := s.FindHeaderKey(ctx, d.Header.UID())
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	assert.True(t, errors.Is(s.DeleteDraft(ctx, d.Header.UID()), common.ErrorNotFound))
}

func TestContactInfo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.ReadContactInfo(ctx, "acct")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	info := []string{"acct", "2", "name", "mail", "sig"}
	require.NoError(t, s.WriteContactInfo(ctx, "acct", info))
	got, err := s.ReadContactInfo(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestInterimPaths_DistinctPerBulletin(t *testing.T) {
	s, _ := newTestStore(t)
	a := bulletin.NewUniversalID("acct", "B-1")
	b := bulletin.NewUniversalID("acct", "B-2")

	assert.NotEqual(t, s.IncomingInterimFile(a), s.IncomingInterimFile(b))
	assert.NotEqual(t, s.IncomingInterimFile(a), s.OutgoingInterimFile(a))
	assert.Equal(t, s.OutgoingInterimFile(a)+".sig", s.OutgoingSignatureFile(a))
}
