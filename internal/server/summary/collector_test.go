package summary

import (
	"context"
	"strconv"
	"testing"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin/bulletintest"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/packetdb"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/store"
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

type lineage struct {
	original, firstClone, clone *bulletintest.Built
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(packetdb.NewMemoryDatabase(), bulletintest.NewAccount(t), t.TempDir(), nopLogger{})
	require.NoError(t, err)
	return st
}

// saveLineage stores a sealed original, a sealed first clone and a draft
// second clone, each listing its ancestors.
func saveLineage(t *testing.T, st *store.Store, hqs ...string) (*lineage, string) {
	t.Helper()
	ctx := context.Background()
	acct := bulletintest.NewAccount(t)

	l := &lineage{}
	l.original = bulletintest.Build(t, acct, bulletintest.Options{HQs: hqs})
	l.firstClone = bulletintest.Build(t, acct, bulletintest.Options{
		HQs:     hqs,
		History: []string{l.original.Header.LocalID},
	})
	l.clone = bulletintest.Build(t, acct, bulletintest.Options{
		Status:  bulletin.StatusDraft,
		HQs:     hqs,
		History: []string{l.original.Header.LocalID, l.firstClone.Header.LocalID},
	})
	for _, b := range []*bulletintest.Built{l.original, l.firstClone, l.clone} {
		require.NoError(t, st.SaveBundle(ctx, b.Bundle))
	}
	return l, acct.AccountID()
}

func TestCollect_OmitsOldVersions(t *testing.T) {
	st := newStore(t)
	c := NewCollector(st, nopLogger{})
	l, author := saveLineage(t, st)
	ctx := context.Background()

	drafts, err := c.MyDrafts(ctx, author, nil)
	require.NoError(t, err)
	want := []string{l.clone.Header.LocalID + "=" + l.clone.Header.FieldDataPacketID}
	assert.Empty(t, cmp.Diff(want, drafts))

	sealed, err := c.MySealed(ctx, author, nil)
	require.NoError(t, err)
	assert.Empty(t, sealed)

	other, err := c.MyDrafts(ctx, bulletintest.NewAccount(t).AccountID(), nil)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSummary_TagOrderFollowsRequest(t *testing.T) {
	st := newStore(t)
	c := NewCollector(st, nopLogger{})
	l, _ := saveLineage(t, st)
	ctx := context.Background()

	h := l.clone.Header
	key := h.Key()
	size, err := st.BulletinSize(ctx, key, h)
	require.NoError(t, err)
	require.Positive(t, size)

	minimal := h.LocalID + "=" + h.FieldDataPacketID
	history := l.original.Header.LocalID + " " + l.firstClone.Header.LocalID + " "
	saved := strconv.FormatInt(h.LastSavedTime, 10)
	sz := strconv.FormatInt(size, 10)

	tests := []struct {
		name string
		tags []string
		want string
	}{
		{name: "no tags", tags: nil, want: minimal},
		{
			name: "size date history",
			tags: []string{common.TagBulletinSize, common.TagBulletinDateSaved, common.TagBulletinHistory},
			want: minimal + "=" + sz + "=" + saved + "=" + history,
		},
		{
			name: "history date size",
			tags: []string{common.TagBulletinHistory, common.TagBulletinDateSaved, common.TagBulletinSize},
			want: minimal + "=" + history + "=" + saved + "=" + sz,
		},
		{name: "unknown tag skipped", tags: []string{"Bogus", common.TagBulletinSize}, want: minimal + "=" + sz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Summary(ctx, key, h, tt.tags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldOffice_Listings(t *testing.T) {
	st := newStore(t)
	c := NewCollector(st, nopLogger{})
	ctx := context.Background()

	hq := bulletintest.NewAccount(t).AccountID()
	l, fieldOffice := saveLineage(t, st, hq)
	_, unrelated := saveLineage(t, st)

	drafts, err := c.FieldOfficeDrafts(ctx, hq, fieldOffice, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{l.clone.Header.LocalID + "=" + l.clone.Header.FieldDataPacketID}, drafts)

	sealed, err := c.FieldOfficeSealed(ctx, hq, fieldOffice, nil)
	require.NoError(t, err)
	assert.Empty(t, sealed)

	none, err := c.FieldOfficeDrafts(ctx, hq, unrelated, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	accounts, err := c.FieldOfficeAccounts(ctx, hq)
	require.NoError(t, err)
	assert.Equal(t, []string{fieldOffice}, accounts)

	accounts, err = c.FieldOfficeAccounts(ctx, fieldOffice)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestCollect_IndependentBulletinsAllListed(t *testing.T) {
	st := newStore(t)
	c := NewCollector(st, nopLogger{})
	ctx := context.Background()
	author := bulletintest.NewAccount(t)

	a := bulletintest.Build(t, author, bulletintest.Options{})
	b := bulletintest.Build(t, author, bulletintest.Options{})
	require.NoError(t, st.SaveBundle(ctx, a.Bundle))
	require.NoError(t, st.SaveBundle(ctx, b.Bundle))

	got, err := c.MySealed(ctx, author.AccountID(), nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		a.Header.LocalID + "=" + a.Header.FieldDataPacketID,
		b.Header.LocalID + "=" + b.Header.FieldDataPacketID,
	}, got)
}

type recordingStore struct {
	*store.Store
	loaded []bulletin.DatabaseKey
}

func (s *recordingStore) LoadHeader(ctx context.Context, key bulletin.DatabaseKey) (*bulletin.HeaderPacket, error) {
	s.loaded = append(s.loaded, key)
	return s.Store.LoadHeader(ctx, key)
}

func TestCollect_SkipsUnreadableHeaders(t *testing.T) {
	ctx := context.Background()
	db := packetdb.NewMemoryDatabase()
	st, err := store.New(db, bulletintest.NewAccount(t), t.TempDir(), nopLogger{})
	require.NoError(t, err)
	rs := &recordingStore{Store: st}
	c := NewCollector(rs, nopLogger{})

	hq := bulletintest.NewAccount(t).AccountID()
	author := bulletintest.NewAccount(t)
	b := bulletintest.Build(t, author, bulletintest.Options{HQs: []string{hq}})
	require.NoError(t, st.SaveBundle(ctx, b.Bundle))

	broken := bulletin.SealedKey(bulletin.NewUniversalID("other", "B-broken"))
	require.NoError(t, db.WriteRecord(ctx, packetdb.Record{Key: broken, Data: []byte("garbage")}))

	sealed, err := c.MySealed(ctx, author.AccountID(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{b.Header.LocalID + "=" + b.Header.FieldDataPacketID}, sealed)
	assert.NotContains(t, rs.loaded, broken, "other accounts' headers are not loaded for own listings")

	accounts, err := c.FieldOfficeAccounts(ctx, hq)
	require.NoError(t, err)
	assert.Equal(t, []string{author.AccountID()}, accounts)
	assert.Contains(t, rs.loaded, broken)

	mine, err := c.MySealed(ctx, "other", nil)
	require.NoError(t, err)
	assert.Empty(t, mine)
}
