package bulletin_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin/bulletintest"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalIDPredicates(t *testing.T) {
	assert.True(t, bulletin.IsHeaderLocalID(bulletin.NewLocalID(bulletin.HeaderPrefix)))
	assert.True(t, bulletin.IsFieldDataLocalID("F-1"))
	assert.True(t, bulletin.IsAttachmentLocalID("A-1"))
	assert.False(t, bulletin.IsHeaderLocalID("B-"))
	assert.False(t, bulletin.IsHeaderLocalID("BUR-B-1"))
	assert.False(t, bulletin.IsHeaderLocalID("Not a valid local id"))
	assert.Equal(t, "BUR-B-1", bulletin.ReceiptLocalID("B-1"))
}

func TestPacket_SignVerifyAndTamper(t *testing.T) {
	author := bulletintest.NewAccount(t)
	p := &bulletin.Packet{Kind: bulletin.KindFieldData, LocalID: "F-1", Payload: []byte("x")}
	require.NoError(t, p.Sign(author))
	require.NoError(t, p.Verify())

	b, err := p.Marshal()
	require.NoError(t, err)
	back, err := bulletin.UnmarshalPacket(b)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(p, back))

	back.Payload = []byte("y")
	assert.True(t, errors.Is(back.Verify(), common.ErrSignatureVerification))
}

func TestPacket_DeterministicEncoding(t *testing.T) {
	author := bulletintest.NewAccount(t)
	p := &bulletin.Packet{Kind: bulletin.KindAttachment, LocalID: "A-1", Payload: []byte("blob")}
	require.NoError(t, p.Sign(author))

	a, err := p.Marshal()
	require.NoError(t, err)
	b, err := p.Marshal()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestUnmarshalPacket_Rejects(t *testing.T) {
	_, err := bulletin.UnmarshalPacket([]byte("not cbor"))
	assert.True(t, errors.Is(err, common.ErrInvalidPacket))

	b, err := bulletin.Marshal(bulletin.Packet{Kind: "bogus", LocalID: "X", AccountID: "a"})
	require.NoError(t, err)
	_, err = bulletin.UnmarshalPacket(b)
	assert.True(t, errors.Is(err, common.ErrInvalidPacket))
}

func TestHeaderFromPacket_WrongKind(t *testing.T) {
	author := bulletintest.NewAccount(t)
	p := &bulletin.Packet{Kind: bulletin.KindFieldData, LocalID: "F-1"}
	require.NoError(t, p.Sign(author))

	_, err := bulletin.HeaderFromPacket(p)
	assert.True(t, errors.Is(err, common.ErrWrongPacketType))
}

func TestHeader_Authorization(t *testing.T) {
	author := bulletintest.NewAccount(t)
	hq := bulletintest.NewAccount(t)
	proxy := bulletintest.NewAccount(t)
	stranger := bulletintest.NewAccount(t)

	b := bulletintest.Build(t, author, bulletintest.Options{
		HQs:       []string{hq.AccountID()},
		Uploaders: []string{proxy.AccountID()},
	})
	h := b.Header

	assert.True(t, h.IsAuthorizedToUpload(author.AccountID()))
	assert.True(t, h.IsAuthorizedToUpload(proxy.AccountID()))
	assert.False(t, h.IsAuthorizedToUpload(hq.AccountID()))

	assert.True(t, h.CanRead(author.AccountID()))
	assert.True(t, h.CanRead(hq.AccountID()))
	assert.False(t, h.IsHQAuthorizedToRead(author.AccountID()))
	assert.False(t, h.CanRead(stranger.AccountID()))
}

func TestBundle_RoundTripAndVerify(t *testing.T) {
	author := bulletintest.NewAccount(t)
	built := bulletintest.Build(t, author, bulletintest.Options{
		Status:      bulletin.StatusDraft,
		Attachments: [][]byte{[]byte("one"), []byte("two")},
	})

	got, err := bulletin.ReadBundle(built.Zip)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(built.Header, got.Header))
	require.Len(t, got.Packets, 3)
	assert.Equal(t, built.Header.PacketIDs(), []string{got.Packets[0].LocalID, got.Packets[1].LocalID, got.Packets[2].LocalID})

	require.NoError(t, got.VerifyHeader(author.AccountID()))
	require.NoError(t, got.VerifyPackets())

	other := bulletintest.NewAccount(t)
	assert.True(t, errors.Is(got.VerifyHeader(other.AccountID()), common.ErrWrongAccount))

	path := bulletintest.WriteZip(t, t.TempDir(), built)
	fromDisk, err := bulletin.ReadBundleFile(path)
	require.NoError(t, err)
	assert.Equal(t, built.Header.LocalID, fromDisk.Header.LocalID)
}

func TestBundle_ForeignPacketIsWrongAccount(t *testing.T) {
	author := bulletintest.NewAccount(t)
	intruder := bulletintest.NewAccount(t)
	built := bulletintest.Build(t, author, bulletintest.Options{})

	require.NoError(t, built.Bundle.Packets[0].Sign(intruder))
	assert.True(t, errors.Is(built.Bundle.VerifyPackets(), common.ErrWrongAccount))
}

func TestReadBundle_Malformed(t *testing.T) {
	_, err := bulletin.ReadBundle([]byte("definitely not a zip"))
	assert.True(t, errors.Is(err, common.ErrInvalidPacket))

	author := bulletintest.NewAccount(t)
	built := bulletintest.Build(t, author, bulletintest.Options{})

	// header only: the referenced field data packet is missing
	var buf bytes.Buffer
	require.NoError(t, bulletin.WriteBundle(&buf, built.Packets[0]))
	_, err = bulletin.ReadBundle(buf.Bytes())
	assert.True(t, errors.Is(err, common.ErrInvalidPacket))

	// no header at all
	buf.Reset()
	require.NoError(t, bulletin.WriteBundle(&buf, built.Packets[1:]...))
	_, err = bulletin.ReadBundle(buf.Bytes())
	assert.True(t, errors.Is(err, common.ErrInvalidPacket))
}
