// Package bulletintest builds signed bulletins and bundles for tests.
package bulletintest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/stretchr/testify/require"
)

// Options shape a generated bulletin. Zero values give a sealed bulletin
// with one field data packet and no attachments.
type Options struct {
	LocalID     string
	Status      bulletin.Status
	Data        []byte
	Attachments [][]byte
	History     []string
	HQs         []string
	Uploaders   []string
	SavedAt     time.Time
}

// Built is a generated bulletin.
type Built struct {
	Header  *bulletin.HeaderPacket
	Bundle  *bulletin.Bundle
	Zip     []byte
	Packets []*bulletin.Packet
}

// NewAccount returns a fresh signing identity.
func NewAccount(t testing.TB) *cryptox.Security {
	t.Helper()
	s, err := cryptox.GenerateSecurity()
	require.NoError(t, err)
	return s
}

// Build signs a bulletin as author and encodes it as a zip bundle.
func Build(t testing.TB, author *cryptox.Security, opts Options) *Built {
	t.Helper()

	if opts.LocalID == "" {
		opts.LocalID = bulletin.NewLocalID(bulletin.HeaderPrefix)
	}
	if opts.Status == "" {
		opts.Status = bulletin.StatusSealed
	}
	if opts.Data == nil {
		opts.Data = []byte("encrypted field data for " + opts.LocalID)
	}
	if opts.SavedAt.IsZero() {
		opts.SavedAt = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)
	}

	fdp := &bulletin.Packet{
		Kind:    bulletin.KindFieldData,
		LocalID: bulletin.NewLocalID(bulletin.FieldDataPrefix),
		Payload: opts.Data,
	}
	require.NoError(t, fdp.Sign(author))
	data := []*bulletin.Packet{fdp}

	header := &bulletin.HeaderPacket{
		LocalID:            opts.LocalID,
		AccountID:          author.AccountID(),
		Status:             opts.Status,
		FieldDataPacketID:  fdp.LocalID,
		LastSavedTime:      opts.SavedAt.UnixMilli(),
		History:            opts.History,
		AuthorizedToRead:   opts.HQs,
		AuthorizedToUpload: opts.Uploaders,
	}
	for _, a := range opts.Attachments {
		p := &bulletin.Packet{
			Kind:    bulletin.KindAttachment,
			LocalID: bulletin.NewLocalID(bulletin.AttachmentPrefix),
			Payload: a,
		}
		require.NoError(t, p.Sign(author))
		header.AttachmentIDs = append(header.AttachmentIDs, p.LocalID)
		data = append(data, p)
	}

	hp, err := header.ToPacket(author)
	require.NoError(t, err)

	all := append([]*bulletin.Packet{hp}, data...)
	var buf bytes.Buffer
	require.NoError(t, bulletin.WriteBundle(&buf, all...))

	return &Built{
		Header:  header,
		Bundle:  &bulletin.Bundle{Header: header, HeaderPacket: hp, Packets: data},
		Zip:     buf.Bytes(),
		Packets: all,
	}
}

// WriteZip stores b's bundle in dir and returns the path.
func WriteZip(t testing.TB, dir string, b *Built) string {
	t.Helper()
	path := filepath.Join(dir, b.Header.LocalID+".zip")
	require.NoError(t, os.WriteFile(path, b.Zip, 0o600))
	return path
}
