package bulletin

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/klauspost/compress/zip"
)

// maxPacketSize bounds a single decompressed zip entry.
const maxPacketSize = 64 << 20

// Bundle is a parsed bulletin archive.
type Bundle struct {
	Header       *HeaderPacket
	HeaderPacket *Packet
	// Packets holds the data packets in header order.
	Packets []*Packet
}

// All returns the header packet followed by every data packet.
func (b *Bundle) All() []*Packet {
	return append([]*Packet{b.HeaderPacket}, b.Packets...)
}

// VerifyHeader checks the header signature and that authorID wrote it.
func (b *Bundle) VerifyHeader(authorID string) error {
	if err := b.HeaderPacket.Verify(); err != nil {
		return err
	}
	if b.Header.AccountID != authorID {
		return fmt.Errorf("%w: header signed by another account", common.ErrWrongAccount)
	}
	return nil
}

// VerifyPackets checks every data packet belongs to the header's author and
// carries a valid signature.
func (b *Bundle) VerifyPackets() error {
	for _, p := range b.Packets {
		if p.AccountID != b.Header.AccountID {
			return fmt.Errorf("%w: packet %s", common.ErrWrongAccount, p.LocalID)
		}
		if err := p.Verify(); err != nil {
			return err
		}
	}
	return nil
}

// WriteBundle writes packets as a zip archive, one entry per packet.
func WriteBundle(w io.Writer, packets ...*Packet) error {
	zw := zip.NewWriter(w)
	for _, p := range packets {
		b, err := p.Marshal()
		if err != nil {
			return err
		}
		fw, err := zw.Create(p.LocalID)
		if err != nil {
			return err
		}
		if _, err := fw.Write(b); err != nil {
			return err
		}
	}
	return zw.Close()
}

// ReadBundleFile opens and parses a bundle on disk. No signatures are
// checked; callers use VerifyHeader and VerifyPackets.
func ReadBundleFile(path string) (*Bundle, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPacket, err)
	}
	defer zr.Close()
	return readBundle(&zr.Reader)
}

// ReadBundle parses a bundle held in memory.
func ReadBundle(data []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPacket, err)
	}
	return readBundle(zr)
}

func readBundle(zr *zip.Reader) (*Bundle, error) {
	byID := make(map[string]*Packet, len(zr.File))
	var header *Packet

	for _, f := range zr.File {
		p, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		if p.LocalID != f.Name {
			return nil, fmt.Errorf("%w: entry %q holds packet %q", common.ErrInvalidPacket, f.Name, p.LocalID)
		}
		if _, dup := byID[p.LocalID]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %q", common.ErrInvalidPacket, f.Name)
		}
		byID[p.LocalID] = p
		if p.Kind == KindHeader {
			if header != nil {
				return nil, fmt.Errorf("%w: more than one header", common.ErrInvalidPacket)
			}
			header = p
		}
	}
	if header == nil {
		return nil, fmt.Errorf("%w: no header packet", common.ErrInvalidPacket)
	}

	h, err := HeaderFromPacket(header)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Header: h, HeaderPacket: header}
	for _, id := range h.PacketIDs() {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: missing packet %q", common.ErrInvalidPacket, id)
		}
		if p.Kind != kindForLocalID(id) {
			return nil, fmt.Errorf("%w: %q is %s", common.ErrWrongPacketType, id, p.Kind)
		}
		b.Packets = append(b.Packets, p)
	}
	if len(b.Packets)+1 != len(byID) {
		return nil, fmt.Errorf("%w: unreferenced packets in bundle", common.ErrInvalidPacket)
	}
	return b, nil
}

func readEntry(f *zip.File) (*Packet, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPacket, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPacketSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPacket, err)
	}
	if len(data) > maxPacketSize {
		return nil, fmt.Errorf("%w: entry %q too large", common.ErrInvalidPacket, f.Name)
	}
	return UnmarshalPacket(data)
}

func kindForLocalID(id string) Kind {
	switch {
	case IsFieldDataLocalID(id):
		return KindFieldData
	case IsAttachmentLocalID(id):
		return KindAttachment
	case IsHeaderLocalID(id):
		return KindHeader
	}
	return ""
}
