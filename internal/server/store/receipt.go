package store

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/packetdb"
)

// Receipt records that the server accepted a bulletin revision.
type Receipt struct {
	HeaderLocalID   string `cbor:"header_local_id"`
	HeaderDigest    []byte `cbor:"header_digest"`
	ReceivedAt      int64  `cbor:"received_at"`
	ServerAccountID string `cbor:"server_account_id"`
	Signature       []byte `cbor:"signature,omitempty"`
}

func (r Receipt) signedBytes() ([]byte, error) {
	r.Signature = nil
	return bulletin.Marshal(r)
}

// Verify checks the server signature on the receipt.
func (r Receipt) Verify() error {
	b, err := r.signedBytes()
	if err != nil {
		return err
	}
	return cryptox.Verify(r.ServerAccountID, b, r.Signature)
}

// WriteReceipt stores a server-signed receipt next to the header at its key.
func (s *Store) WriteReceipt(ctx context.Context, h *bulletin.HeaderPacket) error {
	key := h.Key()
	headerBytes, err := s.db.ReadRecord(ctx, key)
	if err != nil {
		return err
	}

	r := Receipt{
		HeaderLocalID:   h.LocalID,
		HeaderDigest:    cryptox.Digest(headerBytes),
		ReceivedAt:      s.now().UnixMilli(),
		ServerAccountID: s.security.AccountID(),
	}
	b, err := r.signedBytes()
	if err != nil {
		return err
	}
	if r.Signature, err = s.security.Sign(b); err != nil {
		return err
	}

	data, err := bulletin.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.WriteRecord(ctx, packetdb.Record{Key: key.WithLocalID(bulletin.ReceiptLocalID(h.LocalID)), Data: data})
}

// ReadReceipt loads the receipt for the revision at key.
func (s *Store) ReadReceipt(ctx context.Context, key bulletin.DatabaseKey) (*Receipt, error) {
	data, err := s.db.ReadRecord(ctx, key.WithLocalID(bulletin.ReceiptLocalID(key.UID.LocalID)))
	if err != nil {
		return nil, err
	}
	var r Receipt
	if err := bulletin.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPacket, err)
	}
	return &r, nil
}
