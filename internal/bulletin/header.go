package bulletin

import (
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
)

// HeaderPacket is the signed description of one bulletin revision.
type HeaderPacket struct {
	LocalID                  string   `cbor:"local_id"`
	AccountID                string   `cbor:"account_id"`
	Status                   Status   `cbor:"status"`
	FieldDataPacketID        string   `cbor:"field_data_packet_id"`
	PrivateFieldDataPacketID string   `cbor:"private_field_data_packet_id,omitempty"`
	AttachmentIDs            []string `cbor:"attachment_ids,omitempty"`
	LastSavedTime            int64    `cbor:"last_saved_time"`
	// History lists ancestor local ids, oldest first.
	History            []string `cbor:"history,omitempty"`
	AuthorizedToRead   []string `cbor:"authorized_to_read,omitempty"`
	AuthorizedToUpload []string `cbor:"authorized_to_upload,omitempty"`
}

func (h *HeaderPacket) UID() UniversalID {
	return NewUniversalID(h.AccountID, h.LocalID)
}

func (h *HeaderPacket) Key() DatabaseKey {
	return DatabaseKey{UID: h.UID(), Status: h.Status}
}

// PacketIDs lists every data packet the header references, in bundle order.
func (h *HeaderPacket) PacketIDs() []string {
	ids := make([]string, 0, 2+len(h.AttachmentIDs))
	if h.FieldDataPacketID != "" {
		ids = append(ids, h.FieldDataPacketID)
	}
	if h.PrivateFieldDataPacketID != "" {
		ids = append(ids, h.PrivateFieldDataPacketID)
	}
	return append(ids, h.AttachmentIDs...)
}

// IsAuthorizedToUpload reports whether account may upload this bulletin:
// the author always may, and so may any listed proxy uploader.
func (h *HeaderPacket) IsAuthorizedToUpload(accountID string) bool {
	return accountID == h.AccountID || slices.Contains(h.AuthorizedToUpload, accountID)
}

// IsHQAuthorizedToRead reports whether account is a listed headquarters reader.
func (h *HeaderPacket) IsHQAuthorizedToRead(accountID string) bool {
	return slices.Contains(h.AuthorizedToRead, accountID)
}

// CanRead reports whether account may read this bulletin at all.
func (h *HeaderPacket) CanRead(accountID string) bool {
	return accountID == h.AccountID || h.IsHQAuthorizedToRead(accountID)
}

func (h *HeaderPacket) LastSaved() time.Time {
	return time.UnixMilli(h.LastSavedTime).UTC()
}

// ToPacket encodes and signs the header.
func (h *HeaderPacket) ToPacket(signer Signer) (*Packet, error) {
	payload, err := Marshal(h)
	if err != nil {
		return nil, err
	}
	p := &Packet{Kind: KindHeader, LocalID: h.LocalID, Payload: payload}
	if err := p.Sign(signer); err != nil {
		return nil, err
	}
	return p, nil
}

// HeaderFromPacket decodes the header carried by p. The header's identity
// must match its envelope.
func HeaderFromPacket(p *Packet) (*HeaderPacket, error) {
	if p.Kind != KindHeader {
		return nil, fmt.Errorf("%w: %s is %s", common.ErrWrongPacketType, p.LocalID, p.Kind)
	}
	var h HeaderPacket
	if err := Unmarshal(p.Payload, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPacket, err)
	}
	if h.LocalID != p.LocalID || h.AccountID != p.AccountID {
		return nil, fmt.Errorf("%w: header identity does not match envelope", common.ErrInvalidPacket)
	}
	if !IsHeaderLocalID(h.LocalID) || !h.Status.Valid() {
		return nil, fmt.Errorf("%w: bad header %q status %q", common.ErrInvalidPacket, h.LocalID, h.Status)
	}
	return &h, nil
}
