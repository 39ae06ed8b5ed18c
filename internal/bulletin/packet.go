package bulletin

import (
	"fmt"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
)

// Kind distinguishes packet payloads.
type Kind string

const (
	KindHeader     Kind = "header"
	KindFieldData  Kind = "fielddata"
	KindAttachment Kind = "attachment"
)

// Signer produces detached signatures for an account.
type Signer interface {
	AccountID() string
	Sign(data []byte) ([]byte, error)
}

// Packet is the signed envelope every stored record travels in. Payload is
// opaque to the server except for header packets.
type Packet struct {
	Kind      Kind   `cbor:"kind"`
	LocalID   string `cbor:"local_id"`
	AccountID string `cbor:"account_id"`
	Payload   []byte `cbor:"payload"`
	Signature []byte `cbor:"signature,omitempty"`
}

type signedPart struct {
	Kind      Kind   `cbor:"kind"`
	LocalID   string `cbor:"local_id"`
	AccountID string `cbor:"account_id"`
	Payload   []byte `cbor:"payload"`
}

func (p *Packet) signedBytes() ([]byte, error) {
	return Marshal(signedPart{Kind: p.Kind, LocalID: p.LocalID, AccountID: p.AccountID, Payload: p.Payload})
}

func (p *Packet) UID() UniversalID {
	return NewUniversalID(p.AccountID, p.LocalID)
}

// Sign stamps the packet with signer's account and signature.
func (p *Packet) Sign(signer Signer) error {
	p.AccountID = signer.AccountID()
	b, err := p.signedBytes()
	if err != nil {
		return err
	}
	sig, err := signer.Sign(b)
	if err != nil {
		return err
	}
	p.Signature = sig
	return nil
}

// Verify checks the signature against the packet's own account.
func (p *Packet) Verify() error {
	b, err := p.signedBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidPacket, err)
	}
	if err := cryptox.Verify(p.AccountID, b, p.Signature); err != nil {
		return fmt.Errorf("packet %s: %w", p.LocalID, err)
	}
	return nil
}

func (p *Packet) Marshal() ([]byte, error) {
	return Marshal(p)
}

// UnmarshalPacket decodes a stored or uploaded envelope.
func UnmarshalPacket(b []byte) (*Packet, error) {
	var p Packet
	if err := Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPacket, err)
	}
	if p.LocalID == "" || p.AccountID == "" {
		return nil, fmt.Errorf("%w: missing identity", common.ErrInvalidPacket)
	}
	switch p.Kind {
	case KindHeader, KindFieldData, KindAttachment:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", common.ErrInvalidPacket, p.Kind)
	}
	return &p, nil
}
