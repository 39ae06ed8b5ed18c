package bulletin

import (
	"strings"

	"github.com/google/uuid"
)

// Local id prefixes, one per packet kind.
const (
	HeaderPrefix     = "B-"
	FieldDataPrefix  = "F-"
	AttachmentPrefix = "A-"
	ReceiptPrefix    = "BUR-"
)

// Status of a stored revision.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusSealed Status = "sealed"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusSealed
}

// UniversalID identifies a packet: the author's account plus a local id.
type UniversalID struct {
	AccountID string `cbor:"account_id"`
	LocalID   string `cbor:"local_id"`
}

func NewUniversalID(accountID, localID string) UniversalID {
	return UniversalID{AccountID: accountID, LocalID: localID}
}

// String is used as a map and lock key; account ids never contain a space.
func (u UniversalID) String() string {
	return u.AccountID + " " + u.LocalID
}

// DatabaseKey addresses one stored record.
type DatabaseKey struct {
	UID    UniversalID
	Status Status
}

func SealedKey(uid UniversalID) DatabaseKey { return DatabaseKey{UID: uid, Status: StatusSealed} }
func DraftKey(uid UniversalID) DatabaseKey  { return DatabaseKey{UID: uid, Status: StatusDraft} }

func (k DatabaseKey) IsSealed() bool { return k.Status == StatusSealed }
func (k DatabaseKey) IsDraft() bool  { return k.Status == StatusDraft }

// WithLocalID returns a key for a sibling packet stored under the same status.
func (k DatabaseKey) WithLocalID(localID string) DatabaseKey {
	return DatabaseKey{UID: NewUniversalID(k.UID.AccountID, localID), Status: k.Status}
}

// NewLocalID mints a fresh local id with the given prefix.
func NewLocalID(prefix string) string {
	return prefix + uuid.NewString()
}

func hasBody(id, prefix string) bool {
	return strings.HasPrefix(id, prefix) && len(id) > len(prefix)
}

func IsHeaderLocalID(id string) bool     { return hasBody(id, HeaderPrefix) }
func IsFieldDataLocalID(id string) bool  { return hasBody(id, FieldDataPrefix) }
func IsAttachmentLocalID(id string) bool { return hasBody(id, AttachmentPrefix) }

// ReceiptLocalID names the receipt record for a header.
func ReceiptLocalID(headerLocalID string) string {
	return ReceiptPrefix + headerLocalID
}
