// Package store is the bulletin store: it commits uploaded bundles into the
// packet database, writes receipts, exports bundles for download and owns
// the interim directories used while chunks are in flight.
package store

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/bulletinkeeper/internal/filex"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/packetdb"
	"github.com/dmitrijs2005/bulletinkeeper/internal/syncx"
)

const contactInfoLocalID = "ContactInfo"

// Store wraps a packetdb.Database with bulletin semantics.
type Store struct {
	db          packetdb.Database
	security    *cryptox.Security
	incomingDir string
	outgoingDir string
	logger      logging.Logger

	commitLocks   syncx.KeyedMutex
	incomingLocks syncx.KeyedMutex
	outgoingLocks syncx.KeyedMutex

	now func() time.Time
}

// New creates the interim directories below interimDir and returns a Store.
func New(db packetdb.Database, security *cryptox.Security, interimDir string, l logging.Logger) (*Store, error) {
	in, err := filex.EnsureSubDir(interimDir, "in")
	if err != nil {
		return nil, err
	}
	out, err := filex.EnsureSubDir(interimDir, "out")
	if err != nil {
		return nil, err
	}
	return &Store{
		db:          db,
		security:    security,
		incomingDir: in,
		outgoingDir: out,
		logger:      l.With("module", "store"),
		now:         time.Now,
	}, nil
}

func interimName(uid bulletin.UniversalID) string {
	return hex.EncodeToString(cryptox.Digest([]byte(uid.String()))[:16]) + ".zip"
}

// IncomingInterimFile is where chunks for uid accumulate during upload.
func (s *Store) IncomingInterimFile(uid bulletin.UniversalID) string {
	return filepath.Join(s.incomingDir, interimName(uid))
}

// OutgoingInterimFile is the cached export of uid served during download.
func (s *Store) OutgoingInterimFile(uid bulletin.UniversalID) string {
	return filepath.Join(s.outgoingDir, interimName(uid))
}

// OutgoingSignatureFile holds the server's signature of OutgoingInterimFile.
func (s *Store) OutgoingSignatureFile(uid bulletin.UniversalID) string {
	return s.OutgoingInterimFile(uid) + ".sig"
}

// LockIncoming serializes chunk appends for one bulletin.
func (s *Store) LockIncoming(uid bulletin.UniversalID) func() {
	return s.incomingLocks.Lock(uid.String())
}

// LockOutgoing serializes interim export and chunk reads for one bulletin.
func (s *Store) LockOutgoing(uid bulletin.UniversalID) func() {
	return s.outgoingLocks.Lock(uid.String())
}

// FindHeaderKey returns the sealed revision's key if present, otherwise
// the draft's. Missing bulletins yield common.ErrorNotFound.
func (s *Store) FindHeaderKey(ctx context.Context, uid bulletin.UniversalID) (bulletin.DatabaseKey, error) {
	for _, key := range []bulletin.DatabaseKey{bulletin.SealedKey(uid), bulletin.DraftKey(uid)} {
		ok, err := s.db.RecordExists(ctx, key)
		if err != nil {
			return bulletin.DatabaseKey{}, err
		}
		if ok {
			return key, nil
		}
	}
	return bulletin.DatabaseKey{}, common.ErrorNotFound
}

// ReadPacket returns the stored envelope bytes for key.
func (s *Store) ReadPacket(ctx context.Context, key bulletin.DatabaseKey) ([]byte, error) {
	return s.db.ReadRecord(ctx, key)
}

func (s *Store) loadPacket(ctx context.Context, key bulletin.DatabaseKey) (*bulletin.Packet, error) {
	raw, err := s.db.ReadRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	p, err := bulletin.UnmarshalPacket(raw)
	if err != nil {
		return nil, err
	}
	if p.UID() != key.UID {
		return nil, fmt.Errorf("%w: record %s holds %s", common.ErrInvalidPacket, key.UID, p.UID())
	}
	return p, nil
}

// LoadHeader reads, verifies and decodes the header stored under key.
func (s *Store) LoadHeader(ctx context.Context, key bulletin.DatabaseKey) (*bulletin.HeaderPacket, error) {
	p, err := s.loadPacket(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return bulletin.HeaderFromPacket(p)
}

// SaveBundle commits a verified-header bundle. A sealed revision that
// already exists wins with common.ErrSealedPacketExists; re-uploading the
// identical draft yields common.ErrDuplicatePacket. A new revision replaces
// any existing draft of the same bulletin atomically. Sealed data packets
// are insert-only, so a header that reuses another bulletin's sealed packet
// id is refused with common.ErrSealedPacketExists and nothing is written.
func (s *Store) SaveBundle(ctx context.Context, b *bulletin.Bundle) error {
	if err := b.VerifyPackets(); err != nil {
		return err
	}

	headerBytes, err := b.HeaderPacket.Marshal()
	if err != nil {
		return err
	}

	uid := b.Header.UID()
	unlock := s.commitLocks.Lock(uid.String())
	defer unlock()

	sealed, err := s.db.RecordExists(ctx, bulletin.SealedKey(uid))
	if err != nil {
		return err
	}
	if sealed {
		return common.ErrSealedPacketExists
	}

	var deletes []bulletin.DatabaseKey
	draftKey := bulletin.DraftKey(uid)
	existing, err := s.db.ReadRecord(ctx, draftKey)
	switch {
	case err == nil:
		if bytes.Equal(cryptox.Digest(existing), cryptox.Digest(headerBytes)) {
			return common.ErrDuplicatePacket
		}
		old, err := s.LoadHeader(ctx, draftKey)
		if err != nil {
			return err
		}
		deletes = s.revisionKeys(draftKey, old)
	case !errors.Is(err, common.ErrorNotFound):
		return err
	}

	status := b.Header.Status
	writes := make([]packetdb.Record, 0, len(b.Packets)+1)
	for _, p := range b.Packets {
		data, err := p.Marshal()
		if err != nil {
			return err
		}
		writes = append(writes, packetdb.Record{Key: bulletin.DatabaseKey{UID: p.UID(), Status: status}, Data: data})
	}
	// header last so readers never see a header without its packets
	writes = append(writes, packetdb.Record{Key: b.Header.Key(), Data: headerBytes})

	if err := s.db.Commit(ctx, deletes, writes); err != nil {
		return err
	}
	s.logger.Info(ctx, "bulletin saved", "author", uid.AccountID, "local_id", uid.LocalID, "status", status, "packets", len(writes))
	return nil
}

// revisionKeys lists every record belonging to the revision at key.
func (s *Store) revisionKeys(key bulletin.DatabaseKey, h *bulletin.HeaderPacket) []bulletin.DatabaseKey {
	keys := []bulletin.DatabaseKey{key, key.WithLocalID(bulletin.ReceiptLocalID(h.LocalID))}
	for _, id := range h.PacketIDs() {
		keys = append(keys, key.WithLocalID(id))
	}
	return keys
}

// ExportBundle writes the revision at key as a zip bundle.
func (s *Store) ExportBundle(ctx context.Context, key bulletin.DatabaseKey, w io.Writer) error {
	hp, err := s.loadPacket(ctx, key)
	if err != nil {
		return err
	}
	h, err := bulletin.HeaderFromPacket(hp)
	if err != nil {
		return err
	}
	packets := []*bulletin.Packet{hp}
	for _, id := range h.PacketIDs() {
		p, err := s.loadPacket(ctx, key.WithLocalID(id))
		if err != nil {
			return fmt.Errorf("export %s: %w", id, err)
		}
		packets = append(packets, p)
	}
	return bulletin.WriteBundle(w, packets...)
}

// VisitAllBulletinRevisions calls fn with the key of every stored header.
func (s *Store) VisitAllBulletinRevisions(ctx context.Context, fn func(bulletin.DatabaseKey) error) error {
	return s.db.Visit(ctx, func(k bulletin.DatabaseKey) error {
		if !bulletin.IsHeaderLocalID(k.UID.LocalID) {
			return nil
		}
		return fn(k)
	})
}

// BulletinSize sums the stored sizes of the header and its data packets.
func (s *Store) BulletinSize(ctx context.Context, key bulletin.DatabaseKey, h *bulletin.HeaderPacket) (int64, error) {
	total, err := s.db.RecordSize(ctx, key)
	if err != nil {
		return 0, err
	}
	for _, id := range h.PacketIDs() {
		n, err := s.db.RecordSize(ctx, key.WithLocalID(id))
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// DeleteDraft removes the draft revision of uid with all its packets.
// It returns common.ErrorNotFound when no draft exists.
func (s *Store) DeleteDraft(ctx context.Context, uid bulletin.UniversalID) error {
	unlock := s.commitLocks.Lock(uid.String())
	defer unlock()

	key := bulletin.DraftKey(uid)
	h, err := s.LoadHeader(ctx, key)
	if err != nil {
		return err
	}
	if err := s.db.Commit(ctx, s.revisionKeys(key, h), nil); err != nil {
		return err
	}
	s.logger.Info(ctx, "draft deleted", "author", uid.AccountID, "local_id", uid.LocalID)
	return nil
}

// WriteContactInfo stores an account's signed contact vector.
func (s *Store) WriteContactInfo(ctx context.Context, accountID string, info []string) error {
	data, err := bulletin.Marshal(info)
	if err != nil {
		return err
	}
	return s.db.WriteRecord(ctx, packetdb.Record{Key: contactInfoKey(accountID), Data: data})
}

// ReadContactInfo returns the stored contact vector or common.ErrorNotFound.
func (s *Store) ReadContactInfo(ctx context.Context, accountID string) ([]string, error) {
	data, err := s.db.ReadRecord(ctx, contactInfoKey(accountID))
	if err != nil {
		return nil, err
	}
	var info []string
	if err := bulletin.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPacket, err)
	}
	return info, nil
}

func contactInfoKey(accountID string) bulletin.DatabaseKey {
	return bulletin.SealedKey(bulletin.NewUniversalID(accountID, contactInfoLocalID))
}
