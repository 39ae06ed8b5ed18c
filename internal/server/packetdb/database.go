// Package packetdb stores signed packets keyed by (account, local id, status).
// A PostgreSQL implementation backs production; an in-memory one backs tests
// and DSN-less development runs.
package packetdb

import (
	"context"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
)

// Record is one stored packet.
type Record struct {
	Key  bulletin.DatabaseKey
	Data []byte
}

// Database is the packet store. ReadRecord and RecordSize return
// common.ErrorNotFound for missing keys.
type Database interface {
	ReadRecord(ctx context.Context, key bulletin.DatabaseKey) ([]byte, error)
	RecordExists(ctx context.Context, key bulletin.DatabaseKey) (bool, error)
	RecordSize(ctx context.Context, key bulletin.DatabaseKey) (int64, error)
	WriteRecord(ctx context.Context, rec Record) error
	// Commit applies deletes then writes atomically. Sealed records are
	// never replaced: a sealed write whose key is still present after the
	// deletes fails the whole commit with common.ErrSealedPacketExists.
	Commit(ctx context.Context, deletes []bulletin.DatabaseKey, writes []Record) error
	// Visit calls fn for every stored key in a stable order. Returning an
	// error from fn stops the walk.
	Visit(ctx context.Context, fn func(bulletin.DatabaseKey) error) error
	Close() error
}
