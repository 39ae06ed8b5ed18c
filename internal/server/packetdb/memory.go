package packetdb

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
)

// MemoryDatabase keeps packets in a map. It is safe for concurrent use.
type MemoryDatabase struct {
	mu      sync.RWMutex
	records map[bulletin.DatabaseKey][]byte
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{records: make(map[bulletin.DatabaseKey][]byte)}
}

func (m *MemoryDatabase) ReadRecord(_ context.Context, key bulletin.DatabaseKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.records[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return slices.Clone(b), nil
}

func (m *MemoryDatabase) RecordExists(_ context.Context, key bulletin.DatabaseKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[key]
	return ok, nil
}

func (m *MemoryDatabase) RecordSize(_ context.Context, key bulletin.DatabaseKey) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.records[key]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return int64(len(b)), nil
}

func (m *MemoryDatabase) WriteRecord(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = slices.Clone(rec.Data)
	return nil
}

func (m *MemoryDatabase) Commit(_ context.Context, deletes []bulletin.DatabaseKey, writes []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range writes {
		if !rec.Key.IsSealed() || slices.Contains(deletes, rec.Key) {
			continue
		}
		if _, ok := m.records[rec.Key]; ok {
			return fmt.Errorf("%w: %s", common.ErrSealedPacketExists, rec.Key.UID.LocalID)
		}
	}
	for _, k := range deletes {
		delete(m.records, k)
	}
	for _, rec := range writes {
		m.records[rec.Key] = slices.Clone(rec.Data)
	}
	return nil
}

func (m *MemoryDatabase) Visit(ctx context.Context, fn func(bulletin.DatabaseKey) error) error {
	m.mu.RLock()
	keys := make([]bulletin.DatabaseKey, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	slices.SortFunc(keys, func(a, b bulletin.DatabaseKey) int {
		return cmp.Or(
			cmp.Compare(a.UID.AccountID, b.UID.AccountID),
			cmp.Compare(a.UID.LocalID, b.UID.LocalID),
			cmp.Compare(a.Status, b.Status),
		)
	})

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryDatabase) Close() error { return nil }
