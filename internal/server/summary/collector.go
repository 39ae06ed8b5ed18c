// Package summary lists the bulletins a caller may see, one line per
// bulletin lineage.
package summary

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
)

type Store interface {
	VisitAllBulletinRevisions(ctx context.Context, fn func(bulletin.DatabaseKey) error) error
	LoadHeader(ctx context.Context, key bulletin.DatabaseKey) (*bulletin.HeaderPacket, error)
	BulletinSize(ctx context.Context, key bulletin.DatabaseKey, h *bulletin.HeaderPacket) (int64, error)
}

// Filter selects the revisions a listing reports.
type Filter func(key bulletin.DatabaseKey, h *bulletin.HeaderPacket) bool

type revision struct {
	key    bulletin.DatabaseKey
	header *bulletin.HeaderPacket
}

type Collector struct {
	store  Store
	logger logging.Logger
}

func NewCollector(store Store, l logging.Logger) *Collector {
	return &Collector{store: store, logger: l.With("module", "summary")}
}

// revisions loads every stored revision header, restricted to accountID
// unless it is empty. Headers that cannot be loaded are logged and skipped
// so one damaged record never fails a listing.
func (c *Collector) revisions(ctx context.Context, accountID string) ([]revision, error) {
	var out []revision
	err := c.store.VisitAllBulletinRevisions(ctx, func(key bulletin.DatabaseKey) error {
		if accountID != "" && key.UID.AccountID != accountID {
			return nil
		}
		h, err := c.store.LoadHeader(ctx, key)
		if err != nil {
			c.logger.Error(ctx, "skipping unreadable header", "account", key.UID.AccountID, "local_id", key.UID.LocalID, "status", key.Status, "error", err)
			return nil
		}
		out = append(out, revision{key: key, header: h})
		return nil
	})
	return out, err
}

// latest drops every revision that appears in the history of another
// stored revision by the same author.
func latest(revs []revision) []revision {
	superseded := make(map[bulletin.UniversalID]struct{})
	for _, r := range revs {
		for _, ancestor := range r.header.History {
			superseded[bulletin.NewUniversalID(r.header.AccountID, ancestor)] = struct{}{}
		}
	}
	out := revs[:0:0]
	for _, r := range revs {
		if _, ok := superseded[r.key.UID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Collect returns one summary per latest revision of authorID accepted by
// filter, each extended with the requested tags in the order given.
func (c *Collector) Collect(ctx context.Context, authorID string, filter Filter, tags []string) ([]string, error) {
	revs, err := c.revisions(ctx, authorID)
	if err != nil {
		return nil, err
	}

	summaries := []string{}
	for _, r := range latest(revs) {
		if !filter(r.key, r.header) {
			continue
		}
		s, err := c.Summary(ctx, r.key, r.header, tags)
		if err != nil {
			c.logger.Error(ctx, "skipping bulletin without summary", "account", r.key.UID.AccountID, "local_id", r.key.UID.LocalID, "error", err)
			continue
		}
		summaries = append(summaries, s)
	}
	sort.Strings(summaries)
	return summaries, nil
}

// Summary renders "localId=fieldDataId" followed by one "=value" per tag.
// Unknown tags are skipped.
func (c *Collector) Summary(ctx context.Context, key bulletin.DatabaseKey, h *bulletin.HeaderPacket, tags []string) (string, error) {
	var sb strings.Builder
	sb.WriteString(h.LocalID)
	sb.WriteString("=")
	sb.WriteString(h.FieldDataPacketID)

	for _, tag := range tags {
		switch tag {
		case common.TagBulletinSize:
			size, err := c.store.BulletinSize(ctx, key, h)
			if err != nil {
				return "", err
			}
			sb.WriteString("=" + strconv.FormatInt(size, 10))
		case common.TagBulletinDateSaved:
			sb.WriteString("=" + strconv.FormatInt(h.LastSavedTime, 10))
		case common.TagBulletinHistory:
			sb.WriteString("=")
			for _, ancestor := range h.History {
				sb.WriteString(ancestor + " ")
			}
		default:
			c.logger.Debug(ctx, "unknown summary tag", "tag", tag)
		}
	}
	return sb.String(), nil
}

func statusIs(status bulletin.Status) func(bulletin.DatabaseKey) bool {
	return func(k bulletin.DatabaseKey) bool { return k.Status == status }
}

func (c *Collector) mine(ctx context.Context, callerID string, status bulletin.Status, tags []string) ([]string, error) {
	is := statusIs(status)
	return c.Collect(ctx, callerID, func(k bulletin.DatabaseKey, h *bulletin.HeaderPacket) bool {
		return is(k) && h.AccountID == callerID
	}, tags)
}

func (c *Collector) fieldOffice(ctx context.Context, hqID, fieldOfficeID string, status bulletin.Status, tags []string) ([]string, error) {
	is := statusIs(status)
	return c.Collect(ctx, fieldOfficeID, func(k bulletin.DatabaseKey, h *bulletin.HeaderPacket) bool {
		return is(k) && h.AccountID == fieldOfficeID && h.IsHQAuthorizedToRead(hqID)
	}, tags)
}

// MySealed lists the caller's own sealed bulletins.
func (c *Collector) MySealed(ctx context.Context, callerID string, tags []string) ([]string, error) {
	return c.mine(ctx, callerID, bulletin.StatusSealed, tags)
}

// MyDrafts lists the caller's own draft bulletins.
func (c *Collector) MyDrafts(ctx context.Context, callerID string, tags []string) ([]string, error) {
	return c.mine(ctx, callerID, bulletin.StatusDraft, tags)
}

// FieldOfficeSealed lists fieldOfficeID's sealed bulletins readable by hqID.
func (c *Collector) FieldOfficeSealed(ctx context.Context, hqID, fieldOfficeID string, tags []string) ([]string, error) {
	return c.fieldOffice(ctx, hqID, fieldOfficeID, bulletin.StatusSealed, tags)
}

// FieldOfficeDrafts lists fieldOfficeID's draft bulletins readable by hqID.
func (c *Collector) FieldOfficeDrafts(ctx context.Context, hqID, fieldOfficeID string, tags []string) ([]string, error) {
	return c.fieldOffice(ctx, hqID, fieldOfficeID, bulletin.StatusDraft, tags)
}

// FieldOfficeAccounts lists, once each, the authors of every stored revision
// that hqID may read.
func (c *Collector) FieldOfficeAccounts(ctx context.Context, hqID string) ([]string, error) {
	revs, err := c.revisions(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	accounts := []string{}
	for _, r := range revs {
		if !r.header.IsHQAuthorizedToRead(hqID) {
			continue
		}
		if _, ok := seen[r.header.AccountID]; ok {
			continue
		}
		seen[r.header.AccountID] = struct{}{}
		accounts = append(accounts, r.header.AccountID)
	}
	return accounts, nil
}
