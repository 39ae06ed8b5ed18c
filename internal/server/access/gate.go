// Package access decides who may talk to the server: the upload-permission
// list and the magic words that grant it, banned and test accounts, and the
// per-IP throttle on failed upload-rights requests.
package access

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/filex"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
)

// Gate holds the access lists. All methods are safe for concurrent use.
type Gate struct {
	uploadListPath    string
	maxFailedRequests int
	logger            logging.Logger

	uploadMu  sync.Mutex
	canUpload map[string]string // account -> magic word that granted it

	listsMu      sync.RWMutex
	banned       map[string]struct{}
	testAccounts map[string]struct{}
	magicWords   []MagicWord

	ipMu   sync.Mutex
	failed map[string]int
}

// NewGate returns an empty gate persisting upload permissions to uploadListPath.
func NewGate(uploadListPath string, maxFailedRequests int, l logging.Logger) *Gate {
	return &Gate{
		uploadListPath:    uploadListPath,
		maxFailedRequests: maxFailedRequests,
		logger:            l.With("module", "access"),
		canUpload:         make(map[string]string),
		banned:            make(map[string]struct{}),
		testAccounts:      make(map[string]struct{}),
		failed:            make(map[string]int),
	}
}

// readOptionalLines treats a missing file as empty.
func readOptionalLines(path string) ([]string, error) {
	lines, err := filex.ReadLines(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return lines, err
}

func toSet(lines []string) map[string]struct{} {
	set := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		set[l] = struct{}{}
	}
	return set
}

// LoadUploadList reads the persisted permission list ("account[\tword]" per line).
func (g *Gate) LoadUploadList() error {
	lines, err := readOptionalLines(g.uploadListPath)
	if err != nil {
		return fmt.Errorf("load upload list: %w", err)
	}
	m := make(map[string]string, len(lines))
	for _, line := range lines {
		account, word, _ := strings.Cut(line, "\t")
		m[account] = word
	}

	g.uploadMu.Lock()
	g.canUpload = m
	g.uploadMu.Unlock()
	return nil
}

// LoadBannedClients replaces the banned set. A missing file bans nobody.
func (g *Gate) LoadBannedClients(path string) error {
	lines, err := readOptionalLines(path)
	if err != nil {
		return fmt.Errorf("load banned clients: %w", err)
	}
	g.listsMu.Lock()
	g.banned = toSet(lines)
	g.listsMu.Unlock()
	return nil
}

// LoadTestAccounts replaces the test-account set. A missing file yields none.
func (g *Gate) LoadTestAccounts(path string) error {
	lines, err := readOptionalLines(path)
	if err != nil {
		return fmt.Errorf("load test accounts: %w", err)
	}
	g.listsMu.Lock()
	g.testAccounts = toSet(lines)
	g.listsMu.Unlock()
	return nil
}

// LoadMagicWords replaces the magic word list from path.
func (g *Gate) LoadMagicWords(path string) error {
	lines, err := readOptionalLines(path)
	if err != nil {
		return fmt.Errorf("load magic words: %w", err)
	}
	words := ParseMagicWords(lines)
	g.listsMu.Lock()
	g.magicWords = words
	g.listsMu.Unlock()
	return nil
}

func (g *Gate) IsBanned(accountID string) bool {
	g.listsMu.RLock()
	defer g.listsMu.RUnlock()
	_, ok := g.banned[accountID]
	return ok
}

func (g *Gate) IsTestAccount(accountID string) bool {
	g.listsMu.RLock()
	defer g.listsMu.RUnlock()
	_, ok := g.testAccounts[accountID]
	return ok
}

func (g *Gate) NumberOfTestAccounts() int {
	g.listsMu.RLock()
	defer g.listsMu.RUnlock()
	return len(g.testAccounts)
}

func (g *Gate) CanUpload(accountID string) bool {
	g.uploadMu.Lock()
	defer g.uploadMu.Unlock()
	_, ok := g.canUpload[accountID]
	return ok
}

// IsValidMagicWord reports whether word matches an active magic word.
func (g *Gate) IsValidMagicWord(word string) bool {
	_, ok := g.matchMagicWord(word)
	return ok
}

func (g *Gate) matchMagicWord(word string) (MagicWord, bool) {
	want := NormalizeMagicWord(word)
	if want == "" {
		return MagicWord{}, false
	}
	g.listsMu.RLock()
	defer g.listsMu.RUnlock()
	for _, w := range g.magicWords {
		if w.Active && NormalizeMagicWord(w.Word) == want {
			return w, true
		}
	}
	return MagicWord{}, false
}

// AllowUploads grants accountID upload rights and persists the list before
// returning.
func (g *Gate) AllowUploads(ctx context.Context, accountID, magicWord string) error {
	g.uploadMu.Lock()
	defer g.uploadMu.Unlock()

	prev, had := g.canUpload[accountID]
	g.canUpload[accountID] = magicWord
	if err := g.saveUploadListLocked(); err != nil {
		if had {
			g.canUpload[accountID] = prev
		} else {
			delete(g.canUpload, accountID)
		}
		return err
	}
	g.logger.Info(ctx, "upload rights granted", "account", accountID)
	return nil
}

// ClearCanUploadList revokes every upload permission, on disk and in memory.
func (g *Gate) ClearCanUploadList(ctx context.Context) error {
	g.uploadMu.Lock()
	defer g.uploadMu.Unlock()

	if err := filex.RemoveIfExists(g.uploadListPath); err != nil {
		return fmt.Errorf("clear upload list: %w", err)
	}
	g.canUpload = make(map[string]string)
	g.logger.Info(ctx, "upload list cleared")
	return nil
}

func (g *Gate) saveUploadListLocked() error {
	accounts := make([]string, 0, len(g.canUpload))
	for a := range g.canUpload {
		accounts = append(accounts, a)
	}
	slices.Sort(accounts)

	var b strings.Builder
	for _, a := range accounts {
		b.WriteString(a)
		if w := g.canUpload[a]; w != "" {
			b.WriteByte('\t')
			b.WriteString(w)
		}
		b.WriteByte('\n')
	}
	if err := filex.WriteFileAtomic(g.uploadListPath, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("save upload list: %w", err)
	}
	return nil
}

// RequestUploadRights grants rights when magicWord is valid and the caller's
// IP is under the failure ceiling. Returns a result code.
func (g *Gate) RequestUploadRights(ctx context.Context, ip, accountID, magicWord string) string {
	if magicWord == "" && g.CanUpload(accountID) {
		return common.ResultOK
	}
	if !g.AreUploadRequestsAllowed(ip) {
		g.logger.Warn(ctx, "upload rights request throttled", "ip", ip)
		return common.ResultRejected
	}
	w, ok := g.matchMagicWord(magicWord)
	if !ok {
		g.IncrementFailedUploadRequests(ip)
		g.logger.Info(ctx, "upload rights rejected", "account", accountID, "ip", ip)
		return common.ResultRejected
	}
	if err := g.AllowUploads(ctx, accountID, w.Word); err != nil {
		g.logger.Error(ctx, "upload rights not persisted", "account", accountID, "error", err)
		return common.ResultServerError
	}
	return common.ResultOK
}

// IncrementFailedUploadRequests records one failed request from ip.
func (g *Gate) IncrementFailedUploadRequests(ip string) {
	g.ipMu.Lock()
	defer g.ipMu.Unlock()
	g.failed[ip]++
}

// FailedUploadRequests returns the current failure count for ip.
func (g *Gate) FailedUploadRequests(ip string) int {
	g.ipMu.Lock()
	defer g.ipMu.Unlock()
	return g.failed[ip]
}

// AreUploadRequestsAllowed reports whether ip is under the failure ceiling.
func (g *Gate) AreUploadRequestsAllowed(ip string) bool {
	return g.FailedUploadRequests(ip) < g.maxFailedRequests
}

// DecayFailedUploadRequests subtracts the ceiling from every counter and
// forgets the ones that drop below zero.
func (g *Gate) DecayFailedUploadRequests(context.Context) {
	g.ipMu.Lock()
	defer g.ipMu.Unlock()
	for ip, n := range g.failed {
		n -= g.maxFailedRequests
		if n < 0 {
			delete(g.failed, ip)
			continue
		}
		g.failed[ip] = n
	}
}

// UploadListPath is where permissions are persisted.
func (g *Gate) UploadListPath() string {
	return g.uploadListPath
}
