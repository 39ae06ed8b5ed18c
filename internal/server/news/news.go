// Package news serves operator-provided news items and the server
// compliance statement.
package news

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
)

// TimestampLayout prefixes every news item.
const TimestampLayout = "01/02/2006 15:04:05"

var suffixes = []string{".txt", ".info", ".message"}

func isNewsFile(name string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Board holds the news items read from a directory, oldest first.
type Board struct {
	dir    string
	logger logging.Logger

	mu    sync.RWMutex
	items []string
}

func NewBoard(dir string, l logging.Logger) *Board {
	return &Board{dir: dir, logger: l.With("module", "news")}
}

type entry struct {
	modified time.Time
	name     string
	text     string
}

// Load rereads the news directory. A missing directory means no news.
func (b *Board) Load(ctx context.Context) error {
	des, err := os.ReadDir(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		b.set(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read news dir: %w", err)
	}

	var entries []entry
	for _, de := range des {
		if de.IsDir() || !isNewsFile(de.Name()) {
			continue
		}
		path := filepath.Join(b.dir, de.Name())
		fi, err := de.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		entries = append(entries, entry{modified: fi.ModTime(), name: de.Name(), text: string(text)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].modified.Equal(entries[j].modified) {
			return entries[i].name < entries[j].name
		}
		return entries[i].modified.Before(entries[j].modified)
	})

	items := make([]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, FormatItem(e.modified, e.text))
	}
	b.set(items)
	b.logger.Info(ctx, "news loaded", "items", len(items))
	return nil
}

func (b *Board) set(items []string) {
	b.mu.Lock()
	b.items = items
	b.mu.Unlock()
}

// Items returns a copy of the loaded news items.
func (b *Board) Items() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string{}, b.items...)
}

// FormatItem renders one news item.
func FormatItem(modified time.Time, text string) string {
	return modified.Format(TimestampLayout) + "\n" + text
}

// LoadCompliance reads the mandatory compliance statement.
func LoadCompliance(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("compliance statement: %w", err)
	}
	return string(b), nil
}
