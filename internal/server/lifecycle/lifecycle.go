// Package lifecycle tracks active clients, watches for the operator's
// shutdown trigger file and drives the server's periodic tasks.
package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/filex"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Lifecycle is safe for concurrent use.
type Lifecycle struct {
	shutdownFile string
	logger       logging.Logger

	active         atomic.Int64
	syncRequested  atomic.Bool
	shutdownLogged atomic.Bool

	vetoMu sync.Mutex
	vetoes []func() bool
}

// New watches shutdownFile as the operator's exit trigger.
func New(shutdownFile string, l logging.Logger) *Lifecycle {
	return &Lifecycle{
		shutdownFile: shutdownFile,
		logger:       l.With("module", "lifecycle"),
	}
}

// IsShutdownRequested reports whether the trigger file exists.
func (l *Lifecycle) IsShutdownRequested() bool {
	return filex.Exists(l.shutdownFile)
}

// ClientConnectionStart counts a request in.
func (l *Lifecycle) ClientConnectionStart() {
	l.active.Add(1)
}

// ClientConnectionExit counts a request out. The counter never drops below zero.
func (l *Lifecycle) ClientConnectionExit() {
	for {
		n := l.active.Load()
		if n <= 0 {
			return
		}
		if l.active.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (l *Lifecycle) NumberActiveClients() int64 {
	return l.active.Load()
}

// AddExitVeto registers a predicate that must return true before exit.
func (l *Lifecycle) AddExitVeto(ready func() bool) {
	l.vetoMu.Lock()
	defer l.vetoMu.Unlock()
	l.vetoes = append(l.vetoes, ready)
}

// CanExitNow reports whether no client is active and every veto agrees.
func (l *Lifecycle) CanExitNow() bool {
	if l.NumberActiveClients() > 0 {
		return false
	}
	l.vetoMu.Lock()
	defer l.vetoMu.Unlock()
	for _, ready := range l.vetoes {
		if !ready() {
			return false
		}
	}
	return true
}

// RequestSync marks a mirror sync as due. Repeated requests coalesce.
func (l *Lifecycle) RequestSync() {
	l.syncRequested.Store(true)
}

// TakeSyncRequest consumes a pending sync request.
func (l *Lifecycle) TakeSyncRequest() bool {
	return l.syncRequested.CompareAndSwap(true, false)
}

// ShutdownTick is one pass of the shutdown monitor. It returns
// common.ErrShutdownRequested once a requested shutdown may proceed, after
// removing the trigger file.
func (l *Lifecycle) ShutdownTick(ctx context.Context) error {
	if !l.IsShutdownRequested() {
		l.shutdownLogged.Store(false)
		return nil
	}
	if l.shutdownLogged.CompareAndSwap(false, true) {
		l.logger.Info(ctx, "shutdown requested", "active_clients", l.NumberActiveClients())
	}
	if !l.CanExitNow() {
		return nil
	}
	if err := filex.RemoveIfExists(l.shutdownFile); err != nil {
		l.logger.Warn(ctx, "cannot remove shutdown trigger", "error", err)
	}
	l.logger.Info(ctx, "shutting down")
	return common.ErrShutdownRequested
}

// BackgroundTick runs sync when one is pending and no shutdown is underway.
func (l *Lifecycle) BackgroundTick(ctx context.Context, syncFn func(context.Context) error) {
	if l.IsShutdownRequested() {
		return
	}
	if !l.TakeSyncRequest() {
		return
	}
	if err := syncFn(ctx); err != nil {
		l.logger.Error(ctx, "mirror sync failed", "error", err)
	}
}

// Task is a periodic job run by Run.
type Task struct {
	Name     string
	Interval time.Duration
	Tick     func(ctx context.Context) error
}

// Intervals configures the built-in tasks. A zero interval disables a task.
type Intervals struct {
	ShutdownPoll   time.Duration
	UploadDecay    time.Duration
	SyncRequest    time.Duration
	BackgroundTick time.Duration
}

// Tasks assembles the built-in periodic jobs.
func (l *Lifecycle) Tasks(iv Intervals, decay func(context.Context), syncFn func(context.Context) error) []Task {
	return []Task{
		{Name: "shutdown-monitor", Interval: iv.ShutdownPoll, Tick: l.ShutdownTick},
		{Name: "upload-request-decay", Interval: iv.UploadDecay, Tick: func(ctx context.Context) error {
			decay(ctx)
			return nil
		}},
		{Name: "sync-request", Interval: iv.SyncRequest, Tick: func(context.Context) error {
			l.RequestSync()
			return nil
		}},
		{Name: "background-tick", Interval: iv.BackgroundTick, Tick: func(ctx context.Context) error {
			l.BackgroundTick(ctx, syncFn)
			return nil
		}},
	}
}

// Run drives tasks until ctx ends or a task fails. A task returning
// common.ErrShutdownRequested stops all others; Run then returns that error.
func (l *Lifecycle) Run(ctx context.Context, tasks ...Task) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		if t.Interval <= 0 {
			continue
		}
		g.Go(func() error {
			ticker := time.NewTicker(t.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := t.Tick(ctx); err != nil {
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}
