// Package poller runs the synchronization loop: it fetches a snapshot on a
// fixed cadence, publishes it, and refreshes the focused row's version chain
// when the change detector fires.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/changes"
	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/metrics"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/state"
)

// DefaultInterval is the polling cadence.
const DefaultInterval = 3 * time.Second

// SnapshotFetcher fetches the engine's full state.
type SnapshotFetcher interface {
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
}

// ChainRefresher re-assembles the chain of the row a focus token names.
type ChainRefresher interface {
	RefreshFocus(ctx context.Context, tok state.Token) (*chain.View, error)
}

// Listener receives the loop's output. Nil fields are skipped. Callbacks run
// on the loop's goroutine and should not block.
type Listener struct {
	// Snapshot is called after every successful poll.
	Snapshot func(*model.Snapshot)
	// Chain is called when a detector-triggered refresh published a view.
	Chain func(*chain.View)
	// Failure is called when a poll fails.
	Failure func(error)
}

// Result describes one tick.
type Result struct {
	Snapshot   *model.Snapshot
	Refreshed  bool
	Chain      *chain.View
	Violations []model.Violation
}

// Loop is the synchronization loop.
type Loop struct {
	app      *state.App
	fetcher  SnapshotFetcher
	chains   ChainRefresher
	detector *changes.Detector
	logger   logging.Logger

	tickMu sync.Mutex

	mu        sync.Mutex
	interval  time.Duration
	listeners []Listener
	resetCh   chan time.Duration
}

// New returns a loop that publishes into app. chains may be nil, in which
// case the detector still runs but nothing is refreshed.
func New(app *state.App, fetcher SnapshotFetcher, chains ChainRefresher, interval time.Duration, logger logging.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Loop{
		app:      app,
		fetcher:  fetcher,
		chains:   chains,
		detector: changes.NewDetector(),
		logger:   logger.WithSource("poller"),
		interval: interval,
		resetCh:  make(chan time.Duration, 1),
	}
	app.OnReset(l.detector.Reset)
	return l
}

// Subscribe adds a listener.
func (l *Loop) Subscribe(ls Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, ls)
}

// Interval returns the current cadence.
func (l *Loop) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

// SetInterval changes the cadence; a running loop picks it up at once.
func (l *Loop) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	l.interval = d
	l.mu.Unlock()

	select {
	case l.resetCh <- d:
	default:
		// A pending reset is replaced with the newest value.
		select {
		case <-l.resetCh:
		default:
		}
		l.resetCh <- d
	}
}

// Run polls once immediately and then at every interval until ctx is done.
// Poll failures are logged and do not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("synchronization loop started", "interval", l.Interval().String())
	_, _ = l.Tick(ctx)

	ticker := time.NewTicker(l.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("synchronization loop stopped")
			return nil
		case d := <-l.resetCh:
			ticker.Reset(d)
			l.logger.Info("poll interval changed", "interval", d.String())
		case <-ticker.C:
			_, _ = l.Tick(ctx)
		}
	}
}

// Tick runs one poll. On fetch failure the previous snapshot stays current
// and the error is returned.
func (l *Loop) Tick(ctx context.Context) (Result, error) {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()

	metrics.PollsTotal.Inc()
	snap, err := l.fetcher.GetSnapshot(ctx)
	if err != nil {
		metrics.PollFailuresTotal.Inc()
		if ctx.Err() == nil {
			l.logger.Warn("snapshot fetch failed, keeping previous snapshot", "error", err)
		}
		for _, ls := range l.currentListeners() {
			if ls.Failure != nil {
				ls.Failure(err)
			}
		}
		return Result{}, err
	}

	res := Result{Snapshot: snap}
	prev := l.app.Publish(snap)
	metrics.SnapshotRows.Set(float64(len(snap.Rows)))
	metrics.ActiveTransactions.Set(float64(len(snap.Transactions.Active)))

	res.Violations = model.CheckMonotonic(prev, snap)
	for _, v := range res.Violations {
		metrics.MonotonicViolationsTotal.Inc()
		l.logger.Warn("modified rows shrank for active transaction", "trx", v.TrxID, "dropped", v.Dropped.String())
	}

	// One token per tick: the refresh below targets the row the detector
	// saw, and is dropped if the focus moves in between.
	tok := l.app.FocusToken()
	var focus *model.RowID
	if tok.Focused {
		row := tok.Row
		focus = &row
	}
	res.Refreshed = l.detector.Observe(snap.ModifiedRows(), focus)

	listeners := l.currentListeners()
	for _, ls := range listeners {
		if ls.Snapshot != nil {
			ls.Snapshot(snap)
		}
	}

	if res.Refreshed && l.chains != nil {
		view, err := l.chains.RefreshFocus(ctx, tok)
		switch {
		case err == nil:
			res.Chain = view
			for _, ls := range listeners {
				if ls.Chain != nil {
					ls.Chain(view)
				}
			}
		case errors.Is(err, chain.ErrNoHistory), errors.Is(err, chain.ErrStale), errors.Is(err, chain.ErrNoFocus):
			l.logger.Debug("chain refresh skipped", "row", tok.Row, "reason", err)
		default:
			l.logger.Warn("chain refresh failed", "row", tok.Row, "error", err)
		}
	}
	return res, nil
}

func (l *Loop) currentListeners() []Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Listener(nil), l.listeners...)
}
