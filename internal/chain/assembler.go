package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/metrics"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/state"
)

// Assembler errors.
var (
	// ErrStale means the focus moved on while the chain was being fetched.
	ErrStale = errors.New("chain: focus changed before the response arrived")
	// ErrNoFocus means Refresh was called with no focused row.
	ErrNoFocus = errors.New("chain: no focused row")
)

// Refresh triggers, used as the metrics label.
const (
	TriggerFocus  = "focus"
	TriggerChange = "change"
)

// RowDetailFetcher fetches one row's version and undo chains.
type RowDetailFetcher interface {
	GetRowDetail(ctx context.Context, row model.RowID) (*model.RowDetail, error)
}

// Assembler fetches and publishes the focused row's chain.
type Assembler struct {
	app     *state.App
	fetcher RowDetailFetcher
	logger  logging.Logger

	mu     sync.RWMutex
	latest *View
}

// NewAssembler returns an assembler bound to app. Its published view is
// dropped when app is reset.
func NewAssembler(app *state.App, fetcher RowDetailFetcher, logger logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Assembler{app: app, fetcher: fetcher, logger: logger.WithSource("chain")}
	app.OnReset(a.Clear)
	return a
}

// Show focuses row and assembles its chain.
func (a *Assembler) Show(ctx context.Context, row model.RowID) (*View, error) {
	tok := a.app.SetFocus(row)
	return a.assemble(ctx, tok, TriggerFocus)
}

// Refresh re-assembles the chain of the currently focused row without
// changing the focus.
func (a *Assembler) Refresh(ctx context.Context) (*View, error) {
	return a.RefreshFocus(ctx, a.app.FocusToken())
}

// RefreshFocus re-assembles the chain of the row tok focuses. If the focus
// has moved since tok was taken, nothing is fetched and ErrStale is returned.
func (a *Assembler) RefreshFocus(ctx context.Context, tok state.Token) (*View, error) {
	if !tok.Focused {
		return nil, ErrNoFocus
	}
	if !a.app.IsCurrent(tok) {
		metrics.StaleChainsTotal.Inc()
		return nil, ErrStale
	}
	return a.assemble(ctx, tok, TriggerChange)
}

// Latest returns the most recently published view, or nil.
func (a *Assembler) Latest() *View {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// Clear drops the published view.
func (a *Assembler) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest = nil
}

func (a *Assembler) assemble(ctx context.Context, tok state.Token, trigger string) (*View, error) {
	metrics.ChainRefreshesTotal.WithLabelValues(trigger).Inc()

	detail, err := a.fetcher.GetRowDetail(ctx, tok.Row)
	if err != nil {
		return nil, fmt.Errorf("fetch chain for row %d: %w", tok.Row, err)
	}

	view, err := Build(tok.Row, detail)
	if err != nil {
		if errors.Is(err, ErrNoHistory) {
			a.logger.Debug("row has no history", "row", tok.Row)
		}
		return nil, err
	}
	for _, p := range view.Problems {
		a.logger.Warn("version chain integrity", "row", tok.Row, "problem", p)
	}

	// Staleness is checked under the publish lock.
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.app.IsCurrent(tok) {
		metrics.StaleChainsTotal.Inc()
		a.logger.Debug("discarding stale chain", "row", tok.Row, "generation", tok.Generation)
		return nil, ErrStale
	}
	a.latest = view
	return view, nil
}
