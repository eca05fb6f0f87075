// Package compare builds the side-by-side visibility comparison of two
// transactions over one snapshot's rows.
//
// A comparison fetches both transaction descriptors, then asks the engine
// what each transaction reads for every row of the snapshot. Probes run
// concurrently up to a limit and land in per-panel maps keyed by row id, so
// the order in which they complete has no effect on the result. A failed
// probe marks only its own cell as unknown.
package compare

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sync/errgroup"

	"github.com/KilimcininKorOglu/mvccview/internal/engine"
	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/metrics"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/state"
)

// DefaultMaxConcurrency bounds in-flight visibility probes.
const DefaultMaxConcurrency = 8

// Comparison errors.
var (
	ErrNoSnapshot     = errors.New("compare: no snapshot has been fetched yet")
	ErrNoTransactions = errors.New("compare: no active transactions to compare")
	// ErrStale means a later comparison was started, or state was reset,
	// before this one finished. Its result is discarded.
	ErrStale = errors.New("compare: superseded by a later comparison")
)

// Status is the visibility of one row to one transaction.
type Status string

const (
	StatusVisible       Status = "visible"
	StatusNotVisible    Status = "not_visible"
	StatusDeletedBySelf Status = "deleted_by_self"
	StatusUnknown       Status = "unknown"
)

// Cell notes.
const (
	NoteNotVisible    = "not visible under this transaction's snapshot"
	NoteDeletedBySelf = "deleted by this transaction"
	NoteUnknown       = "visibility unknown"

	// NoteWriterInProgress replaces NoteNotVisible when the row's last
	// writer is listed in the reader's read view.
	NoteWriterInProgress = "last writer was in progress when the read view was created"
)

// Cell is one row as seen by one transaction.
type Cell struct {
	RowID  model.RowID `json:"row_id"`
	Status Status      `json:"status"`
	// Data is the engine's projection when visible, otherwise the row's raw
	// current data. It is nil for unknown cells.
	Data  model.Data `json:"data"`
	Note  string     `json:"note,omitempty"`
	Error string     `json:"error,omitempty"`
}

// Panel is one transaction's side of a comparison, one cell per row in
// snapshot order.
type Panel struct {
	Transaction model.Transaction `json:"transaction"`
	Cells       []Cell            `json:"cells"`
}

// Counts tallies cells by status.
func (p *Panel) Counts() map[Status]int {
	out := make(map[Status]int, 4)
	for _, c := range p.Cells {
		out[c.Status]++
	}
	return out
}

// Comparison is a finished side-by-side view.
type Comparison struct {
	ID          string      `json:"id"`
	Left        Panel       `json:"left"`
	Right       Panel       `json:"right"`
	Rows        []model.Row `json:"rows"`
	SnapshotAt  time.Time   `json:"snapshot_at"`
	CompletedAt time.Time   `json:"completed_at"`
}

// Engine is the part of the engine client a comparison needs.
type Engine interface {
	GetTransaction(ctx context.Context, trx model.TrxID) (*model.Transaction, error)
	CheckVisibility(ctx context.Context, trx model.TrxID, row model.RowID) (engine.Visibility, error)
}

// Comparer runs comparisons against the current snapshot.
type Comparer struct {
	app    *state.App
	engine Engine
	logger logging.Logger

	mu             sync.RWMutex
	maxConcurrency int
	generation     uint64
	latest         *Comparison
}

// New returns a comparer. maxConcurrency <= 0 selects DefaultMaxConcurrency.
func New(app *state.App, eng Engine, maxConcurrency int, logger logging.Logger) *Comparer {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Comparer{app: app, engine: eng, logger: logger.WithSource("compare")}
	c.SetMaxConcurrency(maxConcurrency)
	app.OnReset(c.Clear)
	return c
}

// SetMaxConcurrency changes the probe limit for later comparisons.
func (c *Comparer) SetMaxConcurrency(n int) {
	if n <= 0 {
		n = DefaultMaxConcurrency
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxConcurrency = n
}

// Latest returns the last completed comparison, or nil.
func (c *Comparer) Latest() *Comparison {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Clear drops the last comparison. Comparisons still in flight will not
// publish.
func (c *Comparer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = nil
	c.generation++
}

// DefaultPair picks the transactions compared when none are chosen: the
// first two active ones, or the only active one against itself.
func DefaultPair(snap *model.Snapshot) (model.TrxID, model.TrxID, error) {
	if snap == nil {
		return 0, 0, ErrNoSnapshot
	}
	active := snap.Transactions.Active
	switch len(active) {
	case 0:
		return 0, 0, ErrNoTransactions
	case 1:
		return active[0].ID, active[0].ID, nil
	default:
		return active[0].ID, active[1].ID, nil
	}
}

// CompareDefault compares the DefaultPair of the current snapshot.
func (c *Comparer) CompareDefault(ctx context.Context) (*Comparison, error) {
	a, b, err := DefaultPair(c.app.Snapshot())
	if err != nil {
		return nil, err
	}
	return c.Compare(ctx, a, b)
}

// Compare builds the comparison of trxA (left) and trxB (right) over the
// rows of the snapshot current at the time of the call. It fails when there
// is no snapshot, a descriptor cannot be fetched, or a later comparison
// started before this one finished (ErrStale).
func (c *Comparer) Compare(ctx context.Context, trxA, trxB model.TrxID) (*Comparison, error) {
	snap := c.app.Snapshot()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	limit := c.maxConcurrency
	c.mu.Unlock()

	var descA, descB *model.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := c.engine.GetTransaction(gctx, trxA)
		if err != nil {
			return fmt.Errorf("fetch transaction %d: %w", trxA, err)
		}
		descA = t
		return nil
	})
	g.Go(func() error {
		t, err := c.engine.GetTransaction(gctx, trxB)
		if err != nil {
			return fmt.Errorf("fetch transaction %d: %w", trxB, err)
		}
		descB = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := snap.Rows
	descs := [2]*model.Transaction{descA, descB}
	results := [2]cmap.ConcurrentMap[model.RowID, Cell]{
		cmap.NewStringer[model.RowID, Cell](),
		cmap.NewStringer[model.RowID, Cell](),
	}

	var probes errgroup.Group
	probes.SetLimit(limit)
	for side := range descs {
		side := side
		for _, row := range rows {
			row := row
			probes.Go(func() error {
				results[side].Set(row.ID, c.probe(ctx, descs[side], row))
				return nil
			})
		}
	}
	_ = probes.Wait()

	cmp := &Comparison{
		ID:          uuid.NewString(),
		Rows:        rows,
		SnapshotAt:  snap.FetchedAt,
		CompletedAt: time.Now(),
	}
	panels := [2]*Panel{&cmp.Left, &cmp.Right}
	for side, p := range panels {
		p.Transaction = *descs[side]
		p.Cells = make([]Cell, len(rows))
		for i, row := range rows {
			cell, ok := results[side].Get(row.ID)
			if !ok {
				cell = Cell{RowID: row.ID, Status: StatusUnknown, Note: NoteUnknown}
			}
			p.Cells[i] = cell
		}
	}

	// Staleness is checked under the publish lock.
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		metrics.StaleComparisonsTotal.Inc()
		c.logger.Debug("discarding stale comparison", "left", trxA, "right", trxB, "generation", gen)
		return nil, ErrStale
	}
	c.latest = cmp
	c.mu.Unlock()

	c.logger.Debug("comparison complete", "id", cmp.ID, "left", trxA, "right", trxB, "rows", len(rows))
	return cmp, nil
}

// probe classifies one row for one transaction. It never fails.
func (c *Comparer) probe(ctx context.Context, trx *model.Transaction, row model.Row) Cell {
	vis, err := c.engine.CheckVisibility(ctx, trx.ID, row.ID)
	cell := classify(trx, row, vis, err)
	if err != nil {
		c.logger.Warn("visibility probe failed", "trx", trx.ID, "row", row.ID, "error", err)
	}
	metrics.ProbesTotal.WithLabelValues(outcome(cell.Status)).Inc()
	return cell
}

func classify(trx *model.Transaction, row model.Row, vis engine.Visibility, err error) Cell {
	switch {
	case err != nil:
		return Cell{RowID: row.ID, Status: StatusUnknown, Note: NoteUnknown, Error: err.Error()}
	case vis.Visible:
		return Cell{RowID: row.ID, Status: StatusVisible, Data: vis.Data}
	}
	writer, hasWriter := row.LastWriter()
	if hasWriter && row.Deleted && writer == trx.ID {
		return Cell{RowID: row.ID, Status: StatusDeletedBySelf, Data: row.Data, Note: NoteDeletedBySelf}
	}
	note := NoteNotVisible
	if hasWriter && trx.ReadView != nil && trx.ReadView.WasActive(writer) {
		note = NoteWriterInProgress
	}
	return Cell{RowID: row.ID, Status: StatusNotVisible, Data: row.Data, Note: note}
}

func outcome(s Status) string {
	switch s {
	case StatusVisible:
		return metrics.OutcomeVisible
	case StatusNotVisible:
		return metrics.OutcomeNotVisible
	case StatusDeletedBySelf:
		return metrics.OutcomeDeletedBySelf
	default:
		return metrics.OutcomeUnknown
	}
}
