package backend

import (
	"context"
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/compare"
	"github.com/KilimcininKorOglu/mvccview/internal/config"
	"github.com/KilimcininKorOglu/mvccview/internal/engine"
	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/notify"
	"github.com/KilimcininKorOglu/mvccview/internal/poller"
	"github.com/KilimcininKorOglu/mvccview/internal/render"
	"github.com/KilimcininKorOglu/mvccview/internal/state"
)

// Engine is the full engine API the backend forwards to.
type Engine interface {
	poller.SnapshotFetcher
	chain.RowDetailFetcher
	compare.Engine
	BeginTransaction(ctx context.Context, isolation string) (*model.Transaction, error)
	CommitTransaction(ctx context.Context, trx model.TrxID) error
	RollbackTransaction(ctx context.Context, trx model.TrxID) error
	InsertRow(ctx context.Context, trx model.TrxID, data model.Data) (model.RowID, error)
	UpdateRow(ctx context.Context, trx model.TrxID, row model.RowID, data model.Data) error
	DeleteRow(ctx context.Context, trx model.TrxID, row model.RowID) error
	ResetSystem(ctx context.Context) error
}

var _ Engine = (*engine.Client)(nil)

// Backend is what front ends use.
type Backend interface {
	// Poll runs one synchronization tick.
	Poll(ctx context.Context) (poller.Result, error)
	// Snapshot returns the current snapshot, or nil before the first poll.
	Snapshot() *model.Snapshot
	// Dashboard returns the primary view of the current snapshot.
	Dashboard() render.Dashboard

	// ShowChain focuses row and assembles its version chain.
	ShowChain(ctx context.Context, row model.RowID) (*chain.View, error)
	// Chain returns the last published chain, or nil.
	Chain() *chain.View
	// ClearFocus drops the focused row and its published chain.
	ClearFocus()

	// Compare builds the visibility comparison of a and b.
	Compare(ctx context.Context, a, b model.TrxID) (*compare.Comparison, error)
	// CompareDefault compares the default pair of active transactions.
	CompareDefault(ctx context.Context) (*compare.Comparison, error)
	// Comparison returns the last comparison, or nil.
	Comparison() *compare.Comparison

	Begin(ctx context.Context, isolation string) (*model.Transaction, error)
	Commit(ctx context.Context, trx model.TrxID) error
	Rollback(ctx context.Context, trx model.TrxID) error
	Insert(ctx context.Context, trx model.TrxID, data model.Data) (model.RowID, error)
	Update(ctx context.Context, trx model.TrxID, row model.RowID, data model.Data) error
	Delete(ctx context.Context, trx model.TrxID, row model.RowID) error
	// Read reports what trx reads for row.
	Read(ctx context.Context, trx model.TrxID, row model.RowID) (engine.Visibility, error)
	// Reset wipes the engine and the client's own state.
	Reset(ctx context.Context) error

	// Notifications returns live notifications, oldest first.
	Notifications() []notify.Notification
	// DismissNotification removes a live notification. It reports whether
	// id was found.
	DismissNotification(id string) bool
}

// Options configures a DashboardBackend. Zero values select defaults.
type Options struct {
	Interval       time.Duration
	HistoryLimit   int
	MaxConcurrency int
	NotifyTTL      time.Duration
	Logger         logging.Logger
}

// OptionsFromConfig maps configuration onto Options.
func OptionsFromConfig(cfg *config.Config, logger logging.Logger) Options {
	return Options{
		Interval:       cfg.Sync.Interval,
		HistoryLimit:   cfg.Sync.HistoryLimit,
		MaxConcurrency: cfg.Compare.MaxConcurrency,
		NotifyTTL:      cfg.Notify.TTL,
		Logger:         logger,
	}
}

// DashboardBackend implements Backend against one engine.
type DashboardBackend struct {
	engine   Engine
	app      *state.App
	loop     *poller.Loop
	chains   *chain.Assembler
	comparer *compare.Comparer
	notes    *notify.Center
	logger   logging.Logger
}

// New wires a backend around eng.
func New(eng Engine, opts Options) *DashboardBackend {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	app := state.New(opts.HistoryLimit)
	chains := chain.NewAssembler(app, eng, logger)
	return &DashboardBackend{
		engine:   eng,
		app:      app,
		loop:     poller.New(app, eng, chains, opts.Interval, logger),
		chains:   chains,
		comparer: compare.New(app, eng, opts.MaxConcurrency, logger),
		notes:    notify.NewCenter(opts.NotifyTTL),
		logger:   logger.WithSource("backend"),
	}
}

// Loop returns the synchronization loop, for Run and Subscribe.
func (b *DashboardBackend) Loop() *poller.Loop {
	return b.loop
}

// App returns the application state.
func (b *DashboardBackend) App() *state.App {
	return b.app
}

// Notifier returns the notification center.
func (b *DashboardBackend) Notifier() *notify.Center {
	return b.notes
}

// ApplyConfig applies the hot-reloadable settings of cfg.
func (b *DashboardBackend) ApplyConfig(cfg *config.Config) {
	b.loop.SetInterval(cfg.Sync.Interval)
	b.app.SetHistoryLimit(cfg.Sync.HistoryLimit)
	b.comparer.SetMaxConcurrency(cfg.Compare.MaxConcurrency)
	b.notes.SetTTL(cfg.Notify.TTL)
	b.logger.Info("configuration applied",
		"interval", cfg.Sync.Interval.String(),
		"historyLimit", cfg.Sync.HistoryLimit,
		"maxConcurrency", cfg.Compare.MaxConcurrency,
	)
}
