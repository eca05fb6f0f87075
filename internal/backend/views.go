package backend

import (
	"context"

	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/compare"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/notify"
	"github.com/KilimcininKorOglu/mvccview/internal/poller"
	"github.com/KilimcininKorOglu/mvccview/internal/render"
)

// Poll runs one synchronization tick.
func (b *DashboardBackend) Poll(ctx context.Context) (poller.Result, error) {
	return b.loop.Tick(ctx)
}

// Snapshot returns the current snapshot.
func (b *DashboardBackend) Snapshot() *model.Snapshot {
	return b.app.Snapshot()
}

// Dashboard returns the primary view.
func (b *DashboardBackend) Dashboard() render.Dashboard {
	var focus *model.RowID
	if row, ok := b.app.Focus(); ok {
		focus = &row
	}
	d := render.BuildDashboard(b.app.Snapshot(), b.app.History(), focus)
	d.CommittedRetained = b.app.HistoryLen()
	return d
}

// ShowChain focuses row and assembles its chain.
func (b *DashboardBackend) ShowChain(ctx context.Context, row model.RowID) (*chain.View, error) {
	return b.chains.Show(ctx, row)
}

// Chain returns the last published chain.
func (b *DashboardBackend) Chain() *chain.View {
	return b.chains.Latest()
}

// ClearFocus drops the focus. A refresh already in flight for the old focus
// will not publish.
func (b *DashboardBackend) ClearFocus() {
	b.app.ClearFocus()
	b.chains.Clear()
}

// Compare builds the comparison of a and b.
func (b *DashboardBackend) Compare(ctx context.Context, a, c model.TrxID) (*compare.Comparison, error) {
	return b.comparer.Compare(ctx, a, c)
}

// CompareDefault compares the default pair.
func (b *DashboardBackend) CompareDefault(ctx context.Context) (*compare.Comparison, error) {
	return b.comparer.CompareDefault(ctx)
}

// Comparison returns the last comparison.
func (b *DashboardBackend) Comparison() *compare.Comparison {
	return b.comparer.Latest()
}

// Notifications returns live notifications.
func (b *DashboardBackend) Notifications() []notify.Notification {
	return b.notes.Active()
}

// DismissNotification removes a live notification.
func (b *DashboardBackend) DismissNotification(id string) bool {
	return b.notes.Dismiss(id)
}
