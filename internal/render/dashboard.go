// Package render turns the dashboard's typed views into terminal text.
//
// View-models (Dashboard here, chain.View and compare.Comparison elsewhere)
// carry no formatting; Renderer owns all styling.
package render

import (
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/model"
)

// ReadViewSummary is one active transaction's read view, flattened.
type ReadViewSummary struct {
	TrxID          model.TrxID   `json:"trx_id"`
	IsolationLevel string        `json:"isolation_level"`
	CreatorTrxID   model.TrxID   `json:"creator_trx_id"`
	ActiveIDs      []model.TrxID `json:"m_ids"`
	MinTrxID       model.TrxID   `json:"min_trx_id"`
	MaxTrxID       model.TrxID   `json:"max_trx_id"`
	CreateTime     model.Time    `json:"create_time"`
}

// Dashboard is the primary view: everything re-rendered on every poll.
type Dashboard struct {
	FetchedAt    time.Time           `json:"fetched_at"`
	Active       []model.Transaction `json:"active"`
	Committed    []model.Transaction `json:"committed"`
	Aborted      []model.Transaction `json:"aborted"`
	Rows         []model.Row         `json:"rows"`
	UndoLogs     []model.UndoLog     `json:"undo_logs"`
	ReadViews    []ReadViewSummary   `json:"read_views"`
	ModifiedRows []model.RowID       `json:"modified_rows"`
	Focus        *model.RowID        `json:"focus,omitempty"`

	// CommittedRetained is how many committed transactions the client has
	// seen in total; Committed holds only the latest of them.
	CommittedRetained int `json:"committed_retained,omitempty"`
}

// BuildDashboard assembles the primary view from one snapshot. committed is
// the client's retained history, newest first; it replaces the snapshot's own
// committed list. A nil snapshot yields an empty dashboard.
func BuildDashboard(snap *model.Snapshot, committed []model.Transaction, focus *model.RowID) Dashboard {
	d := Dashboard{Committed: committed, Focus: focus}
	if snap == nil {
		return d
	}
	d.FetchedAt = snap.FetchedAt
	d.Active = snap.Transactions.Active
	d.Aborted = snap.Transactions.Aborted
	d.Rows = snap.Rows
	d.UndoLogs = snap.UndoLogs
	d.ModifiedRows = snap.ModifiedRows().Slice()
	for _, trx := range snap.Transactions.Active {
		if trx.ReadView == nil {
			continue
		}
		rv := trx.ReadView
		d.ReadViews = append(d.ReadViews, ReadViewSummary{
			TrxID:          trx.ID,
			IsolationLevel: trx.IsolationLevel,
			CreatorTrxID:   rv.CreatorTrxID,
			ActiveIDs:      rv.ActiveIDs,
			MinTrxID:       rv.MinTrxID,
			MaxTrxID:       rv.MaxTrxID,
			CreateTime:     rv.CreateTime,
		})
	}
	return d
}
