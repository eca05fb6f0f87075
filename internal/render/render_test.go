package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/compare"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/notify"
)

func trxPtr(id model.TrxID) *model.TrxID     { return &id }
func undoPtr(id model.UndoID) *model.UndoID { return &id }

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Transactions: model.Transactions{
			Active: []model.Transaction{
				{ID: 3, Status: model.StatusActive, IsolationLevel: model.RepeatableRead, ModifiedRows: []model.RowID{2},
					ReadView: &model.ReadView{CreatorTrxID: 3, ActiveIDs: []model.TrxID{2, 3}, MinTrxID: 2, MaxTrxID: 4}},
				{ID: 2, Status: model.StatusActive, IsolationLevel: model.ReadCommitted, ModifiedRows: []model.RowID{1}},
			},
			Aborted: []model.Transaction{{ID: 9, Status: model.StatusAborted, IsolationLevel: model.ReadCommitted}},
		},
		Rows: []model.Row{
			{ID: 1, Data: model.Data{"name": "alice"}, CurrentTrxID: trxPtr(2), RollPointer: undoPtr(4), DisplayRollPointer: undoPtr(3)},
			{ID: 2, Data: model.Data{"name": "bob"}, CurrentTrxID: trxPtr(3), Deleted: true},
		},
		UndoLogs: []model.UndoLog{{UndoID: 3, LogType: model.LogInsert, TrxID: 1, RowID: 1}},
	}
}

func TestBuildDashboard(t *testing.T) {
	focus := model.RowID(2)
	history := []model.Transaction{{ID: 1, Status: model.StatusCommitted}}

	d := BuildDashboard(sampleSnapshot(), history, &focus)
	assert.Equal(t, []model.RowID{1, 2}, d.ModifiedRows)
	assert.Equal(t, history, d.Committed)
	require.Len(t, d.ReadViews, 1, "only transactions with a read view are summarized")
	assert.Equal(t, model.TrxID(3), d.ReadViews[0].TrxID)
	assert.Equal(t, []model.TrxID{2, 3}, d.ReadViews[0].ActiveIDs)

	empty := BuildDashboard(nil, nil, nil)
	assert.Empty(t, empty.Rows)
}

func TestRenderDashboard(t *testing.T) {
	focus := model.RowID(2)
	out := ansi.Strip(New(0).Dashboard(BuildDashboard(sampleSnapshot(), nil, &focus)))

	assert.Contains(t, out, "Active transactions (2)")
	assert.Contains(t, out, "T3 REPEATABLE_READ")
	assert.Contains(t, out, "m_ids=[2,3] min=2 max=4")
	assert.Contains(t, out, "Aborted (1)")
	assert.Contains(t, out, `{"name":"alice"}`)
	assert.Contains(t, out, "(deleted) *", "focused row is marked")
	assert.Contains(t, out, "#3")

	rowLine := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "alice") {
			rowLine = line
		}
	}
	assert.Contains(t, rowLine, " 3 ", "DB_ROLL_PTR shows the display roll pointer")
	assert.NotContains(t, rowLine, " 4 ")
}

func TestRenderChain(t *testing.T) {
	view, err := chain.Build(1, &model.RowDetail{
		VersionChain: &model.VersionChain{Versions: []model.Version{
			{TrxID: 1, Data: model.Data{"v": 1}, UndoID: undoPtr(1)},
			{TrxID: 2, Data: model.Data{"v": 2}, UndoID: undoPtr(2)},
			{TrxID: 3, Data: model.Data{"v": 3}},
		}},
		UndoChain: []model.UndoLog{
			{UndoID: 2, RowID: 1, TrxID: 2, LogType: model.LogUpdate, RollPointer: undoPtr(1)},
			{UndoID: 1, RowID: 1, TrxID: 1, LogType: model.LogInsert},
		},
	})
	require.NoError(t, err)

	out := ansi.Strip(New(0).Chain(view))
	assert.Contains(t, out, "Version chain of row 1")
	assert.Contains(t, out, "v3  T3  (current)")
	assert.Contains(t, out, "via roll_pointer -> undo #1")
	assert.Contains(t, out, "earliest version")
	assert.Less(t, strings.Index(out, "v3"), strings.Index(out, "v1"), "newest first")

	assert.Equal(t, out, ansi.Strip(New(0).Chain(view)), "rendering is deterministic")
	assert.Contains(t, New(0).Chain(nil), "no row selected")
}

func TestRenderComparison(t *testing.T) {
	cmp := &compare.Comparison{
		Left: compare.Panel{
			Transaction: model.Transaction{ID: 1, IsolationLevel: model.RepeatableRead},
			Cells: []compare.Cell{
				{RowID: 1, Status: compare.StatusVisible, Data: model.Data{"v": "old"}},
				{RowID: 2, Status: compare.StatusNotVisible, Data: model.Data{"v": "raw"}, Note: compare.NoteNotVisible},
			},
		},
		Right: compare.Panel{
			Transaction: model.Transaction{ID: 2, IsolationLevel: model.ReadCommitted},
			Cells: []compare.Cell{
				{RowID: 1, Status: compare.StatusUnknown, Error: "boom"},
				{RowID: 2, Status: compare.StatusVisible, Data: model.Data{"v": "raw"}},
			},
		},
	}

	out := ansi.Strip(New(120).Comparison(cmp))
	assert.Contains(t, out, "T1 vs T2")
	assert.Contains(t, out, "row 2 not visible under this transaction's snapshot")
	assert.Contains(t, out, `raw {"v":"raw"}`)
	assert.Contains(t, out, "visibility unknown")
	assert.Contains(t, out, "boom")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 120)
	}
}

func TestRenderNotificationsAndTruncation(t *testing.T) {
	out := ansi.Strip(New(12).Notifications([]notify.Notification{
		{Level: notify.LevelError, Message: "Transaction not active"},
		{Level: notify.LevelSuccess, Message: "ok"},
	}))
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "x Transactio", lines[0])
	assert.Equal(t, "ok ok", lines[1])
}

func TestFormatData(t *testing.T) {
	assert.Equal(t, "null", FormatData(nil))
	assert.Equal(t, `{"a":1,"b":"x"}`, FormatData(model.Data{"b": "x", "a": 1}))
}

func TestRenderDashboardListsLatestOperations(t *testing.T) {
	snap := sampleSnapshot()
	for i := 1; i <= 7; i++ {
		snap.Transactions.Active[0].Operations = append(snap.Transactions.Active[0].Operations, model.Operation{
			Type:    "update",
			RowID:   model.RowID(100 + i),
			Details: map[string]interface{}{"seq": i},
		})
	}
	snap.Transactions.Active[1].Operations = []model.Operation{{Type: "insert", RowID: 1}}

	out := ansi.Strip(New(0).Dashboard(BuildDashboard(snap, nil, nil)))
	assert.Contains(t, out, "ops 7")
	assert.NotContains(t, out, "row 101 ")
	assert.NotContains(t, out, "row 102 ")
	for i := 103; i <= 107; i++ {
		assert.Contains(t, out, fmt.Sprintf("update row %d", i))
	}
	assert.Contains(t, out, `{"seq":7}`)
	assert.Contains(t, out, "... 2 more")
	assert.Less(t, strings.Index(out, "row 103"), strings.Index(out, "row 107"), "oldest listed first")

	assert.Contains(t, out, "insert row 1")
	assert.Equal(t, 1, strings.Count(out, "more"), "short lists have no overflow line")
}

func TestRenderCommittedRetained(t *testing.T) {
	d := BuildDashboard(nil, []model.Transaction{{ID: 4}, {ID: 3}}, nil)
	assert.Contains(t, ansi.Strip(New(0).Dashboard(d)), "Committed (latest 2)")

	d.CommittedRetained = 12
	assert.Contains(t, ansi.Strip(New(0).Dashboard(d)), "Committed (latest 2 of 12)")
}

func TestRenderComparisonPanelCounts(t *testing.T) {
	cmp := &compare.Comparison{
		Left: compare.Panel{Cells: []compare.Cell{
			{RowID: 1, Status: compare.StatusVisible},
			{RowID: 2, Status: compare.StatusNotVisible},
			{RowID: 3, Status: compare.StatusDeletedBySelf},
		}},
		Right: compare.Panel{Cells: []compare.Cell{
			{RowID: 1, Status: compare.StatusUnknown},
		}},
	}

	out := ansi.Strip(New(0).Comparison(cmp))
	assert.Contains(t, out, "1 visible, 2 hidden, 0 unknown")
	assert.Contains(t, out, "0 visible, 0 hidden, 1 unknown")
}
