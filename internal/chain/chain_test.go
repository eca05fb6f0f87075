package chain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/state"
)

func undoPtr(id model.UndoID) *model.UndoID { return &id }

// threeVersions is row 1 inserted by trx 1 and updated by trx 2 and 3.
func threeVersions() *model.RowDetail {
	return &model.RowDetail{
		VersionChain: &model.VersionChain{Versions: []model.Version{
			{TrxID: 1, Data: model.Data{"v": 1}, UndoID: undoPtr(1)},
			{TrxID: 2, Data: model.Data{"v": 2}, UndoID: undoPtr(2)},
			{TrxID: 3, Data: model.Data{"v": 3}, UndoID: undoPtr(3)},
		}},
		UndoChain: []model.UndoLog{
			{UndoID: 3, RowID: 1, TrxID: 3, LogType: model.LogUpdate, RollPointer: undoPtr(2)},
			{UndoID: 2, RowID: 1, TrxID: 2, LogType: model.LogUpdate, RollPointer: undoPtr(1)},
			{UndoID: 1, RowID: 1, TrxID: 1, LogType: model.LogInsert},
		},
	}
}

func TestBuildRanksAndConnectors(t *testing.T) {
	view, err := Build(1, threeVersions())
	require.NoError(t, err)
	require.Equal(t, 3, view.Len())
	assert.Empty(t, view.Problems)

	newest, middle, oldest := view.Nodes[0], view.Nodes[1], view.Nodes[2]

	assert.Equal(t, 3, newest.Rank)
	assert.Equal(t, model.TrxID(3), newest.Version.TrxID)
	assert.True(t, newest.HasPredecessor)
	assert.Equal(t, ConnectorRollPointer, newest.Connector)
	assert.Equal(t, undoPtr(2), newest.RollPointer)

	assert.Equal(t, 2, middle.Rank)
	assert.Equal(t, ConnectorRollPointer, middle.Connector)
	assert.Equal(t, undoPtr(1), middle.RollPointer)

	assert.Equal(t, 1, oldest.Rank)
	assert.False(t, oldest.HasPredecessor)
	assert.Equal(t, ConnectorTerminus, oldest.Connector)
	require.NotNil(t, oldest.Undo)
	assert.Equal(t, model.LogInsert, oldest.Undo.LogType)
}

func TestBuildStructuralConnectors(t *testing.T) {
	detail := &model.RowDetail{
		VersionChain: &model.VersionChain{Versions: []model.Version{
			{TrxID: 1, UndoID: undoPtr(1)},
			{TrxID: 2, UndoID: undoPtr(2)},
			{TrxID: 3},
		}},
		UndoChain: []model.UndoLog{
			{UndoID: 1, RowID: 1},
			{UndoID: 2, RowID: 1},
		},
	}

	view, err := Build(1, detail)
	require.NoError(t, err)

	assert.Equal(t, ConnectorStructural, view.Nodes[0].Connector, "no paired undo entry")
	assert.Nil(t, view.Nodes[0].Undo)
	assert.Equal(t, ConnectorStructural, view.Nodes[1].Connector, "undo entry without roll pointer")
	assert.NotNil(t, view.Nodes[1].Undo)
	assert.Nil(t, view.Nodes[1].RollPointer)
	assert.Equal(t, ConnectorTerminus, view.Nodes[2].Connector)
}

func TestBuildSingleAndEmpty(t *testing.T) {
	single, err := Build(1, &model.RowDetail{VersionChain: &model.VersionChain{Versions: []model.Version{{TrxID: 1}}}})
	require.NoError(t, err)
	require.Len(t, single.Nodes, 1)
	assert.Equal(t, 1, single.Nodes[0].Rank)
	assert.Equal(t, ConnectorTerminus, single.Nodes[0].Connector)

	empty, err := Build(1, &model.RowDetail{VersionChain: &model.VersionChain{}})
	require.NoError(t, err)
	assert.Empty(t, empty.Nodes)
}

func TestBuildWithoutHistory(t *testing.T) {
	_, err := Build(1, &model.RowDetail{Row: &model.Row{ID: 1}})
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = Build(1, nil)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestBuildReportsIntegrityProblems(t *testing.T) {
	detail := &model.RowDetail{
		VersionChain: &model.VersionChain{Versions: []model.Version{
			{TrxID: 1, UndoID: undoPtr(9)},
			{TrxID: 2, UndoID: undoPtr(2)},
		}},
		UndoChain: []model.UndoLog{
			{UndoID: 2, RowID: 1, RollPointer: undoPtr(3)},
			{UndoID: 3, RowID: 1, RollPointer: undoPtr(2)},
		},
	}

	view, err := Build(1, detail)
	require.NoError(t, err)
	require.Len(t, view.Nodes, 2)
	assert.Len(t, view.Problems, 2, "one cycle and one unresolved undo id")
	assert.Nil(t, view.Nodes[1].Undo)
}

func TestBuildIsIdempotent(t *testing.T) {
	a, err := Build(1, threeVersions())
	require.NoError(t, err)
	b, err := Build(1, threeVersions())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

type fetcherFunc func(ctx context.Context, row model.RowID) (*model.RowDetail, error)

func (f fetcherFunc) GetRowDetail(ctx context.Context, row model.RowID) (*model.RowDetail, error) {
	return f(ctx, row)
}

func TestAssemblerShowSetsFocusAndPublishes(t *testing.T) {
	app := state.New(10)
	calls := 0
	asm := NewAssembler(app, fetcherFunc(func(_ context.Context, row model.RowID) (*model.RowDetail, error) {
		calls++
		return threeVersions(), nil
	}), logging.NewNop())

	view, err := asm.Show(context.Background(), 1)
	require.NoError(t, err)
	assert.Same(t, view, asm.Latest())

	focus, ok := app.Focus()
	require.True(t, ok)
	assert.Equal(t, model.RowID(1), focus)

	again, err := asm.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, view, again)
	assert.Equal(t, 2, calls)

	app.Reset()
	assert.Nil(t, asm.Latest())
}

func TestAssemblerNoHistoryPublishesNothing(t *testing.T) {
	app := state.New(10)
	asm := NewAssembler(app, fetcherFunc(func(context.Context, model.RowID) (*model.RowDetail, error) {
		return &model.RowDetail{Row: &model.Row{ID: 5}}, nil
	}), nil)

	_, err := asm.Show(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoHistory)
	assert.Nil(t, asm.Latest())

	_, ok := app.Focus()
	assert.True(t, ok, "focus is still recorded")
}

func TestAssemblerFetchError(t *testing.T) {
	boom := errors.New("connection refused")
	asm := NewAssembler(state.New(10), fetcherFunc(func(context.Context, model.RowID) (*model.RowDetail, error) {
		return nil, boom
	}), nil)

	_, err := asm.Show(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestAssemblerRefreshWithoutFocus(t *testing.T) {
	asm := NewAssembler(state.New(10), fetcherFunc(func(context.Context, model.RowID) (*model.RowDetail, error) {
		t.Fatal("must not fetch")
		return nil, nil
	}), nil)

	_, err := asm.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoFocus)
}

func TestAssemblerDropsStaleResponses(t *testing.T) {
	app := state.New(10)
	release := make(chan struct{})
	started := make(chan struct{})

	asm := NewAssembler(app, fetcherFunc(func(_ context.Context, row model.RowID) (*model.RowDetail, error) {
		if row == 1 {
			close(started)
			<-release
		}
		d := threeVersions()
		d.Row = &model.Row{ID: row}
		return d, nil
	}), nil)

	var (
		wg      sync.WaitGroup
		slowErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = asm.Show(context.Background(), 1)
	}()

	<-started
	fast, err := asm.Show(context.Background(), 2)
	require.NoError(t, err)
	close(release)
	wg.Wait()

	assert.ErrorIs(t, slowErr, ErrStale)
	require.NotNil(t, asm.Latest())
	assert.Same(t, fast, asm.Latest())
	assert.Equal(t, model.RowID(2), asm.Latest().RowID)
}

func TestAssemblerRefreshFocusRejectsOldToken(t *testing.T) {
	app := state.New(10)
	var fetched []model.RowID
	asm := NewAssembler(app, fetcherFunc(func(_ context.Context, row model.RowID) (*model.RowDetail, error) {
		fetched = append(fetched, row)
		return threeVersions(), nil
	}), nil)

	old := app.SetFocus(1)
	app.SetFocus(2)

	_, err := asm.RefreshFocus(context.Background(), old)
	assert.ErrorIs(t, err, ErrStale)
	assert.Empty(t, fetched)
	assert.Nil(t, asm.Latest())

	view, err := asm.RefreshFocus(context.Background(), app.FocusToken())
	require.NoError(t, err)
	assert.Equal(t, []model.RowID{2}, fetched)
	assert.Same(t, view, asm.Latest())
}
