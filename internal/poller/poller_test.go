package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/engine"
	"github.com/KilimcininKorOglu/mvccview/internal/engine/enginetest"
	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/state"
)

type harness struct {
	fake   *enginetest.Engine
	app    *state.App
	chains *chain.Assembler
	loop   *Loop
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := enginetest.New(t)
	client, err := engine.New(fake.URL(), time.Second)
	require.NoError(t, err)

	app := state.New(10)
	chains := chain.NewAssembler(app, client, logging.NewNop())
	return &harness{
		fake:   fake,
		app:    app,
		chains: chains,
		loop:   New(app, client, chains, 10*time.Millisecond, logging.NewNop()),
	}
}

func stateWith(t2Rows ...model.RowID) model.Snapshot {
	return model.Snapshot{
		Transactions: model.Transactions{Active: []model.Transaction{
			enginetest.ActiveTrx(1, model.RepeatableRead),
			enginetest.ActiveTrx(2, model.ReadCommitted, t2Rows...),
		}},
		Rows: []model.Row{enginetest.Row(42, 2, model.Data{"name": "x"})},
	}
}

func TestTickRefreshesFocusedRowOnlyOnFirstModification(t *testing.T) {
	h := newHarness(t)
	h.fake.SetRowDetail(42, model.RowDetail{
		VersionChain: &model.VersionChain{Versions: []model.Version{{TrxID: 2}}},
	})
	ctx := context.Background()

	h.fake.SetSnapshot(stateWith())
	res, err := h.loop.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, res.Refreshed)

	h.app.SetFocus(42)

	h.fake.SetSnapshot(stateWith(42))
	res, err = h.loop.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, res.Refreshed, "row 42 newly modified by T2")
	require.NotNil(t, res.Chain)
	assert.Equal(t, model.RowID(42), res.Chain.RowID)
	assert.Equal(t, 1, h.fake.Requests("/row/42"))

	res, err = h.loop.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, res.Refreshed, "already seen on the previous tick")
	assert.Equal(t, 1, h.fake.Requests("/row/42"))
}

func TestTickFailureKeepsPreviousSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.fake.SetSnapshot(stateWith(42))
	_, err := h.loop.Tick(ctx)
	require.NoError(t, err)
	before := h.app.Snapshot()

	var failures int
	h.loop.Subscribe(Listener{Failure: func(error) { failures++ }})

	h.fake.FailNext("/system/state", 1)
	_, err = h.loop.Tick(ctx)
	require.Error(t, err)
	assert.Same(t, before, h.app.Snapshot())
	assert.Equal(t, 1, failures)

	_, err = h.loop.Tick(ctx)
	require.NoError(t, err)
	assert.NotSame(t, before, h.app.Snapshot())
}

func TestTickNotifiesListenersEveryPoll(t *testing.T) {
	h := newHarness(t)
	h.fake.SetSnapshot(stateWith())

	var snaps int
	h.loop.Subscribe(Listener{Snapshot: func(*model.Snapshot) { snaps++ }})

	for i := 0; i < 3; i++ {
		_, err := h.loop.Tick(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, snaps)
}

func TestTickNoHistoryIsSilent(t *testing.T) {
	h := newHarness(t)
	h.app.SetFocus(42)

	var chains int
	h.loop.Subscribe(Listener{Chain: func(*chain.View) { chains++ }})

	h.fake.SetSnapshot(stateWith(42))
	res, err := h.loop.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Refreshed)
	assert.Nil(t, res.Chain)
	assert.Equal(t, 0, chains)
	assert.Nil(t, h.chains.Latest())
}

func TestTickRefreshTargetsTheRowTheDetectorSaw(t *testing.T) {
	h := newHarness(t)
	for _, row := range []model.RowID{42, 43} {
		h.fake.SetRowDetail(row, model.RowDetail{
			VersionChain: &model.VersionChain{Versions: []model.Version{{TrxID: 2}}},
		})
	}
	h.app.SetFocus(42)

	// The focus moves after detection and before the refresh.
	var once sync.Once
	h.loop.Subscribe(Listener{Snapshot: func(*model.Snapshot) {
		once.Do(func() { h.app.SetFocus(43) })
	}})

	h.fake.SetSnapshot(stateWith(42))
	res, err := h.loop.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Refreshed)
	assert.Nil(t, res.Chain)
	assert.Nil(t, h.chains.Latest())
	assert.Equal(t, 0, h.fake.Requests("/row/43"), "row 43 was never newly modified")
	assert.Equal(t, 0, h.fake.Requests("/row/42"), "row 42 is no longer focused")
}

func TestTickReportsMonotonicViolations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.fake.SetSnapshot(stateWith(42))
	_, err := h.loop.Tick(ctx)
	require.NoError(t, err)

	h.fake.SetSnapshot(stateWith())
	res, err := h.loop.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, model.TrxID(2), res.Violations[0].TrxID)
}

func TestResetForgetsPreviousModified(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.fake.SetSnapshot(stateWith(42))
	_, err := h.loop.Tick(ctx)
	require.NoError(t, err)

	h.app.Reset()
	h.app.SetFocus(42)
	res, err := h.loop.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, res.Refreshed)
}

type countingFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *countingFetcher) GetSnapshot(context.Context) (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &model.Snapshot{}, nil
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunPollsImmediatelyAndSurvivesFailures(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("connection refused")}
	loop := New(state.New(10), fetcher, nil, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool { return fetcher.count() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestSetInterval(t *testing.T) {
	fetcher := &countingFetcher{}
	loop := New(state.New(10), fetcher, nil, time.Hour, nil)
	assert.Equal(t, time.Hour, loop.Interval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	require.Eventually(t, func() bool { return fetcher.count() == 1 }, time.Second, time.Millisecond)
	loop.SetInterval(5 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, loop.Interval())
	require.Eventually(t, func() bool { return fetcher.count() >= 3 }, 2*time.Second, time.Millisecond)

	loop.SetInterval(0)
	assert.Equal(t, 5*time.Millisecond, loop.Interval())
}
