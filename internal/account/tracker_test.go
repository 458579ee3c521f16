package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchResult struct {
	snap Snapshot
	err  error
}

// gatedFetcher hands each call a channel so tests control completion order.
type gatedFetcher struct {
	mu    sync.Mutex
	gates []chan fetchResult
	calls chan int
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{calls: make(chan int, 8)}
}

func (f *gatedFetcher) Fetch(ctx context.Context) (Snapshot, error) {
	gate := make(chan fetchResult, 1)
	f.mu.Lock()
	f.gates = append(f.gates, gate)
	idx := len(f.gates) - 1
	f.mu.Unlock()
	f.calls <- idx
	res := <-gate
	return res.snap, res.err
}

func (f *gatedFetcher) release(idx int, res fetchResult) {
	f.mu.Lock()
	gate := f.gates[idx]
	f.mu.Unlock()
	gate <- res
}

type staticFetcher struct {
	snap Snapshot
	err  error
}

func (f *staticFetcher) Fetch(context.Context) (Snapshot, error) { return f.snap, f.err }

func TestTracker_InitialState(t *testing.T) {
	tr, err := NewTracker(&staticFetcher{})
	require.NoError(t, err)
	st := tr.State()
	assert.Nil(t, st.Summary)
	assert.NotNil(t, st.Positions)
	assert.NotNil(t, st.Orders)
	assert.False(t, st.Loading)
}

func TestTracker_FailureKeepsPreviousSnapshot(t *testing.T) {
	f := &staticFetcher{snap: Snapshot{
		Summary:   Summary{AccountID: "1"},
		Positions: []Position{{Symbol: "BTC"}},
		Orders:    []Order{},
	}}
	tr, _ := NewTracker(f)
	var applied []TrackerState
	tr.OnApply(func(_ context.Context, st TrackerState) { applied = append(applied, st) })

	require.NoError(t, tr.Refresh(context.Background()))
	first := tr.State()
	assert.NotEmpty(t, first.RefreshID)
	assert.Empty(t, first.Err)

	f.err = &FetchError{Resource: ResourcePositions, Kind: KindStatus, StatusCode: 500}
	require.Error(t, tr.Refresh(context.Background()))
	st := tr.State()
	assert.Equal(t, "positions: 500", st.Err)
	assert.Equal(t, first.Positions, st.Positions)
	assert.Equal(t, first.RefreshID, st.RefreshID)
	assert.Len(t, applied, 1)

	f.err = nil
	require.NoError(t, tr.Refresh(context.Background()))
	assert.Empty(t, tr.State().Err)
	assert.Len(t, applied, 2)
}

func TestTracker_FailureBeforeAnySuccess(t *testing.T) {
	tr, _ := NewTracker(&staticFetcher{err: errors.New("boom")})
	require.Error(t, tr.Refresh(context.Background()))
	st := tr.State()
	assert.Nil(t, st.Summary)
	assert.Empty(t, st.Positions)
	assert.Equal(t, "boom", st.Err)
}

func TestTracker_LatestIssuedWins(t *testing.T) {
	f := newGatedFetcher()
	tr, _ := NewTracker(f)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() { defer wg.Done(); errs[0] = tr.Refresh(context.Background()) }()
	older := <-f.calls
	wg.Add(1)
	go func() { defer wg.Done(); errs[1] = tr.Refresh(context.Background()) }()
	newer := <-f.calls

	assert.True(t, tr.State().Loading)

	f.release(newer, fetchResult{snap: Snapshot{Summary: Summary{AccountID: "new"}}})
	require.Eventually(t, func() bool {
		st := tr.State()
		return st.Summary != nil && st.Summary.AccountID == "new"
	}, time.Second, 5*time.Millisecond)
	assert.True(t, tr.State().Loading)

	f.release(older, fetchResult{err: errors.New("stale failure")})
	wg.Wait()

	st := tr.State()
	assert.Equal(t, "new", st.Summary.AccountID)
	assert.Empty(t, st.Err)
	assert.False(t, st.Loading)
	assert.Error(t, errs[0])
	assert.NoError(t, errs[1])
}
