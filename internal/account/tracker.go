package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lighterdash/internal/logger"
)

// Fetcher produces a full account snapshot; *Aggregator implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// TrackerState is what view consumers read. Summary is nil until the first success.
type TrackerState struct {
	Summary     *Summary   `json:"summary"`
	Positions   []Position `json:"positions"`
	Orders      []Order    `json:"orders"`
	Loading     bool       `json:"loading"`
	Err         string     `json:"error,omitempty"`
	RefreshedAt time.Time  `json:"refreshed_at"`
	RefreshID   string     `json:"refresh_id,omitempty"`
}

// ApplyHook observes every snapshot the tracker adopts.
type ApplyHook func(ctx context.Context, state TrackerState)

// Tracker holds the latest account snapshot. Concurrent refreshes are allowed;
// a response is adopted only if no later-issued refresh has been applied already.
type Tracker struct {
	fetcher Fetcher
	now     func() time.Time

	mu       sync.RWMutex
	state    TrackerState
	issued   uint64
	applied  uint64
	inflight int
	hooks    []ApplyHook
}

func NewTracker(fetcher Fetcher) (*Tracker, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("account fetcher is required")
	}
	return &Tracker{
		fetcher: fetcher,
		now:     time.Now,
		state: TrackerState{
			Positions: []Position{},
			Orders:    []Order{},
		},
	}, nil
}

func (t *Tracker) OnApply(hook ApplyHook) {
	if hook == nil {
		return
	}
	t.mu.Lock()
	t.hooks = append(t.hooks, hook)
	t.mu.Unlock()
}

func (t *Tracker) State() TrackerState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Refresh runs one fetch and returns its own error, even when the result was
// superseded and not applied.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	t.issued++
	gen := t.issued
	t.inflight++
	t.state.Loading = true
	t.mu.Unlock()

	snap, err := t.fetcher.Fetch(ctx)

	t.mu.Lock()
	t.inflight--
	t.state.Loading = t.inflight > 0
	if latest := t.applied; gen <= latest {
		t.mu.Unlock()
		logger.Debugf("account refresh #%d superseded by #%d, discarded", gen, latest)
		return err
	}
	t.applied = gen
	if err != nil {
		t.state.Err = err.Error()
		t.mu.Unlock()
		logger.Warnf("account refresh failed: %v", err)
		return err
	}
	summary := snap.Summary
	t.state.Summary = &summary
	t.state.Positions = snap.Positions
	t.state.Orders = snap.Orders
	t.state.Err = ""
	t.state.RefreshedAt = t.now()
	t.state.RefreshID = uuid.NewString()
	state := t.state
	hooks := append([]ApplyHook(nil), t.hooks...)
	t.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, state)
	}
	return nil
}
