package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lighterdash/internal/logger"
)

type Source interface {
	Markets(ctx context.Context) ([]Row, error)
}

const (
	OriginREST   = "rest"
	OriginStream = "stream"
)

type BoardState struct {
	Rows        []Row     `json:"rows"`
	Loading     bool      `json:"loading"`
	Err         string    `json:"error,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
	Origin      string    `json:"origin,omitempty"`
}

// RefreshError reports a failed markets fetch as "markets: <status>" for HTTP
// failures and "markets: <cause>" otherwise.
type RefreshError struct {
	StatusCode int
	Err        error
}

func (e *RefreshError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("markets: %d", e.StatusCode)
	}
	return fmt.Sprintf("markets: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func newRefreshError(err error) *RefreshError {
	re := &RefreshError{Err: err}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		re.StatusCode = sc.StatusCode()
	}
	return re
}

type BoardHook func(ctx context.Context, state BoardState)

// Board holds the latest market rows from REST polls or the live stream.
// The most recently issued update wins, whichever path it came from.
type Board struct {
	src Source
	now func() time.Time

	mu       sync.RWMutex
	state    BoardState
	issued   uint64
	applied  uint64
	inflight int
	hooks    []BoardHook
}

func NewBoard(src Source) *Board {
	return &Board{
		src:   src,
		now:   time.Now,
		state: BoardState{Rows: []Row{}},
	}
}

func (b *Board) OnApply(hook BoardHook) {
	if hook == nil {
		return
	}
	b.mu.Lock()
	b.hooks = append(b.hooks, hook)
	b.mu.Unlock()
}

func (b *Board) State() BoardState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Board) View(q Query) []Row {
	return ApplyView(b.State().Rows, q)
}

func (b *Board) Refresh(ctx context.Context) error {
	if b.src == nil {
		return fmt.Errorf("market source not configured")
	}
	b.mu.Lock()
	b.issued++
	gen := b.issued
	b.inflight++
	b.state.Loading = true
	b.mu.Unlock()

	rows, err := b.src.Markets(ctx)

	b.mu.Lock()
	b.inflight--
	b.state.Loading = b.inflight > 0
	if latest := b.applied; gen <= latest {
		b.mu.Unlock()
		logger.Debugf("markets refresh #%d superseded by #%d, discarded", gen, latest)
		return wrapRefresh(err)
	}
	b.applied = gen
	if err != nil {
		re := newRefreshError(err)
		b.state.Err = re.Error()
		b.mu.Unlock()
		logger.Warnf("markets refresh failed: %v", re)
		return re
	}
	b.mu.Unlock()
	b.adopt(ctx, gen, rows, OriginREST)
	return nil
}

// Ingest adopts rows pushed by the live stream.
func (b *Board) Ingest(ctx context.Context, rows []Row) {
	b.mu.Lock()
	b.issued++
	gen := b.issued
	b.applied = gen
	b.mu.Unlock()
	b.adopt(ctx, gen, rows, OriginStream)
}

func (b *Board) adopt(ctx context.Context, gen uint64, rows []Row, origin string) {
	normalized := NormalizeRows(rows)
	b.mu.Lock()
	if gen < b.applied {
		b.mu.Unlock()
		return
	}
	b.state.Rows = normalized
	b.state.Err = ""
	b.state.RefreshedAt = b.now()
	b.state.Origin = origin
	state := b.state
	hooks := append([]BoardHook(nil), b.hooks...)
	b.mu.Unlock()
	for _, hook := range hooks {
		hook(ctx, state)
	}
}

func wrapRefresh(err error) error {
	if err == nil {
		return nil
	}
	return newRefreshError(err)
}
