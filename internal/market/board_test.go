package market

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	rows []Row
	err  error
}

func (s *stubSource) Markets(context.Context) ([]Row, error) { return s.rows, s.err }

type httpStatus int

func (e httpStatus) Error() string   { return "bad status" }
func (e httpStatus) StatusCode() int { return int(e) }

func TestBoard_RefreshAndView(t *testing.T) {
	src := &stubSource{rows: []Row{
		{Symbol: "BTC", Change24hPct: 1, OpenInterest: 2, MarkPrice: 100},
		{Symbol: "ETH", Change24hPct: -1},
	}}
	b := NewBoard(src)
	var seen []BoardState
	b.OnApply(func(_ context.Context, st BoardState) { seen = append(seen, st) })

	require.NoError(t, b.Refresh(context.Background()))
	st := b.State()
	assert.Len(t, st.Rows, 2)
	assert.Equal(t, OriginREST, st.Origin)
	assert.Equal(t, 200.0, st.Rows[0].OpenInterestUSD)
	assert.Equal(t, []string{"ETH"}, symbols(b.View(Query{Filter: FilterLosers})))
	assert.Len(t, seen, 1)
}

func TestBoard_FailureKeepsRows(t *testing.T) {
	src := &stubSource{rows: []Row{{Symbol: "BTC"}}}
	b := NewBoard(src)
	require.NoError(t, b.Refresh(context.Background()))

	src.err = httpStatus(502)
	err := b.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, "markets: 502", err.Error())
	var re *RefreshError
	assert.True(t, errors.As(err, &re))

	st := b.State()
	assert.Equal(t, "markets: 502", st.Err)
	assert.Equal(t, []string{"BTC"}, symbols(st.Rows))
}

func TestBoard_IngestClearsError(t *testing.T) {
	b := NewBoard(&stubSource{err: errors.New("dial tcp: refused")})
	require.Error(t, b.Refresh(context.Background()))
	assert.Equal(t, "markets: dial tcp: refused", b.State().Err)

	b.Ingest(context.Background(), []Row{{Symbol: "SOL"}})
	st := b.State()
	assert.Empty(t, st.Err)
	assert.Equal(t, OriginStream, st.Origin)
	assert.Equal(t, []string{"SOL"}, symbols(st.Rows))
}

func TestBoard_NilSource(t *testing.T) {
	b := NewBoard(nil)
	assert.Error(t, b.Refresh(context.Background()))
	assert.NotNil(t, b.State().Rows)
}
