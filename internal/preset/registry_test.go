package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lighterdash/internal/market"
)

const validPresets = `
presets:
  Top_Gainers:
    description: best performers
    filter: gainers
    sort: change_24h_pct
    dir: desc
  eth:
    search: eth
`

func writePresets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRegistry_Load(t *testing.T) {
	r, err := NewRegistry(writePresets(t, validPresets))
	require.NoError(t, err)

	p, ok := r.Lookup("top_gainers")
	require.True(t, ok)
	assert.Equal(t, market.Query{Filter: market.FilterGainers, SortKey: market.SortChange24hPct, SortDir: market.Desc}, p.Query())

	p, ok = r.Lookup(" ETH ")
	require.True(t, ok)
	assert.Equal(t, "eth", p.Query().Search)
	assert.Equal(t, market.FilterAll, p.Query().Filter)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "eth", list[0].Name)
	assert.Equal(t, int64(1), r.Snapshot().Version)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown field": "presets:\n  a:\n    color: red\n",
		"bad filter":    "presets:\n  a:\n    filter: winners\n",
		"bad sort":      "presets:\n  a:\n    sort: price\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(writePresets(t, body))
			assert.Error(t, err)
		})
	}
}

func TestRegistry_AcceptsEveryMarketSortKey(t *testing.T) {
	for _, key := range market.SortKeys() {
		t.Run(string(key), func(t *testing.T) {
			r, err := NewRegistry(writePresets(t, "presets:\n  p:\n    sort: "+string(key)+"\n"))
			require.NoError(t, err)
			p, ok := r.Lookup("p")
			require.True(t, ok)
			assert.Equal(t, key, p.Query().SortKey)
		})
	}
}

func TestRegistry_FailedReloadKeepsPrevious(t *testing.T) {
	path := writePresets(t, validPresets)
	r, err := NewRegistry(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("presets:\n  a:\n    dir: sideways\n"), 0o644))
	require.Error(t, r.reload())
	_, ok := r.Lookup("top_gainers")
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("presets:\n  losers:\n    filter: losers\n"), 0o644))
	require.NoError(t, r.reload())
	_, ok = r.Lookup("top_gainers")
	assert.False(t, ok)
	_, ok = r.Lookup("losers")
	assert.True(t, ok)
}

func TestNewRegistry_RequiresPath(t *testing.T) {
	_, err := NewRegistry("  ")
	assert.Error(t, err)
}
