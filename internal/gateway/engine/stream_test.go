package engine

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lighterdash/internal/logger"
	"lighterdash/internal/market"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStream_DeliversFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/markets" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"oops":`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"markets":[{"symbol":"BTC","volume_24h_usd":10},{"symbol":"ETH"}]}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	logs := &syncBuffer{}
	logger.SetOutput(logs)
	defer logger.SetOutput(os.Stdout)

	c, err := NewClient(Config{APIBase: srv.URL, StreamPath: "/ws/markets"})
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		got [][]market.Row
	)
	stream, err := c.NewStream(func(_ context.Context, rows []market.Row) {
		mu.Lock()
		got = append(got, rows)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stream.URL(), "ws://"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got[0], 2)
	assert.Equal(t, "BTC", got[0][0].Symbol)
	assert.Equal(t, 10.0, got[0][0].Volume24hUSD)

	out := logs.String()
	assert.Contains(t, out, "component=market_stream")
	assert.Contains(t, out, "frame skipped")
}

func TestNewStream_RequiresPathAndHandler(t *testing.T) {
	c, err := NewClient(Config{APIBase: "https://engine.example.com"})
	require.NoError(t, err)
	_, err = c.NewStream(func(context.Context, []market.Row) {})
	assert.Error(t, err)

	c.streamPath = "/ws/markets"
	_, err = c.NewStream(nil)
	assert.Error(t, err)
	s, err := c.NewStream(func(context.Context, []market.Row) {})
	require.NoError(t, err)
	assert.Equal(t, "wss://engine.example.com/ws/markets", s.URL())
}
