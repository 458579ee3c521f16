package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"lighterdash/internal/logger"
	"lighterdash/internal/market"
)

const (
	streamMinBackoff = time.Second
	streamMaxBackoff = 30 * time.Second
	streamReadLimit  = 8 << 20
)

// FrameHandler receives the market rows of each stream frame.
type FrameHandler func(ctx context.Context, rows []market.Row)

// Stream consumes the engine's {"markets": [...]} websocket feed and
// reconnects with capped exponential backoff until its context ends.
type Stream struct {
	url        string
	dialer     *websocket.Dialer
	handler    FrameHandler
	minBackoff time.Duration
	maxBackoff time.Duration
	log        *slog.Logger
}

func (c *Client) NewStream(handler FrameHandler) (*Stream, error) {
	if handler == nil {
		return nil, fmt.Errorf("stream handler is required")
	}
	path := strings.TrimSpace(c.streamPath)
	if path == "" {
		return nil, fmt.Errorf("stream path not configured")
	}
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = ""
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = c.httpClient.Timeout
	if tr, ok := c.httpClient.Transport.(*http.Transport); ok && tr.TLSClientConfig != nil {
		dialer.TLSClientConfig = tr.TLSClientConfig.Clone()
	}
	return &Stream{
		url:        u.String(),
		dialer:     &dialer,
		handler:    handler,
		minBackoff: streamMinBackoff,
		maxBackoff: streamMaxBackoff,
		log:        logger.With("market_stream"),
	}, nil
}

func (s *Stream) URL() string { return s.url }

func (s *Stream) Run(ctx context.Context) error {
	backoff := s.minBackoff
	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = s.minBackoff
		}
		s.log.Warn("disconnected", "url", s.url, "err", err, "retry_in", backoff)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// session runs one connection until it fails. connected reports whether the dial succeeded.
func (s *Stream) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	conn.SetReadLimit(streamReadLimit)
	s.log.Info("connected", "url", s.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		rows, err := decodeFrame(msg)
		if err != nil {
			s.log.Warn("frame skipped", "err", err)
			continue
		}
		s.handler(ctx, rows)
	}
}

func decodeFrame(msg []byte) ([]market.Row, error) {
	doc, err := parseBody("ws frame", "market_frame.json", msg)
	if err != nil {
		return nil, err
	}
	markets := doc.Get("markets")
	if !markets.Exists() {
		return nil, &DecodeError{Path: "ws frame", Err: errors.New("missing markets")}
	}
	return decodeMarkets(markets.Array()), nil
}
