// Package wsfeed implements a websocket tick-feed client usable by a
// live PlatformAdapter's SubscribeTicks - the real-network counterpart
// of internal/adapter/demo.Adapter.PushTick, grounded on teacher's
// internal/websocket/hub.go connection lifecycle (dial, read loop,
// reconnect-on-error) but as a client rather than a server.
package wsfeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"optionx/internal/domain"
)

// wireTick is the JSON shape read off the wire - symbol/bid/ask/flags,
// translated into a domain.Tick for the rest of the engine.
type wireTick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Flags  uint32  `json:"flags"`
}

// Client maintains a websocket connection to a tick-streaming endpoint
// and delivers decoded ticks to a handler. Safe for concurrent use;
// Close may be called from any goroutine.
type Client struct {
	url            string
	reconnectDelay time.Duration
	log            *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// New creates a Client targeting url (ws:// or wss://). reconnectDelay
// controls the pause between dropped-connection retries.
func New(url string, reconnectDelay time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = time.Second
	}
	return &Client{url: url, reconnectDelay: reconnectDelay, log: log}
}

// Run connects and reads ticks until ctx is canceled, invoking handler
// for each successfully decoded tick. Reconnects automatically on read
// error, unless Close was called or ctx is done.
func (c *Client) Run(ctx context.Context, handler func(domain.Tick)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.log.Warn("wsfeed dial failed", zap.String("url", c.url), zap.Error(err))
			if !c.sleepOrDone(ctx) {
				return ctx.Err()
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return nil
		}
		c.conn = conn
		c.mu.Unlock()

		c.readLoop(ctx, conn, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !c.sleepOrDone(ctx) {
			return ctx.Err()
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, handler func(domain.Tick)) {
	defer conn.Close()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.log.Warn("wsfeed read error, reconnecting", zap.Error(err))
			return
		}

		var wt wireTick
		if err := json.Unmarshal(payload, &wt); err != nil {
			c.log.Warn("wsfeed malformed tick payload", zap.Error(err))
			continue
		}

		handler(domain.Tick{
			Symbol: wt.Symbol,
			Bid:    wt.Bid,
			Ask:    wt.Ask,
			Flags:  domain.TickFlags(wt.Flags),
			TimeMS: time.Now().UnixMilli(),
		})

		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Client) sleepOrDone(ctx context.Context) bool {
	timer := time.NewTimer(c.reconnectDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close terminates the current connection, if any, and prevents
// further reconnect attempts from completing their handshake.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
