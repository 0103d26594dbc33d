package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"posttrade/internal/config"
	"posttrade/internal/model"
)

// WebSocketFeed implements the FillFeed interface over a JSON WebSocket stream.
// Each text message carries one fill.
type WebSocketFeed struct {
	logger     *slog.Logger
	cfg        config.FeedConfig
	dialer     *websocket.Dialer
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewWebSocketFeed creates a new WebSocketFeed.
func NewWebSocketFeed(logger *slog.Logger, cfg config.FeedConfig) *WebSocketFeed {
	return &WebSocketFeed{
		logger:     logger,
		cfg:        cfg,
		dialer:     websocket.DefaultDialer,
		minBackoff: time.Second,
		maxBackoff: 16 * time.Second,
	}
}

func (w *WebSocketFeed) Name() string {
	return "websocket"
}

// Collect connects to the feed and sends every decoded fill to fills.
// It returns when ctx is done, the server closes the stream normally,
// or MaxFills fills have been delivered. Broken connections are retried.
func (w *WebSocketFeed) Collect(ctx context.Context, fills chan<- model.Trade) error {
	backoff := w.minBackoff
	delivered := 0
	for {
		if ctx.Err() != nil {
			w.logger.Info("WebSocketFeed: context cancelled, shutting down")
			return nil
		}

		w.logger.Info("WebSocketFeed: connecting to WebSocket", "url", w.cfg.URL, "backoff", backoff)
		c, _, err := w.dialer.DialContext(ctx, w.cfg.URL, nil)
		if err != nil {
			w.logger.Error("WebSocketFeed: WebSocket connection failed", "error", err)
			if !w.sleep(ctx, &backoff) {
				return nil
			}
			continue
		}

		// Reset backoff on successful connection
		backoff = w.minBackoff
		w.logger.Info("WebSocketFeed: connected successfully")

		finished := w.stream(ctx, c, fills, &delivered)
		c.Close()
		if finished {
			w.logger.Info("WebSocketFeed: collection finished", "fills", delivered)
			return nil
		}
		if !w.sleep(ctx, &backoff) {
			return nil
		}
	}
}

// stream reads fills from one connection. It reports whether collection is
// complete; false means the connection broke and should be retried.
func (w *WebSocketFeed) stream(ctx context.Context, c *websocket.Conn, fills chan<- model.Trade, delivered *int) bool {
	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	if w.cfg.Subscribe != "" {
		if err := c.WriteMessage(websocket.TextMessage, []byte(w.cfg.Subscribe)); err != nil {
			w.logger.Error("WebSocketFeed: failed to send subscription", "error", err)
			return ctx.Err() != nil
		}
		w.logger.Info("WebSocketFeed: subscription sent successfully")
	}

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Info("WebSocketFeed: stream closed by server")
				return true
			}
			w.logger.Error("WebSocketFeed: failed to read message", "error", err)
			return false
		}

		fill, ok := w.decode(message)
		if !ok {
			continue
		}

		select {
		case fills <- fill:
			w.logger.Debug("WebSocketFeed: received fill", "product", fill.Product, "broker", fill.Broker)
		case <-ctx.Done():
			return true
		}

		*delivered++
		if w.cfg.MaxFills > 0 && *delivered >= w.cfg.MaxFills {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return true
		}
	}
}

func (w *WebSocketFeed) decode(message []byte) (model.Trade, bool) {
	var fill model.Trade
	if err := json.Unmarshal(message, &fill); err != nil {
		w.logger.Warn("WebSocketFeed: failed to parse message", "error", err)
		return fill, false
	}
	// Heartbeats and status events carry no product.
	if strings.TrimSpace(fill.Product) == "" {
		w.logger.Debug("WebSocketFeed: ignoring non-fill message")
		return fill, false
	}
	return fill, true
}

func (w *WebSocketFeed) sleep(ctx context.Context, backoff *time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
		*backoff *= 2
		if *backoff > w.maxBackoff {
			*backoff = w.maxBackoff
		}
		return true
	}
}
