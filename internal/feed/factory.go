package feed

import (
	"errors"
	"fmt"
	"log/slog"

	"posttrade/internal/config"
)

// NewFeed creates a new fill feed based on the given kind and configuration.
func NewFeed(kind string, logger *slog.Logger, cfg config.FeedConfig) (FillFeed, error) {
	switch kind {
	case "websocket", "ws":
		if cfg.URL == "" {
			return nil, errors.New("feed url is not configured")
		}
		return NewWebSocketFeed(logger, cfg), nil
	default:
		return nil, fmt.Errorf("unknown feed: %s", kind)
	}
}
