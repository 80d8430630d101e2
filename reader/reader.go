// Package reader supplies fills for hour-aligned time windows from the
// configured external source. Fetching a window is the expensive call the
// bucket cache exists to avoid.
package reader

import (
	"context"
	"fmt"
	"time"

	"fillflow/config"
	"fillflow/models"
	"fillflow/reader/binance"
)

// FillReader returns every fill whose time falls in [windowStart, windowEnd).
// Implementations do not retry; a failed window fetch is reported as-is.
type FillReader interface {
	FetchFills(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Fill, error)
}

// New builds the FillReader selected by source.connection.
func New(ctx context.Context, cfg *config.Config) (FillReader, error) {
	switch cfg.Source.Connection {
	case "rest":
		return NewRESTReader(cfg), nil
	case "websocket":
		return NewWSReader(cfg), nil
	case "binance":
		return binance.NewTradeReader(cfg), nil
	case "parquet":
		return NewParquetReader(cfg), nil
	case "s3":
		return NewS3Reader(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported source connection: %s", cfg.Source.Connection)
	}
}
