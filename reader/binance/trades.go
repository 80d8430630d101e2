// Package binance adapts Binance aggregated trade history to the fill
// source contract.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	appconfig "fillflow/config"
	"fillflow/logger"
	"fillflow/models"
)

// TradeReader fetches historical aggregated trades for a single symbol.
// Binance compacts fills that execute together into one aggregated trade;
// the aggregate trade ID serves as the fill sequence number.
type TradeReader struct {
	client *binance.Client
	symbol string
	limit  int
	log    *logger.Log
}

// NewTradeReader creates a TradeReader using the binance-go client with a
// pooled transport from the configuration.
func NewTradeReader(cfg *appconfig.Config) *TradeReader {
	log := logger.GetLogger()
	srcCfg := cfg.Source.Binance

	transport := &http.Transport{
		MaxIdleConns:        srcCfg.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: srcCfg.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     srcCfg.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     srcCfg.ConnectionPool.IdleConnTimeout,
	}

	timeout := srcCfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := binance.NewClient("", "")
	client.HTTPClient = &http.Client{Transport: transport, Timeout: timeout}

	if srcCfg.URL != "" {
		if parsed, err := url.Parse(srcCfg.URL); err == nil {
			client.BaseURL = fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
		}
	}

	limit := srcCfg.Limit
	if limit <= 0 {
		limit = 1000
	}

	log.WithComponent("binance_reader").WithFields(logger.Fields{
		"symbol": srcCfg.Symbol,
		"limit":  limit,
	}).Info("binance reader initialized")

	return &TradeReader{
		client: client,
		symbol: srcCfg.Symbol,
		limit:  limit,
		log:    log,
	}
}

// FetchFills pages through aggregated trades with time in
// [windowStart, windowEnd) and maps them to fills. A buyer-maker trade is a
// sell: the taker hit the bid.
func (r *TradeReader) FetchFills(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Fill, error) {
	log := r.log.WithComponent("binance_reader").WithFields(logger.Fields{
		"symbol":       r.symbol,
		"window_start": windowStart.Unix(),
		"window_end":   windowEnd.Unix(),
	})

	startMs := windowStart.UnixMilli()
	endMs := windowEnd.UnixMilli() - 1 // Binance end_time is inclusive

	var fills []models.Fill
	fetchStart := time.Now()

	for cursor := startMs; cursor <= endMs; {
		trades, err := r.client.NewAggTradesService().
			Symbol(r.symbol).
			StartTime(cursor).
			EndTime(endMs).
			Limit(r.limit).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch agg trades: %w", err)
		}
		if len(trades) == 0 {
			break
		}

		for _, trade := range trades {
			price, err := decimal.NewFromString(trade.Price)
			if err != nil {
				return nil, fmt.Errorf("trade %d has invalid price %q: %w", trade.AggTradeID, trade.Price, err)
			}
			qty, err := decimal.NewFromString(trade.Quantity)
			if err != nil {
				return nil, fmt.Errorf("trade %d has invalid quantity %q: %w", trade.AggTradeID, trade.Quantity, err)
			}

			dir := models.Buy
			if trade.IsBuyerMaker {
				dir = models.Sell
			}

			fills = append(fills, models.Fill{
				SequenceNumber: trade.AggTradeID,
				Direction:      dir,
				Quantity:       qty,
				Price:          price,
				Time:           time.UnixMilli(trade.Timestamp),
			})
		}

		if len(trades) < r.limit {
			break
		}
		cursor = trades[len(trades)-1].Timestamp + 1
	}

	logger.LogPerformanceEntry(log, "binance_reader", "fetch_window", time.Since(fetchStart), logger.Fields{
		"fills": len(fills),
	})
	logger.IncrementFetch(len(fills))

	return fills, nil
}
