package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"fillflow/config"
	"fillflow/logger"
	"fillflow/models"
)

// wireFill is the JSON representation used by the rest and websocket fill
// services. Quantity and price arrive as exact decimals, time as epoch
// seconds.
type wireFill struct {
	SequenceNumber int64           `json:"sequence_number"`
	Direction      int8            `json:"direction"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Time           int64           `json:"time"`
}

func fillsFromWire(raw []wireFill) ([]models.Fill, error) {
	fills := make([]models.Fill, 0, len(raw))
	for _, w := range raw {
		dir := models.Direction(w.Direction)
		if !dir.Valid() {
			return nil, fmt.Errorf("fill %d has invalid direction %d", w.SequenceNumber, w.Direction)
		}
		fills = append(fills, models.Fill{
			SequenceNumber: w.SequenceNumber,
			Direction:      dir,
			Quantity:       w.Quantity,
			Price:          w.Price,
			Time:           time.Unix(w.Time, 0),
		})
	}
	return fills, nil
}

// RESTReader fetches window fills from a JSON HTTP endpoint
// (GET {url}?start={epoch}&end={epoch}).
type RESTReader struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewRESTReader creates a RESTReader with a pooled transport and optional
// request rate limiting from the configuration.
func NewRESTReader(cfg *config.Config) *RESTReader {
	log := logger.GetLogger()
	restCfg := cfg.Source.REST

	transport := &http.Transport{
		MaxIdleConns:        restCfg.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: restCfg.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     restCfg.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     restCfg.ConnectionPool.IdleConnTimeout,
	}

	timeout := restCfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if rl := restCfg.RateLimit; rl.RequestsPerSecond > 0 {
		burst := rl.BurstSize
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
	}

	log.WithComponent("rest_reader").WithFields(logger.Fields{
		"url":     restCfg.URL,
		"timeout": timeout,
	}).Info("rest reader initialized")

	return &RESTReader{
		url:     restCfg.URL,
		client:  &http.Client{Transport: transport, Timeout: timeout},
		limiter: limiter,
		log:     log,
	}
}

// FetchFills requests every fill in [windowStart, windowEnd) from the
// endpoint.
func (r *RESTReader) FetchFills(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Fill, error) {
	log := r.log.WithComponent("rest_reader").WithFields(logger.Fields{
		"window_start": windowStart.Unix(),
		"window_end":   windowEnd.Unix(),
	})

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	reqURL := fmt.Sprintf("%s?start=%d&end=%d", r.url, windowStart.Unix(), windowEnd.Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Fillflow/1.0")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	var raw []wireFill
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode fills: %w", err)
	}

	fills, err := fillsFromWire(raw)
	if err != nil {
		return nil, err
	}

	logger.LogPerformanceEntry(log, "rest_reader", "fetch_window", time.Since(start), logger.Fields{
		"fills": len(fills),
	})
	logger.IncrementFetch(len(fills))

	return fills, nil
}
