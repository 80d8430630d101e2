package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"fillflow/config"
	"fillflow/logger"
	"fillflow/models"
)

// fillsRequest asks the websocket fill service for one window of fills.
type fillsRequest struct {
	Op    string `json:"op"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

type fillsResponse struct {
	Fills []wireFill `json:"fills"`
	Error string     `json:"error,omitempty"`
}

// WSReader fetches window fills from a request/response websocket service.
// Each fetch dials a fresh connection; windows are coarse enough that
// connection reuse is not worth the reconnect bookkeeping.
type WSReader struct {
	url    string
	dialer *websocket.Dialer
	log    *logger.Log
}

func NewWSReader(cfg *config.Config) *WSReader {
	log := logger.GetLogger()
	wsCfg := cfg.Source.Websocket

	dialer := &websocket.Dialer{
		HandshakeTimeout: wsCfg.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	log.WithComponent("ws_reader").WithFields(logger.Fields{
		"url": wsCfg.URL,
	}).Info("websocket reader initialized")

	return &WSReader{url: wsCfg.URL, dialer: dialer, log: log}
}

// FetchFills requests every fill in [windowStart, windowEnd) over a
// websocket round trip.
func (r *WSReader) FetchFills(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Fill, error) {
	log := r.log.WithComponent("ws_reader").WithFields(logger.Fields{
		"window_start": windowStart.Unix(),
		"window_end":   windowEnd.Unix(),
	})

	start := time.Now()
	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to fill service: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	req := fillsRequest{Op: "fills", Start: windowStart.Unix(), End: windowEnd.Unix()}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send fills request: %w", err)
	}

	var resp fillsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("failed to read fills response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("fill service error: %s", resp.Error)
	}

	fills, err := fillsFromWire(resp.Fills)
	if err != nil {
		return nil, err
	}

	logger.LogPerformanceEntry(log, "ws_reader", "fetch_window", time.Since(start), logger.Fields{
		"fills": len(fills),
	})
	logger.IncrementFetch(len(fills))

	return fills, nil
}
