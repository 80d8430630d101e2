package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "fillflow/config"
	"fillflow/models"
)

func tradeConfig(url string, limit int) *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.Source.Connection = "binance"
	cfg.Source.Binance.URL = url
	cfg.Source.Binance.Symbol = "BTCUSDT"
	cfg.Source.Binance.Limit = limit
	cfg.Source.Binance.Timeout = 5 * time.Second
	return cfg
}

func TestTradeReaderFetchFills(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %q, want BTCUSDT", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"a": 10, "p": "10.00", "q": "2.5", "f": 10, "l": 10, "T": 1000000, "m": false, "M": true},
			{"a": 11, "p": "0.3", "q": "0.1", "f": 11, "l": 11, "T": 2000000, "m": true, "M": true}
		]`)
	}))
	defer server.Close()

	reader := NewTradeReader(tradeConfig(server.URL, 1000))
	fills, err := reader.FetchFills(context.Background(), time.UnixMilli(0), time.UnixMilli(3_600_000))
	if err != nil {
		t.Fatalf("FetchFills() error = %v", err)
	}

	if len(fills) != 2 {
		t.Fatalf("len(fills) = %d, want 2", len(fills))
	}
	if fills[0].SequenceNumber != 10 || fills[0].Direction != models.Buy {
		t.Errorf("fills[0] = %+v, want sequence 10 buy", fills[0])
	}
	// buyer-maker trades map to sells
	if fills[1].Direction != models.Sell {
		t.Errorf("fills[1].Direction = %v, want sell", fills[1].Direction)
	}
	if got := fills[0].Notional().String(); got != "25" {
		t.Errorf("fills[0].Notional() = %s, want 25", got)
	}
	if got := fills[1].Time.UnixMilli(); got != 2000000 {
		t.Errorf("fills[1].Time = %d, want 2000000", got)
	}
}

func TestTradeReaderPagination(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		switch requests {
		case 1:
			if got := r.URL.Query().Get("startTime"); got != "0" {
				t.Errorf("first page startTime = %q, want 0", got)
			}
			fmt.Fprint(w, `[
				{"a": 1, "p": "1", "q": "1", "f": 1, "l": 1, "T": 100, "m": false, "M": true},
				{"a": 2, "p": "1", "q": "1", "f": 2, "l": 2, "T": 200, "m": false, "M": true}
			]`)
		case 2:
			if got := r.URL.Query().Get("startTime"); got != "201" {
				t.Errorf("second page startTime = %q, want 201", got)
			}
			fmt.Fprint(w, `[
				{"a": 3, "p": "1", "q": "1", "f": 3, "l": 3, "T": 300, "m": false, "M": true}
			]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	defer server.Close()

	reader := NewTradeReader(tradeConfig(server.URL, 2))
	fills, err := reader.FetchFills(context.Background(), time.UnixMilli(0), time.UnixMilli(3_600_000))
	if err != nil {
		t.Fatalf("FetchFills() error = %v", err)
	}

	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
	if len(fills) != 3 {
		t.Fatalf("len(fills) = %d, want 3", len(fills))
	}
	if fills[2].SequenceNumber != 3 {
		t.Errorf("fills[2].SequenceNumber = %d, want 3", fills[2].SequenceNumber)
	}
}

func TestTradeReaderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, `{"code": -1121, "msg": "Invalid symbol."}`)
	}))
	defer server.Close()

	reader := NewTradeReader(tradeConfig(server.URL, 1000))
	if _, err := reader.FetchFills(context.Background(), time.UnixMilli(0), time.UnixMilli(3_600_000)); err == nil {
		t.Fatal("FetchFills() error = nil, want API error")
	}
}
