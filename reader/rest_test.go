package reader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fillflow/config"
	"fillflow/models"
)

func restConfig(url string) *config.Config {
	cfg := &config.Config{}
	cfg.Source.Connection = "rest"
	cfg.Source.REST.URL = url
	cfg.Source.REST.Timeout = 5 * time.Second
	return cfg
}

func TestRESTReaderFetchFills(t *testing.T) {
	var gotStart, gotEnd string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start")
		gotEnd = r.URL.Query().Get("end")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"sequence_number": 1, "direction": 1, "quantity": "2.5", "price": "10.00", "time": 1800},
			{"sequence_number": 2, "direction": -1, "quantity": "0.1", "price": "0.3", "time": 3599}
		]`)
	}))
	defer server.Close()

	reader := NewRESTReader(restConfig(server.URL))
	fills, err := reader.FetchFills(context.Background(), time.Unix(0, 0), time.Unix(3600, 0))
	if err != nil {
		t.Fatalf("FetchFills() error = %v", err)
	}

	if gotStart != "0" || gotEnd != "3600" {
		t.Errorf("request window = [%s, %s), want [0, 3600)", gotStart, gotEnd)
	}
	if len(fills) != 2 {
		t.Fatalf("len(fills) = %d, want 2", len(fills))
	}
	if fills[0].Direction != models.Buy || fills[1].Direction != models.Sell {
		t.Errorf("directions = %v, %v, want buy, sell", fills[0].Direction, fills[1].Direction)
	}
	if got := fills[0].Notional().String(); got != "25" {
		t.Errorf("fills[0].Notional() = %s, want 25", got)
	}
	// 0.1 * 0.3 must stay exact
	if got := fills[1].Notional().String(); got != "0.03" {
		t.Errorf("fills[1].Notional() = %s, want 0.03", got)
	}
	if got := fills[1].Time.Unix(); got != 3599 {
		t.Errorf("fills[1].Time = %d, want 3599", got)
	}
}

func TestRESTReaderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	reader := NewRESTReader(restConfig(server.URL))
	if _, err := reader.FetchFills(context.Background(), time.Unix(0, 0), time.Unix(3600, 0)); err == nil {
		t.Fatal("FetchFills() error = nil, want HTTP error")
	}
}

func TestRESTReaderInvalidDirection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"sequence_number": 1, "direction": 7, "quantity": "1", "price": "1", "time": 10}]`)
	}))
	defer server.Close()

	reader := NewRESTReader(restConfig(server.URL))
	if _, err := reader.FetchFills(context.Background(), time.Unix(0, 0), time.Unix(3600, 0)); err == nil {
		t.Fatal("FetchFills() error = nil, want invalid direction error")
	}
}

func TestNewUnsupportedConnection(t *testing.T) {
	cfg := &config.Config{}
	cfg.Source.Connection = "carrier-pigeon"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("New() error = nil, want unsupported connection error")
	}
}
