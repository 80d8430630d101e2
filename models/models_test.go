package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestQueryTypeValid(t *testing.T) {
	cases := []struct {
		qt    QueryType
		valid bool
	}{
		{QueryBuyCount, true},
		{QuerySellCount, true},
		{QueryTotalCount, true},
		{QueryVolume, true},
		{QueryType("X"), false},
		{QueryType(""), false},
		{QueryType("b"), false},
	}
	for _, c := range cases {
		if got := c.qt.Valid(); got != c.valid {
			t.Errorf("QueryType(%q).Valid() = %v, want %v", c.qt, got, c.valid)
		}
	}
}

func TestDirectionString(t *testing.T) {
	if Buy.String() != "buy" || Sell.String() != "sell" {
		t.Fatalf("unexpected direction strings: %s %s", Buy, Sell)
	}
	if Direction(0).Valid() {
		t.Fatal("zero direction should not be valid")
	}
}

func TestFillNotional(t *testing.T) {
	fill := Fill{
		SequenceNumber: 1,
		Direction:      Buy,
		Quantity:       decimal.RequireFromString("2.5"),
		Price:          decimal.RequireFromString("10.1"),
		Time:           time.Unix(100, 0),
	}
	if got := fill.Notional(); !got.Equal(decimal.RequireFromString("25.25")) {
		t.Errorf("Notional() = %s, want 25.25", got)
	}
}

func TestFillJSON(t *testing.T) {
	fill := Fill{
		SequenceNumber: 42,
		Direction:      Sell,
		Quantity:       decimal.RequireFromString("1.000000001"),
		Price:          decimal.RequireFromString("30000.5"),
		Time:           time.Unix(1700000000, 0).UTC(),
	}
	data, err := json.Marshal(fill)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Fill
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.SequenceNumber != fill.SequenceNumber || out.Direction != fill.Direction ||
		!out.Quantity.Equal(fill.Quantity) || !out.Price.Equal(fill.Price) || !out.Time.Equal(fill.Time) {
		t.Fatalf("round trip mismatch: %+v != %+v", out, fill)
	}
}
