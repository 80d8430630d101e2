package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the signed side of a fill: +1 for a buy, -1 for a sell.
type Direction int8

const (
	Buy  Direction = 1
	Sell Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Valid reports whether the direction is one of the two known sides.
func (d Direction) Valid() bool {
	return d == Buy || d == Sell
}

// Fill is a single recorded trade. Quantity and price are exact decimals;
// rounding error in traded-volume sums is not acceptable.
type Fill struct {
	SequenceNumber int64           `json:"sequence_number"`
	Direction      Direction       `json:"direction"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Time           time.Time       `json:"time"`
}

// Notional returns quantity * price for this fill.
func (f Fill) Notional() decimal.Decimal {
	return f.Quantity.Mul(f.Price)
}
