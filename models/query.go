package models

// QueryType selects the aggregate computed over a time range of fills.
type QueryType string

const (
	QueryBuyCount   QueryType = "B"
	QuerySellCount  QueryType = "S"
	QueryTotalCount QueryType = "C"
	QueryVolume     QueryType = "V"
)

// Valid reports whether the query type is one of B, S, C or V.
func (t QueryType) Valid() bool {
	switch t {
	case QueryBuyCount, QuerySellCount, QueryTotalCount, QueryVolume:
		return true
	default:
		return false
	}
}

// Query is a parsed aggregate query over (Start, End], both epoch seconds.
type Query struct {
	Type  QueryType
	Start int64
	End   int64
}
