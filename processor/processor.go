// Package processor evaluates aggregate queries over a time range of trade
// fills, reading hour buckets through a bounded LRU cache so that any query
// costs at most two window fetches.
package processor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fillflow/cache"
	"fillflow/logger"
	"fillflow/models"
	"fillflow/reader"
)

// Result is the scalar answer to one query: an integer count for B/S/C or
// an exact decimal volume for V.
type Result struct {
	Type   models.QueryType
	Count  int64
	Volume decimal.Decimal
}

// String renders the result in the stable textual output form.
func (r Result) String() string {
	if r.Type == models.QueryVolume {
		return r.Volume.String()
	}
	return strconv.FormatInt(r.Count, 10)
}

// Processor owns the bucket cache and the session counters. It is not safe
// for concurrent use: queries are evaluated one at a time, each completing
// (including any window fetch) before the next begins.
type Processor struct {
	cache  *cache.BucketCache
	source reader.FillReader
	log    *logger.Log

	// Working set reused across queries; holds copies appended from
	// cached buckets, which are never mutated in place.
	working []models.Fill

	// Session counters
	cacheHits   int64
	fetchCalls  int64
	queries     int64
	queryErrors int64
}

// New creates a Processor evaluating queries against the given cache and
// fill source.
func New(c *cache.BucketCache, source reader.FillReader) *Processor {
	return &Processor{
		cache:  c,
		source: source,
		log:    logger.GetLogger(),
	}
}

// ParseQuery tokenizes a raw query line into TYPE START END. The type is
// validated here, before any bucket is resolved, so a bad query never costs
// a fetch and never touches the cache.
func ParseQuery(raw string) (models.Query, error) {
	parts := strings.Fields(raw)
	if len(parts) != 3 {
		return models.Query{}, &MalformedQueryError{
			Raw:    raw,
			Reason: fmt.Sprintf("expected 3 tokens, got %d", len(parts)),
		}
	}

	queryType := models.QueryType(parts[0])
	if !queryType.Valid() {
		return models.Query{}, &UnknownTypeError{Type: parts[0]}
	}

	start, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return models.Query{}, &MalformedQueryError{Raw: raw, Reason: fmt.Sprintf("invalid start time %q", parts[1])}
	}
	end, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return models.Query{}, &MalformedQueryError{Raw: raw, Reason: fmt.Sprintf("invalid end time %q", parts[2])}
	}

	return models.Query{Type: queryType, Start: start, End: end}, nil
}

// ProcessQuery parses and evaluates one query. A failing query leaves the
// cache consistent and does not affect subsequent queries.
func (p *Processor) ProcessQuery(ctx context.Context, raw string) (Result, error) {
	query, err := ParseQuery(raw)
	if err != nil {
		p.queryErrors++
		return Result{}, err
	}

	log := p.log.WithComponent("processor").WithFields(logger.Fields{
		"query_id": uuid.New().String(),
		"type":     string(query.Type),
		"start":    query.Start,
		"end":      query.End,
	})
	log.Debug("processing query")

	p.working = p.working[:0]

	startHour := cache.HourStart(query.Start)
	endHour := cache.HourStart(query.End)

	if err := p.collectBucket(ctx, log, startHour); err != nil {
		p.queryErrors++
		return Result{}, err
	}
	if endHour != startHour {
		if err := p.collectBucket(ctx, log, endHour); err != nil {
			p.queryErrors++
			return Result{}, err
		}
	}

	result := p.aggregate(query)
	p.queries++
	logger.IncrementQueryProcessed()

	log.WithFields(logger.Fields{
		"result":      result.String(),
		"working_set": len(p.working),
	}).Debug("query processed")

	return result, nil
}

// collectBucket appends the fills of one hour bucket to the working set,
// fetching and caching the bucket on a miss. A fetch failure leaves the
// cache untouched for that hour.
func (p *Processor) collectBucket(ctx context.Context, log *logger.Entry, hourStart int64) error {
	if fills, ok := p.cache.Get(hourStart); ok {
		log.WithFields(logger.Fields{"hour": hourStart}).Debug("cache hit")
		p.working = append(p.working, fills...)
		p.cacheHits++
		return nil
	}

	log.WithFields(logger.Fields{"hour": hourStart}).Debug("cache miss")
	windowStart := time.Unix(hourStart, 0)
	fills, err := p.source.FetchFills(ctx, windowStart, windowStart.Add(cache.BucketSeconds*time.Second))
	if err != nil {
		return &FetchError{HourStart: hourStart, Err: err}
	}

	p.working = append(p.working, fills...)
	p.cache.Put(hourStart, fills)
	p.fetchCalls++
	logger.LogDataFlowEntry(log, "fill_source", "bucket_cache", len(fills), "fills")
	return nil
}

// aggregate computes the requested scalar over the working set, keeping
// only fills with start < time <= end. Buy, sell and total counts are
// per unique sequence number; traded volume sums every matching fill
// record, duplicates included.
func (p *Processor) aggregate(query models.Query) Result {
	var buyCount, sellCount int64
	volume := decimal.Zero
	seen := make(map[int64]struct{}, len(p.working))

	for _, fill := range p.working {
		ts := fill.Time.Unix()
		if ts <= query.Start || ts > query.End {
			continue
		}
		if _, dup := seen[fill.SequenceNumber]; !dup {
			seen[fill.SequenceNumber] = struct{}{}
			if fill.Direction == models.Buy {
				buyCount++
			} else {
				sellCount++
			}
		}
		volume = volume.Add(fill.Notional())
	}

	result := Result{Type: query.Type}
	switch query.Type {
	case models.QueryBuyCount:
		result.Count = buyCount
	case models.QuerySellCount:
		result.Count = sellCount
	case models.QueryTotalCount:
		result.Count = buyCount + sellCount
	case models.QueryVolume:
		result.Volume = volume
	}
	return result
}

// CacheHits returns the number of bucket lookups served from the cache.
func (p *Processor) CacheHits() int64 { return p.cacheHits }

// FetchCalls returns the number of window fetches issued to the source.
func (p *Processor) FetchCalls() int64 { return p.fetchCalls }

// Queries returns the number of successfully evaluated queries.
func (p *Processor) Queries() int64 { return p.queries }

// QueryErrors returns the number of queries that failed.
func (p *Processor) QueryErrors() int64 { return p.queryErrors }

// HitRate returns the fraction of bucket lookups served from the cache.
func (p *Processor) HitRate() float64 {
	total := p.cacheHits + p.fetchCalls
	if total == 0 {
		return 0
	}
	return float64(p.cacheHits) / float64(total)
}

// CacheStats returns a read-only snapshot of the bucket cache.
func (p *Processor) CacheStats() cache.Stats {
	return p.cache.Stats()
}
