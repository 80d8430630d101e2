// Package cache holds hourly buckets of fills with LRU eviction.
//
// A bucket is the complete set of fills recorded in one hour-aligned
// window. Buckets are fetched whole, cached whole and evicted whole;
// repeated queries into the same hour never re-fetch.
package cache

import (
	"container/list"
	"unsafe"

	"fillflow/models"
)

// BucketSeconds is the width of one cache bucket.
const BucketSeconds = 3600

// DefaultCapacity covers one week of hourly buckets.
const DefaultCapacity = 168

// HourStart rounds an epoch-seconds timestamp down to the start of its hour.
func HourStart(ts int64) int64 {
	return ts - (ts % BucketSeconds)
}

type entry struct {
	hour  int64
	fills []models.Fill
}

// BucketCache is a fixed-capacity, recency-ordered map from hour-start
// timestamp to the fills of that hour. Both Get and Put mark the bucket
// most-recently-used; inserting a new hour at capacity evicts the least
// recently used bucket. The cache is not safe for concurrent use: it is
// owned by a single query evaluator.
type BucketCache struct {
	capacity int
	order    *list.List // front = most recently used
	index    map[int64]*list.Element
}

// New creates a BucketCache holding at most capacity buckets. A
// non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *BucketCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &BucketCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[int64]*list.Element, capacity),
	}
}

// Get returns the fills cached for the given hour start, refreshing the
// bucket's recency on a hit. A miss has no side effect.
func (c *BucketCache) Get(hourStart int64) ([]models.Fill, bool) {
	el, ok := c.index[hourStart]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).fills, true
}

// Put inserts or replaces the bucket for the given hour start and marks it
// most-recently-used. Replacing an existing hour never evicts; inserting a
// new hour at capacity evicts the least-recently-used bucket first.
func (c *BucketCache) Put(hourStart int64, fills []models.Fill) {
	if el, ok := c.index[hourStart]; ok {
		el.Value.(*entry).fills = fills
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.index[hourStart] = c.order.PushFront(&entry{hour: hourStart, fills: fills})
}

func (c *BucketCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.index, el.Value.(*entry).hour)
}

// Len returns the number of buckets currently cached.
func (c *BucketCache) Len() int {
	return c.order.Len()
}

// Capacity returns the maximum number of buckets the cache will hold.
func (c *BucketCache) Capacity() int {
	return c.capacity
}

// Stats is a read-only snapshot of the cache contents.
type Stats struct {
	Buckets        int
	Fills          int
	MaxBucketFills int
	ApproxBytes    int64
}

var (
	fillBytes  = int64(unsafe.Sizeof(models.Fill{}))
	entryBytes = int64(unsafe.Sizeof(entry{})) + int64(unsafe.Sizeof(list.Element{}))
)

// Stats walks the cached buckets and returns their sizes. It does not
// touch recency ordering.
func (c *BucketCache) Stats() Stats {
	s := Stats{Buckets: c.order.Len()}
	for el := c.order.Front(); el != nil; el = el.Next() {
		n := len(el.Value.(*entry).fills)
		s.Fills += n
		if n > s.MaxBucketFills {
			s.MaxBucketFills = n
		}
		s.ApproxBytes += entryBytes + int64(n)*fillBytes
	}
	s.ApproxBytes += int64(unsafe.Sizeof(BucketCache{}))
	return s
}
