package application

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/cohort-scheduler/internal/allocation"
	"github.com/example/cohort-scheduler/internal/resources"
)

// reportCache memoizes pre-flight reports so repeated activation-approval
// polls do not re-simulate an unchanged cohort against an unchanged pool.
// Keys incorporate every resource's version, so any reservation or release
// naturally invalidates prior entries.
type reportCache struct {
	lru *expirable.LRU[string, allocation.Report]
}

func newReportCache(ttl time.Duration, maxEntries int) *reportCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &reportCache{lru: expirable.NewLRU[string, allocation.Report](maxEntries, nil, ttl)}
}

func (c *reportCache) Get(key string) (allocation.Report, bool) {
	if c == nil || c.lru == nil {
		return allocation.Report{}, false
	}
	return c.lru.Get(key)
}

func (c *reportCache) Add(key string, report allocation.Report) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Add(key, report)
}

// poolRevisionKey derives a cache key from the cohort and the exact pool
// state the simulation would observe.
func poolRevisionKey(cohortID string, pool []resources.MeetingResource) string {
	h := fnv.New64a()
	for _, resource := range pool {
		fmt.Fprintf(h, "%s:%d;", resource.ID, resource.Version)
	}
	return fmt.Sprintf("%s@%x", cohortID, h.Sum64())
}
