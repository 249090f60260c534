package repository

import (
	"sync/atomic"
	"time"

	"github.com/cgscacau/green-belt-app-sub001/internal/projects/statesync"
)

// Metrics tracks repository operation counts
type Metrics struct {
	projectsLoaded  int64
	projectsCreated int64
	projectsUpdated int64
	projectsDeleted int64
	storeErrors     int64
	indexWarnings   int64
}

// MetricsSnapshot is a point-in-time copy of the counters
type MetricsSnapshot struct {
	ProjectsLoaded  int64     `json:"projects_loaded"`
	ProjectsCreated int64     `json:"projects_created"`
	ProjectsUpdated int64     `json:"projects_updated"`
	ProjectsDeleted int64     `json:"projects_deleted"`
	StoreErrors     int64     `json:"store_errors"`
	IndexWarnings   int64     `json:"index_warnings"`
	CacheHits       int64     `json:"cache_hits"`
	CacheMisses     int64     `json:"cache_misses"`
	CacheEntries    int       `json:"cache_entries"`
	CacheHitRate    float64   `json:"cache_hit_rate"`
	Timestamp       time.Time `json:"timestamp"`
}

func (m *Metrics) snapshot(cache statesync.CacheStats, now time.Time) MetricsSnapshot {
	s := MetricsSnapshot{
		ProjectsLoaded:  atomic.LoadInt64(&m.projectsLoaded),
		ProjectsCreated: atomic.LoadInt64(&m.projectsCreated),
		ProjectsUpdated: atomic.LoadInt64(&m.projectsUpdated),
		ProjectsDeleted: atomic.LoadInt64(&m.projectsDeleted),
		StoreErrors:     atomic.LoadInt64(&m.storeErrors),
		IndexWarnings:   atomic.LoadInt64(&m.indexWarnings),
		CacheHits:       cache.Hits,
		CacheMisses:     cache.Misses,
		CacheEntries:    cache.Entries,
		Timestamp:       now,
	}
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(total)
	}
	return s
}

func (m *Metrics) recordLoad()         { atomic.AddInt64(&m.projectsLoaded, 1) }
func (m *Metrics) recordCreate()       { atomic.AddInt64(&m.projectsCreated, 1) }
func (m *Metrics) recordUpdate()       { atomic.AddInt64(&m.projectsUpdated, 1) }
func (m *Metrics) recordDelete()       { atomic.AddInt64(&m.projectsDeleted, 1) }
func (m *Metrics) recordStoreError()   { atomic.AddInt64(&m.storeErrors, 1) }
func (m *Metrics) recordIndexWarning() { atomic.AddInt64(&m.indexWarnings, 1) }
