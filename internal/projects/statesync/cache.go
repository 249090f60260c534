package statesync

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cgscacau/green-belt-app-sub001/internal/projects/domain"
)

// Kind names what a cache entry holds.
type Kind string

const (
	KindProject      Kind = "project"
	KindUploadedData Kind = "uploaded_data"
	KindUploadInfo   Kind = "upload_info"
	KindToolData     Kind = "tool_data"
)

// Key identifies one cache entry. Phase and Tool are set only for
// KindToolData.
type Key struct {
	ProjectID string
	Kind      Kind
	Phase     domain.Phase
	Tool      string
}

func ProjectKey(projectID string) Key { return Key{ProjectID: projectID, Kind: KindProject} }
func DatasetKey(projectID string) Key { return Key{ProjectID: projectID, Kind: KindUploadedData} }
func InfoKey(projectID string) Key    { return Key{ProjectID: projectID, Kind: KindUploadInfo} }

func ToolKey(projectID string, phase domain.Phase, tool string) Key {
	return Key{ProjectID: projectID, Kind: KindToolData, Phase: phase, Tool: tool}
}

func (k Key) String() string {
	s := string(k.Kind) + ":" + k.ProjectID
	if k.Kind == KindToolData {
		s += ":" + string(k.Phase) + "." + k.Tool
	}
	return s
}

type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Cache is the process-local view of projects and their derived data.
// It is not shared between processes.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]any
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewCache() *Cache {
	return &Cache{entries: make(map[Key]any)}
}

func (c *Cache) Get(k Key) (any, bool) {
	c.mu.RLock()
	v, ok := c.entries[k]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

func (c *Cache) Put(k Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = v
}

func (c *Cache) Delete(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k)
}

// PurgeProject removes every entry of projectID and returns how many
// were dropped.
func (c *Cache) PurgeProject(projectID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if k.ProjectID == projectID {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Keys lists every entry, sorted, for auditing.
func (c *Cache) Keys() []Key {
	c.mu.RLock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{Entries: n, Hits: c.hits.Load(), Misses: c.misses.Load()}
}
