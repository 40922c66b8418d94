// ABOUTME: TTL cache of backend routes observed as not deployed.
// ABOUTME: Lets the client skip known-absent endpoints and go straight to fallback.

package absence

import (
	"container/list"
	"slices"
	"strings"
	"sync"
	"time"
)

// maxSweepInterval caps how long an expired route can linger in memory
const maxSweepInterval = time.Minute

// Route describes a backend route currently answered locally.
type Route struct {
	Key       string    // method and path, e.g. "POST /ai/chat"
	Since     time.Time // first "not found" of the current absence
	ReprobeAt time.Time // the backend is asked again after this
	Skipped   int       // calls answered locally without a request
}

// Cache remembers absent routes until their re-probe time. Marking a
// route that is already absent pushes the re-probe time out but keeps
// Since. When maxSize routes are tracked, the one observed longest ago
// makes room.
type Cache struct {
	mu      sync.Mutex
	routes  map[string]*list.Element // Value is *Route
	byAge   *list.List               // least recently observed at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a cache that keeps routes absent for ttl. A ttl of zero or
// less disables it: nothing is ever reported absent.
func New(ttl time.Duration, maxSize int) *Cache {
	return newWithClock(ttl, maxSize, time.Now)
}

func newWithClock(ttl time.Duration, maxSize int, now func() time.Time) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &Cache{
		routes:  make(map[string]*list.Element),
		byAge:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     now,
		done:    make(chan struct{}),
	}
	if ttl > 0 {
		go c.sweep(min(ttl, maxSweepInterval))
	}
	return c
}

// IsAbsent reports whether route should be answered locally, counting the
// skipped request when it should.
func (c *Cache) IsAbsent(route string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.liveLocked(route)
	if !ok {
		return false
	}
	r.Skipped++
	return true
}

// Lookup returns the absence record for route, if it is still absent.
func (c *Cache) Lookup(route string) (Route, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.liveLocked(route)
	if !ok {
		return Route{}, false
	}
	return *r, true
}

// MarkAbsent records that route just answered "not found" and returns
// when it will be tried again.
func (c *Cache) MarkAbsent(route string) time.Time {
	now := c.now()
	if c.ttl <= 0 {
		return now
	}
	reprobe := now.Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.routes[route]; ok {
		r := elem.Value.(*Route)
		if !now.Before(r.ReprobeAt) {
			// The previous absence lapsed; this is a new one
			r.Since = now
			r.Skipped = 0
		}
		r.ReprobeAt = reprobe
		c.byAge.MoveToBack(elem)
		return reprobe
	}

	if len(c.routes) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.routes[route] = c.byAge.PushBack(&Route{Key: route, Since: now, ReprobeAt: reprobe})
	return reprobe
}

// Forget clears route after it answered, and reports whether it had
// been absent.
func (c *Cache) Forget(route string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, live := c.liveLocked(route)
	if elem, ok := c.routes[route]; ok {
		c.byAge.Remove(elem)
		delete(c.routes, route)
	}
	return live
}

// Routes returns the routes currently answered locally, sorted by key.
func (c *Cache) Routes() []Route {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]Route, 0, len(c.routes))
	for _, elem := range c.routes {
		r := elem.Value.(*Route)
		if now.Before(r.ReprobeAt) {
			out = append(out, *r)
		}
	}
	slices.SortFunc(out, func(a, b Route) int { return strings.Compare(a.Key, b.Key) })
	return out
}

// Len returns the number of tracked routes, including lapsed ones not
// yet swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.routes)
}

// liveLocked returns route's record while it is absent. Callers hold mu.
func (c *Cache) liveLocked(route string) (*Route, bool) {
	elem, ok := c.routes[route]
	if !ok {
		return nil, false
	}
	r := elem.Value.(*Route)
	if !c.now().Before(r.ReprobeAt) {
		return nil, false
	}
	return r, true
}

// evictOldestLocked drops the route observed longest ago. Callers hold mu.
func (c *Cache) evictOldestLocked() {
	front := c.byAge.Front()
	if front == nil {
		return
	}
	c.byAge.Remove(front)
	delete(c.routes, front.Value.(*Route).Key)
}

func (c *Cache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.dropLapsed()
		case <-c.done:
			return
		}
	}
}

// dropLapsed removes routes whose re-probe time has passed.
func (c *Cache) dropLapsed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, elem := range c.routes {
		if !now.Before(elem.Value.(*Route).ReprobeAt) {
			c.byAge.Remove(elem)
			delete(c.routes, key)
		}
	}
}

// Close stops the background sweep. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
