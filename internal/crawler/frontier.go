package crawler

import "sync"

// WorkItem is one unit of pending crawl work: a discovered URL, its link
// distance from the seed, and the page that discovered it. Items are
// created at admission, consumed exactly once, and never mutated.
type WorkItem struct {
	// URL is the normalized URL to fetch.
	URL string

	// Depth is the link distance from the seed (seed is 0).
	Depth int

	// ParentURL is the page that linked here; empty for the seed.
	ParentURL string
}

// Frontier owns the queue of pending work items and the visitation
// registry for one crawl session. It enforces the depth and page-count
// limits and guarantees at-most-once processing per URL identity.
//
// Design decision: Dequeue marks the returned URL as visited immediately,
// not after processing. This closes the race where a URL is mid-flight and
// a sibling page rediscovers it, and it is the only deduplication guard
// when multiple workers pull from the frontier concurrently.
type Frontier struct {
	// mu protects all fields below. All methods are safe for
	// concurrent use by a worker pool.
	mu sync.Mutex

	// queue holds pending items in strict insertion order (FIFO), so
	// traversal is breadth-first: all depth-d items are discovered and
	// queued before any depth-d+1 item.
	queue []WorkItem

	// queued tracks URL identities currently in the queue.
	queued map[string]bool

	// visited tracks URL identities already dequeued. Grows
	// monotonically; never shrinks during a session.
	visited map[string]bool

	// skipped tracks URL identities with a recorded skip, so a skipped
	// URL rediscovered later is not re-admitted.
	skipped map[string]bool

	// maxDepth is the admission depth limit.
	maxDepth int

	// maxPages is the completed-page budget.
	maxPages int

	// completed counts pages recorded so far.
	completed int
}

// NewFrontier creates an empty frontier with the given limits.
func NewFrontier(maxDepth, maxPages int) *Frontier {
	return &Frontier{
		queue:    make([]WorkItem, 0),
		queued:   make(map[string]bool),
		visited:  make(map[string]bool),
		skipped:  make(map[string]bool),
		maxDepth: maxDepth,
		maxPages: maxPages,
	}
}

// Enqueue admits a work item if the URL has not been visited, queued, or
// skipped, the depth is within the limit, and the page budget is not yet
// spent. Returns true if the item was admitted. Re-enqueueing a known URL
// is a no-op.
func (f *Frontier) Enqueue(url string, depth int, parent string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if depth > f.maxDepth {
		return false
	}
	if f.completed >= f.maxPages {
		return false
	}
	if f.visited[url] || f.queued[url] || f.skipped[url] {
		return false
	}

	f.queue = append(f.queue, WorkItem{URL: url, Depth: depth, ParentURL: parent})
	f.queued[url] = true
	return true
}

// Dequeue returns the next work item in insertion order and marks its URL
// visited. The second return value is false when the queue is empty.
func (f *Frontier) Dequeue() (WorkItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return WorkItem{}, false
	}

	item := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.queued, item.URL)
	f.visited[item.URL] = true
	return item, true
}

// DrainWave removes and returns all currently queued items, up to the
// remaining page budget, marking each visited. The workers of one wave
// process the returned batch concurrently; links they discover form the
// next wave, which preserves breadth-first order across waves.
func (f *Frontier) DrainWave() []WorkItem {
	f.mu.Lock()
	defer f.mu.Unlock()

	budget := f.maxPages - f.completed
	if budget <= 0 || len(f.queue) == 0 {
		return nil
	}
	n := len(f.queue)
	if n > budget {
		n = budget
	}

	wave := f.queue[:n:n]
	f.queue = f.queue[n:]
	for _, item := range wave {
		delete(f.queued, item.URL)
		f.visited[item.URL] = true
	}
	return wave
}

// MarkSkipped records a URL as permanently skipped so it is never
// re-admitted. Used for skips decided before dequeue (robots).
func (f *Frontier) MarkSkipped(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipped[url] = true
}

// PageCompleted counts one recorded page against the budget and reports
// whether the budget still has room.
func (f *Frontier) PageCompleted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed++
	return f.completed < f.maxPages
}

// BudgetLeft reports whether the page budget has room for another page.
func (f *Frontier) BudgetLeft() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed < f.maxPages
}

// Visited reports whether a URL identity has already been dequeued.
func (f *Frontier) Visited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited[url]
}

// Len returns the number of queued items.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
