// Package feed tracks pagination state for one remote article list: the
// home feed, a project category, search results, or the favorites list. One
// Cursor per list; cursors are independent of each other.
package feed

import (
	"context"
	"sync"

	"github.com/neillwu/wanclient/model"
)

// FetchPage loads one page of the list this cursor tracks. Injected so a
// single Cursor type serves every paginated endpoint.
type FetchPage func(ctx context.Context, page int) (*model.ArticlePage, error)

// Cursor merges incremental pages into one ordered, de-duplicated item
// slice. It serializes LoadFirst/LoadNext per instance via no-op guards and
// discards stale in-flight completions with a generation stamp, so UI code
// can fire loads from several triggers without coordinating.
type Cursor struct {
	fetch     FetchPage
	firstPage int

	mu           sync.Mutex
	items        []model.Article
	seen         map[int]struct{}
	page         int
	generation   uint64
	exhausted    bool
	loadingFirst bool
	loadingNext  bool
}

// NewCursor builds a cursor whose first page index is firstPage. Most
// endpoints count from 0, the project list counts from 1.
func NewCursor(firstPage int, fetch FetchPage) *Cursor {
	return &Cursor{
		fetch:     fetch,
		firstPage: firstPage,
		seen:      make(map[int]struct{}),
	}
}

// Items returns a snapshot of the loaded items in server order.
func (c *Cursor) Items() []model.Article {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Article, len(c.items))
	copy(out, c.items)
	return out
}

// Exhausted reports whether the server has no further pages. Monotonic until
// the next successful LoadFirst or Reset.
func (c *Cursor) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhausted
}

// Loading reports whether either a first-page or next-page load is in
// flight.
func (c *Cursor) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadingFirst || c.loadingNext
}

// Reset drops all state. The next LoadNext is a no-op until a LoadFirst
// repopulates the cursor.
func (c *Cursor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.items = nil
	c.seen = make(map[int]struct{})
	c.page = 0
	c.exhausted = false
	c.loadingFirst = false
	c.loadingNext = false
}

// LoadFirst replaces the cursor contents with the first page. A LoadFirst
// while another is already in flight is a no-op; a LoadFirst while a
// LoadNext is in flight supersedes it, and the straggler's completion is
// discarded by the generation check. On failure the previous items survive
// untouched.
func (c *Cursor) LoadFirst(ctx context.Context) error {
	c.mu.Lock()
	if c.loadingFirst {
		c.mu.Unlock()
		return nil
	}
	c.loadingFirst = true
	// Invalidate any in-flight LoadNext; its result belongs to the list we
	// are about to replace.
	c.generation++
	c.loadingNext = false
	gen := c.generation
	c.mu.Unlock()

	page, err := c.fetch(ctx, c.firstPage)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// A Reset raced us. Drop the result.
		return nil
	}
	c.loadingFirst = false
	if err != nil {
		return err
	}

	c.items = make([]model.Article, 0, len(page.Datas))
	c.seen = make(map[int]struct{}, len(page.Datas))
	for _, a := range page.Datas {
		if _, dup := c.seen[a.ID]; dup {
			continue
		}
		c.seen[a.ID] = struct{}{}
		c.items = append(c.items, a)
	}
	c.page = c.firstPage
	c.exhausted = page.Exhausted()
	return nil
}

// LoadNext appends the next page. No-op when the list is exhausted, a
// LoadNext is already in flight, or a LoadFirst is currently replacing the
// list. On failure the page index is not advanced, so a later retry
// re-requests the same page. Duplicate ids arriving from a slow or repeated
// response are dropped.
func (c *Cursor) LoadNext(ctx context.Context) error {
	c.mu.Lock()
	if c.exhausted || c.loadingNext || c.loadingFirst || len(c.items) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.loadingNext = true
	gen := c.generation
	next := c.page + 1
	c.mu.Unlock()

	page, err := c.fetch(ctx, next)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// A LoadFirst (or Reset) superseded this load while it was in
		// flight; its flag was already cleared along with the stamp.
		return nil
	}
	c.loadingNext = false
	if err != nil {
		return err
	}

	for _, a := range page.Datas {
		if _, dup := c.seen[a.ID]; dup {
			continue
		}
		c.seen[a.ID] = struct{}{}
		c.items = append(c.items, a)
	}
	c.page = next
	if page.Exhausted() {
		c.exhausted = true
	}
	return nil
}
