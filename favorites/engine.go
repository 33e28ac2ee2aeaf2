// Package favorites holds the authoritative local view of which articles
// the signed-in user has favorited, keeps it converged with the server, and
// broadcasts a change signal whenever it mutates.
package favorites

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/neillwu/wanclient/model"
	Logger "github.com/neillwu/wanclient/utils/log"
)

// ErrNeedsLogin is returned when an operation requires a session and none is
// active. Checked before any network traffic.
var ErrNeedsLogin = errors.New("favorites: needs login")

// API is the slice of the typed request layer the engine consumes.
type API interface {
	Collect(ctx context.Context, articleID int) error
	Uncollect(ctx context.Context, originID int) error
	CollectedArticles(ctx context.Context, page int) (*model.ArticlePage, error)
}

// SessionSource reports the active session. Satisfied by
// (*api.Client).CurrentSession.
type SessionSource func() *model.Session

// Signaler emits the favorites change signal. Satisfied by *SignalBus.
type Signaler interface {
	Emit()
}

// Engine is the single writer of the favorites set. All mutation flows
// through Toggle/Refresh/SeedFromLogin/Clear; readers only ever see the set
// through IsFavorited and IDs.
//
// Toggle is optimistic: membership flips and the change signal fires before
// the network call, and a failed call rolls the flip back (signaling again).
// Two rapid Toggles on the same article therefore observe each other's
// optimistic state; when both are in flight, whichever remote response
// resolves last decides the final membership.
type Engine struct {
	api     API
	session SessionSource
	sig     Signaler

	mu  sync.Mutex
	ids map[int]struct{}
}

func NewEngine(a API, session SessionSource, sig Signaler) *Engine {
	return &Engine{
		api:     a,
		session: session,
		sig:     sig,
		ids:     make(map[int]struct{}),
	}
}

// IsFavorited is a pure read of the local set, keyed by canonical article
// id.
func (e *Engine) IsFavorited(articleID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.ids[articleID]
	return ok
}

// IDs returns a sorted snapshot of the favorited article ids.
func (e *Engine) IDs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int, 0, len(e.ids))
	for id := range e.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Toggle flips the favorite state of the article, optimistically first, then
// against the server. On remote failure the optimistic flip is rolled back
// to the membership observed at call time and the error is surfaced; the
// change signal fires once for the flip and once more for a rollback.
func (e *Engine) Toggle(ctx context.Context, article *model.Article) error {
	if !e.session().IsAuthenticated() {
		return ErrNeedsLogin
	}

	// The canonical id matters: un-favoriting a favorites-list copy must
	// target the origin article, not the copy.
	id := article.CanonicalID()

	e.mu.Lock()
	_, wasFavorited := e.ids[id]
	if wasFavorited {
		delete(e.ids, id)
	} else {
		e.ids[id] = struct{}{}
	}
	e.mu.Unlock()
	e.sig.Emit()

	var err error
	if wasFavorited {
		err = e.api.Uncollect(ctx, id)
	} else {
		err = e.api.Collect(ctx, id)
	}
	if err == nil {
		// The optimistic flip already wrote the membership; nothing left to
		// do. A concurrent Toggle may have flipped it again meanwhile and
		// that flip's own resolution is responsible for it.
		return nil
	}

	// Roll back to the membership observed when this call started. If a
	// concurrent Toggle resolved in between, we are the later-resolving
	// call and win.
	e.mu.Lock()
	if wasFavorited {
		e.ids[id] = struct{}{}
	} else {
		delete(e.ids, id)
	}
	e.mu.Unlock()
	e.sig.Emit()
	Logger.Log.Warnf("favorite toggle for article %d rolled back: %v", id, err)
	return err
}

// Refresh replaces the local set wholesale with the server's favorites
// list, walking pages until the server reports exhaustion. Used after
// login, on pull-to-refresh, and as the delayed reaction to a change signal
// originating elsewhere. It does not emit the change signal itself; a
// subscriber refreshing in reaction to the signal must not re-trigger it.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.session().IsAuthenticated() {
		return ErrNeedsLogin
	}

	fresh := make(map[int]struct{})
	for page := 0; ; page++ {
		p, err := e.api.CollectedArticles(ctx, page)
		if err != nil {
			return errors.Wrap(err, "refresh favorites")
		}
		for _, a := range p.Datas {
			fresh[a.CanonicalID()] = struct{}{}
		}
		if p.Exhausted() || len(p.Datas) == 0 {
			break
		}
	}

	e.mu.Lock()
	e.ids = fresh
	e.mu.Unlock()
	return nil
}

// SeedFromLogin primes the set from the collect ids the login payload
// carries, so favorite hearts render correctly before the first Refresh
// lands.
func (e *Engine) SeedFromLogin(collectIDs []int) {
	fresh := make(map[int]struct{}, len(collectIDs))
	for _, id := range collectIDs {
		fresh[id] = struct{}{}
	}
	e.mu.Lock()
	e.ids = fresh
	e.mu.Unlock()
	e.sig.Emit()
}

// Clear empties the set on logout and signals so visible rows un-heart.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.ids = make(map[int]struct{})
	e.mu.Unlock()
	e.sig.Emit()
}
