package favorites

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neillwu/wanclient/model"
)

type fakeAPI struct {
	mu         sync.Mutex
	collects   []int
	uncollects []int

	collectErr   error
	uncollectErr error

	// When set, Collect signals collectStarted and blocks until
	// collectRelease closes. Lets tests hold a toggle in flight.
	collectStarted chan struct{}
	collectRelease chan struct{}

	pages   map[int]*model.ArticlePage
	pageErr error
}

func (f *fakeAPI) Collect(ctx context.Context, articleID int) error {
	if f.collectStarted != nil {
		close(f.collectStarted)
		<-f.collectRelease
	}
	f.mu.Lock()
	f.collects = append(f.collects, articleID)
	f.mu.Unlock()
	return f.collectErr
}

func (f *fakeAPI) Uncollect(ctx context.Context, originID int) error {
	f.mu.Lock()
	f.uncollects = append(f.uncollects, originID)
	f.mu.Unlock()
	return f.uncollectErr
}

func (f *fakeAPI) CollectedArticles(ctx context.Context, page int) (*model.ArticlePage, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &model.ArticlePage{Over: true}, nil
}

type countingSignaler struct {
	n int32
}

func (c *countingSignaler) Emit() { atomic.AddInt32(&c.n, 1) }

func (c *countingSignaler) Count() int { return int(atomic.LoadInt32(&c.n)) }

func signedIn() *model.Session  { return &model.Session{Token: "tok-1", UserID: 7, Username: "alice"} }
func signedOut() *model.Session { return nil }

var errRemote = assert.AnError

func TestToggleNeedsLoginBeforeAnyNetwork(t *testing.T) {
	f := &fakeAPI{}
	sig := &countingSignaler{}
	e := NewEngine(f, signedOut, sig)

	err := e.Toggle(context.Background(), &model.Article{ID: 42})
	assert.ErrorIs(t, err, ErrNeedsLogin)
	assert.Empty(t, f.collects)
	assert.Empty(t, f.uncollects)
	assert.Equal(t, 0, sig.Count())
	assert.False(t, e.IsFavorited(42))
}

func TestToggleFavoriteSuccess(t *testing.T) {
	f := &fakeAPI{}
	sig := &countingSignaler{}
	e := NewEngine(f, signedIn, sig)

	require.Nil(t, e.Toggle(context.Background(), &model.Article{ID: 42}))
	assert.True(t, e.IsFavorited(42))
	assert.Equal(t, []int{42}, f.collects)
	// One signal for the optimistic flip, none for the confirmation.
	assert.Equal(t, 1, sig.Count())
}

func TestToggleUnfavoriteUsesOriginID(t *testing.T) {
	f := &fakeAPI{}
	sig := &countingSignaler{}
	e := NewEngine(f, signedIn, sig)
	e.SeedFromLogin([]int{42})

	// A favorites-list copy: display id is the copy, origin id is the real
	// article.
	copyRow := &model.Article{ID: 9001, OriginID: 42}
	require.Nil(t, e.Toggle(context.Background(), copyRow))

	assert.False(t, e.IsFavorited(42))
	assert.Equal(t, []int{42}, f.uncollects)
	assert.Empty(t, f.collects)
}

func TestToggleRollbackOnRemoteFailure(t *testing.T) {
	f := &fakeAPI{collectErr: errRemote}
	sig := &countingSignaler{}
	e := NewEngine(f, signedIn, sig)

	err := e.Toggle(context.Background(), &model.Article{ID: 42})
	assert.ErrorIs(t, err, errRemote)
	// Back to the pre-call state, with a signal for the flip and a signal
	// for the rollback.
	assert.False(t, e.IsFavorited(42))
	assert.Equal(t, 2, sig.Count())
}

func TestUnfavoriteRollbackRestoresMembership(t *testing.T) {
	f := &fakeAPI{uncollectErr: errRemote}
	sig := &countingSignaler{}
	e := NewEngine(f, signedIn, sig)
	e.SeedFromLogin([]int{42})
	sigsAfterSeed := sig.Count()

	err := e.Toggle(context.Background(), &model.Article{ID: 42})
	assert.ErrorIs(t, err, errRemote)
	assert.True(t, e.IsFavorited(42))
	assert.Equal(t, sigsAfterSeed+2, sig.Count())
}

func TestToggleParityConvergence(t *testing.T) {
	f := &fakeAPI{}
	sig := &countingSignaler{}
	e := NewEngine(f, signedIn, sig)
	article := &model.Article{ID: 42}

	for i := 0; i < 5; i++ {
		require.Nil(t, e.Toggle(context.Background(), article))
	}
	// Five confirmed toggles: odd parity.
	assert.True(t, e.IsFavorited(42))

	require.Nil(t, e.Toggle(context.Background(), article))
	assert.False(t, e.IsFavorited(42))

	assert.Equal(t, []int{42, 42, 42}, f.collects)
	assert.Equal(t, []int{42, 42, 42}, f.uncollects)
}

func TestDoubleTapSecondObservesOptimisticState(t *testing.T) {
	f := &fakeAPI{
		collectStarted: make(chan struct{}),
		collectRelease: make(chan struct{}),
	}
	sig := &countingSignaler{}
	e := NewEngine(f, signedIn, sig)
	article := &model.Article{ID: 42}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.Nil(t, e.Toggle(context.Background(), article))
	}()
	<-f.collectStarted

	// First tap's optimistic flip is already visible.
	assert.True(t, e.IsFavorited(42))

	// Second tap toggles relative to that optimistic state: it goes down
	// the un-favorite path while the first call is still in flight.
	require.Nil(t, e.Toggle(context.Background(), article))
	assert.False(t, e.IsFavorited(42))
	assert.Equal(t, []int{42}, f.uncollects)

	// First call resolves last and succeeded; it leaves membership alone.
	close(f.collectRelease)
	wg.Wait()
	// Two confirmed toggles: even parity.
	assert.False(t, e.IsFavorited(42))
}

func TestRefreshReplacesSetWholesale(t *testing.T) {
	f := &fakeAPI{
		pages: map[int]*model.ArticlePage{
			0: {
				Datas: []model.Article{
					{ID: 9001, OriginID: 10},
					{ID: 9002, OriginID: 20},
				},
				Over: false, Size: 2,
			},
			1: {
				Datas: []model.Article{{ID: 9003, OriginID: 30}},
				Over:  true, Size: 2,
			},
		},
	}
	sig := &countingSignaler{}
	e := NewEngine(f, signedIn, sig)
	e.SeedFromLogin([]int{999}) // stale local belief

	require.Nil(t, e.Refresh(context.Background()))
	// Keyed by origin id so feed rows match, stale entry gone.
	assert.Equal(t, []int{10, 20, 30}, e.IDs())
	assert.False(t, e.IsFavorited(999))
}

func TestRefreshNeedsLogin(t *testing.T) {
	e := NewEngine(&fakeAPI{}, signedOut, &countingSignaler{})
	assert.ErrorIs(t, e.Refresh(context.Background()), ErrNeedsLogin)
}

func TestRefreshSurfacesFetchError(t *testing.T) {
	f := &fakeAPI{pageErr: errRemote}
	e := NewEngine(f, signedIn, &countingSignaler{})
	e.SeedFromLogin([]int{42})

	assert.ErrorIs(t, e.Refresh(context.Background()), errRemote)
	// Failed refresh keeps the previous set.
	assert.True(t, e.IsFavorited(42))
}

func TestClearEmptiesSetAndSignals(t *testing.T) {
	sig := &countingSignaler{}
	e := NewEngine(&fakeAPI{}, signedIn, sig)
	e.SeedFromLogin([]int{1, 2, 3})
	before := sig.Count()

	e.Clear()
	assert.Empty(t, e.IDs())
	assert.Equal(t, before+1, sig.Count())
}
