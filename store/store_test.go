package store

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neillwu/wanclient/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wanclient.db"))
	require.Nil(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	sess := &model.Session{Token: "tok-1", UserID: 7, Username: "alice", Nickname: "alice"}
	require.Nil(t, s.SaveSession(sess))

	restored, err := s.RestoreSession()
	require.Nil(t, err)
	assert.Equal(t, sess, restored)
	assert.True(t, restored.IsAuthenticated())
}

func TestRestoreSessionAbsent(t *testing.T) {
	s := newTestStore(t)

	restored, err := s.RestoreSession()
	assert.Nil(t, err)
	assert.Nil(t, restored)
	assert.False(t, restored.IsAuthenticated())
}

func TestCorruptSessionTreatedAsAbsent(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.putKV(sessionKey, []byte(`{"token": truncated`)))

	restored, err := s.RestoreSession()
	assert.Nil(t, err)
	assert.Nil(t, restored)
}

func TestSaveSessionOverwrites(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.SaveSession(&model.Session{Token: "old", UserID: 1}))
	require.Nil(t, s.SaveSession(&model.Session{Token: "new", UserID: 2}))

	restored, err := s.RestoreSession()
	require.Nil(t, err)
	assert.Equal(t, "new", restored.Token)
	assert.Equal(t, 2, restored.UserID)
}

func TestClearSessionDropsCookiesToo(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.SaveSession(&model.Session{Token: "tok-1"}))
	require.Nil(t, s.SaveCookies([]*http.Cookie{{Name: "loginUserName", Value: "alice"}}))

	require.Nil(t, s.ClearSession())

	restored, err := s.RestoreSession()
	require.Nil(t, err)
	assert.Nil(t, restored)
	cookies, err := s.RestoreCookies()
	require.Nil(t, err)
	assert.Empty(t, cookies)
}

func TestCookiesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.SaveCookies([]*http.Cookie{
		{Name: "loginUserName", Value: "alice"},
		{Name: "token_pass", Value: "secret"},
	}))

	cookies, err := s.RestoreCookies()
	require.Nil(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "loginUserName", cookies[0].Name)
	assert.Equal(t, "secret", cookies[1].Value)
}

func TestReadMarks(t *testing.T) {
	s := newTestStore(t)

	read, err := s.IsRead(42)
	require.Nil(t, err)
	assert.False(t, read)

	require.Nil(t, s.MarkRead(42))
	require.Nil(t, s.MarkRead(42)) // idempotent
	require.Nil(t, s.MarkRead(7))

	read, err = s.IsRead(42)
	require.Nil(t, err)
	assert.True(t, read)

	ids, err := s.ReadIDs()
	require.Nil(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, 42)
	assert.Contains(t, ids, 7)
}

func TestRecentSearchesMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.AddRecentSearch("Flow"))
	require.Nil(t, s.AddRecentSearch("Compose"))
	require.Nil(t, s.AddRecentSearch("Coroutine"))

	terms, err := s.RecentSearches()
	require.Nil(t, err)
	assert.Equal(t, []string{"Coroutine", "Compose", "Flow"}, terms)
}

func TestRecentSearchesDedupMovesToFront(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.AddRecentSearch("Flow"))
	require.Nil(t, s.AddRecentSearch("Compose"))
	require.Nil(t, s.AddRecentSearch("Flow"))

	terms, err := s.RecentSearches()
	require.Nil(t, err)
	// Case preserved, single entry, promoted to the front.
	assert.Equal(t, []string{"Flow", "Compose"}, terms)
}

func TestRecentSearchesBounded(t *testing.T) {
	s := newTestStore(t)
	inserted := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, term := range inserted {
		require.Nil(t, s.AddRecentSearch(term))
	}

	terms, err := s.RecentSearches()
	require.Nil(t, err)
	assert.Equal(t, []string{"j", "i", "h", "g", "f", "e", "d", "c"}, terms)
}

func TestClearRecentSearches(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.AddRecentSearch("Flow"))
	require.Nil(t, s.ClearRecentSearches())

	terms, err := s.RecentSearches()
	require.Nil(t, err)
	assert.Empty(t, terms)
}

func TestEmptySearchTermIgnored(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.AddRecentSearch(""))

	terms, err := s.RecentSearches()
	require.Nil(t, err)
	assert.Empty(t, terms)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wanclient.db")

	s, err := Open(path)
	require.Nil(t, err)
	require.Nil(t, s.SaveSession(&model.Session{Token: "tok-1", Username: "alice"}))
	require.Nil(t, s.MarkRead(42))
	require.Nil(t, s.AddRecentSearch("Compose"))
	require.Nil(t, s.Close())

	reopened, err := Open(path)
	require.Nil(t, err)
	defer reopened.Close()

	sess, err := reopened.RestoreSession()
	require.Nil(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", sess.Username)

	read, err := reopened.IsRead(42)
	require.Nil(t, err)
	assert.True(t, read)

	terms, err := reopened.RecentSearches()
	require.Nil(t, err)
	assert.Equal(t, []string{"Compose"}, terms)
}
