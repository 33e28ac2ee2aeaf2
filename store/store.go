// Package store provides the durable local state of the client: the login
// session, the session cookies, the read-article set and the recent-search
// list. It is pure local I/O over SQLite and never touches the network.
package store

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/neillwu/wanclient/model"
	Logger "github.com/neillwu/wanclient/utils/log"
)

const (
	sessionKey = "session"
	cookiesKey = "cookies"

	// MaxRecentSearches bounds the recent-search list, most recent first.
	MaxRecentSearches = 8
)

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
}

// Open opens or creates the local store at the given path.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open local store")
	}
	// Single connection: the store is tiny and sqlite write contention across
	// pooled connections just produces SQLITE_BUSY noise.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "set wal mode")
	}
	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "migrate local store")
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS read_articles (
		article_id INTEGER PRIMARY KEY,
		read_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	);
	CREATE TABLE IF NOT EXISTS recent_searches (
		term TEXT PRIMARY KEY,
		position INTEGER NOT NULL
	);`
	_, err := s.conn.Exec(schema)
	return err
}

// --- session ---

// SaveSession persists the session blob. The write is a single upsert so a
// process kill can never leave half a session behind.
func (s *Store) SaveSession(sess *model.Session) error {
	if sess == nil {
		return s.ClearSession()
	}
	blob, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	return s.putKV(sessionKey, blob)
}

// RestoreSession returns the persisted session, or nil when absent. A
// corrupt blob is treated as absent rather than an error; crashing the
// client over stale local bytes helps nobody.
func (s *Store) RestoreSession() (*model.Session, error) {
	blob, err := s.getKV(sessionKey)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}
	var sess model.Session
	if err := json.Unmarshal(blob, &sess); err != nil {
		Logger.Log.Warnf("discarding corrupt persisted session: %v", err)
		return nil, nil
	}
	return &sess, nil
}

// ClearSession removes the persisted session and cookie snapshot together.
func (s *Store) ClearSession() error {
	_, err := s.conn.Exec(`DELETE FROM kv WHERE key IN (?, ?)`, sessionKey, cookiesKey)
	return errors.Wrap(err, "clear session")
}

// --- cookies ---

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveCookies snapshots the cookie jar. A nil or empty slice clears the
// snapshot.
func (s *Store) SaveCookies(cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		_, err := s.conn.Exec(`DELETE FROM kv WHERE key = ?`, cookiesKey)
		return errors.Wrap(err, "clear cookies")
	}
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	blob, err := json.Marshal(stored)
	if err != nil {
		return errors.Wrap(err, "encode cookies")
	}
	return s.putKV(cookiesKey, blob)
}

// RestoreCookies returns the persisted cookie snapshot, nil when absent or
// corrupt.
func (s *Store) RestoreCookies() ([]*http.Cookie, error) {
	blob, err := s.getKV(cookiesKey)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, nil
	}
	var stored []storedCookie
	if err := json.Unmarshal(blob, &stored); err != nil {
		Logger.Log.Warnf("discarding corrupt persisted cookies: %v", err)
		return nil, nil
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

// --- read articles ---

// MarkRead records that the user opened an article. Idempotent.
func (s *Store) MarkRead(articleID int) error {
	_, err := s.conn.Exec(
		`INSERT INTO read_articles (article_id) VALUES (?) ON CONFLICT (article_id) DO NOTHING`,
		articleID,
	)
	return errors.Wrap(err, "mark read")
}

// IsRead reports whether the article was opened before.
func (s *Store) IsRead(articleID int) (bool, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(1) FROM read_articles WHERE article_id = ?`, articleID).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "query read")
	}
	return n > 0, nil
}

// ReadIDs returns every recorded read article id.
func (s *Store) ReadIDs() (map[int]struct{}, error) {
	rows, err := s.conn.Query(`SELECT article_id FROM read_articles`)
	if err != nil {
		return nil, errors.Wrap(err, "query read ids")
	}
	defer rows.Close()

	ids := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan read id")
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// --- recent searches ---

// AddRecentSearch inserts a term at the front of the recent-search list.
// Terms are case-preserving and de-duplicated by exact match; the list is
// trimmed to MaxRecentSearches.
func (s *Store) AddRecentSearch(term string) error {
	if term == "" {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return errors.Wrap(err, "begin recent search tx")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM recent_searches WHERE term = ?`, term); err != nil {
		return errors.Wrap(err, "dedup recent search")
	}
	if _, err := tx.Exec(
		`INSERT INTO recent_searches (term, position)
		 VALUES (?, COALESCE((SELECT MAX(position) FROM recent_searches), 0) + 1)`,
		term,
	); err != nil {
		return errors.Wrap(err, "insert recent search")
	}
	if _, err := tx.Exec(
		`DELETE FROM recent_searches WHERE term NOT IN (
			SELECT term FROM recent_searches ORDER BY position DESC LIMIT ?
		)`,
		MaxRecentSearches,
	); err != nil {
		return errors.Wrap(err, "trim recent searches")
	}
	return tx.Commit()
}

// RecentSearches returns the saved terms, most recent first.
func (s *Store) RecentSearches() ([]string, error) {
	rows, err := s.conn.Query(
		`SELECT term FROM recent_searches ORDER BY position DESC LIMIT ?`, MaxRecentSearches,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query recent searches")
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, errors.Wrap(err, "scan recent search")
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// ClearRecentSearches empties the recent-search list.
func (s *Store) ClearRecentSearches() error {
	_, err := s.conn.Exec(`DELETE FROM recent_searches`)
	return errors.Wrap(err, "clear recent searches")
}

func (s *Store) putKV(key string, value []byte) error {
	_, err := s.conn.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return errors.Wrapf(err, "put %s", key)
}

func (s *Store) getKV(key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key)
	}
	return value, nil
}
