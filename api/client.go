package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/neillwu/wanclient/model"
	Logger "github.com/neillwu/wanclient/utils/log"
)

// envelope is the uniform wrapper every remote endpoint responds with.
// errorCode == 0 signals success; this is the server's wire contract.
type envelope struct {
	ErrorCode int             `json:"errorCode"`
	ErrorMsg  string          `json:"errorMsg"`
	Data      json.RawMessage `json:"data"`
}

// SessionStore persists the login session across restarts. Implemented by
// store.Store.
type SessionStore interface {
	SaveSession(s *model.Session) error
	RestoreSession() (*model.Session, error)
	ClearSession() error
}

// Client is the typed request layer: it maps logical operations onto the
// remote API's verb/path/params, unwraps the response envelope, and converts
// failures into the TransportError/APIError/DecodeError taxonomy. Every call
// is wrapped in the transient-only retry policy.
type Client struct {
	http     *HTTPClient
	sessions SessionStore

	maxAttempts int
	retryDelay  time.Duration

	mu      sync.RWMutex
	session *model.Session
}

// NewClient builds a Client and restores any persisted session. A corrupt or
// absent persisted session simply yields a signed-out client.
func NewClient(http *HTTPClient, sessions SessionStore) *Client {
	c := &Client{
		http:        http,
		sessions:    sessions,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}
	if sessions != nil {
		s, err := sessions.RestoreSession()
		if err != nil {
			Logger.Log.Warnf("failed to restore session: %v", err)
		}
		c.session = s
	}
	return c
}

// SetRetry overrides the retry policy. Mostly for tests.
func (c *Client) SetRetry(maxAttempts int, delay time.Duration) {
	c.maxAttempts = maxAttempts
	c.retryDelay = delay
}

// CurrentSession returns the active session, or nil when signed out.
func (c *Client) CurrentSession() *model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Login authenticates with username/password. The server issues the session
// cookie on this call; the cookie jar captures it and the session snapshot
// is persisted before returning.
func (c *Client) Login(ctx context.Context, username, password string) (*model.UserProfile, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var profile model.UserProfile
	if err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.PostForm(ctx, "/user/login", form)
	}, &profile); err != nil {
		return nil, err
	}
	c.adoptSession(model.NewSession(&profile))
	return &profile, nil
}

// Register creates an account and, like the original client, leaves the
// caller signed in on success.
func (c *Client) Register(ctx context.Context, username, password, repassword string) (*model.UserProfile, error) {
	form := url.Values{
		"username":   {username},
		"password":   {password},
		"repassword": {repassword},
	}
	var profile model.UserProfile
	if err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.PostForm(ctx, "/user/register", form)
	}, &profile); err != nil {
		return nil, err
	}
	c.adoptSession(model.NewSession(&profile))
	return &profile, nil
}

// Logout tells the server goodbye and drops all local session state. Local
// state is cleared even when the server call fails; a dead session on the
// server side is harmless, a dangling one on ours is not.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, "/user/logout/json", nil)
	}, nil)
	if err != nil {
		Logger.Log.Warnf("server logout failed, clearing local session anyway: %v", err)
	}

	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	if c.sessions != nil {
		if cerr := c.sessions.ClearSession(); cerr != nil {
			Logger.Log.Warnf("failed to clear persisted session: %v", cerr)
		}
	}
	c.http.ClearCookies()
	return err
}

// HomeArticles fetches one page of the home feed. Pages start at 0.
func (c *Client) HomeArticles(ctx context.Context, page int) (*model.ArticlePage, error) {
	return c.articlePage(ctx, fmt.Sprintf("/article/list/%d/json", page), nil)
}

// TopArticles fetches the pinned articles shown above the home feed.
func (c *Client) TopArticles(ctx context.Context) ([]model.Article, error) {
	var articles []model.Article
	err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, "/article/top/json", nil)
	}, &articles)
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// Banners fetches the home carousel entries.
func (c *Client) Banners(ctx context.Context) ([]model.Banner, error) {
	var banners []model.Banner
	err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, "/banner/json", nil)
	}, &banners)
	if err != nil {
		return nil, err
	}
	return banners, nil
}

// ProjectCategories fetches the project tree.
func (c *Client) ProjectCategories(ctx context.Context) ([]model.ProjectCategory, error) {
	var cats []model.ProjectCategory
	err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, "/project/tree/json", nil)
	}, &cats)
	if err != nil {
		return nil, err
	}
	return cats, nil
}

// ProjectArticles fetches one page of a project category. Pages start at 1
// for this endpoint; the server counts project pages from one.
func (c *Client) ProjectArticles(ctx context.Context, page, categoryID int) (*model.ArticlePage, error) {
	params := url.Values{"cid": {strconv.Itoa(categoryID)}}
	return c.articlePage(ctx, fmt.Sprintf("/project/list/%d/json", page), params)
}

// Search runs a keyword query. The endpoint wants the keyword form-encoded
// in the body even though it is a read.
func (c *Client) Search(ctx context.Context, page int, keyword string) (*model.ArticlePage, error) {
	form := url.Values{"k": {keyword}}
	var result model.ArticlePage
	err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.PostForm(ctx, fmt.Sprintf("/article/query/%d/json", page), form)
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// HotKeys fetches the trending search terms.
func (c *Client) HotKeys(ctx context.Context) ([]model.HotKey, error) {
	var keys []model.HotKey
	err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, "/hotkey/json", nil)
	}, &keys)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// CoinInfo fetches the signed-in user's points summary.
func (c *Client) CoinInfo(ctx context.Context) (*model.CoinInfo, error) {
	var info model.CoinInfo
	err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, "/lg/coin/userinfo/json", nil)
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Collect favorites an article by its own id.
func (c *Client) Collect(ctx context.Context, articleID int) error {
	return c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.PostForm(ctx, fmt.Sprintf("/lg/collect/%d/json", articleID), nil)
	}, nil)
}

// Uncollect removes a favorite. The id here is the origin id for entries
// sourced from the favorites list; conflating it with the display id removes
// the wrong article.
func (c *Client) Uncollect(ctx context.Context, originID int) error {
	return c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.PostForm(ctx, fmt.Sprintf("/lg/uncollect_originId/%d/json", originID), nil)
	}, nil)
}

// CollectedArticles fetches one page of the signed-in user's favorites.
// Pages start at 0.
func (c *Client) CollectedArticles(ctx context.Context, page int) (*model.ArticlePage, error) {
	return c.articlePage(ctx, fmt.Sprintf("/lg/collect/list/%d/json", page), nil)
}

func (c *Client) articlePage(ctx context.Context, path string, params url.Values) (*model.ArticlePage, error) {
	var result model.ArticlePage
	err := c.call(ctx, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, path, params)
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// call executes one logical operation: transport with retry, envelope
// unwrap, typed decode. out may be nil for calls whose data is irrelevant.
func (c *Client) call(ctx context.Context, fetch func(context.Context) ([]byte, error), out interface{}) error {
	var body []byte
	err := WithRetry(ctx, c.maxAttempts, c.retryDelay, func() error {
		var ferr error
		body, ferr = fetch(ctx)
		return ferr
	})
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Shape mismatch at the envelope level means the wire format changed
		// underneath us. Worth shouting about.
		Logger.Log.Errorf("api contract violation, bad envelope: %v", err)
		return &DecodeError{cause: err}
	}
	if env.ErrorCode != 0 {
		return &APIError{Code: env.ErrorCode, Message: env.ErrorMsg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		Logger.Log.Errorf("api contract violation, bad data payload: %v", err)
		return &DecodeError{cause: err}
	}
	return nil
}

func (c *Client) adoptSession(s *model.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	if c.sessions != nil {
		if err := c.sessions.SaveSession(s); err != nil {
			Logger.Log.Warnf("failed to persist session: %v", err)
		}
	}
}
