package api

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	Logger "github.com/neillwu/wanclient/utils/log"
)

// CookieStore persists the session cookies the server hands out so a
// restarted process keeps its login. Implemented by store.Store.
type CookieStore interface {
	SaveCookies(cookies []*http.Cookie) error
	RestoreCookies() ([]*http.Cookie, error)
}

// HTTPClient executes one HTTP request against the remote API and classifies
// the outcome. The session rides on the cookie jar: whatever Set-Cookie the
// server issues is replayed on every subsequent request and snapshotted to
// the CookieStore, including on non-2xx responses since the server may
// refresh the session on any call.
type HTTPClient struct {
	baseURL *url.URL
	header  http.Header
	timeout time.Duration
	cookies CookieStore

	client *http.Client
}

// NewHTTPClient builds a client rooted at baseURL. cookies may be nil, in
// which case the jar is purely in-memory.
func NewHTTPClient(baseURL string, timeout time.Duration, cookies CookieStore) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("User-Agent", "wanclient/1.0")

	c := &HTTPClient{
		baseURL: u,
		header:  header,
		timeout: timeout,
		cookies: cookies,
		client:  &http.Client{Jar: jar},
	}
	c.restoreCookies()
	return c, nil
}

// Get issues a GET with params serialized as the query string.
func (c *HTTPClient) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.resolve(path)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &TransportError{Kind: KindUnknown, cause: err}
	}
	return c.do(ctx, req)
}

// PostForm issues a POST with a URL-encoded body. The remote API expects
// form encoding for every mutating endpoint; this is its contract, not ours.
func (c *HTTPClient) PostForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, c.resolve(path).String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TransportError{Kind: KindUnknown, cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, req)
}

func (c *HTTPClient) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req = req.WithContext(ctx)
	for k, vs := range c.header {
		req.Header[k] = vs
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer res.Body.Close()

	// The jar has already absorbed any Set-Cookie at this point; snapshot it
	// regardless of status code.
	c.snapshotCookies()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classify(err)
	}

	if res.StatusCode >= 300 {
		Logger.Log.Errorf("non-200 http code: %d for %s", res.StatusCode, req.URL.Path)
		return nil, &TransportError{Kind: KindHTTPStatus, Status: res.StatusCode}
	}
	return body, nil
}

// ClearCookies drops both the in-memory jar state and the persisted
// snapshot. Used on logout.
func (c *HTTPClient) ClearCookies() {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return
	}
	c.client.Jar = jar
	if c.cookies != nil {
		if err := c.cookies.SaveCookies(nil); err != nil {
			Logger.Log.Warnf("failed to clear persisted cookies: %v", err)
		}
	}
}

func (c *HTTPClient) resolve(path string) *url.URL {
	ref := &url.URL{Path: path}
	return c.baseURL.ResolveReference(ref)
}

func (c *HTTPClient) snapshotCookies() {
	if c.cookies == nil {
		return
	}
	if err := c.cookies.SaveCookies(c.client.Jar.Cookies(c.baseURL)); err != nil {
		Logger.Log.Warnf("failed to persist session cookies: %v", err)
	}
}

func (c *HTTPClient) restoreCookies() {
	if c.cookies == nil {
		return
	}
	saved, err := c.cookies.RestoreCookies()
	if err != nil {
		Logger.Log.Warnf("failed to restore session cookies: %v", err)
		return
	}
	if len(saved) > 0 {
		c.client.Jar.SetCookies(c.baseURL, saved)
	}
}
