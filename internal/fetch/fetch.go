package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/filingharvest/internal/cache"
)

// DefaultMaxBodyBytes caps a single response body.
const DefaultMaxBodyBytes = 64 << 20

// ErrBodyTooLarge is returned when a response exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// Client issues identified GET requests. Each URL is attempted once per
// client: the outcome, success or failure, is remembered for the client's
// lifetime and concurrent requests for the same URL share one round trip.
// URL fragments are never sent and do not distinguish requests.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request. Zero leaves it to HTTPClient.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for conditional revalidation.
	Cache *cache.HTTPCache
	// If true, skip conditional headers but still save the latest response.
	BypassCache bool

	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests. Zero means unlimited.
	MaxConcurrent int
	// Limiter paces outgoing requests. Nil disables pacing.
	Limiter *rate.Limiter
	// MaxBodyBytes caps each body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	limiter     chan struct{}
	limiterOnce sync.Once

	group  singleflight.Group
	memoMu sync.Mutex
	memo   map[string]response
}

type response struct {
	body        []byte
	contentType string
	err         error
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get returns the body and content type for rawURL. The returned slice is
// shared with other callers of the same URL and must not be modified.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	key, err := requestURL(rawURL)
	if err != nil {
		return nil, "", err
	}
	if r, ok := c.recall(key); ok {
		return r.body, r.contentType, r.err
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		if r, ok := c.recall(key); ok {
			return r, nil
		}
		body, ct, err := c.fetch(ctx, key)
		r := response{body: body, contentType: ct, err: err}
		c.remember(key, r)
		return r, nil
	})
	r := v.(response)
	return r.body, r.contentType, r.err
}

// Bytes fetches rawURL and reports whether a usable body was obtained.
// Failures are logged and collapse to ok=false.
func (c *Client) Bytes(ctx context.Context, rawURL string) ([]byte, bool) {
	body, _, err := c.Get(ctx, rawURL)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("url", rawURL).Msg("fetch failed")
		return nil, false
	}
	return body, true
}

// Text fetches rawURL and returns its body decoded to UTF-8.
// Failures are logged and collapse to ok=false.
func (c *Client) Text(ctx context.Context, rawURL string) (string, bool) {
	body, ct, err := c.Get(ctx, rawURL)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("url", rawURL).Msg("fetch failed")
		return "", false
	}
	text, err := DecodeText(body, ct)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("url", rawURL).Msg("decode failed")
		return "", false
	}
	return text, true
}

func (c *Client) recall(key string) (response, bool) {
	c.memoMu.Lock()
	defer c.memoMu.Unlock()
	r, ok := c.memo[key]
	return r, ok
}

func (c *Client) remember(key string, r response) {
	c.memoMu.Lock()
	defer c.memoMu.Unlock()
	if c.memo == nil {
		c.memo = make(map[string]response)
	}
	c.memo[key] = r
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, "", fmt.Errorf("rate limit: %w", err)
		}
	}
	body, ct, newEtag, newLastMod, status, err := c.tryOnce(ctx, rawURL, etag, lastMod)
	if err != nil {
		return nil, "", err
	}
	if status == http.StatusNotModified && c.Cache != nil {
		cached, err := c.Cache.LoadBody(ctx, rawURL)
		if err != nil {
			return nil, "", fmt.Errorf("load cached body: %w", err)
		}
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && ct == "" {
			ct = meta.ContentType
		}
		return cached, ct, nil
	}
	if c.Cache != nil && status == http.StatusOK {
		if err := c.Cache.Save(ctx, rawURL, ct, newEtag, newLastMod, body); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("url", rawURL).Msg("cache save failed")
		}
	}
	return body, ct, nil
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, etag string, lastMod string) ([]byte, string, string, string, int, error) {
	// Concurrency gate per client instance
	if err := c.acquire(ctx); err != nil {
		return nil, "", "", "", 0, err
	}
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", "", 0, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	httpClient := c.getHTTPClient()
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", "", "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && c.Cache != nil {
		return nil, resp.Header.Get("Content-Type"), resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", "", "", resp.StatusCode, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	// Any 2xx body is kept whatever its declared type; Text sniffs the charset.
	contentType := resp.Header.Get("Content-Type")
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", "", "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > limit {
		return nil, "", "", "", resp.StatusCode, ErrBodyTooLarge
	}
	return b, contentType, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), resp.StatusCode, nil
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

// requestURL validates rawURL and drops its fragment.
func requestURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) || u.Host == "" {
		return "", fmt.Errorf("unsupported URL: %q", rawURL)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
