package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/assert"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/session"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	report_client_do = "client.do"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	UserAgent string
	// Timeout bounds every request, including redirects and reading the body.
	Timeout time.Duration
	// RequestsPerSecond is shared by every request this client makes, 0 disables throttling.
	RequestsPerSecond float64
	// CacheSize and CacheTTL configure the cache for cacheable GET requests,
	// a CacheSize of 0 disables caching.
	CacheSize int
	CacheTTL  time.Duration
	// BypassCloudflare wraps the transport with browser-like TLS settings.
	BypassCloudflare bool
	// RedirectHosts restricts which hosts redirects may lead to, empty allows any.
	RedirectHosts []string
}

// Client is the single path through which the scraper talks to the course site.
// Cookies come from the session passed with each request, not from the client.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	cache   *expirable.LRU[string, Page]
	tel     telemetry.API
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("fetch", tel)

	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	httpClient := resty.New()
	// cookies are owned by session.Store
	httpClient.SetCookieJar(nil)
	if opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetHeader("accept-language", "de-DE,de;q=0.9,en;q=0.5")
	httpClient.SetTimeout(opts.Timeout)
	if len(opts.RedirectHosts) > 0 {
		httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(opts.RedirectHosts...))
	}

	c := &Client{
		http: httpClient,
		tel:  tel,
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return c.limiter.Wait(req.Context())
		})
	}
	if opts.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, Page](opts.CacheSize, nil, opts.CacheTTL)
	}

	telemetry.InstrumentResty(httpClient, "vhs/fetch/http", tel)

	return c
}

// Request describes one request against the course site.
type Request struct {
	Method string
	Url    *url.URL
	// Form is an already encoded application/x-www-form-urlencoded body.
	Form    string
	Referer string
	// Session supplies and receives cookies, it may be nil.
	Session *session.Store
	// Cacheable GET responses may be served from, and are stored in, the cache.
	Cacheable bool
}

// Page is a successful response.
type Page struct {
	// Url is the url the body was served from after redirects.
	Url        *url.URL
	StatusCode int
	Body       []byte
	FromCache  bool
}

func cacheKey(req Request) string {
	return req.Method + " " + req.Url.String()
}

// Do performs the request. Non-2xx responses fail with *HttpError, requests that
// run past the timeout fail with ErrTimeout.
func (c *Client) Do(ctx context.Context, req Request) (Page, error) {
	assert.NotNil(req.Url)
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	useCache := c.cache != nil && req.Cacheable && req.Method == http.MethodGet
	if useCache {
		cached, ok := c.cache.Get(cacheKey(req))
		if ok {
			cached.FromCache = true
			return cached, nil
		}
	}

	r := c.http.R().SetContext(ctx)
	if req.Session != nil {
		cookie := req.Session.AttachCookies(req.Url)
		if cookie != "" {
			r.SetHeader("cookie", cookie)
		}
	}
	if req.Referer != "" {
		r.SetHeader("referer", req.Referer)
	}
	if req.Form != "" {
		r.SetHeader("content-type", "application/x-www-form-urlencoded")
		r.SetBody(req.Form)
	}

	res, err := r.Execute(req.Method, req.Url.String())
	if err != nil {
		if isTimeout(ctx, err) {
			err = fmt.Errorf("%w: %s %s: %w", ErrTimeout, req.Method, req.Url, err)
		} else {
			err = fmt.Errorf("fetch: %s %s: %w", req.Method, req.Url, err)
		}
		c.tel.ReportBroken(report_client_do, err)
		return Page{}, err
	}

	finalUrl := req.Url
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		finalUrl = res.RawResponse.Request.URL
	}

	if req.Session != nil {
		setCookies := res.Header().Values("set-cookie")
		if len(setCookies) > 0 {
			req.Session.Ingest(finalUrl, setCookies)
		}
	}

	body := res.Body()
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		err := &HttpError{
			StatusCode: res.StatusCode(),
			Url:        req.Url.String(),
			Snippet:    snippet(bytes.TrimSpace(body)),
		}
		c.tel.ReportBroken(report_client_do, err)
		return Page{}, err
	}

	page := Page{
		Url:        finalUrl,
		StatusCode: res.StatusCode(),
		Body:       body,
	}
	if useCache {
		c.cache.Add(cacheKey(req), page)
	}
	return page, nil
}

// Get is a GET request that is never cached.
func (c *Client) Get(ctx context.Context, link *url.URL, sess *session.Store) (Page, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Url: link, Session: sess})
}

// PostForm posts an encoded form body.
func (c *Client) PostForm(ctx context.Context, link *url.URL, form string, sess *session.Store) (Page, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Url: link, Form: form, Session: sess})
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
