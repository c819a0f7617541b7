package fetcher

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RatePerHost is the fallback requests-per-second for hosts without a
	// dedicated limiter.
	RatePerHost  float64
	RateLimiters map[string]*rate.Limiter
	// Transport overrides the base round tripper (tests).
	Transport http.RoundTripper
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 1.2
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

// OnRateLimit halves the rate after a 429 response.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(newRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher using net/http with per-host rate limiting.
// Requests are issued once; a failed request is reported, not repeated.
type HTTPFetcher struct {
	client           *http.Client
	opts             HTTPOptions
	mu               sync.Mutex
	limiters         map[string]*rate.Limiter
	adaptiveLimiters map[string]*AdaptiveLimiter
}

// DefaultAdaptiveLimiters returns adaptive rate limiters for the hosts behind
// the built-in dataset catalog.
func DefaultAdaptiveLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		"services.arcgis.com":     NewAdaptiveLimiter(10, 10),
		"services9.arcgis.com":    NewAdaptiveLimiter(10, 10),
		"tigerweb.geo.census.gov": NewAdaptiveLimiter(5, 5),
		"hydro.nationalmap.gov":   NewAdaptiveLimiter(5, 5),
	}
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "feature-query/1.0"
	}
	if opts.RatePerHost <= 0 {
		opts.RatePerHost = 20
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}

	base := opts.Transport
	if base == nil {
		base = newTransport()
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		opts:             opts,
		limiters:         limiters,
		adaptiveLimiters: DefaultAdaptiveLimiters(),
	}
}

// newTransport returns the pooled transport used when HTTPOptions.Transport is nil.
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
}

// adaptiveLimiterFor returns the adaptive limiter for the given host, if any.
func (f *HTTPFetcher) adaptiveLimiterFor(host string) *AdaptiveLimiter {
	return f.adaptiveLimiters[host]
}

// limiterFor returns the fixed limiter for host, creating the fallback
// limiter on first use so that it is shared across requests.
func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	burst := int(f.opts.RatePerHost)
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(f.opts.RatePerHost), burst)
	f.limiters[host] = lim
	return lim
}

func (f *HTTPFetcher) wait(ctx context.Context, host string) (*AdaptiveLimiter, error) {
	if adaptive := f.adaptiveLimiterFor(host); adaptive != nil {
		if err := adaptive.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
		return adaptive, nil
	}
	if err := f.limiterFor(host).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}
	return nil, nil
}

// Download fetches the URL and returns the response body, transcoded to
// UTF-8 when the response declares another charset.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	adaptive, err := f.wait(ctx, u.Host)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("http request failed",
			zap.String("host", u.Host),
			zap.String("path", u.Path),
			zap.Error(err),
		)
		return nil, eris.Wrap(err, "download")
	}

	if resp.StatusCode == http.StatusTooManyRequests && adaptive != nil {
		adaptive.OnRateLimit()
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("download: unexpected status %d from %s%s", resp.StatusCode, u.Host, u.Path)
	}

	if adaptive != nil {
		adaptive.OnSuccess()
	}

	body, err := decodeCharset(resp)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return body, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// decodeCharset wraps the body in a decoder when Content-Type names a charset
// other than UTF-8.
func decodeCharset(resp *http.Response) (io.ReadCloser, error) {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return resp.Body, nil
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return resp.Body, nil //nolint:nilerr // malformed header, treat body as UTF-8
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return resp.Body, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "download: unsupported charset %q", charset)
	}
	return readCloser{Reader: enc.NewDecoder().Reader(resp.Body), Closer: resp.Body}, nil
}
