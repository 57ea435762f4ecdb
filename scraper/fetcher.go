package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-price-report/config"
	"github.com/aluiziolira/go-price-report/models"
)

// Fetcher issues the single catalogue GET through a colly collector.
type Fetcher struct {
	cfg       *config.Config
	transport http.RoundTripper
	Metrics   *Metrics
}

// NewFetcher builds a fetcher configured from cfg. metrics may be nil.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}

	return &Fetcher{
		cfg: cfg,
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Metrics: metrics,
	}, nil
}

// WithTransport replaces the HTTP transport used for requests.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.transport = rt
}

// Fetch performs one GET and returns the body. Transport failures and
// responses outside 2xx come back as network errors; nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, f.fail(rawURL, err, 0)
	}

	c := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
		colly.MaxDepth(1),
		colly.ParseHTTPErrorResponse(),
	)
	c.MaxBodySize = 0 // colly truncates at 10 MiB otherwise
	c.SetRequestTimeout(f.cfg.Timeout)
	c.WithTransport(contextTransport{ctx: ctx, base: f.transport})

	var (
		body      []byte
		status    int
		onErr     error
		startedAt time.Time
	)
	c.OnRequest(func(r *colly.Request) {
		startedAt = time.Now()
		slog.Debug("fetching catalogue page", slog.String("url", r.URL.String()))
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		onErr = err
	})

	err := c.Visit(rawURL)
	if !startedAt.IsZero() {
		f.Metrics.ObserveDuration(time.Since(startedAt))
	}
	if err == nil {
		err = onErr
	}
	if err != nil || status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, f.fail(rawURL, err, status)
	}

	f.Metrics.IncRequest("success")
	slog.Debug("catalogue page fetched",
		slog.String("url", rawURL),
		slog.Int("status", status),
		slog.Int("bytes", len(body)),
	)
	return body, nil
}

func (f *Fetcher) fail(rawURL string, err error, status int) error {
	classified := classifyError(err, status)
	if classified == nil {
		classified = fmt.Errorf("no response")
	}
	category := errorTypeLabel(classified)

	f.Metrics.IncRequest("error")
	f.Metrics.IncError(category)
	slog.Debug("request error",
		slog.String("url", rawURL),
		slog.Int("status", status),
		slog.String("category", category),
		slog.Any("error", err),
	)
	return models.NewNetworkError("fetch "+rawURL, classified)
}

// contextTransport ties each request to the caller's context while keeping
// the deadline the http.Client already put on it.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ctx.Done() == nil {
		return t.base.RoundTrip(req)
	}

	ctx, cancel := context.WithCancelCause(req.Context())
	stop := context.AfterFunc(t.ctx, func() {
		cancel(context.Cause(t.ctx))
	})
	release := func() {
		stop()
		cancel(nil)
	}

	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		release()
		return nil, err
	}
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}
