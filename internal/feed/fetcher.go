package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// ErrFetch indicates the upstream feed could not be retrieved. It is fatal
// for the run; no output files are written.
var ErrFetch = errors.New("feed fetch failed")

// Fetcher retrieves the raw upstream feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// CollyFetcher implements Fetcher using a Colly collector.
type CollyFetcher struct {
	base   *colly.Collector
	logger *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based feed fetcher.
func NewCollyFetcher(userAgent string, timeout time.Duration, logger *zap.Logger) *CollyFetcher {
	base := colly.NewCollector(colly.UserAgent(userAgent))
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(timeout)
	return &CollyFetcher{base: base, logger: logger}
}

// Fetch downloads the feed body. A non-2xx response is a fetch failure.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	collector := f.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			send(fetchResult{err: fmt.Errorf("%w: status %d", ErrFetch, r.StatusCode)})
			return
		}
		send(fetchResult{body: append([]byte{}, r.Body...)})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{err: fmt.Errorf("%w: status %d: %v", ErrFetch, status, err)})
	})

	if err := collector.Visit(url); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if res.err != nil {
			f.logger.Warn("feed fetch failed", zap.String("url", url), zap.Error(res.err))
			return nil, res.err
		}
		return res.body, nil
	default:
		return nil, fmt.Errorf("%w: collector produced no result", ErrFetch)
	}
}

type fetchResult struct {
	body []byte
	err  error
}
