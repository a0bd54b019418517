package scrape

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

// CollyPageFetcher implements PageFetcher using a Colly collector. Unlike
// the feed fetcher, a non-2xx response here is not an error: the status code
// is part of the snapshot so the caller can classify error pages.
type CollyPageFetcher struct {
	base   *colly.Collector
	logger *zap.Logger
}

// NewCollyPageFetcher constructs a configured page fetcher.
func NewCollyPageFetcher(userAgent string, timeout time.Duration, logger *zap.Logger) *CollyPageFetcher {
	base := colly.NewCollector(colly.UserAgent(userAgent))
	// Error pages still carry a parseable body and title.
	base.ParseHTTPErrorResponse = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(timeout)
	return &CollyPageFetcher{base: base, logger: logger}
}

// FetchPage downloads one product page snapshot.
func (f *CollyPageFetcher) FetchPage(ctx context.Context, rawURL string) (Page, error) {
	collector := f.base.Clone()
	resultCh := make(chan pageResult, 1)
	var once sync.Once
	send := func(res pageResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(pageResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
		}})
	})

	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(pageResult{err: fmt.Errorf("page fetch %s: %w", rawURL, err)})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, fmt.Errorf("page fetch %s: %w", rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		if res.err != nil {
			f.logger.Debug("page fetch failed", zap.String("url", rawURL), zap.Error(res.err))
			return Page{}, res.err
		}
		return res.page, nil
	default:
		return Page{}, fmt.Errorf("page fetch %s: collector produced no result", rawURL)
	}
}

type pageResult struct {
	page Page
	err  error
}
