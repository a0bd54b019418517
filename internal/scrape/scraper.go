package scrape

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feedsmith/feedxml-mx/internal/progress"
)

// Target names one product page to enrich.
type Target struct {
	ProductID string
	URL       string
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Config controls the enrichment stage.
type Config struct {
	// MaxConcurrency bounds the page-fetch worker pool.
	MaxConcurrency int
	// OriginRPS caps the aggregate request rate to the origin, shared by
	// all workers and the renderer.
	OriginRPS float64
}

// Scraper runs the enrichment stage over a set of product pages. Per-host
// pacing is enforced in aggregate through a shared limiter, regardless of
// worker count.
type Scraper struct {
	fetcher  PageFetcher
	detector Detector
	renderer Renderer
	limiter  *rate.Limiter
	clock    Clock
	emitter  progress.Emitter
	logger   *zap.Logger
	cfg      Config
}

// New constructs a Scraper. The renderer may be nil, in which case pages
// that would need JS rendering are enriched from the plain snapshot only.
func New(
	fetcher PageFetcher,
	detector Detector,
	renderer Renderer,
	clock Clock,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Scraper {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.OriginRPS <= 0 {
		cfg.OriginRPS = 1
	}
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		fetcher:  fetcher,
		detector: detector,
		renderer: renderer,
		limiter:  rate.NewLimiter(rate.Limit(cfg.OriginRPS), 1),
		clock:    clock,
		emitter:  emitter,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run enriches every target and returns the results keyed by product ID.
// Individual page failures never abort the run; each target ends in exactly
// one terminal state.
func (s *Scraper) Run(ctx context.Context, runID uuid.UUID, targets []Target) map[string]Result {
	jobs := make(chan Target)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				results <- s.process(ctx, runID, target)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, target := range targets {
			select {
			case jobs <- target:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string]Result, len(targets))
	for res := range results {
		out[res.ProductID] = res
	}
	return out
}

func (s *Scraper) process(ctx context.Context, runID uuid.UUID, target Target) Result {
	started := s.clock.Now()
	s.emit(progress.Event{
		RunID:     progress.UUIDToBytes(runID),
		TS:        started,
		Stage:     progress.StagePageStart,
		ProductID: target.ProductID,
		URL:       target.URL,
	})

	page, err := s.fetchPage(ctx, target.URL)
	if err != nil {
		s.logger.Warn("product page fetch failed",
			zap.String("product_id", target.ProductID),
			zap.String("url", target.URL),
			zap.Error(err),
		)
		s.emitDone(runID, target, progress.StagePageError, 0, started, err)
		return Result{ProductID: target.ProductID, State: StateFailed, Err: err}
	}

	detail, isErrorPage, err := parsePage(page)
	if err != nil {
		s.emitDone(runID, target, progress.StagePageError, page.StatusCode, started, err)
		return Result{ProductID: target.ProductID, State: StateFailed, Err: err}
	}
	if isErrorPage {
		s.logger.Info("error page detected",
			zap.String("product_id", target.ProductID),
			zap.String("url", target.URL),
			zap.Int("status", page.StatusCode),
			zap.String("title", detail.PageTitle),
		)
		s.emitDone(runID, target, progress.StagePageDone, page.StatusCode, started, nil)
		return Result{ProductID: target.ProductID, State: StateErrorPage, Detail: &detail}
	}

	s.emitDone(runID, target, progress.StagePageDone, page.StatusCode, started, nil)
	return Result{ProductID: target.ProductID, State: StateFetched, Detail: &detail}
}

// fetchPage retrieves one page, promoting to a JS render when the plain
// snapshot looks incomplete. Render failures fall back to the plain page.
func (s *Scraper) fetchPage(ctx context.Context, url string) (Page, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Page{}, err
	}
	page, err := s.fetcher.FetchPage(ctx, url)
	if err != nil {
		return Page{}, err
	}

	if s.renderer == nil || s.detector == nil || !s.detector.NeedsJS(ctx, page) {
		return page, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return Page{}, err
	}
	rendered, err := s.renderer.Render(ctx, url)
	if err != nil {
		if !errors.Is(err, ErrRendererDisabled) {
			s.logger.Warn("js render failed, using plain snapshot",
				zap.String("url", url), zap.Error(err))
		}
		return page, nil
	}
	return rendered, nil
}

func (s *Scraper) emit(evt progress.Event) {
	s.emitter.Emit(evt)
}

func (s *Scraper) emitDone(
	runID uuid.UUID,
	target Target,
	stage progress.Stage,
	status int,
	started time.Time,
	err error,
) {
	evt := progress.Event{
		RunID:       progress.UUIDToBytes(runID),
		TS:          s.clock.Now(),
		Stage:       stage,
		ProductID:   target.ProductID,
		URL:         target.URL,
		StatusClass: progress.ClassifyStatus(status),
		Dur:         s.clock.Now().Sub(started),
	}
	if err != nil {
		evt.Note = err.Error()
	}
	s.emit(evt)
}
