// Package pipeline orchestrates a full feed run: fetch, parse, optional
// enrichment, emission, and atomic output publishing.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedsmith/feedxml-mx/internal/emit"
	"github.com/feedsmith/feedxml-mx/internal/feed"
	"github.com/feedsmith/feedxml-mx/internal/progress"
	"github.com/feedsmith/feedxml-mx/internal/scrape"
	"github.com/feedsmith/feedxml-mx/internal/transform"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Hasher produces content digests for the metadata record.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}

// Enricher runs the page-scraping stage. *scrape.Scraper satisfies it.
type Enricher interface {
	Run(ctx context.Context, runID uuid.UUID, targets []scrape.Target) map[string]scrape.Result
}

// Config controls a pipeline run.
type Config struct {
	FeedURL         string
	ScrapingEnabled bool
}

// Pipeline wires the run stages together.
type Pipeline struct {
	fetcher  feed.Fetcher
	enricher Enricher
	writer   *Writer
	clock    Clock
	hasher   Hasher
	ids      IDGenerator
	emitter  progress.Emitter
	logger   *zap.Logger
	cfg      Config
}

// New constructs a Pipeline. The enricher may be nil; with scraping disabled
// it is never invoked.
func New(
	fetcher feed.Fetcher,
	enricher Enricher,
	writer *Writer,
	clock Clock,
	hasher Hasher,
	ids IDGenerator,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:  fetcher,
		enricher: enricher,
		writer:   writer,
		clock:    clock,
		hasher:   hasher,
		ids:      ids,
		emitter:  emitter,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run executes one full feed run. Fetch and parse failures are fatal and
// abort before any output file is written; enrichment failures are absorbed
// into the metadata summary.
func (p *Pipeline) Run(ctx context.Context) (RunMetadata, error) {
	runID, err := p.ids.NewRawID()
	if err != nil {
		return RunMetadata{}, fmt.Errorf("mint run id: %w", err)
	}
	started := p.clock.Now()
	meta := RunMetadata{
		RunID:           runID.String(),
		StartedAt:       started,
		ScrapingEnabled: p.cfg.ScrapingEnabled && p.enricher != nil,
	}

	p.emitStage(runID, progress.StageRunStart, "")

	records, err := p.loadFeed(ctx)
	if err != nil {
		p.emitRunEnd(runID, progress.StageRunError, started, err)
		return RunMetadata{}, err
	}
	meta.TotalFetched = len(records)
	p.emitStage(runID, progress.StageFeedDone, fmt.Sprintf("%d records", len(records)))

	var details map[string]scrape.Result
	if meta.ScrapingEnabled {
		details = p.enrich(ctx, runID, records, &meta)
	}

	files, err := p.emitFeeds(records, details, &meta)
	if err != nil {
		p.emitRunEnd(runID, progress.StageRunError, started, err)
		return RunMetadata{}, err
	}
	p.emitStage(runID, progress.StageEmitDone, "")

	meta.FinishedAt = p.clock.Now()
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		p.emitRunEnd(runID, progress.StageRunError, started, err)
		return RunMetadata{}, fmt.Errorf("marshal metadata: %w", err)
	}
	files = append(files, File{Name: FileMetadata, Data: metaJSON})

	if err := p.writer.WriteAll(files); err != nil {
		p.emitRunEnd(runID, progress.StageRunError, started, err)
		return RunMetadata{}, err
	}

	p.logger.Info("run complete",
		zap.String("run_id", meta.RunID),
		zap.Int("total_fetched", meta.TotalFetched),
		zap.Int("google_items", meta.GoogleItems),
		zap.Int("facebook_items", meta.FacebookItems),
		zap.Int("excluded_error_pages", meta.ExcludedErrorPages),
		zap.Int("scrape_failures", meta.ScrapeFailures),
	)
	p.emitRunEnd(runID, progress.StageRunDone, started, nil)
	return meta, nil
}

// loadFeed fetches and parses the upstream document, then derives the
// canonical URL and basic description for every record. Both platforms share
// the basic description until enrichment data exists.
func (p *Pipeline) loadFeed(ctx context.Context) ([]feed.ProductRecord, error) {
	body, err := p.fetcher.Fetch(ctx, p.cfg.FeedURL)
	if err != nil {
		return nil, err
	}
	records, err := feed.Parse(body)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].CanonicalURL = transform.CanonicalizeURL(records[i].RawURL)
		records[i].Description = transform.BasicDescription(records[i].Title)
	}
	return records, nil
}

// enrich runs the scraping stage and merges its results into the records.
func (p *Pipeline) enrich(
	ctx context.Context,
	runID uuid.UUID,
	records []feed.ProductRecord,
	meta *RunMetadata,
) map[string]scrape.Result {
	targets := make([]scrape.Target, 0, len(records))
	for _, record := range records {
		targets = append(targets, scrape.Target{ProductID: record.ID, URL: record.CanonicalURL})
	}

	results := p.enricher.Run(ctx, runID, targets)
	for i := range records {
		res, ok := results[records[i].ID]
		if !ok {
			continue
		}
		switch res.State {
		case scrape.StateFailed:
			meta.ScrapeFailures++
		case scrape.StateErrorPage:
			records[i].IsErrorPage = true
			meta.ExcludedErrorPages++
		case scrape.StateFetched:
			mergeDetail(&records[i], res.Detail)
		}
	}
	return results
}

// mergeDetail folds a scraped detail into the record before emission.
func mergeDetail(record *feed.ProductRecord, detail *scrape.ProductDetail) {
	if detail == nil {
		return
	}
	record.ExtraImages = detail.Images
	record.Description = transform.EnrichedDescription(record.Title, transform.Detail{
		LongDescription: detail.LongDescription,
		PackSize:        detail.PackSize,
		MeterModel:      detail.MeterModel,
	})
	record.Enrichment = &feed.Enrichment{
		SKU:             detail.SKU,
		SalePrice:       detail.SalePrice,
		OriginalPrice:   detail.OriginalPrice,
		DiscountPercent: detail.DiscountPercent,
		PromotionText:   detail.PromotionText,
		StockQuantity:   detail.StockQuantity,
	}
}

// emitFeeds serializes both platform feeds and, when scraping ran, the
// product detail dump.
func (p *Pipeline) emitFeeds(
	records []feed.ProductRecord,
	details map[string]scrape.Result,
	meta *RunMetadata,
) ([]File, error) {
	googleDoc, googleCount, err := emit.Google(records, p.clock.Now())
	if err != nil {
		return nil, err
	}
	meta.GoogleItems = googleCount

	fbRes, err := emit.Facebook(records)
	if err != nil {
		return nil, err
	}
	meta.FacebookItems = fbRes.Included
	if len(fbRes.ExcludedMissingFields) > 0 {
		meta.FacebookExcluded = fbRes.ExcludedMissingFields
	}

	files := []File{
		{Name: FileGoogleFeed, Data: googleDoc},
		{Name: FileFacebookFeed, Data: fbRes.Document},
	}
	if details != nil {
		detailJSON, derr := marshalDetails(details)
		if derr != nil {
			return nil, derr
		}
		files = append(files, File{Name: FileProductDetails, Data: detailJSON})
	}

	meta.Digests = make(map[string]string, len(files))
	for _, f := range files {
		digest, herr := p.hasher.Hash(f.Data)
		if herr != nil {
			return nil, fmt.Errorf("digest %s: %w", f.Name, herr)
		}
		meta.Digests[f.Name] = digest
	}
	return files, nil
}

// detailRecord is the JSON shape of one product in product_details.json.
type detailRecord struct {
	ProductID       string   `json:"product_id"`
	State           string   `json:"state"`
	SKU             string   `json:"sku,omitempty"`
	SalePrice       float64  `json:"sale_price,omitempty"`
	OriginalPrice   float64  `json:"original_price,omitempty"`
	DiscountPercent float64  `json:"discount_percent,omitempty"`
	PromotionText   string   `json:"promotion_text,omitempty"`
	StockQuantity   *int     `json:"stock_quantity,omitempty"`
	PackSize        int      `json:"pack_size,omitempty"`
	MeterModel      string   `json:"meter_model,omitempty"`
	Images          []string `json:"images,omitempty"`
	Error           string   `json:"error,omitempty"`
}

func marshalDetails(details map[string]scrape.Result) ([]byte, error) {
	out := make([]detailRecord, 0, len(details))
	for id, res := range details {
		rec := detailRecord{ProductID: id, State: string(res.State)}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		if d := res.Detail; d != nil {
			rec.SKU = d.SKU
			rec.SalePrice = d.SalePrice
			rec.OriginalPrice = d.OriginalPrice
			rec.DiscountPercent = d.DiscountPercent
			rec.PromotionText = d.PromotionText
			rec.StockQuantity = d.StockQuantity
			rec.PackSize = d.PackSize
			rec.MeterModel = d.MeterModel
			rec.Images = d.Images
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal product details: %w", err)
	}
	return data, nil
}

func (p *Pipeline) emitStage(runID uuid.UUID, stage progress.Stage, note string) {
	p.emitter.Emit(progress.Event{
		RunID: progress.UUIDToBytes(runID),
		TS:    p.clock.Now(),
		Stage: stage,
		Note:  note,
	})
}

func (p *Pipeline) emitRunEnd(runID uuid.UUID, stage progress.Stage, started time.Time, err error) {
	evt := progress.Event{
		RunID: progress.UUIDToBytes(runID),
		TS:    p.clock.Now(),
		Stage: stage,
		Dur:   p.clock.Now().Sub(started),
	}
	if err != nil {
		evt.Note = err.Error()
	}
	p.emitter.Emit(evt)
}
