package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedsmith/feedxml-mx/internal/clock/system"
	"github.com/feedsmith/feedxml-mx/internal/feed"
	hashsha256 "github.com/feedsmith/feedxml-mx/internal/hash/sha256"
	iduuid "github.com/feedsmith/feedxml-mx/internal/id/uuid"
	"github.com/feedsmith/feedxml-mx/internal/scrape"
)

const upstreamFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:g="http://base.google.com/ns/1.0">
  <channel>
    <title>Tienda Accuchek Mexico</title>
    <item>
      <g:id>A</g:id>
      <g:title>50 Tiras Reactivas Accu-Chek Instant</g:title>
      <g:link>https://tienda.accu-chek.com.mx/Main/Producto/1/50-Tiras-Reactivas</g:link>
      <g:image_link>https://cdn.gdar.com.mx/img/1.jpg</g:image_link>
      <g:availability>in stock</g:availability>
      <g:condition>new</g:condition>
      <g:price>380.50 MXN</g:price>
      <g:brand>Accu-Chek</g:brand>
      <g:gtin>7501</g:gtin>
    </item>
    <item>
      <g:id>B</g:id>
      <g:title>Medidor Accu-Chek Guide</g:title>
      <g:link>https://tienda.accu-chek.com.mx/Main/Producto/2/Medidor-Guide</g:link>
      <g:image_link>https://cdn.gdar.com.mx/img/2.jpg</g:image_link>
      <g:availability>in stock</g:availability>
      <g:condition>new</g:condition>
      <g:price>1250.00 MXN</g:price>
      <g:brand>Accu-Chek</g:brand>
      <g:gtin>7502</g:gtin>
    </item>
    <item>
      <g:id>C</g:id>
      <g:title>Lancetas Accu-Chek Softclix</g:title>
      <g:link>https://tienda.accu-chek.com.mx/Main/Producto/3/Lancetas-Softclix</g:link>
      <g:image_link>https://cdn.gdar.com.mx/img/3.jpg</g:image_link>
      <g:availability>in stock</g:availability>
      <g:condition>new</g:condition>
      <g:price>99.90 MXN</g:price>
      <g:brand>Accu-Chek</g:brand>
      <g:gtin>7503</g:gtin>
    </item>
  </channel>
</rss>`

type stubEnricher struct {
	results map[string]scrape.Result
	targets []scrape.Target
}

func (e *stubEnricher) Run(_ context.Context, _ uuid.UUID, targets []scrape.Target) map[string]scrape.Result {
	e.targets = targets
	return e.results
}

func newTestPipeline(t *testing.T, feedURL string, enricher Enricher, scraping bool) (*Pipeline, string) {
	t.Helper()
	outDir := filepath.Join(t.TempDir(), "output")
	writer, err := NewWriter(outDir, zap.NewNop())
	require.NoError(t, err)

	fetcher := feed.NewCollyFetcher("feedxml-test/1.0", 5*time.Second, zap.NewNop())
	p := New(fetcher, enricher, writer, system.New(), hashsha256.New(),
		iduuid.NewUUIDGenerator(), nil,
		Config{FeedURL: feedURL, ScrapingEnabled: scraping}, zap.NewNop())
	return p, outDir
}

func countItems(t *testing.T, doc []byte) int {
	t.Helper()
	var parsed struct {
		Channel struct {
			Items []struct{} `xml:"item"`
		} `xml:"channel"`
	}
	require.NoError(t, xml.Unmarshal(doc, &parsed))
	return len(parsed.Channel.Items)
}

func TestPipelineEndToEndWithErrorPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(upstreamFeed))
	}))
	defer srv.Close()

	enricher := &stubEnricher{results: map[string]scrape.Result{
		"A": {ProductID: "A", State: scrape.StateFetched, Detail: &scrape.ProductDetail{
			SKU:             "A",
			SalePrice:       380.50,
			LongDescription: "Tiras reactivas con tecnología avanzada de biosensores integrada",
		}},
		"B": {ProductID: "B", State: scrape.StateErrorPage},
		"C": {ProductID: "C", State: scrape.StateFailed, Err: fmt.Errorf("connection refused")},
	}}

	p, outDir := newTestPipeline(t, srv.URL, enricher, true)
	meta, err := p.Run(context.Background())
	require.NoError(t, err)

	// Targets carry canonical URLs, not the raw slugged ones.
	require.Len(t, enricher.targets, 3)
	require.Equal(t, "https://tienda.accu-chek.com.mx/Main/Producto/1/", enricher.targets[0].URL)

	require.Equal(t, 3, meta.TotalFetched)
	require.Equal(t, 1, meta.ExcludedErrorPages)
	require.Equal(t, 1, meta.ScrapeFailures)
	require.Equal(t, 2, meta.GoogleItems)
	require.Equal(t, 2, meta.FacebookItems)
	require.True(t, meta.ScrapingEnabled)

	googleDoc, err := os.ReadFile(filepath.Join(outDir, FileGoogleFeed))
	require.NoError(t, err)
	fbDoc, err := os.ReadFile(filepath.Join(outDir, FileFacebookFeed))
	require.NoError(t, err)

	require.Equal(t, meta.GoogleItems, countItems(t, googleDoc))
	require.Equal(t, meta.FacebookItems, countItems(t, fbDoc))
	require.NotContains(t, string(googleDoc), "<g:id>B</g:id>")
	require.NotContains(t, string(fbDoc), "<id>B</id>")

	// The failed product keeps its basic description and stays in the feeds.
	require.Contains(t, string(googleDoc), "<g:id>C</g:id>")
	require.Contains(t, string(fbDoc), "<description>Lancetas Accu-Chek Softclix.</description>")

	// Digests pin the exact bytes on disk.
	sum := sha256.Sum256(googleDoc)
	require.Equal(t, hex.EncodeToString(sum[:]), meta.Digests[FileGoogleFeed])

	// Metadata on disk matches the returned summary.
	metaDoc, err := os.ReadFile(filepath.Join(outDir, FileMetadata))
	require.NoError(t, err)
	var onDisk RunMetadata
	require.NoError(t, json.Unmarshal(metaDoc, &onDisk))
	require.Equal(t, meta.ExcludedErrorPages, onDisk.ExcludedErrorPages)
	require.Equal(t, meta.RunID, onDisk.RunID)

	// Scraping ran, so the detail dump is present.
	detailDoc, err := os.ReadFile(filepath.Join(outDir, FileProductDetails))
	require.NoError(t, err)
	var details []map[string]any
	require.NoError(t, json.Unmarshal(detailDoc, &details))
	require.Len(t, details, 3)
}

func TestPipelineScrapingDisabled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(upstreamFeed))
	}))
	defer srv.Close()

	enricher := &stubEnricher{}
	p, outDir := newTestPipeline(t, srv.URL, enricher, false)
	meta, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Nil(t, enricher.targets, "enricher must not run when scraping is disabled")
	require.False(t, meta.ScrapingEnabled)
	require.Equal(t, 3, meta.GoogleItems)
	require.Equal(t, 3, meta.FacebookItems)

	_, err = os.Stat(filepath.Join(outDir, FileProductDetails))
	require.True(t, os.IsNotExist(err), "no detail dump without scraping")
}

func TestPipelineFatalFetchWritesNothing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, outDir := newTestPipeline(t, srv.URL, nil, false)
	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, feed.ErrFetch)

	entries, rerr := os.ReadDir(outDir)
	require.NoError(t, rerr)
	require.Empty(t, entries, "fatal errors must not leave output files")
}

func TestPipelineFatalParseWritesNothing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<rss><channel></channel></rss>"))
	}))
	defer srv.Close()

	p, outDir := newTestPipeline(t, srv.URL, nil, false)
	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, feed.ErrParse)

	entries, rerr := os.ReadDir(outDir)
	require.NoError(t, rerr)
	require.Empty(t, entries)
}
