package pipeline

import "time"

// RunMetadata is the run summary written alongside the feeds. Created once
// per run, written last, never mutated afterward.
type RunMetadata struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	ScrapingEnabled bool      `json:"scraping_enabled"`

	// TotalFetched counts records parsed from the upstream feed.
	TotalFetched int `json:"total_fetched"`
	// ScrapeFailures counts products whose page fetch failed; they keep
	// their basic description and stay in the feeds.
	ScrapeFailures int `json:"scrape_failures"`
	// ExcludedErrorPages counts products dropped from both feeds because
	// their page was a 404 or placeholder.
	ExcludedErrorPages int `json:"excluded_error_pages"`

	GoogleItems   int `json:"google_items"`
	FacebookItems int `json:"facebook_items"`
	// FacebookExcluded counts records dropped from the Facebook feed for
	// missing a required field, keyed by product ID.
	FacebookExcluded map[string][]string `json:"facebook_excluded_missing_fields,omitempty"`

	// Digests maps each written feed file to its SHA-256 hex digest.
	Digests map[string]string `json:"digests,omitempty"`
}
