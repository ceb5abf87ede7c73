// Package analyzer is the built-in audit runner: it fetches a domain's
// homepage and derives the raw booking, trust, content, SEO and security
// signals that scoring aggregates. Deployments with a dedicated analysis
// engine can swap in their own runner; the scheduler only sees the contract.
package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stayscore/stayscore/internal/logging"
	"github.com/stayscore/stayscore/internal/model"
	"github.com/stayscore/stayscore/internal/runner"
	"github.com/stayscore/stayscore/internal/webclient"
)

// Config tunes the analyzer.
type Config struct {
	WebClient webclient.Config
}

// DefaultConfig uses the plain nethttp fetch backend.
func DefaultConfig() Config {
	return Config{WebClient: webclient.DefaultConfig()}
}

// Analyzer implements runner.AuditRunner over a webclient.
type Analyzer struct {
	wc     webclient.WebClient
	logger logging.Logger
}

// New builds an Analyzer with the configured fetch backend.
func New(cfg Config, logger logging.Logger) (*Analyzer, error) {
	wc, err := webclient.New(cfg.WebClient, logger)
	if err != nil {
		return nil, fmt.Errorf("create webclient: %w", err)
	}
	return NewWithClient(wc, logger), nil
}

// NewWithClient builds an Analyzer around an existing webclient (tests inject
// stub clients this way).
func NewWithClient(wc webclient.WebClient, logger logging.Logger) *Analyzer {
	return &Analyzer{
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "Analyzer"}),
	}
}

// Close releases the underlying webclient.
func (a *Analyzer) Close() error {
	return a.wc.Close()
}

// Run fetches and analyzes one domain. Fetch errors and non-2xx statuses are
// returned as run errors so the scheduler records a failed audit.
func (a *Analyzer) Run(ctx context.Context, url, domain string, onProgress runner.ProgressFunc) (*model.RawResult, error) {
	progress := func(percent int, step string) {
		if onProgress != nil {
			onProgress(percent, step)
		}
	}

	progress(5, "Fetching homepage")
	resp, err := webclient.Get(ctx, a.wc, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	progress(25, "Parsing document")
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	raw := &model.RawResult{
		URL:       url,
		Domain:    domain,
		FetchedAt: time.Now().UTC(),
	}

	progress(40, "Analyzing booking flow")
	raw.BookingFlow = analyzeBookingFlow(doc)

	progress(60, "Checking trust signals")
	https := strings.HasPrefix(strings.ToLower(firstNonEmpty(resp.FinalURL, url)), "https://")
	raw.TrustSignals = analyzeTrust(doc, https)

	progress(75, "Evaluating content and SEO")
	raw.ContentScore = intPtr(contentScore(doc))
	raw.SEOScore = intPtr(seoScore(doc))

	progress(90, "Running security checks")
	raw.SecurityScore = intPtr(securityScore(doc, https))

	raw.Recommendations = buildRecommendations(raw)
	progress(100, "Analysis complete")

	a.logger.Debug("analysis finished",
		logging.Field{Key: "domain", Value: domain},
		logging.Field{Key: "status", Value: resp.StatusCode})

	return raw, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func intPtr(v int) *int { return &v }
