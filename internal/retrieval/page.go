package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-gateway/internal/crawler"
	"github.com/JakeFAU/crawl-gateway/internal/extract"
	"github.com/JakeFAU/crawl-gateway/internal/metrics"
)

// Promoter decides whether a static response needs a headless render.
type Promoter interface {
	ShouldRender(resp crawler.FetchResponse) bool
}

// Page retrieves HTML pages. It fetches statically first and re-fetches
// through the renderer when the promoter flags a client-rendered shell.
type Page struct {
	fetcher  crawler.Fetcher
	renderer crawler.Fetcher
	promoter Promoter
	maxBytes int
	logger   *zap.Logger
	now      func() time.Time
}

var _ crawler.Retriever = (*Page)(nil)

// PageOption customizes a Page.
type PageOption func(*Page)

// WithRenderer enables headless promotion.
func WithRenderer(renderer crawler.Fetcher, promoter Promoter) PageOption {
	return func(p *Page) {
		p.renderer = renderer
		p.promoter = promoter
	}
}

// WithPageClock overrides the fetched_at clock.
func WithPageClock(now func() time.Time) PageOption {
	return func(p *Page) {
		p.now = now
	}
}

// NewPage builds the page strategy. maxBytes caps the static body size.
func NewPage(fetcher crawler.Fetcher, maxBytes int, logger *zap.Logger, opts ...PageOption) *Page {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Page{
		fetcher:  fetcher,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Retrieve fetches and extracts one page.
func (p *Page) Retrieve(ctx context.Context, opts crawler.FetchOptions) (crawler.Content, error) {
	req := fetchRequest(opts, p.maxBytes)
	resp, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		return crawler.Content{}, fmt.Errorf("fetch page: %w", err)
	}
	resp = p.maybeRender(ctx, req, resp)

	if err := checkResponse(resp); err != nil {
		return crawler.Content{}, err
	}
	metrics.ObserveContentBytes(resp.URL, len(resp.Body))

	page, err := extract.HTML(resp.Body, resp.URL)
	if err != nil {
		return crawler.Content{}, fmt.Errorf("extract page: %w", err)
	}

	return crawler.Content{
		URL:             resp.URL,
		Success:         true,
		StatusCode:      resp.StatusCode,
		Strategy:        crawler.StrategyPage,
		ContentType:     resp.Headers.Get("Content-Type"),
		Title:           page.Title,
		HTML:            string(resp.Body),
		Markdown:        page.Markdown,
		Links:           page.Links,
		Metadata:        page.Metadata,
		ResponseHeaders: flattenHeaders(resp.Headers),
		ContentHash:     extract.ContentHash(resp.Body),
		FetchedAt:       p.now().UTC(),
		DurationMs:      resp.Duration.Milliseconds(),
	}, nil
}

func (p *Page) maybeRender(ctx context.Context, req crawler.FetchRequest, resp crawler.FetchResponse) crawler.FetchResponse {
	if p.renderer == nil || p.promoter == nil || !p.promoter.ShouldRender(resp) {
		return resp
	}
	rendered, err := p.renderer.Fetch(ctx, req)
	if err != nil {
		p.logger.Warn("headless render failed, keeping static response", zap.String("url", req.URL), zap.Error(err))
		return resp
	}
	p.logger.Debug("headless render applied", zap.String("url", req.URL))
	rendered.UsedHeadless = true
	return rendered
}
