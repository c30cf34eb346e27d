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

// Document retrieves PDF documents.
type Document struct {
	fetcher  crawler.Fetcher
	maxBytes int
	logger   *zap.Logger
	now      func() time.Time
}

var _ crawler.Retriever = (*Document)(nil)

// NewDocument builds the document strategy. maxBytes caps the download size.
func NewDocument(fetcher crawler.Fetcher, maxBytes int, logger *zap.Logger) *Document {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Document{
		fetcher:  fetcher,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// Retrieve downloads and parses one PDF.
func (d *Document) Retrieve(ctx context.Context, opts crawler.FetchOptions) (crawler.Content, error) {
	resp, err := d.fetcher.Fetch(ctx, fetchRequest(opts, d.maxBytes))
	if err != nil {
		return crawler.Content{}, fmt.Errorf("fetch document: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return crawler.Content{}, err
	}
	metrics.ObserveContentBytes(resp.URL, len(resp.Body))

	doc, err := extract.PDF(resp.Body)
	if err != nil {
		return crawler.Content{}, fmt.Errorf("extract document: %w", err)
	}
	d.logger.Debug("document parsed", zap.String("url", resp.URL), zap.Int("pages", doc.Pages))

	return crawler.Content{
		URL:             resp.URL,
		Success:         true,
		StatusCode:      resp.StatusCode,
		Strategy:        crawler.StrategyDocument,
		ContentType:     resp.Headers.Get("Content-Type"),
		Title:           doc.Title,
		Markdown:        doc.Markdown,
		Links:           crawler.Links{Internal: []string{}, External: []string{}},
		Metadata:        doc.Metadata,
		Pages:           doc.Pages,
		ResponseHeaders: flattenHeaders(resp.Headers),
		ContentHash:     extract.ContentHash(resp.Body),
		FetchedAt:       d.now().UTC(),
		DurationMs:      resp.Duration.Milliseconds(),
	}, nil
}
