// Package detector classifies crawl targets as documents (PDF) or pages (HTML).
package detector

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-gateway/internal/crawler"
	"github.com/JakeFAU/crawl-gateway/internal/metrics"
)

const (
	defaultProbeTimeout = 10 * time.Second
	pdfSuffix           = ".pdf"
	pdfMediaType        = "application/pdf"
)

// Prober issues a metadata-only request for a URL.
type Prober interface {
	Head(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error)
}

// Detector decides whether a URL points at a PDF document.
type Detector struct {
	prober  Prober
	timeout time.Duration
	logger  *zap.Logger
}

var _ crawler.Classifier = (*Detector)(nil)

// New builds a Detector. A non-positive timeout falls back to 10s.
func New(prober Prober, timeout time.Duration, logger *zap.Logger) *Detector {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		prober:  prober,
		timeout: timeout,
		logger:  logger,
	}
}

// Classify reports whether rawURL is a PDF. It never fails: probe errors,
// timeouts and cancellation all classify as a page.
func (d *Detector) Classify(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		d.logger.Debug("unparseable url", zap.String("url", rawURL), zap.Error(err))
		metrics.ObserveProbe("parse_error")
		return false
	}
	if HasPDFSuffix(u) {
		metrics.ObserveProbe("suffix")
		return true
	}
	return d.probe(ctx, rawURL)
}

// HasPDFSuffix reports whether the URL path ends in .pdf, ignoring case.
func HasPDFSuffix(u *url.URL) bool {
	return strings.HasSuffix(strings.ToLower(u.Path), pdfSuffix)
}

func (d *Detector) probe(ctx context.Context, rawURL string) bool {
	if d.prober == nil {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.prober.Head(probeCtx, crawler.FetchRequest{URL: rawURL})
	if err != nil {
		d.logger.Debug("content probe failed", zap.String("url", rawURL), zap.Error(err))
		metrics.ObserveProbe("probe_error")
		return false
	}
	contentType := strings.ToLower(resp.Headers.Get("Content-Type"))
	if strings.Contains(contentType, pdfMediaType) {
		metrics.ObserveProbe("probe_pdf")
		return true
	}
	d.logger.Debug("content probe classified page",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.String("content_type", contentType),
	)
	metrics.ObserveProbe("probe_other")
	return false
}
