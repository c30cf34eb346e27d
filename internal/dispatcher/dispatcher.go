// Package dispatcher selects a retrieval strategy for a classified crawl
// request, invokes it, and normalizes the outcome.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-gateway/internal/crawler"
	"github.com/JakeFAU/crawl-gateway/internal/metrics"
)

// Dispatcher routes crawl requests to the document or page retriever.
type Dispatcher struct {
	document crawler.Retriever
	page     crawler.Retriever
	logger   *zap.Logger
}

// New creates a Dispatcher.
func New(document, page crawler.Retriever, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		document: document,
		page:     page,
		logger:   logger,
	}
}

// Dispatch runs the crawl for req. Any failure, including a panic inside the
// retriever, is returned as a *crawler.CrawlError.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	clientID string,
	req crawler.CrawlRequest,
	isDocument bool,
) (crawler.Content, error) {
	strategy := crawler.StrategyFor(isDocument)
	retriever := d.page
	if strategy == crawler.StrategyDocument {
		retriever = d.document
	}

	fields := []zap.Field{
		zap.String("client_id", clientID),
		zap.String("url", req.URL),
		zap.Boolp("bypass_cache", req.BypassCache),
		zap.Boolp("autoparse_pdf", req.AutoparsePDF),
		zap.Bool("is_document", isDocument),
		zap.String("strategy", string(strategy)),
	}

	start := time.Now()
	content, err := d.invoke(ctx, retriever, strategy, crawler.FetchOptions{
		URL:         req.URL,
		BypassCache: req.BypassCache,
	})
	elapsed := time.Since(start)
	fields = append(fields, zap.Duration("duration", elapsed))

	if err != nil {
		crawlErr := d.normalize(strategy, req.URL, err)
		metrics.ObserveDispatch(string(strategy), string(crawlErr.Kind), elapsed)
		d.logger.Warn("crawl dispatch failed", append(fields,
			zap.String("error_kind", string(crawlErr.Kind)),
			zap.Error(crawlErr.Err),
		)...)
		return crawler.Content{}, crawlErr
	}

	metrics.ObserveDispatch(string(strategy), "success", elapsed)
	d.logger.Info("crawl dispatched", fields...)
	return content, nil
}

func (d *Dispatcher) invoke(
	ctx context.Context,
	retriever crawler.Retriever,
	strategy crawler.Strategy,
	opts crawler.FetchOptions,
) (content crawler.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = crawler.Content{}
			err = &crawler.CrawlError{
				Strategy: strategy,
				URL:      opts.URL,
				Kind:     crawler.ErrorKindPanic,
				Err:      fmt.Errorf("retriever panic: %v", r),
			}
		}
	}()
	if retriever == nil {
		return crawler.Content{}, fmt.Errorf("no retriever configured for %s strategy", strategy)
	}
	return retriever.Retrieve(ctx, opts)
}

func (d *Dispatcher) normalize(strategy crawler.Strategy, url string, err error) *crawler.CrawlError {
	var crawlErr *crawler.CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr
	}
	return crawler.NewCrawlError(strategy, url, err)
}

