package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Strategy selects how a URL is retrieved.
type Strategy string

// Retrieval strategies understood by the dispatcher.
const (
	StrategyPage     Strategy = "page"
	StrategyDocument Strategy = "document"
)

// StrategyFor maps a classification onto a Strategy.
func StrategyFor(isDocument bool) Strategy {
	if isDocument {
		return StrategyDocument
	}
	return StrategyPage
}

// CrawlRequest is the inbound crawl call. Optional fields are pointers so
// that omitted values can be told apart from explicit false.
type CrawlRequest struct {
	URL          string `json:"url" validate:"required,absurl"`
	BypassCache  *bool  `json:"bypass_cache,omitempty"`
	AutoparsePDF *bool  `json:"autoparse_pdf,omitempty"`
}

// WantsBypassCache reports the effective bypass_cache value.
func (r CrawlRequest) WantsBypassCache() bool {
	return r.BypassCache != nil && *r.BypassCache
}

// WantsAutoparsePDF reports the effective autoparse_pdf value.
func (r CrawlRequest) WantsAutoparsePDF() bool {
	return r.AutoparsePDF != nil && *r.AutoparsePDF
}

// FetchOptions is what a Retriever receives. Nil fields were not set by the caller.
type FetchOptions struct {
	URL         string
	BypassCache *bool
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL         string
	Headers     http.Header
	MaxSize     int
	BypassCache bool
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Links splits discovered hrefs by host.
type Links struct {
	Internal []string `json:"internal"`
	External []string `json:"external"`
}

// Content is the structured payload returned for a successful crawl.
type Content struct {
	URL             string            `json:"url"`
	Success         bool              `json:"success"`
	StatusCode      int               `json:"status_code"`
	Strategy        Strategy          `json:"strategy"`
	ContentType     string            `json:"content_type,omitempty"`
	Title           string            `json:"title,omitempty"`
	HTML            string            `json:"html,omitempty"`
	Markdown        string            `json:"markdown"`
	Links           Links             `json:"links"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Pages           int               `json:"pages,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	ContentHash     string            `json:"content_hash,omitempty"`
	FetchedAt       time.Time         `json:"fetched_at"`
	DurationMs      int64             `json:"duration_ms"`
}

// ErrBodyTooLarge is returned by fetchers when a response body exceeds
// FetchRequest.MaxSize.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// ErrorKind labels a CrawlError for logs and metrics.
type ErrorKind string

// Crawl error kinds.
const (
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindCanceled  ErrorKind = "canceled"
	ErrorKindRetrieval ErrorKind = "retrieval"
	ErrorKindPanic     ErrorKind = "panic"
)

// CrawlError is the normalized failure produced by the dispatcher.
type CrawlError struct {
	Strategy Strategy
	URL      string
	Kind     ErrorKind
	Err      error
}

// NewCrawlError wraps err, deriving its kind from the error chain.
func NewCrawlError(strategy Strategy, url string, err error) *CrawlError {
	kind := ErrorKindRetrieval
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrorKindTimeout
	case errors.Is(err, context.Canceled):
		kind = ErrorKindCanceled
	}
	return &CrawlError{Strategy: strategy, URL: url, Kind: kind, Err: err}
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("Error during crawling: %v", e.Err)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}
