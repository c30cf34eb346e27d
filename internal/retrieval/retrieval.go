// Package retrieval implements the page and document crawl strategies on top
// of the fetchers and extractors.
package retrieval

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/JakeFAU/crawl-gateway/internal/crawler"
)

var (
	// ErrUpstreamStatus marks a non-2xx response from the target.
	ErrUpstreamStatus = errors.New("unexpected upstream status")
	// ErrEmptyBody marks a 2xx response without content.
	ErrEmptyBody = errors.New("empty response body")
)

func fetchRequest(opts crawler.FetchOptions, maxSize int) crawler.FetchRequest {
	return crawler.FetchRequest{
		URL:         opts.URL,
		MaxSize:     maxSize,
		BypassCache: opts.BypassCache != nil && *opts.BypassCache,
	}
}

func checkResponse(resp crawler.FetchResponse) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d %s", ErrUpstreamStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if len(resp.Body) == 0 {
		return ErrEmptyBody
	}
	return nil
}

func flattenHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	return lo.MapValues(h, func(values []string, _ string) string {
		return strings.Join(values, ", ")
	})
}
