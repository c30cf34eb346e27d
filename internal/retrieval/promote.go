package retrieval

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/JakeFAU/crawl-gateway/internal/crawler"
)

const defaultPromotionThreshold = 2048

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

var noscriptHints = [][]byte{
	[]byte("enable javascript"),
	[]byte("requires javascript"),
}

// RenderHeuristic decides when a statically fetched page should be
// re-fetched through the headless renderer.
type RenderHeuristic struct {
	threshold int
}

// NewRenderHeuristic returns a heuristic; threshold is the body size under
// which a script-heavy page is promoted. Zero selects 2048 bytes.
func NewRenderHeuristic(threshold int) *RenderHeuristic {
	if threshold <= 0 {
		threshold = defaultPromotionThreshold
	}
	return &RenderHeuristic{threshold: threshold}
}

// ShouldRender reports whether resp looks like a client-rendered shell.
func (h *RenderHeuristic) ShouldRender(resp crawler.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < h.threshold && scriptDensityHigh(body) {
		return true
	}
	lower := bytes.ToLower(body)
	for _, marker := range spaMarkers {
		if bytes.Contains(lower, bytes.ToLower(marker)) {
			return true
		}
	}
	for _, hint := range noscriptHints {
		if bytes.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether <script> elements cover a quarter or
// more of the body.
func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	covered := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel

		tagEnd := strings.IndexByte(lower[start:], '>')
		if tagEnd == -1 {
			covered += total - start
			break
		}
		contentStart := start + tagEnd + 1

		next := total
		if end := strings.Index(lower[contentStart:], closeTag); end != -1 {
			next = contentStart + end + len(closeTag)
		}
		covered += next - start
		pos = next
	}
	return covered*100/total >= 25
}
