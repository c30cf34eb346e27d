package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdp "github.com/JohannesKaufmann/html-to-markdown/plugin"
	gq "github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"

	"github.com/JakeFAU/crawl-gateway/internal/crawler"
)

// Page holds the fields extracted from an HTML document.
type Page struct {
	Title    string
	Markdown string
	Links    crawler.Links
	Metadata map[string]string
}

// HTML parses body as a page served from pageURL.
func HTML(body []byte, pageURL string) (Page, error) {
	doc, err := gq.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse page url: %w", err)
	}
	host := base.Hostname()
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = resolved
		}
	}

	metadata := metaTags(doc)
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = metadata["og:title"]
	}

	markdown, err := newConverter(base).ConvertString(string(body))
	if err != nil {
		return Page{}, fmt.Errorf("convert markdown: %w", err)
	}

	return Page{
		Title:    title,
		Markdown: strings.TrimSpace(markdown),
		Links:    splitLinks(doc, base, host),
		Metadata: metadata,
	}, nil
}

func newConverter(base *url.URL) *md.Converter {
	domain := ""
	if base != nil && base.Host != "" {
		domain = base.Scheme + "://" + base.Host
	}
	converter := md.NewConverter(domain, true, nil)
	converter.Use(mdp.GitHubFlavored())
	converter.Remove("script", "style", "noscript", "iframe")
	return converter
}

func metaTags(doc *gq.Document) map[string]string {
	metadata := map[string]string{}
	doc.Find("meta").Each(func(_ int, s *gq.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		key := s.AttrOr("name", s.AttrOr("property", ""))
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		metadata[key] = strings.TrimSpace(content)
	})
	if lang := strings.TrimSpace(doc.Find("html").AttrOr("lang", "")); lang != "" {
		metadata["language"] = lang
	}
	if canonical := strings.TrimSpace(doc.Find(`link[rel="canonical"]`).AttrOr("href", "")); canonical != "" {
		metadata["canonical"] = canonical
	}
	return metadata
}

// splitLinks resolves hrefs against base and files them as internal when
// they share the page's host.
func splitLinks(doc *gq.Document, base *url.URL, host string) crawler.Links {
	var internal, external []string

	doc.Find("a[href]").Each(func(_ int, s *gq.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		u, err := base.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		link := normalizeLink(u)
		if strings.EqualFold(u.Hostname(), host) {
			internal = append(internal, link)
			return
		}
		external = append(external, link)
	})

	return crawler.Links{
		Internal: lo.Uniq(internal),
		External: lo.Uniq(external),
	}
}
