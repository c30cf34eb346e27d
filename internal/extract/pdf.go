package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrMalformedPDF is returned when the body cannot be read as a PDF.
var ErrMalformedPDF = errors.New("malformed pdf")

var infoKeys = []string{"Title", "Author", "Subject", "Keywords", "Creator", "Producer", "CreationDate", "ModDate"}

// Document holds the fields extracted from a PDF.
type Document struct {
	Title    string
	Pages    int
	PageText []string
	Markdown string
	Metadata map[string]string
}

// PDF reads per-page plain text and Info metadata from body.
func PDF(body []byte) (doc Document, err error) {
	// The reader panics on some corrupt object streams.
	defer func() {
		if r := recover(); r != nil {
			doc = Document{}
			err = fmt.Errorf("%w: %v", ErrMalformedPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedPDF, err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		text, err := pageText(reader.Page(i))
		if err != nil {
			return Document{}, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	metadata := infoMetadata(reader.Trailer().Key("Info"))
	return Document{
		Title:    metadata["title"],
		Pages:    total,
		PageText: pages,
		Markdown: renderMarkdown(metadata["title"], pages),
		Metadata: metadata,
	}, nil
}

func pageText(p pdf.Page) (string, error) {
	if p.V.IsNull() {
		return "", nil
	}
	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}
	text, err := p.GetPlainText(fonts)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func infoMetadata(info pdf.Value) map[string]string {
	metadata := map[string]string{}
	if info.IsNull() {
		return metadata
	}
	for _, key := range infoKeys {
		v := info.Key(key)
		if v.IsNull() {
			continue
		}
		if text := strings.TrimSpace(v.Text()); text != "" {
			metadata[strings.ToLower(key)] = text
		}
	}
	return metadata
}

// renderMarkdown emits one "## Page N" section per page, separated by rules.
func renderMarkdown(title string, pages []string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	for i, text := range pages {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "## Page %d\n\n%s", i+1, text)
	}
	return strings.TrimSpace(b.String())
}
