// Package extract turns fetched bodies into the structured fields of a
// crawler.Content: title, markdown, links and metadata for HTML pages, and
// per-page text plus Info-dictionary metadata for PDF documents.
package extract
