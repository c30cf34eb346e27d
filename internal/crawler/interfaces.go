package crawler

import "context"

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Retriever is the capability the dispatcher invokes for one strategy.
type Retriever interface {
	Retrieve(ctx context.Context, opts FetchOptions) (Content, error)
}

// Classifier decides whether a URL points at a document.
type Classifier interface {
	Classify(ctx context.Context, rawURL string) bool
}
