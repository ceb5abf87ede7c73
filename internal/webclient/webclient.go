// Package webclient fetches pages for analysis through pluggable backends.
package webclient

import (
	"context"
	"net/http"
	"time"
)

// WebClient executes page fetches for the analyzer.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	Close() error
}

// Request describes a page fetch.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is a fetched page.
type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FinalURL   string
	FetchedAt  time.Time
}

// Get runs a simple GET through any WebClient.
func Get(ctx context.Context, wc WebClient, url string) (*Response, error) {
	return wc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}
