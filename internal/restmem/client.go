// Package restmem implements the REST Memory Client (R): a memory.ADT over
// ciphertext addresses/words that serializes batch_read/guarded_write to
// the HTTP Server (S) using the wire codecs in internal/wire.
package restmem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edirooss/findex-server/internal/memory"
	"github.com/edirooss/findex-server/internal/wire"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentSearches is spec.md §5's "typical value 100" for the
// bounded-permit semaphore throttling a single client's concurrent
// per-keyword searches.
const DefaultMaxConcurrentSearches = 100

// DefaultMaxBodyBytes is the default response body size cap. spec.md §4.5
// requires at least 10 MB be allowed; 64 MiB leaves headroom for large
// batch_read responses without being unbounded.
const DefaultMaxBodyBytes = 64 << 20

// ErrUnauthorized is returned for HTTP 401 responses.
var ErrUnauthorized = fmt.Errorf("restmem: unauthorized")

// ErrEndpointNotFound is returned for HTTP 404 responses.
var ErrEndpointNotFound = fmt.Errorf("restmem: endpoint does not exist")

// RequestFailedError is returned for any other non-2xx response, carrying
// the status and body for the caller to inspect.
type RequestFailedError struct {
	Status int
	Body   string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("restmem: request failed: status %d: %s", e.Status, e.Body)
}

// Client is a memory.ADT backed by one HTTP(S) round trip per call, scoped
// to a single index_id (mirroring how the encryption layer already assumes
// its inner memory.ADT is bound to one index).
type Client struct {
	baseURL    string
	indexID    string
	wordLength int
	authToken  string
	httpClient *http.Client
	searchSem  *semaphore.Weighted
}

// Option configures a Client.
type Option func(*Client)

// WithAuthToken attaches a bearer token to every request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// WithHTTPClient overrides the default keep-alive client, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxConcurrentSearches overrides the number of concurrent searches
// ParallelBatchRead may have in flight at once (spec.md §5).
func WithMaxConcurrentSearches(n int64) Option {
	return func(c *Client) { c.searchSem = semaphore.NewWeighted(n) }
}

// New builds a REST memory client targeting baseURL (e.g.
// "https://findex.example.com") for the given index and WORD_LENGTH.
func New(baseURL, indexID string, wordLength int, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		indexID:    indexID,
		wordLength: wordLength,
		httpClient: defaultHTTPClient(),
		searchSem:  semaphore.NewWeighted(DefaultMaxConcurrentSearches),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// defaultHTTPClient reuses connections (keep-alive) and bounds every
// round trip independently, per spec.md §5's "each outbound call has an
// independent timeout".
func defaultHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}

func (c *Client) do(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("restmem: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("restmem: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("restmem: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrEndpointNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &RequestFailedError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// BatchRead implements memory.ADT.
func (c *Client) BatchRead(ctx context.Context, addresses []memory.Address) ([]memory.Word, error) {
	reqBody := wire.EncodeBatchReadRequest(addresses)
	respBody, err := c.do(ctx, "/indexes/"+c.indexID+"/batch_read", reqBody)
	if err != nil {
		return nil, err
	}
	return wire.DecodeBatchReadResponse(respBody, len(addresses), c.wordLength)
}

// ParallelBatchRead issues one BatchRead per group of addresses
// concurrently, bounded by the client's search semaphore — the shape the
// Findex driver's per-keyword search loop needs above this memory.ADT
// (spec.md §5's "bounded client parallelism"), without requiring that
// driver itself to be in scope here.
func (c *Client) ParallelBatchRead(ctx context.Context, groups [][]memory.Address) ([][]memory.Word, error) {
	out := make([][]memory.Word, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	for i, addrs := range groups {
		i, addrs := i, addrs
		if err := c.searchSem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("restmem: acquire search permit: %w", err)
		}
		g.Go(func() error {
			defer c.searchSem.Release(1)
			words, err := c.BatchRead(ctx, addrs)
			if err != nil {
				return err
			}
			out[i] = words
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GuardedWrite implements memory.ADT.
func (c *Client) GuardedWrite(ctx context.Context, guardAddr memory.Address, guardWord memory.Word, bindings []memory.Binding) (memory.Word, error) {
	reqBody := wire.EncodeGuardedWriteRequest(guardAddr, guardWord, bindings)
	respBody, err := c.do(ctx, "/indexes/"+c.indexID+"/guarded_write", reqBody)
	if err != nil {
		return nil, err
	}
	return wire.DecodeGuardedWriteResponse(respBody, c.wordLength)
}
