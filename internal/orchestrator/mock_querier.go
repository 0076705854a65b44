package orchestrator

import (
	"context"
	"sync"

	"github.com/Yates-Labs/permitdesk/internal/backend"
)

// MockQuerier is a deterministic Querier for testing.
type MockQuerier struct {
	// Response is returned by Query when Error is nil.
	Response *backend.QueryResponse

	// Error, if set, is returned by Query instead of a response.
	Error error

	// Block, if set, makes Query wait until it is closed or ctx is done.
	Block chan struct{}

	// Started, if set, receives a value as soon as Query is entered.
	Started chan struct{}

	mu       sync.Mutex
	requests []backend.QueryRequest
	options  []*backend.QueryOptions
}

// NewMockQuerier creates a mock that answers every query with answer.
func NewMockQuerier(answer string, chunks ...backend.Chunk) *MockQuerier {
	return &MockQuerier{Response: &backend.QueryResponse{Answer: answer, Chunks: chunks}}
}

// NewMockQuerierWithError creates a mock that always fails with err.
func NewMockQuerierWithError(err error) *MockQuerier {
	return &MockQuerier{Error: err}
}

// Query records the request and returns the configured result.
func (m *MockQuerier) Query(ctx context.Context, req backend.QueryRequest, opts *backend.QueryOptions) (*backend.QueryResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.options = append(m.options, opts)
	m.mu.Unlock()

	if m.Started != nil {
		m.Started <- struct{}{}
	}

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Error != nil {
		return nil, m.Error
	}
	return m.Response, nil
}

// Requests returns every request received so far.
func (m *MockQuerier) Requests() []backend.QueryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.QueryRequest(nil), m.requests...)
}

// Options returns the overrides passed with each request.
func (m *MockQuerier) Options() []*backend.QueryOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*backend.QueryOptions(nil), m.options...)
}
