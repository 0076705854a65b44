// Package backend is the HTTP client for the RAG service: retrieval queries,
// retrieval configuration, document management and evaluation.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Yates-Labs/permitdesk/internal/logger"
)

const module = "backend"

// Client talks to the RAG backend. It never retries; every failure is returned to the caller.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        logger.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a client for the backend rooted at baseURL (e.g. "http://localhost:8000").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q needs an http or https scheme", ErrInvalidBaseURL, baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root this client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Query asks a question. A 2xx response without an answer field is ErrMalformedResponse.
func (c *Client) Query(ctx context.Context, req QueryRequest, opts *QueryOptions) (*QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var raw struct {
		Answer  *string  `json:"answer"`
		Chunks  []Chunk  `json:"chunks"`
		Sources []string `json:"sources"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/rag/query", opts.values(), bytes.NewReader(body), "application/json", &raw); err != nil {
		return nil, err
	}
	if raw.Answer == nil {
		return nil, fmt.Errorf("%w: response has no answer field", ErrMalformedResponse)
	}

	return &QueryResponse{
		Answer:  *raw.Answer,
		Chunks:  raw.Chunks,
		Sources: raw.Sources,
	}, nil
}

func (c *Client) UpdateChunkConfig(ctx context.Context, cfg ChunkConfig) error {
	return c.putJSON(ctx, "/api/rag/chunk-config", cfg)
}

func (c *Client) UpdateSimilarityConfig(ctx context.Context, cfg SimilarityConfig) error {
	return c.putJSON(ctx, "/api/rag/similarity-config", cfg)
}

func (c *Client) UpdateWeightConfig(ctx context.Context, cfg WeightConfig) error {
	return c.putJSON(ctx, "/api/rag/weight-config", cfg)
}

// Evaluate sends the query and expected document IDs as query parameters,
// repeating expected_documents once per ID.
func (c *Client) Evaluate(ctx context.Context, query string, expected []string) (*EvaluationResult, error) {
	params := url.Values{}
	params.Set("query", query)
	for _, doc := range expected {
		params.Add("expected_documents", doc)
	}

	var result EvaluationResult
	if err := c.do(ctx, http.MethodPost, "/api/rag/evaluate", params, nil, "", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	var docs []DocumentInfo
	if err := c.do(ctx, http.MethodGet, "/api/documents/list", nil, nil, "", &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []DocumentInfo{}
	}
	return docs, nil
}

func (c *Client) UploadText(ctx context.Context, filename, content string) (*DocumentInfo, error) {
	body, err := json.Marshal(textUpload{Filename: filename, Content: content})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var info DocumentInfo
	if err := c.do(ctx, http.MethodPost, "/api/documents/upload-text", nil, bytes.NewReader(body), "application/json", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UploadFile streams r as the multipart "file" field.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (*DocumentInfo, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	var info DocumentInfo
	if err := c.do(ctx, http.MethodPost, "/api/documents/upload", nil, &buf, mw.FormDataContentType(), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(id), nil, nil, "", nil)
}

func (c *Client) GetDocument(ctx context.Context, id string) (*DocumentContent, error) {
	var doc DocumentContent
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(id), nil, nil, "", &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListFolders returns the document folders the backend knows about, i.e. the building categories.
func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	var list folderList
	if err := c.do(ctx, http.MethodGet, "/api/documents/folders", nil, nil, "", &list); err != nil {
		return nil, err
	}
	return list.Folders, nil
}

func (c *Client) ReloadDocuments(ctx context.Context) (*ReloadResult, error) {
	var result ReloadResult
	if err := c.do(ctx, http.MethodPost, "/api/documents/reload", nil, nil, "", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, "", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) putJSON(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPut, path, nil, bytes.NewReader(body), "application/json", nil)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body io.Reader, contentType string, out interface{}) error {
	endpoint := c.baseURL.JoinPath(path)
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			c.log.Warn(module, "request timed out", map[string]interface{}{
				"method": method, "path": path, "elapsed": time.Since(start).String(),
			})
			return fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug(module, "request completed", map[string]interface{}{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).String(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func (o *QueryOptions) values() url.Values {
	if o == nil {
		return nil
	}
	params := url.Values{}
	if o.ChunkSize != nil {
		params.Set("chunk_size", strconv.Itoa(*o.ChunkSize))
	}
	if o.ChunkOverlap != nil {
		params.Set("chunk_overlap", strconv.Itoa(*o.ChunkOverlap))
	}
	if o.SimilarityThreshold != nil {
		params.Set("similarity_threshold", strconv.FormatFloat(*o.SimilarityThreshold, 'f', -1, 64))
	}
	if o.TopK != nil {
		params.Set("top_k", strconv.Itoa(*o.TopK))
	}
	return params
}
