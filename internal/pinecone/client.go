// Package pinecone is a minimal REST client for a Pinecone serverless index.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mfields/doctheme/internal/index"
)

// Client communicates with a Pinecone index over its data-plane HTTP API.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the index served at host
// (e.g. "https://my-index-abc123.svc.us-east-1.pinecone.io").
func NewClient(host, apiKey string) *Client {
	return &Client{
		host:   host,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type upsertRequest struct {
	Vectors []index.Vector `json:"vectors"`
}

// Upsert writes a batch of vectors. Callers are responsible for batching to
// the upstream payload limit.
func (c *Client) Upsert(ctx context.Context, vectors []index.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	var resp struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	if err := c.post(ctx, "/vectors/upsert", upsertRequest{Vectors: vectors}, &resp); err != nil {
		return fmt.Errorf("upsert %d vectors: %w", len(vectors), err)
	}
	return nil
}

type queryRequest struct {
	Vector          []float64 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string          `json:"id"`
		Score    float64         `json:"score"`
		Metadata *index.Metadata `json:"metadata"`
	} `json:"matches"`
}

// Query runs a similarity search and returns matches in ranked order.
func (c *Client) Query(ctx context.Context, vector []float64, topK int) ([]index.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	req := queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
	}
	var resp queryResponse
	if err := c.post(ctx, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	matches := make([]index.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		match := index.Match{Score: m.Score}
		if m.Metadata != nil {
			match.DocID = m.Metadata.DocID
			match.Ref = m.Metadata.Ref
			match.Text = m.Metadata.Text
		}
		matches = append(matches, match)
	}
	return matches, nil
}

type deleteRequest struct {
	Filter map[string]any `json:"filter"`
}

// DeleteByDoc removes every vector whose metadata doc_id matches.
func (c *Client) DeleteByDoc(ctx context.Context, docID string) error {
	req := deleteRequest{
		Filter: map[string]any{
			"doc_id": map[string]any{"$eq": docID},
		},
	}
	if err := c.post(ctx, "/vectors/delete", req, nil); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", docID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pinecone %s status %d: %s", path, resp.StatusCode, truncate(string(respBody), 200))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
