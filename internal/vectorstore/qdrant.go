package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// QdrantClient is a thin HTTP client for the Qdrant REST API, covering only
// the operations the gateway needs: collection lifecycle, payload index
// creation, upsert, search, and filter deletes.
type QdrantClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Point is one persisted (vector, payload) record.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is one search result as returned by the service.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
}

func NewQdrantClient(url, apiKey string, timeout time.Duration) *QdrantClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QdrantClient{
		baseURL: strings.TrimRight(url, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// ListCollections returns the names of all existing collections.
func (c *QdrantClient) ListCollections(ctx context.Context) ([]string, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse collections response: %w", err)
	}
	names := make([]string, 0, len(parsed.Result.Collections))
	for _, col := range parsed.Result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

// CreateCollection creates a collection with a fixed vector size and
// distance metric. Size and metric cannot be altered afterwards.
func (c *QdrantClient) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	if distance == "" {
		distance = "Cosine"
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": distance,
		},
	}
	_, err := c.doRequest(ctx, http.MethodPut, "/collections/"+name, req)
	return err
}

// CreatePayloadIndex creates a secondary index on a payload field so
// equality filters on it stay fast as the collection grows.
func (c *QdrantClient) CreatePayloadIndex(ctx context.Context, collection, field, schema string) error {
	req := map[string]any{
		"field_name":   field,
		"field_schema": schema,
	}
	_, err := c.doRequest(ctx, http.MethodPut, "/collections/"+collection+"/index", req)
	return err
}

// UpsertPoints writes a batch of points with wait-for-completion semantics:
// a 2xx response means the points are durable.
func (c *QdrantClient) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	payload := make([]map[string]any, 0, len(points))
	for _, p := range points {
		payload = append(payload, map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}
	req := map[string]any{"points": payload}
	_, err := c.doRequest(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", req)
	return err
}

// SearchPoints runs a nearest-neighbor query with an optional payload filter.
func (c *QdrantClient) SearchPoints(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any) ([]ScoredPoint, error) {
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(filter) > 0 {
		req["filter"] = filter
	}
	data, err := c.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/search", req)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	points := make([]ScoredPoint, 0, len(parsed.Result))
	for _, item := range parsed.Result {
		points = append(points, ScoredPoint{
			ID:      fmt.Sprintf("%v", item.ID),
			Score:   item.Score,
			Payload: item.Payload,
		})
	}
	return points, nil
}

// DeletePointsByFilter removes every point matching the filter.
func (c *QdrantClient) DeletePointsByFilter(ctx context.Context, collection string, filter map[string]any) error {
	if len(filter) == 0 {
		return nil
	}
	req := map[string]any{"filter": filter}
	_, err := c.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", req)
	return err
}

// CountPoints returns the number of points currently in the collection.
func (c *QdrantClient) CountPoints(ctx context.Context, collection string) (int64, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/collections/"+collection, nil)
	if err != nil {
		return 0, err
	}
	var parsed struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("parse collection info: %w", err)
	}
	return parsed.Result.PointsCount, nil
}

func (c *QdrantClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewBuffer(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func qdrantMatchFilter(key string, value any) map[string]any {
	return map[string]any{
		"key": key,
		"match": map[string]any{
			"value": value,
		},
	}
}

func qdrantMustFilter(conditions ...map[string]any) map[string]any {
	return map[string]any{
		"must": conditions,
	}
}
