package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pagemarkhq/pagemark/internal/config"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1/embeddings"

// OpenAIClient implements Client against an OpenAI-compatible embeddings
// endpoint. Local model runtimes that speak the same protocol are supported
// through the endpoint config field.
type OpenAIClient struct {
	apiKey     string
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

// openAIEmbeddingRequest is the request format for the embeddings API
type openAIEmbeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// openAIEmbeddingResponse is the response from the embeddings API
type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewOpenAIClient creates a new OpenAI-compatible embedding client
func NewOpenAIClient(cfg *config.EmbeddingConfig) (*OpenAIClient, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	model := cfg.Model
	if model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}

	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		model:      model,
		dimensions: cfg.Dimensions,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Embed generates an embedding for a single text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openAIEmbeddingRequest{
		Input:      []string{text},
		Model:      c.model,
		Dimensions: c.dimensions,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp openAIEmbeddingResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return apiResp.Data[0].Embedding, nil
}

// Dimensions returns the dimension of the embeddings
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}
