package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	openAIEmbedURL     = "https://api.openai.com/v1/embeddings"
	openAIHTTPTimeout  = 30 * time.Second
	openAIDefaultModel = "text-embedding-3-small"
	openAIDefaultDim   = 768
)

// OpenAIEmbedder implements Embedder using the OpenAI Embeddings API.
// The dimensions parameter is passed through so the vectors match the
// Qdrant collection the memory pipeline writes to.
type OpenAIEmbedder struct {
	apiKey      string
	model       string
	dimensions  int
	endpointURL string
	client      *http.Client
	logger      *slog.Logger
}

type openAIEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIEmbedder creates a new OpenAI-based embedder. model and
// dimensions fall back to text-embedding-3-small at 768 when unset.
func NewOpenAIEmbedder(apiKey, model string, dimensions int, logger *slog.Logger) *OpenAIEmbedder {
	return NewOpenAIEmbedderWithURL(openAIEmbedURL, apiKey, model, dimensions, logger)
}

// NewOpenAIEmbedderWithURL creates an OpenAI-based embedder against a
// custom endpoint URL. Intended for tests with a local httptest server.
func NewOpenAIEmbedderWithURL(endpointURL, apiKey, model string, dimensions int, logger *slog.Logger) *OpenAIEmbedder {
	if model == "" {
		model = openAIDefaultModel
	}
	if dimensions <= 0 {
		dimensions = openAIDefaultDim
	}
	return &OpenAIEmbedder{
		apiKey:      apiKey,
		model:       model,
		dimensions:  dimensions,
		endpointURL: endpointURL,
		client:      &http.Client{Timeout: openAIHTTPTimeout},
		logger:      logger,
	}
}

// Embed returns a vector embedding for the given text.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(openAIEmbedRequest{
		Model:      o.model,
		Input:      []string{text},
		Dimensions: o.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedder: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: calling API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr openAIErrorResponse
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("openai embedder: API error %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("openai embedder: API returned %d: %s", resp.StatusCode, string(raw))
	}

	var result openAIEmbedResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("openai embedder: decoding response: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai embedder: no embedding in response")
	}

	o.logger.Debug("embedded query via OpenAI", "model", o.model, "dimension", o.dimensions)
	return result.Data[0].Embedding, nil
}

// Dimension returns the configured embedding dimension.
func (o *OpenAIEmbedder) Dimension() int {
	return o.dimensions
}
