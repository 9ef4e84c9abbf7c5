package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bimtools/bim-insight/internal/cache"
	"github.com/bimtools/bim-insight/internal/config"
	"github.com/bimtools/bim-insight/internal/errors"
)

const (
	defaultRemoteBaseURL = "https://api.openai.com/v1"
	defaultRemoteModel   = "text-embedding-3-small"
	remoteMaxRetries     = 3
)

// Remote is an OpenAI-compatible embeddings client. Dimensions are learned
// from the first response unless pinned in the configuration.
type Remote struct {
	baseURL    string
	model      string
	apiKey     string
	dimensions int
	httpClient *http.Client
	cache      *cache.EmbeddingCache
}

// WithCache attaches a vector cache so repeated texts skip the network.
func (r *Remote) WithCache(c *cache.EmbeddingCache) *Remote {
	r.cache = c

	return r
}

// NewRemote builds a remote provider from the embedding configuration.
func NewRemote(cfg config.EmbeddingConfig) (*Remote, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrTypeConfig,
			"remote embedding provider requires BIM_INSIGHT_EMBEDDING_API_KEY")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultRemoteBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultRemoteModel
	}

	return &Remote{
		baseURL:    baseURL,
		model:      model,
		apiKey:     cfg.APIKey,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (r *Remote) Name() string { return "remote" }

// Prepare is a no-op: the remote model carries its own vocabulary.
func (r *Remote) Prepare(_ context.Context, _ []string) error { return nil }

func (r *Remote) Dimensions() int { return r.dimensions }

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed requests a vector from the embeddings endpoint, retrying
// rate-limit and server errors with exponential backoff. Cached vectors
// short-circuit the request entirely.
func (r *Remote) Embed(ctx context.Context, text string) ([]float32, error) {
	var cacheKey string

	if r.cache != nil {
		cacheKey = cache.Key(r.Name(), r.model, text)
		if vec, ok := r.cache.Get(cacheKey); ok {
			if r.dimensions == 0 {
				r.dimensions = len(vec)
			}

			return vec, nil
		}
	}

	var lastErr error

	for attempt := 0; attempt <= remoteMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}

		vec, retryable, err := r.embedOnce(ctx, text)
		if err == nil {
			if r.cache != nil {
				// A failed cache write only costs a future request.
				_ = r.cache.Set(cacheKey, vec)
			}

			return vec, nil
		}

		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, lastErr
}

func (r *Remote) embedOnce(ctx context.Context, text string) ([]float32, bool, error) {
	body, err := json.Marshal(embeddingRequest{Model: r.model, Input: text})
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal embedding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrTypeInternal, "failed to create embedding request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrTypeGeneration, "embedding request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrTypeGeneration, "failed to read embedding response")
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, errors.Newf(errors.ErrTypeGeneration,
			"embedding request failed with status %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, errors.Newf(errors.ErrTypeGeneration,
			"embedding request failed with status %d: %s", resp.StatusCode, string(payload))
	}

	var out embeddingResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, false, errors.Wrap(err, errors.ErrTypeGeneration, "failed to parse embedding response")
	}

	if out.Error != nil {
		return nil, false, errors.Newf(errors.ErrTypeGeneration,
			"embedding API error: %s", out.Error.Message)
	}

	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, false, errors.New(errors.ErrTypeGeneration, "no embedding returned")
	}

	vec := out.Data[0].Embedding

	if r.dimensions == 0 {
		r.dimensions = len(vec)
	} else if len(vec) != r.dimensions {
		return nil, false, errors.New(errors.ErrTypeGeneration,
			fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", r.dimensions, len(vec)))
	}

	return vec, false, nil
}

func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}

	return d
}
