package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bimtools/bim-insight/internal/config"
	"github.com/bimtools/bim-insight/internal/errors"
)

// Provider identifiers supported by the client.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// Client calls a hosted language model over HTTP. It is disabled when the
// configured provider needs an API key and none is present; callers then
// take the fallback path instead of failing.
type Client struct {
	config     config.GeneratorConfig
	baseURL    string
	enabled    bool
	httpClient *http.Client
}

// NewClient validates the generator configuration and builds a client.
// A missing API key for a hosted provider yields a disabled client, not an
// error.
func NewClient(cfg *config.Config) (*Client, error) {
	gen := cfg.Generator

	client := &Client{
		config:     gen,
		httpClient: &http.Client{Timeout: cfg.GeneratorTimeout()},
	}

	switch gen.Provider {
	case ProviderGemini:
		client.baseURL = gen.BaseURL
		if client.baseURL == "" {
			client.baseURL = defaultGeminiBaseURL
		}

		client.enabled = gen.APIKey != ""
	case ProviderOpenAI:
		client.baseURL = gen.BaseURL
		if client.baseURL == "" {
			client.baseURL = defaultOpenAIBaseURL
		}

		client.enabled = gen.APIKey != ""
	case ProviderOllama:
		client.baseURL = gen.BaseURL
		if client.baseURL == "" {
			client.baseURL = defaultOllamaBaseURL
		}

		client.enabled = true
	default:
		return nil, errors.Newf(errors.ErrTypeConfig,
			"unsupported generator provider: %s", gen.Provider)
	}

	return client, nil
}

// Enabled reports whether generation requests can be made.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Generate sends the prompt to the configured provider. The request is
// bounded by both the passed context and the client timeout.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.enabled {
		return "", errors.New(errors.ErrTypeGeneration, "generator is disabled")
	}

	switch c.config.Provider {
	case ProviderGemini:
		return c.generateGemini(ctx, prompt)
	case ProviderOpenAI:
		return c.generateOpenAI(ctx, prompt)
	case ProviderOllama:
		return c.generateOllama(ctx, prompt)
	default:
		return "", errors.Newf(errors.ErrTypeGeneration,
			"unsupported generator provider: %s", c.config.Provider)
	}
}

// Gemini API structures
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) generateGemini(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.config.Model, url.QueryEscape(c.config.APIKey))

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	payload, err := c.post(ctx, endpoint, reqBody, nil)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "failed to parse Gemini response")
	}

	if resp.Error != nil {
		return "", errors.Newf(errors.ErrTypeGeneration, "Gemini API error: %s", resp.Error.Message)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New(errors.ErrTypeGeneration, "no response from Gemini")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// OpenAI API structures
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) generateOpenAI(ctx context.Context, prompt string) (string, error) {
	reqBody := openAIRequest{
		Model:       c.config.Model,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.config.APIKey}

	payload, err := c.post(ctx, c.baseURL+"/chat/completions", reqBody, headers)
	if err != nil {
		return "", err
	}

	var resp openAIResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "failed to parse OpenAI response")
	}

	if resp.Error != nil {
		return "", errors.Newf(errors.ErrTypeGeneration, "OpenAI API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrTypeGeneration, "no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// Ollama API structures
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) generateOllama(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	}

	payload, err := c.post(ctx, c.baseURL+"/api/generate", reqBody, nil)
	if err != nil {
		return "", err
	}

	var resp ollamaResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeGeneration, "failed to parse Ollama response")
	}

	if resp.Error != "" {
		return "", errors.Newf(errors.ErrTypeGeneration, "Ollama error: %s", resp.Error)
	}

	if resp.Response == "" {
		return "", errors.New(errors.ErrTypeGeneration, "no response from Ollama")
	}

	return resp.Response, nil
}

func (c *Client) post(ctx context.Context, endpoint string, reqBody interface{}, headers map[string]string) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "generation request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeGeneration,
			"generation request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
