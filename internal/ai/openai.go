package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIConfig covers OpenAI, OpenRouter and Azure OpenAI. Azure mode is
// selected by api_version: the model name is used as the deployment name.
type openAIConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	APIVersion  string `json:"api_version"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

type openAIProvider struct {
	apiKey      string
	baseURL     string
	apiVersion  string
	httpReferer string
	xTitle      string
	client      *http.Client
}

type openAIChatRequest struct {
	Model       string          `json:"model,omitempty"`
	Messages    []openAIChatMsg `json:"messages"`
	Stream      bool            `json:"stream"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// StatusError is a non-2xx answer from an HTTP provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed: %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func (p *openAIProvider) Name() string {
	if p.apiVersion != "" {
		return "azure-openai"
	}
	return "openai"
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string, opts GenerateOptions) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	reqBody := openAIChatRequest{
		Messages:  []openAIChatMsg{{Role: "user", Content: prompt}},
		Stream:    false,
		MaxTokens: opts.MaxTokens,
	}
	if p.apiVersion == "" {
		reqBody.Model = model
	}
	if opts.Temperature > 0 {
		temperature := opts.Temperature
		reqBody.Temperature = &temperature
	}
	var out openAIChatResponse
	if err := p.post(ctx, p.endpoint(model, "chat/completions"), reqBody, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (p *openAIProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	_ = taskType
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	reqBody := openAIEmbedRequest{Input: []string{text}}
	if p.apiVersion == "" {
		reqBody.Model = model
	}
	var out openAIEmbedResponse
	if err := p.post(ctx, p.endpoint(model, "embeddings"), reqBody, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai response has no embeddings")
	}
	return out.Data[0].Embedding, nil
}

func (p *openAIProvider) endpoint(model, op string) string {
	base := strings.TrimRight(p.baseURL, "/")
	if p.apiVersion == "" {
		return base + "/" + op
	}
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		base, url.PathEscape(model), op, url.QueryEscape(p.apiVersion))
}

func (p *openAIProvider) post(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if p.apiVersion != "" {
		req.Header.Set("api-key", p.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if p.httpReferer != "" {
		req.Header.Set("HTTP-Referer", p.httpReferer)
	}
	if p.xTitle != "" {
		req.Header.Set("X-Title", p.xTitle)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Provider: p.Name(), StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func newOpenAIProvider(args interface{}) (*openAIProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		if cfg.APIVersion != "" {
			return nil, fmt.Errorf("azure openai requires base_url")
		}
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     baseURL,
		apiVersion:  strings.TrimSpace(cfg.APIVersion),
		httpReferer: cfg.HTTPReferer,
		xTitle:      cfg.XTitle,
		client:      http.DefaultClient,
	}, nil
}

func createOpenAIFactory(args interface{}) (IChatProvider, error) {
	provider, err := newOpenAIProvider(args)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	provider, err := newOpenAIProvider(args)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
