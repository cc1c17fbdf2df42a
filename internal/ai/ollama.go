package ai

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaURL = "http://localhost:11434"

type ollamaConfig struct {
	ServerURL string `json:"server_url"`
}

type ollamaProvider struct {
	serverURL string

	mu        sync.Mutex
	models    map[string]*ollama.LLM
	embedders map[string]*embeddings.EmbedderImpl
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) llm(model string) (*ollama.LLM, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if llm, ok := p.models[model]; ok {
		return llm, nil
	}
	llm, err := ollama.New(
		ollama.WithServerURL(p.serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	p.models[model] = llm
	return llm, nil
}

func (p *ollamaProvider) Generate(ctx context.Context, model string, prompt string, opts GenerateOptions) (string, error) {
	llm, err := p.llm(model)
	if err != nil {
		return "", err
	}
	var callOpts []llms.CallOption
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt, callOpts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *ollamaProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	_ = taskType
	emb, err := p.embedder(model)
	if err != nil {
		return nil, err
	}
	return emb.EmbedQuery(ctx, text)
}

func (p *ollamaProvider) embedder(model string) (*embeddings.EmbedderImpl, error) {
	llm, err := p.llm(model)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if emb, ok := p.embedders[model]; ok {
		return emb, nil
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	p.embedders[model] = emb
	return emb, nil
}

func newOllamaProvider(args interface{}) (*ollamaProvider, error) {
	cfg := &ollamaConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}
	return &ollamaProvider{
		serverURL: serverURL,
		models:    make(map[string]*ollama.LLM),
		embedders: make(map[string]*embeddings.EmbedderImpl),
	}, nil
}

func init() {
	Register("ollama", func(args interface{}) (IChatProvider, error) {
		p, err := newOllamaProvider(args)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	RegisterEmbed("ollama", func(args interface{}) (IEmbedProvider, error) {
		p, err := newOllamaProvider(args)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}
