// Package llm builds the chat model shared by the assistant and the live agent bridge.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"infra_crew/src/model"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/ollama/ollama/api"
)

const (
	ProviderNone     = "none"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderDeepSeek = "deepseek"
	ProviderArk      = "ark"
)

// Enabled reports whether config selects a real provider
func Enabled(config model.LLMConfig) bool {
	p := strings.ToLower(strings.TrimSpace(config.Provider))
	return p != "" && p != ProviderNone
}

// NewChatModel returns the configured provider's chat model, or nil when the
// provider is "none".
func NewChatModel(ctx context.Context, config model.LLMConfig) (einomodel.BaseChatModel, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "", ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		maxTokens := config.MaxTokens
		temperature := float32(config.Temperature)
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      config.APIKey,
			BaseURL:     config.BaseURL,
			Model:       config.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating openai chat model: %w", err)
		}
		return m, nil
	case ProviderOllama:
		m, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: ollamaBaseURL(config),
			Model:   config.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ollama chat model: %w", err)
		}
		return m, nil
	case ProviderDeepSeek:
		m, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   config.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating deepseek chat model: %w", err)
		}
		return m, nil
	case ProviderArk:
		m, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   config.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ark chat model: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
}

func ollamaBaseURL(config model.LLMConfig) string {
	if config.BaseURL != "" {
		return config.BaseURL
	}
	return "http://localhost:11434"
}

// OllamaProbe checks the Ollama server with a heartbeat instead of a generate call
type OllamaProbe struct {
	client *api.Client
}

// NewOllamaProbe targets baseURL, or OLLAMA_HOST when baseURL is empty
func NewOllamaProbe(baseURL string) (*OllamaProbe, error) {
	if baseURL == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("error creating ollama client: %w", err)
		}
		return &OllamaProbe{client: client}, nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}
	return &OllamaProbe{client: api.NewClient(u, http.DefaultClient)}, nil
}

// Heartbeat returns nil when the server answers
func (p *OllamaProbe) Heartbeat(ctx context.Context) error {
	return p.client.Heartbeat(ctx)
}
