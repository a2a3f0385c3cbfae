package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"search-chatter/internal/config"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
	Timeout            time.Duration
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
		Timeout:            cfg.LLMTimeout,
	}
}

func (f *Factory) CreateClient(provider, model string) (Client, error) {
	var c Client
	switch config.LLMProvider(strings.ToLower(provider)) {
	case config.ProviderOpenAI:
		c = NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, model, f.OpenRouterReferrer, f.OpenRouterTitle)
	case config.ProviderYandex:
		ya, err := NewYandex(f.YandexOAuthToken, f.YandexFolderID)
		if err != nil {
			return nil, err
		}
		c = ya
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
	if f.Timeout > 0 {
		c = WithTimeout(c, f.Timeout)
	}
	return c, nil
}

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout bounds every Generate call of next by d.
func WithTimeout(next Client, d time.Duration) Client {
	return timeoutClient{next: next, timeout: d}
}

func (t timeoutClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, messages)
}
