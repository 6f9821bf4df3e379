package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/travofoz/T-5000/errors"
)

// Config selects one provider instance.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
}

// New constructs a provider adapter for the configured vendor.
func New(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.Model == "" {
		return nil, errors.New("no model configured for provider '%s'", cfg.Provider)
	}
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return NewAnthropic(cfg.Model, cfg.BaseURL)
	case "openai":
		return NewOpenAI(cfg.Model, cfg.BaseURL)
	case "gemini":
		return NewGemini(ctx, cfg.Model)
	case "bedrock":
		return NewBedrock(ctx, cfg.Model)
	case "ollama":
		return NewOllama(cfg.Model, cfg.BaseURL)
	default:
		return nil, errors.New("unknown LLM provider '%s'", cfg.Provider)
	}
}

// Cache shares provider instances between agents that target the same
// endpoint. The key combines the vendor, the endpoint identifier and the
// model, so two agents on the same endpoint reuse one client.
type Cache struct {
	mu        sync.Mutex
	providers map[string]Provider
}

func NewCache() *Cache {
	return &Cache{providers: make(map[string]Provider)}
}

func (c *Cache) Get(ctx context.Context, cfg Config) (Provider, error) {
	key := fmt.Sprintf("%s|%s|%s", strings.ToLower(cfg.Provider), identifierFor(cfg), cfg.Model)
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.providers[key]; ok {
		return p, nil
	}
	p, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.providers[key] = p
	return p, nil
}

// identifierFor derives a stable endpoint identity: the base URL when one is
// configured, else a digest of the API key so the key itself never appears
// in logs or cache keys, else a per-vendor default.
func identifierFor(cfg Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if key := apiKeyFor(cfg.Provider); key != "" {
		sum := sha256.Sum256([]byte(key))
		return hex.EncodeToString(sum[:8])
	}
	return "default"
}

func apiKeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}
