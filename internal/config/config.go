package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/prestonty/timelens-be/internal/service/ai/openai"
)

// Supported generation providers.
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// Supported store drivers besides the SQL ones understood by sqlstore.
const StoreMemory = "memory"

// Config aggregates every setting of the service.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Store     StoreConfig
	Narrative NarrativeConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Addr is derived from Port by Load.
	Addr string
}

// AIConfig describes the text-generation backend.
type AIConfig struct {
	Provider string        `env:"LLM_PROVIDER" envDefault:"openai"`
	Timeout  time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	OpenAIKey        string `env:"OPENAI_KEY"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	OpenAIStoryModel string `env:"OPENAI_STORY_MODEL" envDefault:"gpt-4o-mini"`

	ArkAPIKey     string `env:"ARK_API_KEY"`
	ArkAccessKey  string `env:"ARK_ACCESS_KEY"`
	ArkSecretKey  string `env:"ARK_SECRET_KEY"`
	ArkModel      string `env:"ARK_MODEL"`
	ArkStoryModel string `env:"ARK_STORY_MODEL"`
	ArkBaseURL    string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	ArkRegion     string `env:"ARK_REGION" envDefault:"cn-beijing"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver  string        `env:"STORE_DRIVER" envDefault:"memory"`
	DSN     string        `env:"STORE_DSN"`
	Timeout time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`
}

// NarrativeConfig tunes the session controller.
type NarrativeConfig struct {
	NameRetryLimit int `env:"NAME_RETRY_LIMIT" envDefault:"3"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := listenAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = ProviderOpenAI
	}
	switch cfg.AI.Provider {
	case ProviderOpenAI, ProviderArk:
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER value %q", cfg.AI.Provider)
	}
	if cfg.AI.Timeout <= 0 {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT value %s", cfg.AI.Timeout)
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreMemory
	}
	if cfg.Store.Driver != StoreMemory && strings.TrimSpace(cfg.Store.DSN) == "" {
		return nil, fmt.Errorf("STORE_DSN is required for STORE_DRIVER=%s", cfg.Store.Driver)
	}

	if cfg.Narrative.NameRetryLimit < 1 {
		cfg.Narrative.NameRetryLimit = 1
	}
	return cfg, nil
}

// listenAddr 将 PORT 转换为监听地址
func listenAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}
	if strings.Contains(port, ":") {
		// ":8080" 或 "127.0.0.1:8080" 直接使用
		return port, nil
	}
	return ":" + port, nil
}

// Enabled reports whether the selected provider has credentials.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
	default:
		return c.openAIKey() != ""
	}
}

// Models returns the model used for short structured calls and the one used for narration.
func (c AIConfig) Models() (primary, story string) {
	if c.Provider == ProviderArk {
		story = c.ArkStoryModel
		if story == "" {
			story = c.ArkModel
		}
		return c.ArkModel, story
	}
	return c.OpenAIModel, c.OpenAIStoryModel
}

func (c AIConfig) openAIKey() string {
	if key := strings.TrimSpace(c.OpenAIKey); key != "" {
		return key
	}
	return strings.TrimSpace(c.OpenAIAPIKey)
}

// NewChatModel builds the chat model for the configured provider.
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("credentials missing for LLM provider %s", c.Provider)
	}

	switch c.Provider {
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:   c.ArkBaseURL,
			Region:    c.ArkRegion,
			APIKey:    c.ArkAPIKey,
			AccessKey: c.ArkAccessKey,
			SecretKey: c.ArkSecretKey,
			Model:     c.ArkModel,
		})
	default:
		return openai.NewChatModel(openai.Config{
			APIKey:  c.openAIKey(),
			BaseURL: c.OpenAIBaseURL,
			Model:   c.OpenAIModel,
		})
	}
}
