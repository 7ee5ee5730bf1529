// Package provider implements the per-provider adapters behind the
// invocation gateway: request/response translation for Anthropic and for the
// OpenAI-compatible family (OpenAI, DeepSeek, Grok, Qwen), plus environment
// based credential resolution.
package provider

import (
	"fmt"
	"os"
	"strings"

	"songsmith/internal/usecase/invoke"
)

// providerEnv describes where one provider's runtime configuration comes
// from. BaseURL defaults may be overridden with <PROVIDER>_BASE_URL.
type providerEnv struct {
	apiKeyEnv      string
	defaultBaseURL string
}

var knownProviders = map[string]providerEnv{
	"anthropic": {apiKeyEnv: "ANTHROPIC_API_KEY"},
	"openai":    {apiKeyEnv: "OPENAI_API_KEY"},
	"deepseek":  {apiKeyEnv: "DEEPSEEK_API_KEY", defaultBaseURL: "https://api.deepseek.com/v1"},
	"grok":      {apiKeyEnv: "GROK_API_KEY", defaultBaseURL: "https://api.x.ai/v1"},
	"qwen":      {apiKeyEnv: "QWEN_API_KEY", defaultBaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1"},
}

// EnvResolver resolves provider credentials from environment variables.
type EnvResolver struct{}

// NewEnvResolver returns a CredentialResolver backed by the process
// environment.
func NewEnvResolver() invoke.CredentialResolver {
	return &EnvResolver{}
}

// Resolve implements invoke.CredentialResolver. A provider with no API key
// in the environment yields invoke.ErrNoCredential so the gateway can skip
// it without counting a network failure.
func (r *EnvResolver) Resolve(provider string) (invoke.Credential, error) {
	env, ok := knownProviders[provider]
	if !ok {
		return invoke.Credential{}, fmt.Errorf("unknown provider %q", provider)
	}

	apiKey := os.Getenv(env.apiKeyEnv)
	if apiKey == "" {
		return invoke.Credential{}, fmt.Errorf("%s: %w", provider, invoke.ErrNoCredential)
	}

	baseURL := os.Getenv(strings.ToUpper(provider) + "_BASE_URL")
	if baseURL == "" {
		baseURL = env.defaultBaseURL
	}

	return invoke.Credential{APIKey: apiKey, BaseURL: baseURL}, nil
}

// NewAdapters returns the full adapter registry keyed by provider name,
// ready to hand to invoke.NewGateway.
func NewAdapters() map[string]invoke.ProviderAdapter {
	return map[string]invoke.ProviderAdapter{
		"anthropic": NewAnthropic(),
		"openai":    NewOpenAICompatible("openai", true),
		"deepseek":  NewOpenAICompatible("deepseek", false),
		"grok":      NewOpenAICompatible("grok", false),
		"qwen":      NewOpenAICompatible("qwen", false),
	}
}
