package invoke

import "context"

// Credential is the runtime secret material for one provider, resolved from
// the environment by the infra layer.
type Credential struct {
	APIKey  string
	BaseURL string
}

// CredentialResolver resolves runtime credentials for a provider by name.
// Returns ErrNoCredential when no API key is configured for the provider.
type CredentialResolver interface {
	Resolve(provider string) (Credential, error)
}

// ProviderConfig is the fully resolved configuration for one attempt against
// one provider: identity, credential, and the tier-specific model name.
type ProviderConfig struct {
	Name       string
	Model      string
	Credential Credential
}

// ProviderAdapter translates the canonical request into one provider's wire
// shape, issues the call, and normalizes the heterogeneous response back into
// the canonical Response. Adapters are stateless; one call means exactly one
// provider attempt, with no internal retries.
type ProviderAdapter interface {
	Invoke(ctx context.Context, cfg ProviderConfig, req *Request) (*Response, error)
}
