package invoke

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCredential indicates that a provider has no API key configured.
// The provider is skipped without a network attempt; it still appears in the
// aggregate error list when every provider in the tier fails.
var ErrNoCredential = errors.New("provider credential not configured")

// ErrNoAdapter indicates that a tier names a provider with no registered
// adapter. This is a wiring gap, not a credential problem, so it keeps its
// own sentinel.
var ErrNoAdapter = errors.New("no adapter registered for provider")

// ErrUnknownTier indicates that the requested tier is not configured.
var ErrUnknownTier = errors.New("unknown provider tier")

// ProviderError is a provider-scoped failure carrying the provider name and
// the HTTP-level response detail.
type ProviderError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Detail)
}

// AttemptError records one failed provider attempt within a gateway call.
type AttemptError struct {
	Provider string
	Err      error
}

// AggregateError is raised when every provider in a tier failed. Its message
// concatenates each provider's error in the order tried.
type AggregateError struct {
	Tier     string
	Attempts []AttemptError
}

func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("all providers failed for tier %q: %s", e.Tier, strings.Join(parts, "; "))
}
