package platform

import (
	"os"
	"time"

	"songsmith/internal/usecase/render"
)

// defaultSunoBaseURL is the hosted gateway; override with SUNO_BASE_URL.
const defaultSunoBaseURL = "https://api.sunoapi.org"

// NewAdapters builds the platform registry keyed by platform name. Adapters
// for platforms without credentials are still registered; their calls fail
// at submission time with the platform's own error.
func NewAdapters() map[string]render.PlatformAdapter {
	baseURL := os.Getenv("SUNO_BASE_URL")
	if baseURL == "" {
		baseURL = defaultSunoBaseURL
	}

	suno := NewSuno(SunoConfig{
		APIKey:  os.Getenv("SUNO_API_KEY"),
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	})

	return map[string]render.PlatformAdapter{
		suno.Name(): suno,
	}
}
