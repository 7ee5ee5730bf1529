package render

import "context"

// GenerateParams carries the generation inputs submitted to a platform.
type GenerateParams struct {
	Title       string
	Lyrics      string
	StylePrompt string
}

// GenerateResult is the platform's acknowledgement of a submitted render.
type GenerateResult struct {
	ExternalTaskID string
	// EstimatedSeconds is the platform's completion estimate, 0 if not given.
	EstimatedSeconds int
}

// JobStatusResult is one poll observation of an in-flight render.
type JobStatusResult struct {
	Completed bool
	Failed    bool
	// Progress is the platform-reported milestone (0-100). The orchestrator
	// never lets persisted progress decrease, whatever the platform says.
	Progress int
	Message  string
	// ErrorDetail is set when Failed is true.
	ErrorDetail string
	// AudioURL is set when Completed is true.
	AudioURL        string
	DurationSeconds *float64
	Format          string
}

// Constraints describes a platform's hard input limits.
type Constraints struct {
	MaxTitleChars       int
	MaxLyricsChars      int
	MaxStylePromptChars int
	SupportedFormats    []string
}

// PlatformAdapter is the capability surface for one external media
// generation platform. Implementations are stateless; one exists per
// supported platform, selected by name from a registry.
type PlatformAdapter interface {
	// Name returns the registry key for this platform.
	Name() string

	// Constraints returns the platform's input limits.
	Constraints() Constraints

	// BestPractices returns prompt-writing guidance for this platform,
	// suitable for inclusion in an upstream text-generation request.
	BestPractices() string

	// AutoFit clamps params to the platform's constraints, truncating
	// over-long fields rather than rejecting them.
	AutoFit(params GenerateParams) GenerateParams

	// GenerateMusic submits a render and returns the external task handle.
	GenerateMusic(ctx context.Context, params GenerateParams) (*GenerateResult, error)

	// CheckJobStatus polls an in-flight render by its external task ID.
	CheckJobStatus(ctx context.Context, externalTaskID string) (*JobStatusResult, error)
}

// ObjectStore persists downloaded artifact bytes under a caller-chosen key
// and returns a durable locator for them.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Downloader fetches artifact bytes from a platform-provided URL. It returns
// the bytes and the content type reported by the origin.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
}
