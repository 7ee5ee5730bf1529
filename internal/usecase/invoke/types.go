// Package invoke implements the tiered multi-provider invocation gateway for
// synchronous text generation. Callers hand it one canonical request and a
// tier name; the gateway tries the tier's providers in fixed order and
// returns the first success, normalized into one canonical response shape.
package invoke

// Role tags a chat message with its author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat message in the canonical request.
type Message struct {
	Role    Role
	Content string
}

// Tool describes a function the model may call. Parameters is a JSON schema.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ResponseFormat requests structured output. Providers without native
// structured-output support get an explicit raw-JSON instruction appended to
// the prompt instead.
type ResponseFormat struct {
	Type   string // "json_object" or "json_schema"
	Schema map[string]any
}

// Request is the canonical generation request accepted by the gateway.
// Provider-specific wire shapes never leave the per-provider adapters.
type Request struct {
	Messages       []Message
	Tools          []Tool
	ToolChoice     string
	ResponseFormat *ResponseFormat
}

// Usage carries token accounting for one invocation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Choice is one generated completion in the canonical response.
type Choice struct {
	Index        int
	Message      Message
	FinishReason string
}

// Response is the canonical result shape every provider adapter normalizes
// into immediately after its call returns.
type Response struct {
	ID      string
	Model   string
	Choices []Choice
	Usage   Usage
}

// Text returns the content of the first choice, or "" when there is none.
func (r *Response) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
