package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"songsmith/internal/usecase/invoke"
)

const openAICallTimeout = 60 * time.Second

// rawJSONInstruction is appended to the prompt when the caller asked for
// structured output but the provider has no native JSON mode.
const rawJSONInstruction = "Respond with raw JSON only. Do not wrap the output in markdown fences or add any prose."

// OpenAICompatible translates canonical requests for any provider exposing
// the OpenAI chat-completions wire shape. One instance serves one provider
// name; the credential supplies the base URL that distinguishes them.
type OpenAICompatible struct {
	provider string
	jsonMode bool // native structured-output support
}

// NewOpenAICompatible creates an adapter for one OpenAI-compatible provider.
// jsonMode marks providers with native structured-output support; the rest
// get an explicit raw-JSON instruction instead.
func NewOpenAICompatible(provider string, jsonMode bool) *OpenAICompatible {
	return &OpenAICompatible{provider: provider, jsonMode: jsonMode}
}

// Invoke implements invoke.ProviderAdapter. Exactly one attempt, no retry.
func (a *OpenAICompatible) Invoke(ctx context.Context, cfg invoke.ProviderConfig, req *invoke.Request) (*invoke.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, openAICallTimeout)
	defer cancel()

	clientConfig := openai.DefaultConfig(cfg.Credential.APIKey)
	if cfg.Credential.BaseURL != "" {
		clientConfig.BaseURL = cfg.Credential.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	wireReq := a.buildRequest(cfg, req)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, wireReq)
	duration := time.Since(start)

	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &invoke.ProviderError{
				Provider:   a.provider,
				StatusCode: apiErr.HTTPStatusCode,
				Detail:     apiErr.Message,
			}
		}
		return nil, &invoke.ProviderError{Provider: a.provider, Detail: err.Error()}
	}

	if len(resp.Choices) == 0 {
		return nil, &invoke.ProviderError{Provider: a.provider, Detail: "empty response"}
	}

	slog.DebugContext(ctx, "provider call completed",
		slog.String("provider", a.provider),
		slog.String("model", resp.Model),
		slog.Duration("duration", duration))

	return a.normalize(&resp), nil
}

// buildRequest translates the canonical request into the OpenAI wire shape.
func (a *OpenAICompatible) buildRequest(cfg invoke.ProviderConfig, req *invoke.Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	wireReq := openai.ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: messages,
	}

	for _, tool := range req.Tools {
		wireReq.Tools = append(wireReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if req.ToolChoice != "" {
		wireReq.ToolChoice = req.ToolChoice
	}

	if req.ResponseFormat != nil {
		if a.jsonMode {
			wireReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		} else {
			wireReq.Messages = append(wireReq.Messages, openai.ChatCompletionMessage{
				Role:    string(invoke.RoleSystem),
				Content: rawJSONInstruction,
			})
		}
	}

	return wireReq
}

// normalize maps the provider response into the canonical result shape.
func (a *OpenAICompatible) normalize(resp *openai.ChatCompletionResponse) *invoke.Response {
	choices := make([]invoke.Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		content := c.Message.Content
		if content == "" && len(c.Message.ToolCalls) > 0 {
			// Surface the first tool call's arguments as content so callers
			// that only read text still see the structured payload.
			content = c.Message.ToolCalls[0].Function.Arguments
		}
		choices = append(choices, invoke.Choice{
			Index: c.Index,
			Message: invoke.Message{
				Role:    invoke.Role(c.Message.Role),
				Content: content,
			},
			FinishReason: string(c.FinishReason),
		})
	}

	return &invoke.Response{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: invoke.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

var _ invoke.ProviderAdapter = (*OpenAICompatible)(nil)
