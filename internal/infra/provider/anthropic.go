package provider

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"songsmith/internal/usecase/invoke"
)

const (
	anthropicCallTimeout = 60 * time.Second
	anthropicMaxTokens   = 4096
)

// Anthropic translates canonical requests into the Messages API shape.
// Unlike the OpenAI family, system messages travel out-of-band and there is
// no native JSON mode, so structured-output requests get the raw-JSON
// instruction appended to the system text.
type Anthropic struct{}

// NewAnthropic creates the Anthropic provider adapter.
func NewAnthropic() *Anthropic {
	return &Anthropic{}
}

// Invoke implements invoke.ProviderAdapter. Exactly one attempt, no retry.
func (a *Anthropic) Invoke(ctx context.Context, cfg invoke.ProviderConfig, req *invoke.Request) (*invoke.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, anthropicCallTimeout)
	defer cancel()

	opts := []option.RequestOption{option.WithAPIKey(cfg.Credential.APIKey)}
	if cfg.Credential.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Credential.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	params := a.buildParams(cfg, req)

	start := time.Now()
	message, err := client.Messages.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &invoke.ProviderError{
				Provider:   "anthropic",
				StatusCode: apiErr.StatusCode,
				Detail:     apiErr.Error(),
			}
		}
		return nil, &invoke.ProviderError{Provider: "anthropic", Detail: err.Error()}
	}

	slog.DebugContext(ctx, "provider call completed",
		slog.String("provider", "anthropic"),
		slog.String("model", string(message.Model)),
		slog.Duration("duration", duration))

	return normalizeAnthropic(message), nil
}

// buildParams translates the canonical request. All system messages are
// collected into the out-of-band System field; any structured-output request
// appends the raw-JSON instruction there as well.
func (a *Anthropic) buildParams(cfg invoke.ProviderConfig, req *invoke.Request) anthropic.MessageNewParams {
	var systemParts []string
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, m := range req.Messages {
		switch m.Role {
		case invoke.RoleSystem:
			systemParts = append(systemParts, m.Content)
		case invoke.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	if req.ResponseFormat != nil {
		systemParts = append(systemParts, rawJSONInstruction)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: anthropicMaxTokens,
		Messages:  messages,
	}
	if len(systemParts) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(systemParts, "\n\n")}}
	}

	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.Parameters["properties"],
				},
			},
		})
	}

	switch req.ToolChoice {
	case "auto":
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	case "any", "required":
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
	}

	return params
}

// normalizeAnthropic maps the Messages API response into the canonical
// result shape, flattening text blocks into one content string.
func normalizeAnthropic(message *anthropic.Message) *invoke.Response {
	var parts []string
	for _, block := range message.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, textBlock.Text)
		}
	}

	promptTokens := int(message.Usage.InputTokens)
	completionTokens := int(message.Usage.OutputTokens)

	return &invoke.Response{
		ID:    message.ID,
		Model: string(message.Model),
		Choices: []invoke.Choice{{
			Index: 0,
			Message: invoke.Message{
				Role:    invoke.RoleAssistant,
				Content: strings.Join(parts, "\n"),
			},
			FinishReason: finishReason(message.StopReason),
		}},
		Usage: invoke.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}

// finishReason maps Anthropic stop reasons onto the canonical vocabulary.
func finishReason(reason anthropic.StopReason) string {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return "stop"
	case anthropic.StopReasonMaxTokens:
		return "length"
	case anthropic.StopReasonToolUse:
		return "tool_calls"
	default:
		return string(reason)
	}
}

var _ invoke.ProviderAdapter = (*Anthropic)(nil)
