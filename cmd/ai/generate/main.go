// Package main provides a CLI command for ad-hoc generation through the
// invocation gateway.
// Usage: songsmith-ai-generate "prompt" [--tier NAME] [--system MSG] [--json] [--output json]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"songsmith/internal/infra/provider"
	"songsmith/internal/infra/telemetry"
	"songsmith/internal/usecase/invoke"
)

// GenerateOutput represents the JSON output format for generation results.
type GenerateOutput struct {
	Tier             string `json:"tier"`
	Model            string `json:"model"`
	Text             string `json:"text"`
	FinishReason     string `json:"finish_reason,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

func main() {
	var (
		tier         string
		systemPrompt string
		jsonMode     bool
		outputFormat string
		timeout      time.Duration
	)

	flag.StringVar(&tier, "tier", "", "Tier to invoke (default: balanced)")
	flag.StringVar(&systemPrompt, "system", "", "Optional system message")
	flag.BoolVar(&jsonMode, "json", false, "Request a JSON object response")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Invocation timeout")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: Prompt is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: songsmith-ai-generate \"prompt\" [--tier NAME] [--system MSG] [--json] [--output json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  songsmith-ai-generate \"Write a chorus about rain\"")
		fmt.Fprintln(os.Stderr, "  songsmith-ai-generate \"Suggest three song titles\" --tier speed")
		fmt.Fprintln(os.Stderr, "  songsmith-ai-generate \"Describe this style\" --json --output json")
		os.Exit(1)
	}
	prompt := args[0]

	logger := initLogger()

	tiers, err := invoke.LoadTiers()
	if err != nil {
		logger.Error("failed to load tier configuration", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to load tier configuration: %v\n", err)
		os.Exit(1)
	}

	gateway := invoke.NewGateway(
		tiers,
		provider.NewEnvResolver(),
		provider.NewAdapters(),
		telemetry.NewUsageSink(logger),
	)

	req := &invoke.Request{}
	if systemPrompt != "" {
		req.Messages = append(req.Messages, invoke.Message{Role: invoke.RoleSystem, Content: systemPrompt})
	}
	req.Messages = append(req.Messages, invoke.Message{Role: invoke.RoleUser, Content: prompt})
	if jsonMode {
		req.ResponseFormat = &invoke.ResponseFormat{Type: "json_object"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := gateway.Invoke(ctx, req, tier)
	if err != nil {
		var aggErr *invoke.AggregateError
		if errors.As(err, &aggErr) {
			fmt.Fprintf(os.Stderr, "Error: All providers failed for tier %q:\n", aggErr.Tier)
			for _, attempt := range aggErr.Attempts {
				fmt.Fprintf(os.Stderr, "  %s: %v\n", attempt.Provider, attempt.Err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error: Invocation failed: %v\n", err)
		}
		os.Exit(1)
	}

	if outputFormat == "json" {
		outputJSON(tier, resp)
	} else {
		outputText(resp)
	}
}

// outputText prints the generated text followed by a usage summary on stderr.
func outputText(resp *invoke.Response) {
	fmt.Println(resp.Text())
	fmt.Fprintf(os.Stderr, "\n[%s] tokens: %d prompt + %d completion = %d total\n",
		resp.Model,
		resp.Usage.PromptTokens,
		resp.Usage.CompletionTokens,
		resp.Usage.TotalTokens)
}

// outputJSON prints generation results in JSON format.
func outputJSON(tier string, resp *invoke.Response) {
	if tier == "" {
		tier = invoke.DefaultTier
	}
	output := GenerateOutput{
		Tier:             tier,
		Model:            resp.Model,
		Text:             resp.Text(),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if len(resp.Choices) > 0 {
		output.FinishReason = resp.Choices[0].FinishReason
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

// initLogger initializes and returns a structured logger.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
