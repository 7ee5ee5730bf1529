// Package platform implements render.PlatformAdapter for the external music
// generation services. Each adapter translates the canonical generation
// params and poll statuses to one platform's wire shapes; nothing outside
// this package sees a platform-specific payload.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"songsmith/internal/resilience/circuitbreaker"
	"songsmith/internal/resilience/retry"
	"songsmith/internal/usecase/render"
	"songsmith/internal/utils/text"
)

// SunoConfig configures the suno adapter.
type SunoConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Suno drives a Suno-style music generation API: submit a render, then poll
// a record-info endpoint until the task reaches a terminal status.
type Suno struct {
	config  SunoConfig
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewSuno creates a suno adapter. All HTTP calls run through a shared
// circuit breaker so a dead platform stops consuming the poll budget.
func NewSuno(config SunoConfig) *Suno {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Suno{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: circuitbreaker.New(circuitbreaker.PlatformAPIConfig()),
	}
}

// Suno task statuses, in rough pipeline order.
const (
	sunoStatusPending      = "PENDING"
	sunoStatusTextReady    = "TEXT_SUCCESS"
	sunoStatusFirstSuccess = "FIRST_SUCCESS"
	sunoStatusSuccess      = "SUCCESS"
)

// terminal failure statuses reported by the platform
var sunoFailureStatuses = map[string]string{
	"CREATE_TASK_FAILED":    "task creation failed",
	"GENERATE_AUDIO_FAILED": "audio generation failed",
	"CALLBACK_EXCEPTION":    "platform callback exception",
	"SENSITIVE_WORD_ERROR":  "input rejected by content filter",
}

// suno adapter input limits
const (
	sunoMaxTitleChars       = 80
	sunoMaxLyricsChars      = 3000
	sunoMaxStylePromptChars = 200
)

type sunoGenerateRequest struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style"`
	Title        string `json:"title"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
}

type sunoEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type sunoGenerateData struct {
	TaskID string `json:"taskId"`
}

type sunoRecordInfo struct {
	TaskID   string `json:"taskId"`
	Status   string `json:"status"`
	Response struct {
		SunoData []struct {
			AudioURL string  `json:"audioUrl"`
			Duration float64 `json:"duration"`
		} `json:"sunoData"`
	} `json:"response"`
	ErrorMessage string `json:"errorMessage"`
}

// Name implements render.PlatformAdapter.
func (s *Suno) Name() string { return "suno" }

// Constraints implements render.PlatformAdapter.
func (s *Suno) Constraints() render.Constraints {
	return render.Constraints{
		MaxTitleChars:       sunoMaxTitleChars,
		MaxLyricsChars:      sunoMaxLyricsChars,
		MaxStylePromptChars: sunoMaxStylePromptChars,
		SupportedFormats:    []string{"mp3"},
	}
}

// BestPractices implements render.PlatformAdapter. The guidance is meant to
// be embedded in upstream prompt-generation requests.
func (s *Suno) BestPractices() string {
	return "Keep the style prompt under 200 characters and describe genre, mood, " +
		"tempo, and instrumentation. Use [Verse]/[Chorus] section markers in the " +
		"lyrics. Avoid artist names; the platform rejects them."
}

// AutoFit implements render.PlatformAdapter. Over-long fields are truncated
// on rune boundaries rather than rejected.
func (s *Suno) AutoFit(params render.GenerateParams) render.GenerateParams {
	params.Title = text.TruncateRunes(params.Title, sunoMaxTitleChars)
	params.Lyrics = text.TruncateRunes(params.Lyrics, sunoMaxLyricsChars)
	params.StylePrompt = text.TruncateRunes(params.StylePrompt, sunoMaxStylePromptChars)
	return params
}

// GenerateMusic implements render.PlatformAdapter. Submission is retried
// with backoff on transient failures; a task ID is only returned once the
// platform has accepted the render.
func (s *Suno) GenerateMusic(ctx context.Context, params render.GenerateParams) (*render.GenerateResult, error) {
	body := sunoGenerateRequest{
		Prompt:       params.Lyrics,
		Style:        params.StylePrompt,
		Title:        params.Title,
		CustomMode:   true,
		Instrumental: false,
	}

	var data sunoGenerateData
	err := retry.WithBackoff(ctx, retry.PlatformAPIConfig(), func() error {
		return s.call(ctx, http.MethodPost, "/api/v1/generate", body, &data)
	})
	if err != nil {
		return nil, fmt.Errorf("suno generate: %w", err)
	}
	if data.TaskID == "" {
		return nil, fmt.Errorf("suno generate: response carried no task id")
	}
	return &render.GenerateResult{ExternalTaskID: data.TaskID}, nil
}

// CheckJobStatus implements render.PlatformAdapter. Transient failures are
// returned as-is; the orchestrator's poll loop absorbs them.
func (s *Suno) CheckJobStatus(ctx context.Context, externalTaskID string) (*render.JobStatusResult, error) {
	var info sunoRecordInfo
	path := "/api/v1/generate/record-info?taskId=" + externalTaskID
	if err := s.call(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, fmt.Errorf("suno record-info: %w", err)
	}

	if detail, ok := sunoFailureStatuses[info.Status]; ok {
		msg := detail
		if info.ErrorMessage != "" {
			msg = fmt.Sprintf("%s: %s", detail, info.ErrorMessage)
		}
		return &render.JobStatusResult{Failed: true, ErrorDetail: msg}, nil
	}

	switch info.Status {
	case sunoStatusSuccess:
		if len(info.Response.SunoData) == 0 {
			return nil, fmt.Errorf("suno record-info: SUCCESS with no tracks")
		}
		track := info.Response.SunoData[0]
		duration := track.Duration
		return &render.JobStatusResult{
			Completed:       true,
			Progress:        100,
			AudioURL:        track.AudioURL,
			DurationSeconds: &duration,
			Format:          "mp3",
		}, nil
	case sunoStatusFirstSuccess:
		return &render.JobStatusResult{Progress: 90, Message: "first pass ready"}, nil
	case sunoStatusTextReady:
		return &render.JobStatusResult{Progress: 50, Message: "text ready"}, nil
	case sunoStatusPending:
		return &render.JobStatusResult{Progress: 20, Message: "queued"}, nil
	default:
		// Unknown intermediate status: report it, keep polling.
		return &render.JobStatusResult{Message: info.Status}, nil
	}
}

// call issues one HTTP request through the circuit breaker and decodes the
// platform's response envelope into out.
func (s *Suno) call(ctx context.Context, method, path string, body, out any) error {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.doRequest(ctx, method, path, body)
	})
	if err != nil {
		return err
	}

	envelope := result.(*sunoEnvelope)
	if envelope.Code != 200 {
		return fmt.Errorf("platform error %d: %s", envelope.Code, envelope.Msg)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode platform response: %w", err)
		}
	}
	return nil
}

func (s *Suno) doRequest(ctx context.Context, method, path string, body any) (*sunoEnvelope, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var envelope sunoEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	return &envelope, nil
}
