package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songsmith/internal/usecase/render"
)

func newSunoForTest(url string) *Suno {
	return NewSuno(SunoConfig{APIKey: "key", BaseURL: url, Timeout: 5 * time.Second})
}

func TestSuno_GenerateMusic(t *testing.T) {
	var gotAuth string
	var gotReq sunoGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/generate", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"code":200,"msg":"success","data":{"taskId":"task-42"}}`))
	}))
	defer server.Close()

	result, err := newSunoForTest(server.URL).GenerateMusic(context.Background(), render.GenerateParams{
		Title:       "Night Drive",
		Lyrics:      "[Verse]\nheadlights on the highway",
		StylePrompt: "synthwave, 100 bpm",
	})
	require.NoError(t, err)

	assert.Equal(t, "task-42", result.ExternalTaskID)
	assert.Equal(t, "Bearer key", gotAuth)
	assert.Equal(t, "Night Drive", gotReq.Title)
	assert.Equal(t, "synthwave, 100 bpm", gotReq.Style)
	assert.True(t, gotReq.CustomMode)
}

func TestSuno_GenerateMusic_PlatformError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":429,"msg":"insufficient credits","data":null}`))
	}))
	defer server.Close()

	_, err := newSunoForTest(server.URL).GenerateMusic(context.Background(), render.GenerateParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient credits")
}

func TestSuno_CheckJobStatus_Milestones(t *testing.T) {
	tests := []struct {
		status       string
		wantProgress int
		wantMessage  string
	}{
		{sunoStatusPending, 20, "queued"},
		{sunoStatusTextReady, 50, "text ready"},
		{sunoStatusFirstSuccess, 90, "first pass ready"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "task-42", r.URL.Query().Get("taskId"))
				resp := `{"code":200,"msg":"success","data":{"taskId":"task-42","status":"` + tt.status + `"}}`
				_, _ = w.Write([]byte(resp))
			}))
			defer server.Close()

			got, err := newSunoForTest(server.URL).CheckJobStatus(context.Background(), "task-42")
			require.NoError(t, err)
			assert.False(t, got.Completed)
			assert.False(t, got.Failed)
			assert.Equal(t, tt.wantProgress, got.Progress)
			assert.Equal(t, tt.wantMessage, got.Message)
		})
	}
}

func TestSuno_CheckJobStatus_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"msg":"success","data":{
			"taskId":"task-42","status":"SUCCESS",
			"response":{"sunoData":[{"audioUrl":"https://cdn.example.com/t.mp3","duration":187.4}]}
		}}`))
	}))
	defer server.Close()

	got, err := newSunoForTest(server.URL).CheckJobStatus(context.Background(), "task-42")
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, "https://cdn.example.com/t.mp3", got.AudioURL)
	require.NotNil(t, got.DurationSeconds)
	assert.InDelta(t, 187.4, *got.DurationSeconds, 0.001)
	assert.Equal(t, "mp3", got.Format)
}

func TestSuno_CheckJobStatus_TerminalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"msg":"success","data":{
			"taskId":"task-42","status":"SENSITIVE_WORD_ERROR","errorMessage":"artist name detected"
		}}`))
	}))
	defer server.Close()

	got, err := newSunoForTest(server.URL).CheckJobStatus(context.Background(), "task-42")
	require.NoError(t, err)
	assert.True(t, got.Failed)
	assert.Contains(t, got.ErrorDetail, "content filter")
	assert.Contains(t, got.ErrorDetail, "artist name detected")
}

func TestSuno_AutoFit_TruncatesOverLongInputs(t *testing.T) {
	suno := newSunoForTest("http://unused")
	params := suno.AutoFit(render.GenerateParams{
		Title:       strings.Repeat("t", 200),
		Lyrics:      strings.Repeat("l", 5000),
		StylePrompt: strings.Repeat("s", 500),
	})

	c := suno.Constraints()
	assert.Len(t, params.Title, c.MaxTitleChars)
	assert.Len(t, params.Lyrics, c.MaxLyricsChars)
	assert.Len(t, params.StylePrompt, c.MaxStylePromptChars)

	// Already-fitting params pass through unchanged.
	small := render.GenerateParams{Title: "ok", Lyrics: "la", StylePrompt: "jazz"}
	assert.Equal(t, small, suno.AutoFit(small))
}

func TestNewAdapters_RegistersSuno(t *testing.T) {
	t.Setenv("SUNO_API_KEY", "k")
	adapters := NewAdapters()

	adapter, ok := adapters["suno"]
	require.True(t, ok)
	assert.Equal(t, "suno", adapter.Name())
}
