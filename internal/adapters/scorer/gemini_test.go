package scorer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiTextResponse(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	})
	return string(body)
}

func TestNewGemini_RequiresAPIKey(t *testing.T) {
	_, err := NewGemini(GeminiConfig{})
	assert.Error(t, err)
}

func TestGemini_Score(t *testing.T) {
	var gotPath, gotKey string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(geminiTextResponse(`{"overall_band": 7.0}`)))
	}))
	defer srv.Close()

	g, err := NewGemini(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	raw, err := g.Score(context.Background(), "Describe the chart.", "My essay text.")
	require.NoError(t, err)
	assert.JSONEq(t, `{"overall_band": 7.0}`, string(raw))

	assert.Equal(t, "/models/gemini-1.5-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)

	var req geminiRequest
	require.NoError(t, json.Unmarshal(gotBody, &req))
	require.Len(t, req.Contents, 1)
	require.Len(t, req.Contents[0].Parts, 1)
	prompt := req.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "You are an expert IELTS examiner.")
	assert.Contains(t, prompt, "Task Prompt:\nDescribe the chart.")
	assert.Contains(t, prompt, "Student's Essay:\nMy essay text.")
	assert.Equal(t, 0.3, req.GenerationConfig.Temperature)
	assert.Equal(t, 0.95, req.GenerationConfig.TopP)
	assert.Equal(t, 2048, req.GenerationConfig.MaxOutputTokens)
}

func TestGemini_Score_StripsFencedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(geminiTextResponse("```json\n{\"overall_band\": 6.5}\n```")))
	}))
	defer srv.Close()

	g, err := NewGemini(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	raw, err := g.Score(context.Background(), "prompt", "essay")
	require.NoError(t, err)
	assert.JSONEq(t, `{"overall_band": 6.5}`, string(raw))
}

func TestGemini_Score_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g, err := NewGemini(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = g.Score(context.Background(), "prompt", "essay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGemini_Score_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	g, err := NewGemini(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = g.Score(context.Background(), "prompt", "essay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidate text")
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare json untouched",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "json fence",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "plain fence",
			in:   "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "missing closing fence",
			in:   "```json\n{\"a\": 1}",
			want: `{"a": 1}`,
		},
		{
			name: "surrounding whitespace",
			in:   "  {\"a\": 1}\n",
			want: `{"a": 1}`,
		},
		{
			name: "multiline payload",
			in:   "```json\n{\n  \"a\": 1\n}\n```",
			want: "{\n  \"a\": 1\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripFences(tt.in)
			if got != tt.want {
				t.Fatalf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripFences_LoneFence(t *testing.T) {
	if got := stripFences("```"); strings.TrimSpace(got) != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
