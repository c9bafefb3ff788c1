package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
)

const (
	defaultGeminiModel   = "gemini-1.5-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// geminiTextExpr locates the first candidate's text in a
	// generateContent response.
	geminiTextExpr = "candidates[0].content.parts[0].text"
)

// Generation settings for the scoring prompt.
const (
	geminiTemperature     = 0.3
	geminiTopP            = 0.95
	geminiMaxOutputTokens = 2048
)

// JMESPathEvaluator abstracts response-path extraction for testability.
type JMESPathEvaluator interface {
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// GeminiConfig captures the subset of the Gemini API behaviour we need.
type GeminiConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	Client    *http.Client
	Evaluator JMESPathEvaluator
}

// Gemini scores essays through the generateContent endpoint.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	jems    JMESPathEvaluator
}

// NewGemini builds a Gemini scorer. Callers should pass a validated config.
func NewGemini(cfg GeminiConfig) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	jems := cfg.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}

	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  hc,
		jems:    jems,
	}, nil
}

// Name identifies the provider in logs and metrics.
func (g *Gemini) Name() string { return ProviderGemini }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// Score sends the combined prompt to Gemini and returns the first candidate's
// text with any wrapping markdown fence stripped.
func (g *Gemini) Score(ctx context.Context, taskPrompt, essayText string) ([]byte, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: combinedPrompt(taskPrompt, essayText)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     geminiTemperature,
			TopP:            geminiTopP,
			MaxOutputTokens: geminiMaxOutputTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	payload, readErr := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); readErr == nil {
		readErr = closeErr
	}
	if readErr != nil {
		return nil, fmt.Errorf("read gemini response: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini api %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	text, err := g.jems.Evaluate(geminiTextExpr, decoded)
	if err != nil {
		return nil, fmt.Errorf("extract gemini candidate text: %w", err)
	}
	s, _ := text.(string)
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("gemini response has no candidate text")
	}

	return []byte(stripFences(s)), nil
}

// stripFences removes a wrapping markdown code fence from a model response.
// Models sometimes fence the JSON despite instructions not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	if len(lines) > 1 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = lines[1:]
	}

	out := strings.Join(lines, "\n")
	if strings.HasPrefix(out, "json") {
		out = strings.TrimSpace(out[4:])
	}
	return out
}
