package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// HTTPClient talks to an OpenAI-style API: chat completions for text,
// images for illustration, moderations for content checks.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	client     *http.Client
}

func NewHTTPClient(baseURL, apiKey, textModel, imageModel string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		textModel:  textModel,
		imageModel: imageModel,
		client:     &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) AnalyzeDream(ctx context.Context, description string) (*DreamAnalysis, error) {
	text, err := c.complete(ctx, dreamPrompt(description))
	if err != nil {
		return nil, err
	}

	var out DreamAnalysis
	if err := json.Unmarshal(stripFences(text), &out); err != nil {
		return nil, fmt.Errorf("%w: decode analysis: %v", ErrOracle, err)
	}
	if len(out.Tags) == 0 && out.Narrative == "" {
		return nil, fmt.Errorf("%w: empty analysis", ErrOracle)
	}
	return &out, nil
}

func (c *HTTPClient) TagMoment(ctx context.Context, caption, mediaType string) ([]string, error) {
	if strings.TrimSpace(caption) == "" {
		// nothing to analyze; tag by kind alone, no oracle round-trip
		return []string{mediaType, "moment"}, nil
	}

	text, err := c.complete(ctx, momentPrompt(caption, mediaType))
	if err != nil {
		return nil, err
	}

	var out struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(stripFences(text), &out); err != nil {
		return nil, fmt.Errorf("%w: decode tags: %v", ErrOracle, err)
	}
	if len(out.Tags) == 0 {
		return nil, fmt.Errorf("%w: empty tags", ErrOracle)
	}
	return append(out.Tags, mediaType), nil
}

func (c *HTTPClient) RefineResonance(ctx context.Context, in RefineInput) (*Refinement, error) {
	text, err := c.complete(ctx, refinePrompt(in))
	if err != nil {
		return nil, err
	}

	var out Refinement
	if err := json.Unmarshal(stripFences(text), &out); err != nil {
		return nil, fmt.Errorf("%w: decode refinement: %v", ErrOracle, err)
	}
	if out.Score < 0 || out.Score > 100 {
		return nil, fmt.Errorf("%w: score %d out of range", ErrOracle, out.Score)
	}
	return &out, nil
}

// maxImagePromptBytes is the image API's prompt limit.
const maxImagePromptBytes = 4000

// enhancePrompt wraps the visual prompt in the house style and caps it at
// the API limit without splitting a multi-byte character.
func enhancePrompt(prompt string) string {
	s := "Dreamlike surreal artwork: " + prompt + ". Ethereal, soft focus, mystical atmosphere."
	if len(s) <= maxImagePromptBytes {
		return s
	}
	cut := maxImagePromptBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (c *HTTPClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":  c.imageModel,
		"prompt": enhancePrompt(prompt),
		"size":   "1024x1024",
		"n":      1,
	}

	raw, err := c.post(ctx, "/images/generations", body)
	if err != nil {
		return "", err
	}

	var result struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: decode image response: %v", ErrOracle, err)
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", fmt.Errorf("%w: no image returned", ErrOracle)
	}
	return result.Data[0].URL, nil
}

func (c *HTTPClient) Moderate(ctx context.Context, text string) (bool, error) {
	raw, err := c.post(ctx, "/moderations", map[string]any{"input": text})
	if err != nil {
		return false, err
	}

	var result struct {
		Results []struct {
			Flagged bool `json:"flagged"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return false, fmt.Errorf("%w: decode moderation: %v", ErrOracle, err)
	}
	if len(result.Results) == 0 {
		return false, fmt.Errorf("%w: empty moderation result", ErrOracle)
	}
	return result.Results[0].Flagged, nil
}

// complete sends a single-turn chat completion and returns the text content.
func (c *HTTPClient) complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":           c.textModel,
		"temperature":     0.3,
		"max_tokens":      1024,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	raw, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: decode completion: %v", ErrOracle, err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrOracle)
	}
	return result.Choices[0].Message.Content, nil
}

// post sends one request with at most one immediate retry on transient
// failure. More retries would hold the user-facing request open too long.
func (c *HTTPClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, retryable, err := c.postOnce(ctx, path, payload)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *HTTPClient) postOnce(ctx context.Context, path string, payload []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrOracle, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: read response: %v", ErrOracle, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, fmt.Errorf("%w: status %d: %s", ErrOracle, resp.StatusCode, raw)
	}
	return raw, false, nil
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) []byte {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return []byte(strings.TrimSpace(s))
}
